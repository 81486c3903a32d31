package insight

import (
	"context"
	"math/big"
)

// ChainSnapshot 汇总链上的轻量级元信息，用于展示与审计。
type ChainSnapshot struct {
	ChainID     string
	BlockNumber string
	Notes       string
}

// Transaction 是一笔链上交易的结构化表示。
type Transaction struct {
	Hash        string
	Chain       string
	ChainID     string
	BlockNumber uint64
	BlockHash   string
	Timestamp   int64
	From        string
	To          string
	Value       *big.Int
	GasUsed     uint64
	GasPrice    *big.Int
	Status      uint64
	Nonce       uint64
	Pending     bool
}

// Client 定义了链客户端的统一接口，上层据此与不同网络交互。
type Client interface {
	ResolveTransaction(ctx context.Context, hash string) (*Transaction, error)
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	Close()
}
