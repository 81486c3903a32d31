package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"ChainEcho/internal/insight"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name   string
	RPCURL string
	Notes  string
}

// txReader mirrors the subset of ethclient methods needed to resolve a
// transaction, so tests can substitute a fake backend.
type txReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*coretypes.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*coretypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*coretypes.Header, error)
}

// Client implements the insight.Client interface for EVM compatible chains.
type Client struct {
	name      string
	notes     string
	rpcClient *gethrpc.Client
	backend   txReader

	mu      sync.Mutex
	chainID *big.Int
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}

	return &Client{
		name:      cfg.Name,
		notes:     cfg.Notes,
		rpcClient: rpcClient,
		backend:   ethclient.NewClient(rpcClient),
	}, nil
}

// NewClientWithBackend wraps an existing backend, primarily for testing.
func NewClientWithBackend(name string, backend txReader) *Client {
	return &Client{name: name, backend: backend, notes: "custom backend"}
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
	c.backend = nil
}

// FetchChainSnapshot gathers lightweight metadata from the chain.
func (c *Client) FetchChainSnapshot(ctx context.Context) (insight.ChainSnapshot, error) {
	if c == nil || c.backend == nil {
		return insight.ChainSnapshot{}, errors.New("未初始化的以太坊客户端")
	}

	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		return insight.ChainSnapshot{}, err
	}
	blockNumber, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return insight.ChainSnapshot{}, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	return insight.ChainSnapshot{
		ChainID:     chainID.String(),
		BlockNumber: insight.GroupDigits(blockNumber),
		Notes:       c.notes,
	}, nil
}

// ResolveTransaction fetches the transaction, its receipt and the enclosing
// block header, then folds them into a structured transaction record.
func (c *Client) ResolveTransaction(ctx context.Context, hash string) (*insight.Transaction, error) {
	if c == nil || c.backend == nil {
		return nil, errors.New("未初始化的以太坊客户端")
	}
	hash = strings.TrimSpace(hash)
	if !insight.IsTxHash(hash) {
		return nil, fmt.Errorf("非法的交易哈希: %q", hash)
	}

	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		return nil, err
	}

	tx, pending, err := c.backend.TransactionByHash(ctx, common.HexToHash(hash))
	if err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}

	resolved := &insight.Transaction{
		Hash:    hash,
		Chain:   c.name,
		ChainID: chainID.String(),
		Value:   tx.Value(),
		Nonce:   tx.Nonce(),
		Pending: pending,
	}
	if to := tx.To(); to != nil {
		resolved.To = to.Hex()
	}
	if from, err := coretypes.Sender(coretypes.LatestSignerForChainID(chainID), tx); err == nil {
		resolved.From = from.Hex()
	}
	if pending {
		return resolved, nil
	}

	receipt, err := c.backend.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		return nil, fmt.Errorf("查询交易回执失败: %w", err)
	}
	resolved.BlockNumber = receipt.BlockNumber.Uint64()
	resolved.BlockHash = receipt.BlockHash.Hex()
	resolved.GasUsed = receipt.GasUsed
	resolved.Status = receipt.Status
	if receipt.EffectiveGasPrice != nil {
		resolved.GasPrice = receipt.EffectiveGasPrice
	} else {
		resolved.GasPrice = tx.GasPrice()
	}

	header, err := c.backend.HeaderByNumber(ctx, receipt.BlockNumber)
	if err == nil && header != nil {
		resolved.Timestamp = int64(header.Time)
	}

	return resolved, nil
}

func (c *Client) resolveChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != nil {
		return c.chainID, nil
	}
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	c.chainID = chainID
	return chainID, nil
}

var _ insight.Client = (*Client)(nil)
