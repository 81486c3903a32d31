package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeBackend struct {
	chainID *big.Int
	head    uint64
	tx      *coretypes.Transaction
	pending bool
	receipt *coretypes.Receipt
	header  *coretypes.Header
	txErr   error
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeBackend) TransactionByHash(context.Context, common.Hash) (*coretypes.Transaction, bool, error) {
	if f.txErr != nil {
		return nil, false, f.txErr
	}
	return f.tx, f.pending, nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*coretypes.Receipt, error) {
	return f.receipt, nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*coretypes.Header, error) {
	return f.header, nil
}

const sampleHash = "0x4db65f81c76a596073d1eddefd592d0c3f2ef3d80f49dafee445d37e5444a3ad"

func TestResolveTransaction(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	chainID := big.NewInt(8453)
	to := common.HexToAddress("0xbf784c4a1867fa07bfc508631aa50d298d2fe12d")

	tx, err := coretypes.SignNewTx(key, coretypes.LatestSignerForChainID(chainID), &coretypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     76543,
		To:        &to,
		Value:     big.NewInt(0),
		Gas:       133300,
		GasFeeCap: big.NewInt(1_787_824),
		GasTipCap: big.NewInt(60),
	})
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}

	backend := &fakeBackend{
		chainID: chainID,
		tx:      tx,
		receipt: &coretypes.Receipt{
			Status:            coretypes.ReceiptStatusSuccessful,
			BlockNumber:       big.NewInt(28_453_333),
			BlockHash:         common.HexToHash("0xc704ac399c4877dfa68362dc6a43f5f54460f22caa52589aade40ce97c1d0ee8"),
			GasUsed:           131_092,
			EffectiveGasPrice: big.NewInt(1_492_317),
		},
		header: &coretypes.Header{
			Number: big.NewInt(28_453_333),
			Time:   1_743_696_013,
		},
	}

	client := NewClientWithBackend("base", backend)
	resolved, err := client.ResolveTransaction(context.Background(), sampleHash)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if resolved.Chain != "base" || resolved.ChainID != "8453" {
		t.Fatalf("unexpected chain info: %+v", resolved)
	}
	if resolved.BlockNumber != 28_453_333 || resolved.GasUsed != 131_092 {
		t.Fatalf("unexpected block data: %+v", resolved)
	}
	if resolved.Timestamp != 1_743_696_013 {
		t.Fatalf("unexpected timestamp: %d", resolved.Timestamp)
	}
	if resolved.Status != 1 {
		t.Fatalf("expected successful status, got %d", resolved.Status)
	}
	want := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if resolved.From != want {
		t.Fatalf("unexpected sender: got %s want %s", resolved.From, want)
	}
	if resolved.To != to.Hex() {
		t.Fatalf("unexpected recipient: %s", resolved.To)
	}
}

func TestResolveTransactionPending(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	chainID := big.NewInt(1)
	to := common.HexToAddress("0x7b323b7f681d29d477fa33b68758880dd7cff62b")
	tx, err := coretypes.SignNewTx(key, coretypes.LatestSignerForChainID(chainID), &coretypes.DynamicFeeTx{
		ChainID:   chainID,
		To:        &to,
		Value:     big.NewInt(1),
		Gas:       21000,
		GasFeeCap: big.NewInt(2_000_000_000),
		GasTipCap: big.NewInt(1_000_000_000),
	})
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}

	client := NewClientWithBackend("ethereum", &fakeBackend{chainID: chainID, tx: tx, pending: true})
	resolved, err := client.ResolveTransaction(context.Background(), sampleHash)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.Pending {
		t.Fatalf("expected pending transaction")
	}
	if resolved.BlockNumber != 0 {
		t.Fatalf("pending transaction should not carry block data: %+v", resolved)
	}
}

func TestResolveTransactionRejectsBadHash(t *testing.T) {
	client := NewClientWithBackend("ethereum", &fakeBackend{chainID: big.NewInt(1)})
	if _, err := client.ResolveTransaction(context.Background(), "0x1234"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}

func TestResolveTransactionLookupError(t *testing.T) {
	client := NewClientWithBackend("ethereum", &fakeBackend{
		chainID: big.NewInt(1),
		txErr:   errors.New("not found"),
	})
	if _, err := client.ResolveTransaction(context.Background(), sampleHash); err == nil {
		t.Fatalf("expected lookup error to propagate")
	}
}
