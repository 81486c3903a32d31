package insight

import (
	"math/big"
	"strings"
	"testing"
)

func TestGroupDigits(t *testing.T) {
	cases := map[uint64]string{
		0:          "0",
		7:          "7",
		999:        "999",
		1000:       "1,000",
		131092:     "131,092",
		28453333:   "28,453,333",
		1234567890: "1,234,567,890",
	}
	for input, want := range cases {
		if got := GroupDigits(input); got != want {
			t.Errorf("GroupDigits(%d) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatEther(t *testing.T) {
	if got := FormatEther(nil); got != "0 ETH" {
		t.Fatalf("nil value: %q", got)
	}
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if got := FormatEther(one); got != "1 ETH" {
		t.Fatalf("1 ether: %q", got)
	}
	half := new(big.Int).Div(one, big.NewInt(2))
	if got := FormatEther(half); got != "0.5 ETH" {
		t.Fatalf("0.5 ether: %q", got)
	}
}

func TestFormatGwei(t *testing.T) {
	if got := FormatGwei(big.NewInt(18_190_000_000)); got != "18.19 Gwei" {
		t.Fatalf("unexpected gwei formatting: %q", got)
	}
	if got := FormatGwei(big.NewInt(0)); got != "0 Gwei" {
		t.Fatalf("zero gwei: %q", got)
	}
}

func TestTransactionSummary(t *testing.T) {
	tx := &Transaction{
		Hash:        "0x4db65f81c76a596073d1eddefd592d0c3f2ef3d80f49dafee445d37e5444a3ad",
		Chain:       "base",
		ChainID:     "8453",
		BlockNumber: 28_453_333,
		Timestamp:   1_743_696_013,
		From:        "0x7b323b7f681d29d477fa33b68758880dd7cff62b",
		To:          "0xbf784c4a1867fa07bfc508631aa50d298d2fe12d",
		Value:       big.NewInt(0),
		GasUsed:     131_092,
		GasPrice:    big.NewInt(1_492_317),
		Status:      1,
		Nonce:       76_543,
	}

	summary := tx.Summary()
	for _, want := range []string{
		"Chain: base (chain id 8453)",
		"Block Number: 28,453,333",
		"Gas Used: 131,092",
		"Status: Success",
		"Value: 0 ETH",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestTransactionSummaryPending(t *testing.T) {
	tx := &Transaction{Hash: "0xabc", ChainID: "1", Pending: true}
	summary := tx.Summary()
	if !strings.Contains(summary, "pending") {
		t.Fatalf("pending summary should mention pending state: %s", summary)
	}
	if strings.Contains(summary, "Block Number") {
		t.Fatalf("pending summary should not carry block data: %s", summary)
	}
}

func TestExtractTxHash(t *testing.T) {
	question := "Can you analyze this transaction 0x4db65f81c76a596073d1eddefd592d0c3f2ef3d80f49dafee445d37e5444a3ad in Base?"
	hash, ok := ExtractTxHash(question)
	if !ok {
		t.Fatalf("expected to find a hash")
	}
	if !IsTxHash(hash) {
		t.Fatalf("extracted value is not a valid hash: %q", hash)
	}
	if _, ok := ExtractTxHash("no hash here"); ok {
		t.Fatalf("expected no hash")
	}
}
