package insight

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

var (
	weiPerEther = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	weiPerGwei  = new(big.Float).SetInt(big.NewInt(1_000_000_000))
)

// FormatEther 将 wei 数值转换为易读的 ETH 表示。
func FormatEther(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0 ETH"
	}
	value := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther)
	return strings.TrimRight(strings.TrimRight(value.Text('f', 6), "0"), ".") + " ETH"
}

// FormatGwei 将 wei 数值转换为易读的 Gwei 表示。
func FormatGwei(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0 Gwei"
	}
	value := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerGwei)
	return strings.TrimRight(strings.TrimRight(value.Text('f', 2), "0"), ".") + " Gwei"
}

// GroupDigits 为十进制整数插入千位分隔符，推文要求数字必须分组展示。
func GroupDigits(value uint64) string {
	digits := fmt.Sprintf("%d", value)
	if len(digits) <= 3 {
		return digits
	}
	var builder strings.Builder
	offset := len(digits) % 3
	if offset > 0 {
		builder.WriteString(digits[:offset])
	}
	for i := offset; i < len(digits); i += 3 {
		if builder.Len() > 0 {
			builder.WriteString(",")
		}
		builder.WriteString(digits[i : i+3])
	}
	return builder.String()
}

// Summary 将交易渲染为供大模型消费的纯文本摘要。
func (t *Transaction) Summary() string {
	if t == nil {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Hash: %s\n", t.Hash))
	if t.Chain != "" {
		builder.WriteString(fmt.Sprintf("Chain: %s (chain id %s)\n", t.Chain, t.ChainID))
	} else {
		builder.WriteString(fmt.Sprintf("Chain ID: %s\n", t.ChainID))
	}
	if t.Pending {
		builder.WriteString("Status: pending (not yet mined)\n")
		return builder.String()
	}
	builder.WriteString(fmt.Sprintf("Block Number: %s\n", GroupDigits(t.BlockNumber)))
	if t.BlockHash != "" {
		builder.WriteString(fmt.Sprintf("Block Hash: %s\n", t.BlockHash))
	}
	if t.Timestamp > 0 {
		builder.WriteString(fmt.Sprintf("Timestamp: %s\n", time.Unix(t.Timestamp, 0).UTC().Format(time.RFC3339)))
	}
	builder.WriteString(fmt.Sprintf("From: %s\n", t.From))
	if t.To != "" {
		builder.WriteString(fmt.Sprintf("To: %s\n", t.To))
	} else {
		builder.WriteString("To: (contract creation)\n")
	}
	builder.WriteString(fmt.Sprintf("Value: %s\n", FormatEther(t.Value)))
	builder.WriteString(fmt.Sprintf("Gas Used: %s\n", GroupDigits(t.GasUsed)))
	builder.WriteString(fmt.Sprintf("Gas Price: %s\n", FormatGwei(t.GasPrice)))
	builder.WriteString(fmt.Sprintf("Nonce: %s\n", GroupDigits(t.Nonce)))
	if t.Status == 1 {
		builder.WriteString("Status: Success\n")
	} else {
		builder.WriteString("Status: Failure\n")
	}
	return builder.String()
}
