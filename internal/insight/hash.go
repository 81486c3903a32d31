package insight

import "regexp"

var (
	txHashPattern      = regexp.MustCompile(`0x[0-9a-fA-F]{64}`)
	exactTxHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// IsTxHash 判断给定字符串是否是合法的交易哈希。
func IsTxHash(value string) bool {
	return exactTxHashPattern.MatchString(value)
}

// ExtractTxHash 从自然语言文本中提取第一个交易哈希。
func ExtractTxHash(text string) (string, bool) {
	match := txHashPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}
