package thread

import "strings"

// ParseTweets 从模型输出中切出以 "Tweet N:" 开头的段落。
// 段落内的后续行会归并到当前推文，保持模型给出的换行结构。
func ParseTweets(raw string) []string {
	var (
		tweets  []string
		current []string
	)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if isTweetHeader(line) {
			if len(current) > 0 {
				tweets = append(tweets, strings.Join(current, "\n"))
			}
			_, content, _ := strings.Cut(line, ":")
			current = []string{strings.TrimSpace(content)}
			continue
		}
		if line != "" && len(current) > 0 {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		tweets = append(tweets, strings.Join(current, "\n"))
	}
	return tweets
}

func isTweetHeader(line string) bool {
	return strings.HasPrefix(line, "Tweet ") && strings.Contains(line, ":")
}

// CleanTweet 清除残留的 markdown 痕迹并规范化项目符号与空格。
func CleanTweet(tweet string) string {
	tweet = strings.ReplaceAll(tweet, "`", "")
	tweet = strings.ReplaceAll(tweet, "**", "")
	tweet = strings.ReplaceAll(tweet, "*", "")
	tweet = strings.ReplaceAll(tweet, "•", " • ")

	lines := strings.Split(tweet, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, strings.Join(strings.Fields(line), " "))
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// Truncate 在超过 limit 个字符时按 rune 边界截断并追加省略号。
func Truncate(tweet string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(tweet)
	if len(runes) <= limit {
		return tweet
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

func runeLen(s string) int {
	return len([]rune(s))
}
