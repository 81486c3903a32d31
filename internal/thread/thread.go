package thread

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ChainEcho/internal/llm"
)

const (
	// Length 是一条线程固定包含的推文数量。
	Length = 3
	// MaxTweetRunes 是单条推文允许的最大字符数。
	MaxTweetRunes = 280
)

// Thread 表示一条按顺序发布的推文线程。
type Thread struct {
	Tweets [Length]string `json:"tweets"`
}

// IsEmpty 判断线程是否没有任何内容。
func (t *Thread) IsEmpty() bool {
	if t == nil {
		return true
	}
	for _, tweet := range t.Tweets {
		if strings.TrimSpace(tweet) != "" {
			return false
		}
	}
	return true
}

// Generator 调用大模型把智能体的回答改写成推文线程。
type Generator struct {
	completer llm.Completer
}

// NewGenerator 创建线程生成器。
func NewGenerator(completer llm.Completer) *Generator {
	return &Generator{completer: completer}
}

const systemPrompt = "You are a helpful assistant that creates Twitter threads."

// Generate 根据智能体的回答生成一条三推文的线程。
// explorerURL 为空时不强制要求最后一条推文携带区块浏览器链接。
func (g *Generator) Generate(ctx context.Context, data, explorerURL string) (*Thread, error) {
	if g == nil || g.completer == nil {
		return nil, errors.New("线程生成器未初始化")
	}
	if strings.TrimSpace(data) == "" {
		return nil, errors.New("待改写的内容不能为空")
	}

	raw, err := g.completer.Complete(ctx, systemPrompt, buildPrompt(data, explorerURL))
	if err != nil {
		return nil, fmt.Errorf("生成推文线程失败: %w", err)
	}

	tweets := ParseTweets(raw)
	if len(tweets) == 0 {
		return nil, errors.New("模型输出中没有可解析的推文")
	}

	var result Thread
	for i := 0; i < Length && i < len(tweets); i++ {
		result.Tweets[i] = Truncate(CleanTweet(tweets[i]), MaxTweetRunes)
	}
	if explorerURL != "" {
		ensureExplorerLink(&result, explorerURL)
	}
	return &result, nil
}

// buildPrompt 构造线程改写提示词，格式要求与推文示例保持稳定。
func buildPrompt(data, explorerURL string) string {
	var builder strings.Builder
	builder.WriteString("Write a Twitter thread about the content below in exactly 3 tweets. ")
	builder.WriteString("The data is about a transaction on the blockchain and you must ALWAYS follow the instructions provided.\n\n")
	builder.WriteString("Content:\n")
	builder.WriteString(strings.TrimSpace(data))
	builder.WriteString("\n\nRequirements:\n")
	builder.WriteString("- No hashtags\n")
	builder.WriteString("- Use bullet points (•) for better readability, each bullet point on its own line\n")
	builder.WriteString("- NO markdown formatting (no backticks, no asterisks for bold)\n")
	builder.WriteString("- For technical data like addresses, use clear labels: \"From: 0x123...\"\n")
	builder.WriteString("- Easy-to-read content with clear keywords and concise language\n")
	builder.WriteString("- Natural flow between tweets, the transition between tweets should be seamless\n")
	builder.WriteString("- Each tweet must stay under 280 characters\n")
	builder.WriteString("- Format numbers with commas for better readability (e.g., \"1,234,567\" not \"1234567\")\n")
	builder.WriteString("- Use proper units (e.g., \"ETH\" for Ether values, \"Gwei\" for gas prices)\n")
	if explorerURL != "" {
		builder.WriteString(fmt.Sprintf("- Include this block explorer link in the last tweet: %s\n", explorerURL))
	}
	builder.WriteString("\nFormat:\n")
	builder.WriteString("Return the thread as plain text with each tweet on a new line:\n\n")
	builder.WriteString("Tweet 1: [First tweet content]\n\n")
	builder.WriteString("Tweet 2: [Second tweet content]\n\n")
	builder.WriteString("Tweet 3: [Third tweet content with block explorer link]\n")
	return builder.String()
}

// ensureExplorerLink 保证最后一条推文携带浏览器链接，模型偶尔会漏掉它。
func ensureExplorerLink(t *Thread, explorerURL string) {
	for _, tweet := range t.Tweets {
		if strings.Contains(tweet, explorerURL) {
			return
		}
	}
	last := strings.TrimSpace(t.Tweets[Length-1])
	suffix := "View on explorer: " + explorerURL
	if last == "" {
		t.Tweets[Length-1] = Truncate(suffix, MaxTweetRunes)
		return
	}
	combined := last + "\n" + suffix
	if runeLen(combined) > MaxTweetRunes {
		budget := MaxTweetRunes - runeLen(suffix) - 1
		if budget < 0 {
			budget = 0
		}
		last = Truncate(last, budget)
		combined = strings.TrimSpace(last + "\n" + suffix)
	}
	t.Tweets[Length-1] = combined
}
