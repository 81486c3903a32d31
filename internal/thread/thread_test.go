package thread

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeCompleter struct {
	output string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, user string) (string, error) {
	f.prompt = user
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func TestGenerateParsesThreeTweets(t *testing.T) {
	completer := &fakeCompleter{output: `Tweet 1: A whale just moved 1,234 ETH on Ethereum.

Tweet 2: Key details:
• From: 0x123...
• To: 0x456...
• Gas Used: 21,000

Tweet 3: Transaction confirmed in block 19,000,000. View on explorer: https://etherscan.io/tx/0xabc`}

	generator := NewGenerator(completer)
	thread, err := generator.Generate(context.Background(), "summary", "https://etherscan.io/tx/0xabc")
	if err != nil {
		t.Fatalf("生成线程失败: %v", err)
	}

	if thread.Tweets[0] != "A whale just moved 1,234 ETH on Ethereum." {
		t.Fatalf("第一条推文不符合预期: %q", thread.Tweets[0])
	}
	if !strings.Contains(thread.Tweets[1], "• From: 0x123...") {
		t.Fatalf("第二条推文缺少项目符号行: %q", thread.Tweets[1])
	}
	if !strings.Contains(thread.Tweets[2], "https://etherscan.io/tx/0xabc") {
		t.Fatalf("最后一条推文缺少浏览器链接: %q", thread.Tweets[2])
	}
	if !strings.Contains(completer.prompt, "exactly 3 tweets") {
		t.Fatalf("提示词缺少推文数量约束: %q", completer.prompt)
	}
}

func TestGenerateStripsMarkdown(t *testing.T) {
	completer := &fakeCompleter{output: "Tweet 1: Value was **1.5 ETH** sent from `0xabc`.\n\nTweet 2: second\n\nTweet 3: third"}

	generator := NewGenerator(completer)
	thread, err := generator.Generate(context.Background(), "summary", "")
	if err != nil {
		t.Fatalf("生成线程失败: %v", err)
	}
	if strings.ContainsAny(thread.Tweets[0], "`*") {
		t.Fatalf("推文仍残留 markdown: %q", thread.Tweets[0])
	}
	if thread.Tweets[0] != "Value was 1.5 ETH sent from 0xabc." {
		t.Fatalf("清理结果不符合预期: %q", thread.Tweets[0])
	}
}

func TestGenerateAppendsMissingExplorerLink(t *testing.T) {
	completer := &fakeCompleter{output: "Tweet 1: one\n\nTweet 2: two\n\nTweet 3: final summary without link"}

	generator := NewGenerator(completer)
	thread, err := generator.Generate(context.Background(), "summary", "https://basescan.org/tx/0xdef")
	if err != nil {
		t.Fatalf("生成线程失败: %v", err)
	}
	if !strings.Contains(thread.Tweets[2], "https://basescan.org/tx/0xdef") {
		t.Fatalf("缺失的链接没有被补上: %q", thread.Tweets[2])
	}
	if runeLen(thread.Tweets[2]) > MaxTweetRunes {
		t.Fatalf("补链接后超过字符上限: %d", runeLen(thread.Tweets[2]))
	}
}

func TestGeneratePadsShortThreads(t *testing.T) {
	completer := &fakeCompleter{output: "Tweet 1: only one tweet came back"}

	generator := NewGenerator(completer)
	thread, err := generator.Generate(context.Background(), "summary", "")
	if err != nil {
		t.Fatalf("生成线程失败: %v", err)
	}
	if thread.Tweets[0] == "" {
		t.Fatal("第一条推文不应为空")
	}
	if thread.Tweets[1] != "" || thread.Tweets[2] != "" {
		t.Fatalf("缺失的推文应保持为空: %+v", thread.Tweets)
	}
}

func TestGenerateRejectsUnparseableOutput(t *testing.T) {
	completer := &fakeCompleter{output: "Sorry, I cannot help with that."}

	generator := NewGenerator(completer)
	if _, err := generator.Generate(context.Background(), "summary", ""); err == nil {
		t.Fatal("无法解析的输出应当返回错误")
	}
}

func TestGeneratePropagatesCompleterError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("rate limited")}

	generator := NewGenerator(completer)
	if _, err := generator.Generate(context.Background(), "summary", ""); err == nil {
		t.Fatal("模型错误应当向上传递")
	}
}

func TestTruncateRespectsRuneBoundary(t *testing.T) {
	long := strings.Repeat("区", 300)
	got := Truncate(long, MaxTweetRunes)
	if runeLen(got) > MaxTweetRunes {
		t.Fatalf("截断后仍超限: %d", runeLen(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("截断结果缺少省略号: %q", got[len(got)-9:])
	}
}

func TestParseTweetsMergesContinuationLines(t *testing.T) {
	raw := "Tweet 1: first line\nsecond line\n\nTweet 2: two\n\nTweet 3: three"
	tweets := ParseTweets(raw)
	if len(tweets) != 3 {
		t.Fatalf("期望解析出 3 条推文, 实际 %d", len(tweets))
	}
	if tweets[0] != "first line\nsecond line" {
		t.Fatalf("续行没有并入第一条推文: %q", tweets[0])
	}
}
