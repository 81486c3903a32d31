package agent

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"ChainEcho/internal/insight"
	"ChainEcho/internal/llm"
)

const sampleHash = "0x9b7bb827c2e5e3c1a0a44dc53e571cbc9f1df474902345bb5bfbd2e3a54ca0cf"

type stubLLM struct {
	resp    *llm.Response
	err     error
	wait    time.Duration
	lastReq llm.Request
}

func (s *stubLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.lastReq = req
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubChainClient struct {
	tx          *insight.Transaction
	txErr       error
	snapshot    insight.ChainSnapshot
	snapshotErr error
}

func (s *stubChainClient) ResolveTransaction(_ context.Context, _ string) (*insight.Transaction, error) {
	if s.txErr != nil {
		return nil, s.txErr
	}
	return s.tx, nil
}

func (s *stubChainClient) FetchChainSnapshot(_ context.Context) (insight.ChainSnapshot, error) {
	return s.snapshot, s.snapshotErr
}

func (s *stubChainClient) Close() {}

type stubResolver struct {
	defaultChain string
	clients      map[string]insight.Client
	matched      string
}

func (s *stubResolver) DefaultChain() string { return s.defaultChain }

func (s *stubResolver) Client(name string) (insight.Client, bool) {
	client, ok := s.clients[name]
	return client, ok
}

func (s *stubResolver) MatchChain(string) string {
	if s.matched != "" {
		return s.matched
	}
	return s.defaultChain
}

func (s *stubResolver) ExplorerTxURL(chain, hash string) string {
	return "https://example.org/" + chain + "/tx/" + hash
}

func TestExecuteResolvesTransaction(t *testing.T) {
	llmClient := &stubLLM{resp: &llm.Response{Thought: "分析", Reply: "回答"}}
	chainClient := &stubChainClient{
		tx: &insight.Transaction{
			Hash:        sampleHash,
			Chain:       "base",
			ChainID:     "8453",
			BlockNumber: 100,
			Value:       big.NewInt(0),
		},
		snapshot: insight.ChainSnapshot{ChainID: "8453", BlockNumber: "101"},
	}
	resolver := &stubResolver{
		defaultChain: "ethereum",
		clients:      map[string]insight.Client{"base": chainClient},
		matched:      "base",
	}

	ag := New(llmClient, resolver)
	result, err := ag.Execute(context.Background(), Request{
		Question: "What happened in " + sampleHash + " on base?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Chain != "base" || result.TxHash != sampleHash {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.ExplorerURL != "https://example.org/base/tx/"+sampleHash {
		t.Fatalf("unexpected explorer url: %q", result.ExplorerURL)
	}
	if result.ChainID != "8453" || result.BlockNumber != "101" {
		t.Fatalf("chain snapshot not applied: %+v", result)
	}
	if !strings.Contains(llmClient.lastReq.TxSummary, sampleHash) {
		t.Fatalf("交易摘要没有进入大模型请求: %q", llmClient.lastReq.TxSummary)
	}
}

func TestExecuteWithoutHash(t *testing.T) {
	llmClient := &stubLLM{resp: &llm.Response{Reply: "回答"}}
	resolver := &stubResolver{
		defaultChain: "ethereum",
		clients:      map[string]insight.Client{"ethereum": &stubChainClient{}},
	}

	ag := New(llmClient, resolver)
	result, err := ag.Execute(context.Background(), Request{Question: "gas price 现在高吗"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TxHash != "" || result.ExplorerURL != "" {
		t.Fatalf("没有哈希时不应产生浏览器链接: %+v", result)
	}
	if llmClient.lastReq.TxSummary != "" {
		t.Fatalf("没有哈希时不应有交易摘要: %q", llmClient.lastReq.TxSummary)
	}
}

func TestExecuteRecordsLookupFailure(t *testing.T) {
	llmClient := &stubLLM{resp: &llm.Response{Reply: "回答"}}
	chainClient := &stubChainClient{txErr: errors.New("not found")}
	resolver := &stubResolver{
		defaultChain: "ethereum",
		clients:      map[string]insight.Client{"ethereum": &stubChainClient{}, "base": chainClient},
		matched:      "base",
	}

	ag := New(llmClient, resolver)
	result, err := ag.Execute(context.Background(), Request{Question: "check " + sampleHash})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Observations, "查询交易") {
		t.Fatalf("查询失败没有记入观察: %q", result.Observations)
	}
}

func TestExecuteExplicitChainOverridesMatch(t *testing.T) {
	llmClient := &stubLLM{resp: &llm.Response{Reply: "回答"}}
	resolver := &stubResolver{
		defaultChain: "ethereum",
		clients: map[string]insight.Client{
			"ethereum": &stubChainClient{},
			"polygon":  &stubChainClient{},
		},
		matched: "ethereum",
	}

	ag := New(llmClient, resolver)
	result, err := ag.Execute(context.Background(), Request{Question: "hello", Chain: "Polygon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Chain != "polygon" {
		t.Fatalf("显式指定的链没有生效: %q", result.Chain)
	}
}

func TestExecuteRejectsUnknownChain(t *testing.T) {
	llmClient := &stubLLM{resp: &llm.Response{Reply: "回答"}}
	resolver := &stubResolver{
		defaultChain: "ethereum",
		clients:      map[string]insight.Client{"ethereum": &stubChainClient{}},
	}

	ag := New(llmClient, resolver)
	if _, err := ag.Execute(context.Background(), Request{Question: "hi", Chain: "solana"}); err == nil {
		t.Fatal("未配置的链应当返回错误")
	}
}

func TestExecuteTimeout(t *testing.T) {
	llmClient := &stubLLM{wait: 50 * time.Millisecond}
	ag := New(llmClient, nil, WithLLMTimeout(10*time.Millisecond))

	_, err := ag.Execute(context.Background(), Request{Question: "测试"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline exceeded, got %v", err)
	}
}
