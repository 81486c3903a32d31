package agent

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	xerrors "ChainEcho/internal/errors"
	"ChainEcho/internal/insight"
	"ChainEcho/internal/knowledge"
	"ChainEcho/internal/llm"
)

// Request 描述一次自然语言提问。
type Request struct {
	ID       string         `json:"id,omitempty"`
	Question string         `json:"question"`
	Chain    string         `json:"chain,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result 汇总大模型推理与链上查询得到的结果。
type Result struct {
	Question     string `json:"question"`
	Chain        string `json:"chain"`
	TxHash       string `json:"tx_hash,omitempty"`
	Thought      string `json:"thought"`
	Reply        string `json:"reply"`
	ChainID      string `json:"chain_id"`
	BlockNumber  string `json:"block_number"`
	ExplorerURL  string `json:"explorer_url,omitempty"`
	Observations string `json:"observations"`
	CreatedAt    int64  `json:"created_at"`
}

// ChainResolver 抽象链客户端注册表，便于测试时注入假实现。
type ChainResolver interface {
	DefaultChain() string
	Client(name string) (insight.Client, bool)
	MatchChain(text string) string
	ExplorerTxURL(chain, hash string) string
}

// HistorySource 提供最近的问答记录作为大模型的上下文记忆。
type HistorySource interface {
	RecentHistory(ctx context.Context, limit int) ([]llm.HistoryEntry, error)
}

// Agent 协调大模型与链上查询，是系统的业务核心。
type Agent struct {
	llmClient   llm.Client
	chains      ChainResolver
	history     HistorySource
	knowledge   knowledge.Provider
	memoryDepth int
	llmTimeout  time.Duration
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// defaultMemoryDepth 是大模型调用时可参考的历史问答数量的默认值。
const defaultMemoryDepth = 5

// WithMemoryDepth 设置大模型调用时可参考的历史问答数量。
func WithMemoryDepth(depth int) Option {
	return func(a *Agent) {
		a.memoryDepth = depth
	}
}

// WithKnowledgeProvider 配置知识库，用于在推理前补充上下文。
func WithKnowledgeProvider(provider knowledge.Provider) Option {
	return func(a *Agent) {
		a.knowledge = provider
	}
}

// WithHistorySource 配置历史问答来源。
func WithHistorySource(source HistorySource) Option {
	return func(a *Agent) {
		a.history = source
	}
}

// WithLLMTimeout 设置调用大模型的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout <= 0 {
			a.llmTimeout = 0
			return
		}
		a.llmTimeout = timeout
	}
}

// New 创建一个 Agent。
func New(llmClient llm.Client, chains ChainResolver, opts ...Option) *Agent {
	ag := &Agent{
		llmClient:   llmClient,
		chains:      chains,
		memoryDepth: defaultMemoryDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	if ag.memoryDepth <= 0 {
		ag.memoryDepth = defaultMemoryDepth
	}
	return ag
}

// Execute 回答一个链上问题：先在问题中定位交易哈希与链名称，
// 查到链上数据后交给大模型生成回复。
func (a *Agent) Execute(ctx context.Context, req Request) (*Result, error) {
	if a.llmClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "问题内容不能为空")
	}

	historyEntries, observations := a.loadHistory(ctx)
	knowledgeEntries, knowledgeObservation := a.collectKnowledge(req.Question, req.Chain)
	observations = appendObservation(observations, knowledgeObservation)

	chainName := a.resolveChain(req)
	txHash, _ := insight.ExtractTxHash(req.Question)

	var (
		txSummary   string
		chainInfo   insight.ChainSnapshot
		explorerURL string
	)
	if a.chains != nil {
		client, ok := a.chains.Client(chainName)
		if !ok {
			return nil, xerrors.New(xerrors.CodeInvalidArgument,
				fmt.Sprintf("未配置链 %s 的访问端点", chainName))
		}

		if txHash != "" {
			tx, err := client.ResolveTransaction(ctx, txHash)
			if err != nil {
				observations = appendObservation(observations,
					fmt.Sprintf("查询交易 %s 失败: %v", txHash, err))
			} else {
				txSummary = tx.Summary()
				explorerURL = a.chains.ExplorerTxURL(chainName, txHash)
				if tx.Pending {
					observations = appendObservation(observations, "交易仍在等待打包")
				}
			}
		}

		snapshot, err := client.FetchChainSnapshot(ctx)
		if err != nil {
			observations = appendObservation(observations,
				fmt.Sprintf("获取链上信息失败: %v", err))
		} else {
			chainInfo = snapshot
		}
	} else {
		observations = appendObservation(observations, "未配置链客户端")
	}

	llmCtx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	llmOutput, err := a.llmClient.Generate(llmCtx, llm.Request{
		Question:  req.Question,
		TxSummary: txSummary,
		History:   historyEntries,
		Knowledge: knowledgeEntries,
	})
	if err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "大模型推理超时")
		}
		return nil, xerrors.Wrap(xerrors.CodeLLMFailure, err, "大模型推理失败")
	}

	if strings.TrimSpace(observations) == "" {
		observations = "未执行任何链上查询"
	}

	return &Result{
		Question:     req.Question,
		Chain:        chainName,
		TxHash:       txHash,
		Thought:      llmOutput.Thought,
		Reply:        llmOutput.Reply,
		ChainID:      chainInfo.ChainID,
		BlockNumber:  chainInfo.BlockNumber,
		ExplorerURL:  explorerURL,
		Observations: observations,
		CreatedAt:    time.Now().Unix(),
	}, nil
}

// resolveChain 按优先级确定本次提问使用的链：显式指定 > 文本匹配 > 默认链。
func (a *Agent) resolveChain(req Request) string {
	if chain := strings.ToLower(strings.TrimSpace(req.Chain)); chain != "" {
		return chain
	}
	if a.chains == nil {
		return ""
	}
	return a.chains.MatchChain(req.Question)
}

// appendObservation 将新的观察结果追加到现有的观察字符串中。
func appendObservation(existing, next string) string {
	next = strings.TrimSpace(next)
	if next == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return next
	}
	return existing + "\n" + next
}

// loadHistory 加载历史问答记录以供大模型参考。
func (a *Agent) loadHistory(ctx context.Context) ([]llm.HistoryEntry, string) {
	if a.history == nil || a.memoryDepth <= 0 {
		return nil, ""
	}

	entries, err := a.history.RecentHistory(ctx, a.memoryDepth)
	if err != nil {
		return nil, fmt.Sprintf("加载历史问答失败: %v", err)
	}
	return entries, ""
}

// collectKnowledge 从知识库中检索相关内容以供大模型参考。
func (a *Agent) collectKnowledge(question, chain string) ([]llm.KnowledgeCard, string) {
	if a.knowledge == nil {
		return nil, ""
	}

	snippets := a.knowledge.Query(question, chain)
	if len(snippets) == 0 {
		return nil, ""
	}

	cards := make([]llm.KnowledgeCard, 0, len(snippets))
	titles := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		if strings.TrimSpace(snippet.Title) == "" && strings.TrimSpace(snippet.Content) == "" {
			continue
		}
		cards = append(cards, llm.KnowledgeCard{
			Title:   snippet.Title,
			Content: snippet.Content,
		})
		if snippet.Title != "" {
			titles = append(titles, snippet.Title)
		}
	}

	observation := ""
	if len(titles) > 0 {
		observation = fmt.Sprintf("知识库提示: %s", strings.Join(titles, "；"))
	}
	return cards, observation
}
