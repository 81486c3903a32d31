package llm

import "context"

// Request 描述发送给大模型的任务上下文。
type Request struct {
	Question  string
	TxSummary string
	History   []HistoryEntry
	Knowledge []KnowledgeCard
}

// Response 是大模型推理得到的结构化输出。
type Response struct {
	Thought string
	Reply   string
}

// KnowledgeCard 表示提供给大模型的知识切片，帮助生成更加准确的回复。
type KnowledgeCard struct {
	Title   string
	Content string
}

// HistoryEntry 描述了一次历史问答，用于为大模型提供上下文记忆。
type HistoryEntry struct {
	Question     string
	Reply        string
	Observations string
	CreatedAt    int64
}

// Client 定义了调用大模型生成结构化回答的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Completer 定义了自由文本补全能力，线程生成器依赖它拿到原始输出。
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
