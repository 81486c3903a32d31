package bot

import (
	"context"
	"strings"

	"ChainEcho/internal/agent"
	xerrors "ChainEcho/internal/errors"
	"ChainEcho/internal/observability/metrics"
	"ChainEcho/internal/task"
	"ChainEcho/internal/thread"
)

// Answerer 回答链上问题，通常由 agent.Agent 实现。
type Answerer interface {
	Execute(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// ThreadGenerator 把回答改写成推文线程。
type ThreadGenerator interface {
	Generate(ctx context.Context, data, explorerURL string) (*thread.Thread, error)
}

// ThreadPoster 把线程发布到 Twitter。
type ThreadPoster interface {
	PostThread(ctx context.Context, tweets []string, inReplyTo string) ([]string, error)
}

// Pipeline 把回答、线程生成与发布串成一次任务执行。
type Pipeline struct {
	answerer  Answerer
	generator ThreadGenerator
	poster    ThreadPoster
	dryRun    bool
}

// PipelineOption 定义可选的流水线配置。
type PipelineOption func(*Pipeline)

// WithDryRun 打开后只生成线程，不真正发布推文。
func WithDryRun(dryRun bool) PipelineOption {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// NewPipeline 创建流水线。
func NewPipeline(answerer Answerer, generator ThreadGenerator, poster ThreadPoster, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		answerer:  answerer,
		generator: generator,
		poster:    poster,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Execute 实现 task.Executor。
func (p *Pipeline) Execute(ctx context.Context, t *task.Task) (*task.ExecutionResult, error) {
	if p == nil || p.answerer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "流水线未初始化")
	}

	answer, err := p.answerer.Execute(ctx, agent.Request{
		ID:       t.ID,
		Question: t.Question,
		Chain:    t.Chain,
		Metadata: t.Metadata,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(answer.Reply) == "" {
		return nil, xerrors.New(xerrors.CodeLLMFailure, "大模型返回了空回答")
	}

	result := task.ExecutionResult{
		Thought:      answer.Thought,
		Reply:        answer.Reply,
		ChainID:      answer.ChainID,
		BlockNumber:  answer.BlockNumber,
		ExplorerURL:  answer.ExplorerURL,
		Observations: answer.Observations,
	}

	if p.generator == nil {
		return &result, nil
	}

	generated, err := p.generator.Generate(ctx, answer.Reply, answer.ExplorerURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeThreadFailure,
			&partialError{result: result, cause: err}, "生成推文线程失败")
	}
	result.Tweets = nonEmptyTweets(generated)

	if p.dryRun || t.DryRun {
		result.Observations = appendObservation(result.Observations, "dry-run 模式，线程未发布")
		return &result, nil
	}
	if p.poster == nil {
		result.Observations = appendObservation(result.Observations, "未配置 Twitter 客户端，线程未发布")
		return &result, nil
	}

	ids, err := p.poster.PostThread(ctx, result.Tweets, t.ReplyToTweetID)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTwitterFailure,
			&partialError{result: result, cause: err}, "发布推文线程失败")
	}
	result.TweetIDs = ids
	metrics.TweetsPosted(len(ids))
	return &result, nil
}

func nonEmptyTweets(t *thread.Thread) []string {
	if t == nil {
		return nil
	}
	tweets := make([]string, 0, len(t.Tweets))
	for _, tweet := range t.Tweets {
		if strings.TrimSpace(tweet) != "" {
			tweets = append(tweets, tweet)
		}
	}
	return tweets
}

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

var _ task.Executor = (*Pipeline)(nil)
