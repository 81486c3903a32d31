package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ChainEcho/internal/agent"
	xerrors "ChainEcho/internal/errors"
	"ChainEcho/internal/task"
	"ChainEcho/internal/thread"
)

type stubAnswerer struct {
	result *agent.Result
	err    error
}

func (s *stubAnswerer) Execute(_ context.Context, _ agent.Request) (*agent.Result, error) {
	return s.result, s.err
}

type stubGenerator struct {
	thread *thread.Thread
	err    error
}

func (s *stubGenerator) Generate(_ context.Context, _, _ string) (*thread.Thread, error) {
	return s.thread, s.err
}

type stubPoster struct {
	ids       []string
	err       error
	gotTweets []string
	gotReply  string
}

func (s *stubPoster) PostThread(_ context.Context, tweets []string, inReplyTo string) ([]string, error) {
	s.gotTweets = tweets
	s.gotReply = inReplyTo
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}

func sampleAnswer() *agent.Result {
	return &agent.Result{
		Question:     "what happened?",
		Thought:      "查询交易详情",
		Reply:        "一笔 1.5 ETH 的转账",
		ChainID:      "1",
		BlockNumber:  "19,000,000",
		ExplorerURL:  "https://etherscan.io/tx/0xabc",
		Observations: "链上查询完成",
	}
}

func sampleThread() *thread.Thread {
	return &thread.Thread{Tweets: [thread.Length]string{"one", "two", "three"}}
}

func TestPipelineExecuteSuccess(t *testing.T) {
	poster := &stubPoster{ids: []string{"1", "2", "3"}}
	pipeline := NewPipeline(
		&stubAnswerer{result: sampleAnswer()},
		&stubGenerator{thread: sampleThread()},
		poster,
	)

	result, err := pipeline.Execute(context.Background(), &task.Task{
		ID:             "t1",
		Question:       "what happened?",
		ReplyToTweetID: "900",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.TweetIDs) != 3 {
		t.Fatalf("线程没有完整发布: %+v", result.TweetIDs)
	}
	if poster.gotReply != "900" {
		t.Fatalf("线程没有挂在提及下面: %q", poster.gotReply)
	}
	if result.Reply != "一笔 1.5 ETH 的转账" {
		t.Fatalf("回答内容丢失: %q", result.Reply)
	}
}

func TestPipelineDryRunSkipsPosting(t *testing.T) {
	poster := &stubPoster{ids: []string{"1"}}
	pipeline := NewPipeline(
		&stubAnswerer{result: sampleAnswer()},
		&stubGenerator{thread: sampleThread()},
		poster,
	)

	result, err := pipeline.Execute(context.Background(), &task.Task{ID: "t1", Question: "q", DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.TweetIDs) != 0 {
		t.Fatalf("dry-run 不应发布推文: %+v", result.TweetIDs)
	}
	if len(result.Tweets) != 3 {
		t.Fatalf("dry-run 仍应生成线程: %+v", result.Tweets)
	}
	if poster.gotTweets != nil {
		t.Fatal("dry-run 模式下不应调用发布接口")
	}
}

func TestPipelineThreadFailureCarriesPartialResult(t *testing.T) {
	pipeline := NewPipeline(
		&stubAnswerer{result: sampleAnswer()},
		&stubGenerator{err: errors.New("bad output")},
		&stubPoster{},
	)

	_, err := pipeline.Execute(context.Background(), &task.Task{ID: "t1", Question: "q"})
	if err == nil {
		t.Fatal("线程生成失败应当返回错误")
	}
	if xerrors.CodeOf(err) != xerrors.CodeThreadFailure {
		t.Fatalf("错误码不符合预期: %v", xerrors.CodeOf(err))
	}

	fallback, recErr := PostRecovery{}.Recover(context.Background(), &task.Task{ID: "t1"}, err)
	if recErr != nil {
		t.Fatalf("降级不应出错: %v", recErr)
	}
	if fallback == nil || fallback.Reply != "一笔 1.5 ETH 的转账" {
		t.Fatalf("降级结果缺少回答: %+v", fallback)
	}
	if !strings.Contains(fallback.Observations, "降级") {
		t.Fatalf("降级没有记入观察: %q", fallback.Observations)
	}
}

func TestPipelinePostFailureCarriesTweets(t *testing.T) {
	pipeline := NewPipeline(
		&stubAnswerer{result: sampleAnswer()},
		&stubGenerator{thread: sampleThread()},
		&stubPoster{err: errors.New("rate limited")},
	)

	_, err := pipeline.Execute(context.Background(), &task.Task{ID: "t1", Question: "q"})
	if err == nil {
		t.Fatal("发布失败应当返回错误")
	}
	if xerrors.CodeOf(err) != xerrors.CodeTwitterFailure {
		t.Fatalf("错误码不符合预期: %v", xerrors.CodeOf(err))
	}

	fallback, recErr := PostRecovery{}.Recover(context.Background(), &task.Task{ID: "t1"}, err)
	if recErr != nil {
		t.Fatalf("降级不应出错: %v", recErr)
	}
	if fallback == nil || len(fallback.Tweets) != 3 {
		t.Fatalf("降级结果缺少已生成的线程: %+v", fallback)
	}
}

func TestPipelinePropagatesAnswerError(t *testing.T) {
	pipeline := NewPipeline(
		&stubAnswerer{err: xerrors.New(xerrors.CodeLLMFailure, "llm down")},
		&stubGenerator{thread: sampleThread()},
		&stubPoster{},
	)

	_, err := pipeline.Execute(context.Background(), &task.Task{ID: "t1", Question: "q"})
	if err == nil {
		t.Fatal("回答失败应当返回错误")
	}
	if xerrors.CodeOf(err) != xerrors.CodeLLMFailure {
		t.Fatalf("错误码不符合预期: %v", xerrors.CodeOf(err))
	}

	fallback, recErr := PostRecovery{}.Recover(context.Background(), &task.Task{ID: "t1"}, err)
	if recErr != nil || fallback != nil {
		t.Fatalf("没有部分结果时不应降级: %+v %v", fallback, recErr)
	}
}
