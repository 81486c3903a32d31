package bot

import (
	"context"
	"testing"

	"ChainEcho/internal/task"
	"ChainEcho/internal/twitter"
)

type stubSource struct {
	user     *twitter.User
	mentions []twitter.Mention
	gotSince string
}

func (s *stubSource) Me(_ context.Context) (*twitter.User, error) {
	return s.user, nil
}

func (s *stubSource) Mentions(_ context.Context, _, sinceID string, _ int) ([]twitter.Mention, error) {
	s.gotSince = sinceID
	return s.mentions, nil
}

type stubSubmitter struct {
	requests []task.Request
}

func (s *stubSubmitter) Submit(_ context.Context, req task.Request) (*task.Task, error) {
	s.requests = append(s.requests, req)
	return &task.Task{ID: "task-1", Question: req.Question}, nil
}

func newTestWatcher(t *testing.T, source *stubSource, submitter *stubSubmitter) *Watcher {
	t.Helper()
	checkpoint, err := LoadCheckpoint(t.TempDir())
	if err != nil {
		t.Fatalf("加载检查点失败: %v", err)
	}
	watcher, err := NewWatcher(source, submitter, checkpoint, WatcherConfig{})
	if err != nil {
		t.Fatalf("创建轮询器失败: %v", err)
	}
	watcher.user = source.user
	return watcher
}

func TestPollOnceRecordsInitialMentionWithoutProcessing(t *testing.T) {
	source := &stubSource{
		user: &twitter.User{ID: "42", Username: "chainecho"},
		mentions: []twitter.Mention{
			{ID: "901", Text: "@chainecho what is this tx?", AuthorID: "7"},
		},
	}
	submitter := &stubSubmitter{}
	watcher := newTestWatcher(t, source, submitter)

	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("轮询失败: %v", err)
	}
	if len(submitter.requests) != 0 {
		t.Fatalf("初始提及不应被处理: %+v", submitter.requests)
	}
	if watcher.checkpoint.SinceID() != "901" {
		t.Fatalf("初始提及没有记入检查点: %q", watcher.checkpoint.SinceID())
	}
}

func TestPollOnceProcessesNewestMentionOnly(t *testing.T) {
	source := &stubSource{
		user: &twitter.User{ID: "42", Username: "chainecho"},
		mentions: []twitter.Mention{
			{ID: "903", Text: "@chainecho check 0xabc", AuthorID: "7"},
			{ID: "902", Text: "@chainecho older question", AuthorID: "8"},
		},
	}
	submitter := &stubSubmitter{}
	watcher := newTestWatcher(t, source, submitter)
	if err := watcher.checkpoint.Record("901"); err != nil {
		t.Fatalf("预置检查点失败: %v", err)
	}

	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("轮询失败: %v", err)
	}
	if len(submitter.requests) != 1 {
		t.Fatalf("每轮只应处理最新一条提及: %+v", submitter.requests)
	}
	req := submitter.requests[0]
	if req.MentionID != "903" || req.ReplyToTweetID != "903" {
		t.Fatalf("提交的任务没有指向最新提及: %+v", req)
	}
	if source.gotSince != "901" {
		t.Fatalf("since_id 没有传给接口: %q", source.gotSince)
	}
	if watcher.checkpoint.SinceID() != "903" {
		t.Fatalf("检查点没有更新: %q", watcher.checkpoint.SinceID())
	}
}

func TestPollOnceSkipsOwnTweets(t *testing.T) {
	source := &stubSource{
		user: &twitter.User{ID: "42", Username: "chainecho"},
		mentions: []twitter.Mention{
			{ID: "905", Text: "reply mentioning @chainecho", AuthorID: "42"},
		},
	}
	submitter := &stubSubmitter{}
	watcher := newTestWatcher(t, source, submitter)
	if err := watcher.checkpoint.Record("901"); err != nil {
		t.Fatalf("预置检查点失败: %v", err)
	}

	if err := watcher.pollOnce(context.Background()); err != nil {
		t.Fatalf("轮询失败: %v", err)
	}
	if len(submitter.requests) != 0 {
		t.Fatalf("机器人自己的推文不应被处理: %+v", submitter.requests)
	}
	if watcher.checkpoint.SinceID() != "905" {
		t.Fatalf("跳过的提及也应推进检查点: %q", watcher.checkpoint.SinceID())
	}
}

func TestCheckpointSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	checkpoint, err := LoadCheckpoint(dir)
	if err != nil {
		t.Fatalf("加载检查点失败: %v", err)
	}
	if err := checkpoint.Record("12345"); err != nil {
		t.Fatalf("写入检查点失败: %v", err)
	}

	reloaded, err := LoadCheckpoint(dir)
	if err != nil {
		t.Fatalf("重新加载检查点失败: %v", err)
	}
	if reloaded.SinceID() != "12345" {
		t.Fatalf("检查点没有持久化: %q", reloaded.SinceID())
	}
}
