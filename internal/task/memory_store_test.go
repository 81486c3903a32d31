package task

import (
	"context"
	stdErrors "errors"
	"testing"

	xerrors "ChainEcho/internal/errors"
)

func newStoredTask(t *testing.T, store *MemoryStore, id, question string) *Task {
	t.Helper()
	created := &Task{
		ID:         id,
		Question:   question,
		Status:     StatusPending,
		MaxRetries: 3,
	}
	if err := store.Create(context.Background(), created); err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}
	return created
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	newStoredTask(t, store, "t1", "check 0xabc")

	got, err := store.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("查询任务失败: %v", err)
	}
	if got.Question != "check 0xabc" || got.Status != StatusPending {
		t.Fatalf("任务内容不符合预期: %+v", got)
	}

	if err := store.Create(context.Background(), &Task{ID: "t1", Question: "dup"}); !stdErrors.Is(err, ErrTaskConflict) {
		t.Fatalf("重复创建应返回冲突: %v", err)
	}
	if _, err := store.Get(context.Background(), "missing"); !stdErrors.Is(err, ErrTaskNotFound) {
		t.Fatalf("缺失任务应返回未找到: %v", err)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	newStoredTask(t, store, "t1", "q")

	first, _ := store.Get(context.Background(), "t1")
	first.Question = "mutated"

	second, _ := store.Get(context.Background(), "t1")
	if second.Question != "q" {
		t.Fatalf("存储内容被外部修改: %q", second.Question)
	}
}

func TestMemoryStoreClaimLifecycle(t *testing.T) {
	store := NewMemoryStore()
	newStoredTask(t, store, "t1", "q")

	claimed, err := store.Claim(context.Background(), "t1")
	if err != nil {
		t.Fatalf("领取任务失败: %v", err)
	}
	if claimed.Status != StatusRunning || claimed.Attempts != 1 {
		t.Fatalf("领取后的任务状态不符合预期: %+v", claimed)
	}

	if _, err := store.Claim(context.Background(), "t1"); !stdErrors.Is(err, ErrTaskConflict) {
		t.Fatalf("运行中的任务不应被再次领取: %v", err)
	}

	if err := store.MarkSucceeded(context.Background(), "t1", ExecutionResult{Reply: "done", TweetIDs: []string{"1"}}); err != nil {
		t.Fatalf("标记成功失败: %v", err)
	}
	if _, err := store.Claim(context.Background(), "t1"); !stdErrors.Is(err, ErrTaskCompleted) {
		t.Fatalf("已完成的任务不应被领取: %v", err)
	}

	got, _ := store.Get(context.Background(), "t1")
	if got.Result == nil || got.Result.Reply != "done" || len(got.Result.TweetIDs) != 1 {
		t.Fatalf("成功结果没有保存: %+v", got.Result)
	}
}

func TestMemoryStoreClaimExhaustsRetries(t *testing.T) {
	store := NewMemoryStore()
	created := &Task{ID: "t1", Question: "q", Status: StatusPending, MaxRetries: 1}
	if err := store.Create(context.Background(), created); err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}

	if _, err := store.Claim(context.Background(), "t1"); err != nil {
		t.Fatalf("首次领取失败: %v", err)
	}
	if err := store.MarkFailed(context.Background(), "t1", CodeTaskProcessing, "boom", false); err != nil {
		t.Fatalf("标记失败出错: %v", err)
	}
	if _, err := store.Claim(context.Background(), "t1"); !stdErrors.Is(err, ErrTaskExhausted) {
		t.Fatalf("重试耗尽应返回对应错误: %v", err)
	}

	got, _ := store.Get(context.Background(), "t1")
	if got.ErrorCode != string(CodeTaskProcessing) || got.LastError != "boom" {
		t.Fatalf("失败信息没有记录: %+v", got)
	}
}

func TestMemoryStoreListFiltersAndOrders(t *testing.T) {
	store := NewMemoryStore()
	newStoredTask(t, store, "t1", "first question")
	newStoredTask(t, store, "t2", "second question")
	newStoredTask(t, store, "t3", "another topic")

	if _, err := store.Claim(context.Background(), "t2"); err != nil {
		t.Fatalf("领取任务失败: %v", err)
	}
	if err := store.MarkSucceeded(context.Background(), "t2", ExecutionResult{Reply: "answer"}); err != nil {
		t.Fatalf("标记成功失败: %v", err)
	}

	succeeded, err := store.List(context.Background(), ListOptions{Statuses: []Status{StatusSucceeded}})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(succeeded) != 1 || succeeded[0].ID != "t2" {
		t.Fatalf("状态过滤不符合预期: %+v", succeeded)
	}

	matched, err := store.List(context.Background(), ListOptions{Query: "question"})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("关键词过滤不符合预期: %+v", matched)
	}

	limited, err := store.List(context.Background(), ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit 没有生效: %d", len(limited))
	}

	hasResult := true
	withResult, err := store.List(context.Background(), ListOptions{HasResult: &hasResult})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(withResult) != 1 || withResult[0].ID != "t2" {
		t.Fatalf("结果过滤不符合预期: %+v", withResult)
	}
}

func TestMemoryStoreStats(t *testing.T) {
	store := NewMemoryStore()
	newStoredTask(t, store, "t1", "q1")
	newStoredTask(t, store, "t2", "q2")

	if _, err := store.Claim(context.Background(), "t1"); err != nil {
		t.Fatalf("领取任务失败: %v", err)
	}
	if err := store.MarkFailed(context.Background(), "t1", xerrors.CodeLLMFailure, "boom", true); err != nil {
		t.Fatalf("标记失败出错: %v", err)
	}

	stats, err := store.Stats(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if stats.Total != 2 || stats.Failed != 1 || stats.Pending != 1 {
		t.Fatalf("统计结果不符合预期: %+v", stats)
	}
	if stats.NewestUpdatedAt == 0 || stats.OldestUpdatedAt == 0 {
		t.Fatalf("时间范围没有统计: %+v", stats)
	}
}
