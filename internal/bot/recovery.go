package bot

import (
	"context"
	stdErrors "errors"
	"fmt"

	"ChainEcho/internal/task"
)

// partialError 携带失败前已经生成的部分结果，供降级流程取回。
type partialError struct {
	result task.ExecutionResult
	cause  error
}

func (e *partialError) Error() string {
	return e.cause.Error()
}

func (e *partialError) Unwrap() error {
	return e.cause
}

// PostRecovery 在线程生成或发布失败时，把纯文本回答作为降级结果保留。
type PostRecovery struct{}

// Recover 实现 task.RecoveryHandler。
func (PostRecovery) Recover(_ context.Context, _ *task.Task, cause error) (*task.ExecutionResult, error) {
	var partial *partialError
	if !stdErrors.As(cause, &partial) {
		return nil, nil
	}
	result := partial.result
	if result.Reply == "" {
		return nil, nil
	}
	result.Observations = appendObservation(result.Observations,
		fmt.Sprintf("线程发布降级，仅保留文字回答: %v", partial.cause))
	return &result, nil
}

var _ task.RecoveryHandler = PostRecovery{}
