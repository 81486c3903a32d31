package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	xerrors "ChainEcho/internal/errors"
	"ChainEcho/internal/observability/metrics"
	"ChainEcho/internal/task"
	"ChainEcho/internal/twitter"
	"ChainEcho/pkg/logger"
)

// MentionSource 抽象提及轮询所需的 Twitter 能力。
type MentionSource interface {
	Me(ctx context.Context) (*twitter.User, error)
	Mentions(ctx context.Context, userID, sinceID string, maxResults int) ([]twitter.Mention, error)
}

// TaskSubmitter 把提及转换成线程任务。
type TaskSubmitter interface {
	Submit(ctx context.Context, req task.Request) (*task.Task, error)
}

// Watcher 周期性轮询已授权账号的提及，并为最新的提及提交线程任务。
type Watcher struct {
	source     MentionSource
	submitter  TaskSubmitter
	checkpoint *Checkpoint
	interval   time.Duration
	backoff    time.Duration
	maxResults int
	dryRun     bool

	user *twitter.User
}

// WatcherConfig 控制轮询节奏。
type WatcherConfig struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
	MaxResults   int
	DryRun       bool
}

// NewWatcher 创建提及轮询器。
func NewWatcher(source MentionSource, submitter TaskSubmitter, checkpoint *Checkpoint, cfg WatcherConfig) (*Watcher, error) {
	if source == nil || submitter == nil || checkpoint == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "提及轮询器未初始化")
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = time.Minute
	}
	maxResults := cfg.MaxResults
	if maxResults < 5 {
		maxResults = 5
	}
	return &Watcher{
		source:     source,
		submitter:  submitter,
		checkpoint: checkpoint,
		interval:   interval,
		backoff:    backoff,
		maxResults: maxResults,
		dryRun:     cfg.DryRun,
	}, nil
}

// Run 启动轮询循环，ctx 取消后返回。
func (w *Watcher) Run(ctx context.Context) error {
	user, err := w.source.Me(ctx)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeTwitterFailure, err, "查询机器人账号失败")
	}
	w.user = user
	logger.L().Info("提及轮询已启动",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID),
		slog.Duration("interval", w.interval),
	)

	for {
		wait := w.interval
		if err := w.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.PollError()
			logger.L().Warn("轮询提及失败", slog.Any("error", err))
			wait = w.backoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// pollOnce 拉取一轮提及。只处理最新的一条，首次启动时只记录不处理，
// 避免机器人上线后立即回复一条历史提及。
func (w *Watcher) pollOnce(ctx context.Context) error {
	sinceID := w.checkpoint.SinceID()
	mentions, err := w.source.Mentions(ctx, w.user.ID, sinceID, w.maxResults)
	if err != nil {
		return err
	}
	if len(mentions) == 0 {
		return nil
	}
	for range mentions {
		metrics.MentionSeen()
	}

	// Twitter 按从新到旧返回提及。
	newest := mentions[0]
	if sinceID == "" {
		logger.L().Info("记录初始提及，跳过处理", slog.String("mention_id", newest.ID))
		return w.checkpoint.Record(newest.ID)
	}

	if err := w.checkpoint.Record(newest.ID); err != nil {
		return err
	}

	if newest.AuthorID == w.user.ID {
		logger.L().Debug("跳过机器人自己的推文", slog.String("mention_id", newest.ID))
		return nil
	}
	question := strings.TrimSpace(newest.Text)
	if question == "" {
		return nil
	}

	submitted, err := w.submitter.Submit(ctx, task.Request{
		Question:       question,
		MentionID:      newest.ID,
		ReplyToTweetID: newest.ID,
		DryRun:         w.dryRun,
		Metadata: map[string]any{
			"author_id":  newest.AuthorID,
			"created_at": newest.CreatedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("为提及 %s 提交任务失败: %w", newest.ID, err)
	}
	metrics.MentionProcessed()
	logger.Audit().Info("提及已转为线程任务",
		slog.String("mention_id", newest.ID),
		slog.String("task_id", submitted.ID),
		slog.String("author_id", newest.AuthorID),
	)
	return nil
}
