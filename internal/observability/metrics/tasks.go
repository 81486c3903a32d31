package metrics

import (
	"fmt"
	"strings"
	"sync"
)

type taskMetrics struct {
	mu                sync.Mutex
	succeeded         uint64
	failedRetryable   uint64
	failedTerminal    uint64
	mentionsSeen      uint64
	mentionsProcessed uint64
	tweetsPosted      uint64
	pollErrors        uint64
}

var taskCollector = &taskMetrics{}

// TaskSucceeded increments the success counter.
func TaskSucceeded() {
	taskCollector.mu.Lock()
	taskCollector.succeeded++
	taskCollector.mu.Unlock()
}

// TaskFailed increments the failure counter, split by whether retries remain.
func TaskFailed(terminal bool) {
	taskCollector.mu.Lock()
	if terminal {
		taskCollector.failedTerminal++
	} else {
		taskCollector.failedRetryable++
	}
	taskCollector.mu.Unlock()
}

// MentionSeen counts every mention returned by the polling loop.
func MentionSeen() {
	taskCollector.mu.Lock()
	taskCollector.mentionsSeen++
	taskCollector.mu.Unlock()
}

// MentionProcessed counts mentions that were turned into tasks.
func MentionProcessed() {
	taskCollector.mu.Lock()
	taskCollector.mentionsProcessed++
	taskCollector.mu.Unlock()
}

// TweetsPosted counts published tweets.
func TweetsPosted(n int) {
	if n <= 0 {
		return
	}
	taskCollector.mu.Lock()
	taskCollector.tweetsPosted += uint64(n)
	taskCollector.mu.Unlock()
}

// PollError counts failed mention polling rounds.
func PollError() {
	taskCollector.mu.Lock()
	taskCollector.pollErrors++
	taskCollector.mu.Unlock()
}

// TaskObserver adapts the counters above to the processor callback interface.
type TaskObserver struct{}

func (TaskObserver) TaskSucceeded()           { TaskSucceeded() }
func (TaskObserver) TaskFailed(terminal bool) { TaskFailed(terminal) }

func (m *taskMetrics) render() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var builder strings.Builder
	builder.WriteString("# HELP chainecho_tasks_succeeded_total Total number of thread tasks completed successfully.\n")
	builder.WriteString("# TYPE chainecho_tasks_succeeded_total counter\n")
	builder.WriteString(fmt.Sprintf("chainecho_tasks_succeeded_total %d\n", m.succeeded))

	builder.WriteString("# HELP chainecho_tasks_failed_total Total number of failed thread task attempts.\n")
	builder.WriteString("# TYPE chainecho_tasks_failed_total counter\n")
	builder.WriteString(fmt.Sprintf("chainecho_tasks_failed_total{terminal=\"false\"} %d\n", m.failedRetryable))
	builder.WriteString(fmt.Sprintf("chainecho_tasks_failed_total{terminal=\"true\"} %d\n", m.failedTerminal))

	builder.WriteString("# HELP chainecho_mentions_seen_total Total number of mentions returned by polling.\n")
	builder.WriteString("# TYPE chainecho_mentions_seen_total counter\n")
	builder.WriteString(fmt.Sprintf("chainecho_mentions_seen_total %d\n", m.mentionsSeen))

	builder.WriteString("# HELP chainecho_mentions_processed_total Total number of mentions turned into tasks.\n")
	builder.WriteString("# TYPE chainecho_mentions_processed_total counter\n")
	builder.WriteString(fmt.Sprintf("chainecho_mentions_processed_total %d\n", m.mentionsProcessed))

	builder.WriteString("# HELP chainecho_tweets_posted_total Total number of tweets published.\n")
	builder.WriteString("# TYPE chainecho_tweets_posted_total counter\n")
	builder.WriteString(fmt.Sprintf("chainecho_tweets_posted_total %d\n", m.tweetsPosted))

	builder.WriteString("# HELP chainecho_mention_poll_errors_total Total number of failed mention polling rounds.\n")
	builder.WriteString("# TYPE chainecho_mention_poll_errors_total counter\n")
	builder.WriteString(fmt.Sprintf("chainecho_mention_poll_errors_total %d\n", m.pollErrors))

	return builder.String()
}
