package task

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	xerrors "ChainEcho/internal/errors"
)

// MySQLStoreConfig 描述 MySQL 任务存储的连接参数。
type MySQLStoreConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MySQLStore 将任务状态持久化到 MySQL，进程重启后任务可以继续执行。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建连接池并初始化数据表。
func NewMySQLStore(cfg MySQLStoreConfig) (*MySQLStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) initSchema() error {
	const schema = `CREATE TABLE IF NOT EXISTS thread_tasks (
        id VARCHAR(64) PRIMARY KEY,
        question TEXT NOT NULL,
        chain VARCHAR(64) DEFAULT '',
        mention_id VARCHAR(64) DEFAULT '',
        reply_to_tweet_id VARCHAR(64) DEFAULT '',
        dry_run TINYINT(1) NOT NULL DEFAULT 0,
        metadata TEXT,
        status VARCHAR(16) NOT NULL,
        attempts INT NOT NULL DEFAULT 0,
        max_retries INT NOT NULL DEFAULT 3,
        last_error TEXT,
        error_code VARCHAR(64) DEFAULT '',
        result TEXT,
        created_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL,
        INDEX idx_status (status),
        INDEX idx_updated_at (updated_at)
)`

	if _, err := s.db.Exec(schema); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化 thread_tasks 表失败")
	}
	return nil
}

// Create 写入一条新任务，主键冲突映射为 ErrTaskConflict。
func (s *MySQLStore) Create(ctx context.Context, task *Task) error {
	if task == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "task 不能为空")
	}
	if task.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "任务 ID 不能为空")
	}
	now := time.Now().Unix()
	if task.CreatedAt == 0 {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	metadata, err := encodeJSON(task.Metadata)
	if err != nil {
		return err
	}
	result, err := encodeJSON(task.Result)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO thread_tasks
        (id, question, chain, mention_id, reply_to_tweet_id, dry_run, metadata, status,
         attempts, max_retries, last_error, error_code, result, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt,
		task.ID, task.Question, task.Chain, task.MentionID, task.ReplyToTweetID,
		task.DryRun, metadata, string(task.Status),
		task.Attempts, task.MaxRetries, task.LastError, task.ErrorCode, result,
		task.CreatedAt, task.UpdatedAt,
	); err != nil {
		if isDuplicateEntry(err) {
			return ErrTaskConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入任务失败")
	}
	return nil
}

// Get 返回任务。
func (s *MySQLStore) Get(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM thread_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询任务失败")
	}
	return task, nil
}

// Claim 在事务中把任务置为运行中，保证同一任务不会被并发领取。
func (s *MySQLStore) Claim(ctx context.Context, id string) (*Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "开启事务失败")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, selectColumns+` FROM thread_tasks WHERE id = ? FOR UPDATE`, id)
	task, err := scanTask(row)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询任务失败")
	}

	switch task.Status {
	case StatusSucceeded:
		return task, ErrTaskCompleted
	case StatusRunning:
		return task, ErrTaskConflict
	}
	if task.Attempts >= task.MaxRetries {
		return task, ErrTaskExhausted
	}

	task.Status = StatusRunning
	task.Attempts++
	task.LastError = ""
	task.ErrorCode = ""
	task.UpdatedAt = time.Now().Unix()

	const stmt = `UPDATE thread_tasks
        SET status = ?, attempts = ?, last_error = '', error_code = '', updated_at = ?
        WHERE id = ?`
	if _, err := tx.ExecContext(ctx, stmt, string(task.Status), task.Attempts, task.UpdatedAt, id); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新任务状态失败")
	}
	if err := tx.Commit(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "提交事务失败")
	}
	return task, nil
}

// MarkSucceeded 记录成功结果。
func (s *MySQLStore) MarkSucceeded(ctx context.Context, id string, result ExecutionResult) error {
	encoded, err := encodeJSON(&result)
	if err != nil {
		return err
	}
	const stmt = `UPDATE thread_tasks
        SET status = ?, result = ?, last_error = '', error_code = '', updated_at = ?
        WHERE id = ?`
	res, err := s.db.ExecContext(ctx, stmt, string(StatusSucceeded), encoded, time.Now().Unix(), id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "记录任务结果失败")
	}
	return requireRow(res)
}

// MarkFailed 标记任务失败。
func (s *MySQLStore) MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string, _ bool) error {
	const stmt = `UPDATE thread_tasks
        SET status = ?, last_error = ?, error_code = ?, updated_at = ?
        WHERE id = ?`
	res, err := s.db.ExecContext(ctx, stmt, string(StatusFailed), lastError, string(code), time.Now().Unix(), id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "标记任务失败状态出错")
	}
	return requireRow(res)
}

// List 返回符合过滤条件的任务列表。
func (s *MySQLStore) List(ctx context.Context, opts ListOptions) ([]*Task, error) {
	opts.applyDefaults()

	query, args := buildListQuery(opts)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询任务列表失败")
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析任务记录失败")
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历任务记录失败")
	}
	return tasks, nil
}

// Stats 统计符合过滤条件的任务数量与更新时间范围。
func (s *MySQLStore) Stats(ctx context.Context, opts ListOptions) (TaskStats, error) {
	opts.applyDefaults()

	where, args := buildListFilters(opts)
	query := `SELECT status, COUNT(*), MIN(updated_at), MAX(updated_at) FROM thread_tasks` + where + ` GROUP BY status`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return TaskStats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "统计任务失败")
	}
	defer rows.Close()

	stats := TaskStats{}
	for rows.Next() {
		var (
			status string
			count  int
			oldest sql.NullInt64
			newest sql.NullInt64
		)
		if err := rows.Scan(&status, &count, &oldest, &newest); err != nil {
			return TaskStats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析统计结果失败")
		}
		stats.Total += count
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusRunning:
			stats.Running = count
		case StatusSucceeded:
			stats.Succeeded = count
		case StatusFailed:
			stats.Failed = count
		}
		if newest.Valid && newest.Int64 > stats.NewestUpdatedAt {
			stats.NewestUpdatedAt = newest.Int64
		}
		if oldest.Valid && (stats.OldestUpdatedAt == 0 || oldest.Int64 < stats.OldestUpdatedAt) {
			stats.OldestUpdatedAt = oldest.Int64
		}
	}
	if err := rows.Err(); err != nil {
		return TaskStats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历统计结果失败")
	}
	return stats, nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectColumns = `SELECT id, question, chain, mention_id, reply_to_tweet_id, dry_run,
        metadata, status, attempts, max_retries, last_error, error_code, result,
        created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		task      Task
		status    string
		metadata  sql.NullString
		result    sql.NullString
		lastError sql.NullString
		errorCode sql.NullString
	)
	if err := row.Scan(
		&task.ID, &task.Question, &task.Chain, &task.MentionID, &task.ReplyToTweetID,
		&task.DryRun, &metadata, &status, &task.Attempts, &task.MaxRetries,
		&lastError, &errorCode, &result, &task.CreatedAt, &task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.Status = Status(status)
	task.LastError = lastError.String
	task.ErrorCode = errorCode.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &task.Metadata); err != nil {
			return nil, fmt.Errorf("解析任务元数据失败: %w", err)
		}
	}
	if result.Valid && result.String != "" {
		var record ExecutionResult
		if err := json.Unmarshal([]byte(result.String), &record); err != nil {
			return nil, fmt.Errorf("解析任务结果失败: %w", err)
		}
		task.Result = &record
	}
	return &task, nil
}

func buildListQuery(opts ListOptions) (string, []any) {
	where, args := buildListFilters(opts)

	order := " ORDER BY updated_at DESC, created_at DESC, id ASC"
	if opts.Order == SortByUpdatedAsc {
		order = " ORDER BY updated_at ASC, created_at ASC, id ASC"
	}

	query := selectColumns + ` FROM thread_tasks` + where + order + ` LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)
	return query, args
}

func buildListFilters(opts ListOptions) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(opts.Statuses) > 0 {
		placeholders := make([]string, len(opts.Statuses))
		for i, status := range opts.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if opts.UpdatedGTE > 0 {
		clauses = append(clauses, "updated_at >= ?")
		args = append(args, opts.UpdatedGTE)
	}
	if opts.UpdatedLTE > 0 {
		clauses = append(clauses, "updated_at <= ?")
		args = append(args, opts.UpdatedLTE)
	}
	if opts.HasResult != nil {
		if *opts.HasResult {
			clauses = append(clauses, "result IS NOT NULL AND result != ''")
		} else {
			clauses = append(clauses, "(result IS NULL OR result = '')")
		}
	}
	if opts.Query != "" {
		pattern := "%" + opts.Query + "%"
		clauses = append(clauses, "(question LIKE ? OR chain LIKE ? OR mention_id LIKE ? OR result LIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func encodeJSON(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return "", nil
		}
	case *ExecutionResult:
		if v == nil {
			return "", nil
		}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeStorageFailure, err, "序列化任务字段失败")
	}
	return string(encoded), nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取影响行数失败")
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// MySQL 重复主键的错误号是 1062，驱动错误信息里会包含它。
func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Error 1062") || strings.Contains(err.Error(), "Duplicate entry")
}

var _ Store = (*MySQLStore)(nil)
