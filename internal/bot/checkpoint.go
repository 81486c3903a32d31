package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Checkpoint 把最近处理过的提及 ID 持久化到磁盘，
// 进程重启后不会重复回复同一条提及。
type Checkpoint struct {
	mu      sync.Mutex
	path    string
	sinceID string
}

type checkpointFile struct {
	SinceID   string `json:"since_id"`
	UpdatedAt int64  `json:"updated_at"`
}

// LoadCheckpoint 从数据目录加载检查点，文件不存在时返回空检查点。
func LoadCheckpoint(dataDir string) (*Checkpoint, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	cp := &Checkpoint{path: filepath.Join(dataDir, "mention_checkpoint.json")}

	content, err := os.ReadFile(cp.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cp, nil
		}
		return nil, fmt.Errorf("读取提及检查点失败: %w", err)
	}
	var file checkpointFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("解析提及检查点失败: %w", err)
	}
	cp.sinceID = file.SinceID
	return cp, nil
}

// SinceID 返回最近记录的提及 ID。
func (c *Checkpoint) SinceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sinceID
}

// Record 更新检查点并写回磁盘。
func (c *Checkpoint) Record(mentionID string) error {
	if mentionID == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sinceID = mentionID
	encoded, err := json.Marshal(checkpointFile{
		SinceID:   mentionID,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("序列化提及检查点失败: %w", err)
	}
	if err := os.WriteFile(c.path, encoded, 0o644); err != nil {
		return fmt.Errorf("写入提及检查点失败: %w", err)
	}
	return nil
}
