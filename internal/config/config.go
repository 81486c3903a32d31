package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config 描述了 ChainEcho 在启动阶段需要加载的核心配置。
type Config struct {
	Server    ServerConfig    `json:"server"`
	Metrics   MetricsConfig   `json:"metrics"`
	Logging   LoggingConfig   `json:"logging"`
	LLM       LLMConfig       `json:"llm"`
	Twitter   TwitterConfig   `json:"twitter"`
	Insight   InsightConfig   `json:"insight"`
	Storage   StorageConfig   `json:"storage"`
	TaskQueue TaskQueueConfig `json:"task_queue"`
	Bot       BotConfig       `json:"bot"`
	Agent     AgentConfig     `json:"agent"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Alerting  AlertingConfig  `json:"alerting"`
	Runtime   RuntimeConfig   `json:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// MetricsConfig 控制指标服务的监听地址，为空时不启动。
type MetricsConfig struct {
	Address string `json:"address"`
}

// LoggingConfig 控制结构化日志与审计日志的输出。
type LoggingConfig struct {
	Level       string      `json:"level"`
	Format      string      `json:"format"`
	OutputPaths []string    `json:"output_paths"`
	Audit       AuditConfig `json:"audit"`
}

// AuditConfig 控制审计日志文件的滚动策略。
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Provider string       `json:"provider"`
	OpenAI   OpenAIConfig `json:"openai"`
}

// OpenAIConfig 描述调用 OpenAI 兼容接口所需的信息。
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout 返回调用大模型的超时时间。
func (c OpenAIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TwitterConfig 描述访问 Twitter API v2 所需的凭证。
// 凭证优先取自 *_env 指向的环境变量，便于把密钥留在 .env 里。
type TwitterConfig struct {
	APIKey          string `json:"api_key"`
	APIKeyEnv       string `json:"api_key_env"`
	APISecret       string `json:"api_secret"`
	APISecretEnv    string `json:"api_secret_env"`
	AccessToken     string `json:"access_token"`
	AccessTokenEnv  string `json:"access_token_env"`
	AccessSecret    string `json:"access_secret"`
	AccessSecretEnv string `json:"access_secret_env"`
	BaseURL         string `json:"base_url"`
}

// InsightConfig 包含访问区块链节点所需的配置。
type InsightConfig struct {
	ChainConfig  string `json:"chain_config"`
	DefaultChain string `json:"default_chain"`
	RPCURL       string `json:"rpc_url"`
}

// StorageConfig 统一描述任务存储后端的连接信息。
type StorageConfig struct {
	TaskStore TaskStoreConfig `json:"task_store"`
}

// TaskStoreConfig 支持内存实现与 MySQL 实现。
type TaskStoreConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
	Retries                int    `json:"retries"`
}

// TaskQueueConfig 选择任务队列的驱动。
type TaskQueueConfig struct {
	Driver   string         `json:"driver"`
	Worker   int            `json:"worker"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig 描述 Redis 队列的连接参数。
type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Queue     string `json:"queue"`
	BlockWait int    `json:"block_wait_seconds"`
}

// RabbitMQConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// BotConfig 控制提及轮询机器人。
type BotConfig struct {
	Enabled             bool `json:"enabled"`
	PollIntervalSeconds int  `json:"poll_interval_seconds"`
	ErrorBackoffSeconds int  `json:"error_backoff_seconds"`
	MaxResults          int  `json:"max_results"`
	DryRun              bool `json:"dry_run"`
}

// PollInterval 返回轮询间隔。
func (c BotConfig) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ErrorBackoff 返回出错后的重试等待时间。
func (c BotConfig) ErrorBackoff() time.Duration {
	if c.ErrorBackoffSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.ErrorBackoffSeconds) * time.Second
}

// AgentConfig 控制智能体行为。
type AgentConfig struct {
	MemoryDepth int `json:"memory_depth"`
}

// KnowledgeConfig 控制静态知识库。
type KnowledgeConfig struct {
	Source     string `json:"source"`
	MaxResults int    `json:"max_results"`
}

// AlertingConfig 控制告警通知渠道。
type AlertingConfig struct {
	Slack SlackConfig `json:"slack"`
}

// SlackConfig 描述 Slack Webhook 通知所需的信息。
type SlackConfig struct {
	WebhookURL    string `json:"webhook_url"`
	WebhookURLEnv string `json:"webhook_url_env"`
	Channel       string `json:"channel"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// Resolve 返回配置值，若为空则回退到 env 指向的环境变量。
func Resolve(value, envKey string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if envKey == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envKey))
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.OpenAI.APIKeyEnv == "" {
		c.LLM.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}

	if c.Twitter.APIKeyEnv == "" {
		c.Twitter.APIKeyEnv = "TWITTER_API_KEY"
	}
	if c.Twitter.APISecretEnv == "" {
		c.Twitter.APISecretEnv = "TWITTER_API_SECRET"
	}
	if c.Twitter.AccessTokenEnv == "" {
		c.Twitter.AccessTokenEnv = "ACCESS_TOKEN"
	}
	if c.Twitter.AccessSecretEnv == "" {
		c.Twitter.AccessSecretEnv = "ACCESS_TOKEN_SECRET"
	}

	if c.Insight.ChainConfig != "" && !filepath.IsAbs(c.Insight.ChainConfig) {
		c.Insight.ChainConfig = filepath.Join(baseDir, c.Insight.ChainConfig)
	}

	if c.Storage.TaskStore.Driver == "" {
		c.Storage.TaskStore.Driver = "memory"
	}
	if c.Storage.TaskStore.Retries <= 0 {
		c.Storage.TaskStore.Retries = 3
	}

	if c.TaskQueue.Driver == "" {
		c.TaskQueue.Driver = "memory"
	}
	if c.TaskQueue.Worker <= 0 {
		c.TaskQueue.Worker = 2
	}

	if c.Bot.MaxResults < 5 {
		// Twitter 的 mentions 接口要求 max_results 至少为 5。
		c.Bot.MaxResults = 5
	}

	if c.Knowledge.Source != "" && !filepath.IsAbs(c.Knowledge.Source) {
		c.Knowledge.Source = filepath.Join(baseDir, c.Knowledge.Source)
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}
}
