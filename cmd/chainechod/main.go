package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ChainEcho/internal/agent"
	"ChainEcho/internal/api"
	"ChainEcho/internal/bot"
	"ChainEcho/internal/config"
	"ChainEcho/internal/insight/provider"
	"ChainEcho/internal/knowledge"
	"ChainEcho/internal/llm"
	"ChainEcho/internal/llm/openai"
	"ChainEcho/internal/observability/alerting"
	"ChainEcho/internal/observability/metrics"
	"ChainEcho/internal/task"
	"ChainEcho/internal/thread"
	"ChainEcho/internal/twitter"
	"ChainEcho/pkg/logger"
)

// main 是 ChainEcho 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("chainechod 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	// .env 不存在时静默跳过，凭证也可以直接来自环境变量。
	_ = godotenv.Load()

	configPath := os.Getenv("CHAINECHO_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "chainecho.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	llmClient, err := createLLMClient(cfg)
	if err != nil {
		return err
	}

	dataDir := cfg.Runtime.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	var taskStore task.Store
	switch cfg.Storage.TaskStore.Driver {
	case "", "memory":
		taskStore = task.NewMemoryStore()
	case "mysql":
		store, err := task.NewMySQLStore(task.MySQLStoreConfig{
			DSN:             cfg.Storage.TaskStore.DSN,
			MaxOpenConns:    cfg.Storage.TaskStore.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.TaskStore.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Storage.TaskStore.ConnMaxLifetimeSeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		taskStore = store
	default:
		return fmt.Errorf("未知的任务存储驱动: %s", cfg.Storage.TaskStore.Driver)
	}

	var taskQueue task.Queue
	switch cfg.TaskQueue.Driver {
	case "", "memory":
		taskQueue = task.NewMemoryQueue(1024)
	case "redis":
		queue, err := task.NewRedisQueue(task.RedisQueueConfig{
			Address:   cfg.TaskQueue.Redis.Address,
			Password:  cfg.TaskQueue.Redis.Password,
			DB:        cfg.TaskQueue.Redis.DB,
			Queue:     cfg.TaskQueue.Redis.Queue,
			BlockWait: time.Duration(cfg.TaskQueue.Redis.BlockWait) * time.Second,
		})
		if err != nil {
			return err
		}
		taskQueue = queue
	case "rabbitmq":
		queue, err := task.NewRabbitMQQueue(task.RabbitMQConfig{
			URL:        cfg.TaskQueue.RabbitMQ.URL,
			Queue:      cfg.TaskQueue.RabbitMQ.Queue,
			Prefetch:   cfg.TaskQueue.RabbitMQ.Prefetch,
			Durable:    cfg.TaskQueue.RabbitMQ.Durable,
			AutoDelete: cfg.TaskQueue.RabbitMQ.AutoDelete,
		})
		if err != nil {
			return err
		}
		taskQueue = queue
	default:
		return fmt.Errorf("未知的队列驱动: %s", cfg.TaskQueue.Driver)
	}

	chainRegistry, err := provider.NewRegistry(ctx, cfg.Insight)
	if err != nil {
		return err
	}
	defer chainRegistry.Close()

	var knowledgeProvider knowledge.Provider
	if cfg.Knowledge.Source != "" {
		loaded, err := knowledge.LoadStaticProvider(cfg.Knowledge.Source, cfg.Knowledge.MaxResults)
		if err != nil {
			return err
		}
		knowledgeProvider = loaded
	}

	taskService := task.NewService(taskStore, taskQueue, cfg.Storage.TaskStore.Retries)
	// Service 统一负责关闭存储与队列。
	defer func() {
		if err := taskService.Close(); err != nil {
			logger.L().Warn("关闭任务服务失败", slog.Any("error", err))
		}
	}()

	ag := agent.New(llmClient, chainRegistry,
		agent.WithMemoryDepth(cfg.Agent.MemoryDepth),
		agent.WithKnowledgeProvider(knowledgeProvider),
		agent.WithHistorySource(taskService),
		agent.WithLLMTimeout(cfg.LLM.OpenAI.Timeout()),
	)

	twitterClient, err := createTwitterClient(cfg)
	if err != nil {
		return err
	}
	var poster bot.ThreadPoster
	if twitterClient != nil {
		poster = twitterClient
	} else {
		logger.L().Warn("未配置 Twitter 凭证，线程只生成不发布")
	}

	pipeline := bot.NewPipeline(ag, thread.NewGenerator(llmClient), poster,
		bot.WithDryRun(cfg.Bot.DryRun))

	processor := task.NewProcessor(pipeline, taskStore, taskQueue, taskQueue,
		task.WithWorkerCount(cfg.TaskQueue.Worker),
		task.WithRecoveryHandler(bot.PostRecovery{}),
		task.WithAlertDispatcher(createAlertDispatcher(cfg)),
		task.WithObserver(metrics.TaskObserver{}),
	)

	go func() {
		if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("任务处理器异常退出", slog.Any("error", err))
		}
	}()

	if cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.StartServer(ctx, cfg.Metrics.Address); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("指标服务异常退出", slog.Any("error", err))
			}
		}()
	}

	if cfg.Bot.Enabled {
		if twitterClient == nil {
			return errors.New("启用提及轮询需要完整的 Twitter 凭证")
		}
		checkpoint, err := bot.LoadCheckpoint(dataDir)
		if err != nil {
			return err
		}
		watcher, err := bot.NewWatcher(twitterClient, taskService, checkpoint, bot.WatcherConfig{
			PollInterval: cfg.Bot.PollInterval(),
			ErrorBackoff: cfg.Bot.ErrorBackoff(),
			MaxResults:   cfg.Bot.MaxResults,
			DryRun:       cfg.Bot.DryRun,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("提及轮询异常退出", slog.Any("error", err))
			}
		}()
	}

	server := api.NewServer(cfg.Server.Address, taskService)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// llmBackend 同时提供结构化问答与自由补全，智能体和线程生成器共用一个客户端。
type llmBackend interface {
	llm.Client
	llm.Completer
}

func createLLMClient(cfg *config.Config) (llmBackend, error) {
	switch cfg.LLM.Provider {
	case "", "openai":
		apiKey := config.Resolve(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.APIKeyEnv)
		if apiKey == "" {
			return nil, errors.New("OpenAI provider 需要配置 api_key 或 api_key_env")
		}
		return openai.NewClient(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
			Model:   cfg.LLM.OpenAI.Model,
			Timeout: cfg.LLM.OpenAI.Timeout(),
		})
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.LLM.Provider)
	}
}

// createTwitterClient 在凭证齐全时创建客户端，缺失时返回 nil。
func createTwitterClient(cfg *config.Config) (*twitter.Client, error) {
	apiKey := config.Resolve(cfg.Twitter.APIKey, cfg.Twitter.APIKeyEnv)
	apiSecret := config.Resolve(cfg.Twitter.APISecret, cfg.Twitter.APISecretEnv)
	accessToken := config.Resolve(cfg.Twitter.AccessToken, cfg.Twitter.AccessTokenEnv)
	accessSecret := config.Resolve(cfg.Twitter.AccessSecret, cfg.Twitter.AccessSecretEnv)
	if apiKey == "" && apiSecret == "" && accessToken == "" && accessSecret == "" {
		return nil, nil
	}
	return twitter.NewClient(twitter.Config{
		APIKey:       apiKey,
		APISecret:    apiSecret,
		AccessToken:  accessToken,
		AccessSecret: accessSecret,
		BaseURL:      cfg.Twitter.BaseURL,
	})
}

func createAlertDispatcher(cfg *config.Config) alerting.Dispatcher {
	webhookURL := config.Resolve(cfg.Alerting.Slack.WebhookURL, cfg.Alerting.Slack.WebhookURLEnv)
	if webhookURL == "" {
		return nil
	}
	sender, err := alerting.NewSlackWebhookSender(webhookURL)
	if err != nil {
		logger.L().Warn("初始化 Slack 告警失败", slog.Any("error", err))
		return nil
	}
	return alerting.NewFanout(&alerting.SlackNotifier{
		Sender:    sender,
		ChannelID: cfg.Alerting.Slack.Channel,
	})
}
