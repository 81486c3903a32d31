package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"ChainEcho/internal/agent"
	"ChainEcho/internal/config"
	"ChainEcho/internal/insight/provider"
	"ChainEcho/internal/llm/openai"
	"ChainEcho/internal/thread"
	"ChainEcho/internal/twitter"
	"ChainEcho/pkg/logger"
)

// chainecho 是一个交互式命令行工具：输入链上问题，直接查看智能体的
// 回答与生成的线程，并可选择立即发布到 Twitter。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "chainecho: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		configPath string
		chainName  string
		dryRun     bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认为 configs/chainecho.json")
	flag.StringVar(&chainName, "chain", "", "指定查询的链，留空时从问题中识别")
	flag.BoolVar(&dryRun, "dry-run", false, "只打印线程内容，不发布到 Twitter")
	flag.Parse()

	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("CHAINECHO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join("configs", "chainecho.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Level: "warn", Format: "text"}); err != nil {
		return err
	}

	apiKey := config.Resolve(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.APIKeyEnv)
	if apiKey == "" {
		return errors.New("缺少 OpenAI API key，请配置 api_key 或设置环境变量")
	}
	llmClient, err := openai.NewClient(openai.Config{
		APIKey:  apiKey,
		BaseURL: cfg.LLM.OpenAI.BaseURL,
		Model:   cfg.LLM.OpenAI.Model,
		Timeout: cfg.LLM.OpenAI.Timeout(),
	})
	if err != nil {
		return err
	}

	registry, err := provider.NewRegistry(ctx, cfg.Insight)
	if err != nil {
		return err
	}
	defer registry.Close()

	ag := agent.New(llmClient, registry,
		agent.WithLLMTimeout(cfg.LLM.OpenAI.Timeout()))
	generator := thread.NewGenerator(llmClient)

	var poster *twitter.Client
	if !dryRun {
		poster, err = newTwitterClient(cfg)
		if err != nil {
			return err
		}
		if poster == nil {
			fmt.Println("未配置 Twitter 凭证，进入 dry-run 模式。")
			dryRun = true
		}
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("ChainEcho 交互模式，输入问题后回车，exit 退出。")
	for {
		question, err := prompt(reader, "\n问题> ")
		if err != nil {
			return nil
		}
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		runOnce(ctx, reader, ag, generator, poster, question, chainName, dryRun)
	}
}

func runOnce(ctx context.Context, reader *bufio.Reader, ag *agent.Agent, generator *thread.Generator, poster *twitter.Client, question, chainName string, dryRun bool) {
	result, err := ag.Execute(ctx, agent.Request{Question: question, Chain: chainName})
	if err != nil {
		fmt.Printf("查询失败: %v\n", err)
		return
	}

	fmt.Printf("\n[思考] %s\n", result.Thought)
	fmt.Printf("[回答] %s\n", result.Reply)
	if result.Observations != "" {
		fmt.Printf("[观察] %s\n", result.Observations)
	}

	generated, err := generator.Generate(ctx, result.Reply, result.ExplorerURL)
	if err != nil {
		// 线程生成失败时退回纯文字回答，与守护进程的降级路径一致。
		fmt.Printf("\n线程生成失败: %v\n", err)
		fmt.Printf("可直接使用的回答:\n%s\n", result.Reply)
		return
	}

	fmt.Println("\n生成的线程:")
	for i, tweet := range generated.Tweets {
		fmt.Printf("--- Tweet %d (%d 字符) ---\n%s\n", i+1, len([]rune(tweet)), tweet)
	}

	if dryRun || poster == nil {
		fmt.Println("\ndry-run 模式，线程未发布。")
		return
	}

	confirm, err := prompt(reader, "\n发布这个线程吗? [y/N] ")
	if err != nil || !strings.EqualFold(confirm, "y") {
		fmt.Println("已取消发布。")
		return
	}
	replyTo, err := prompt(reader, "回复的推文 ID (留空则发新线程): ")
	if err != nil {
		return
	}

	ids, err := poster.PostThread(ctx, generated.Tweets[:], replyTo)
	if err != nil {
		fmt.Printf("发布失败: %v\n", err)
		return
	}
	fmt.Printf("线程已发布，共 %d 条，首条 ID: %s\n", len(ids), ids[0])
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newTwitterClient(cfg *config.Config) (*twitter.Client, error) {
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
