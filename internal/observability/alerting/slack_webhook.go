package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlackWebhookSender 通过 Incoming Webhook 把告警发到 Slack。
type SlackWebhookSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackWebhookSender 创建 Webhook 发送器。
func NewSlackWebhookSender(webhookURL string) (*SlackWebhookSender, error) {
	if webhookURL == "" {
		return nil, errors.New("slack webhook url 不能为空")
	}
	return &SlackWebhookSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Send 实现 SlackSender 接口。channel 为空时使用 Webhook 默认频道。
func (s *SlackWebhookSender) Send(ctx context.Context, channel, content string) error {
	payload := map[string]string{"text": content}
	if channel != "" {
		payload["channel"] = channel
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化 Slack 消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("构造 Slack 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送 Slack 消息失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Slack Webhook 返回 %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

var _ SlackSender = (*SlackWebhookSender)(nil)
