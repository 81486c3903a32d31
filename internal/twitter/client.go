package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

const defaultBaseURL = "https://api.twitter.com"

// mentions 接口对 max_results 的取值范围有硬性要求。
const (
	minMentionResults = 5
	maxMentionResults = 100
)

// Config 描述访问 Twitter API v2 所需的 OAuth 1.0a 凭证。
type Config struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
	BaseURL      string
	Timeout      time.Duration
}

// Client 是 Twitter API v2 的轻量客户端，请求统一走 OAuth 1.0a 签名。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// User 表示已授权账号的基础信息。
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Tweet 表示一条已发布的推文。
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Mention 表示一条提及已授权账号的推文。
type Mention struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
}

// NewClient 根据凭证创建客户端，任何一项凭证缺失都会直接报错。
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("twitter api key/secret 不能为空")
	}
	if cfg.AccessToken == "" || cfg.AccessSecret == "" {
		return nil, errors.New("twitter access token/secret 不能为空")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
	httpClient := oauthConfig.Client(oauth1.NoContext, token)
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// Me 查询已授权账号的用户信息，机器人启动时用它确定要轮询的账号。
func (c *Client) Me(ctx context.Context) (*User, error) {
	var payload struct {
		Data User `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/2/users/me", nil, &payload); err != nil {
		return nil, fmt.Errorf("查询当前用户失败: %w", err)
	}
	if payload.Data.ID == "" {
		return nil, errors.New("twitter 返回的用户信息为空")
	}
	return &payload.Data, nil
}

// CreateTweet 发布一条推文，inReplyTo 非空时作为对该推文的回复。
func (c *Client) CreateTweet(ctx context.Context, text, inReplyTo string) (*Tweet, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("推文内容不能为空")
	}

	body := map[string]any{"text": text}
	if inReplyTo != "" {
		body["reply"] = map[string]string{"in_reply_to_tweet_id": inReplyTo}
	}

	var payload struct {
		Data Tweet `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/2/tweets", body, &payload); err != nil {
		return nil, fmt.Errorf("发布推文失败: %w", err)
	}
	if payload.Data.ID == "" {
		return nil, errors.New("twitter 未返回推文 ID")
	}
	return &payload.Data, nil
}

// PostThread 依次发布推文并把后一条挂在前一条下面，返回推文 ID 列表。
// inReplyTo 非空时整条线程作为对该推文的回复。
func (c *Client) PostThread(ctx context.Context, tweets []string, inReplyTo string) ([]string, error) {
	ids := make([]string, 0, len(tweets))
	previous := inReplyTo
	for i, text := range tweets {
		if strings.TrimSpace(text) == "" {
			continue
		}
		tweet, err := c.CreateTweet(ctx, text, previous)
		if err != nil {
			return ids, fmt.Errorf("发布线程第 %d 条推文失败: %w", i+1, err)
		}
		ids = append(ids, tweet.ID)
		previous = tweet.ID
	}
	if len(ids) == 0 {
		return nil, errors.New("线程中没有可发布的推文")
	}
	return ids, nil
}

// Mentions 拉取指定账号的提及，sinceID 非空时只返回其之后的新提及。
// 返回顺序为从新到旧，与 Twitter API 保持一致。
func (c *Client) Mentions(ctx context.Context, userID, sinceID string, maxResults int) ([]Mention, error) {
	if userID == "" {
		return nil, errors.New("用户 ID 不能为空")
	}
	if maxResults < minMentionResults {
		maxResults = minMentionResults
	}
	if maxResults > maxMentionResults {
		maxResults = maxMentionResults
	}

	query := url.Values{}
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("tweet.fields", "author_id,created_at")
	if sinceID != "" {
		query.Set("since_id", sinceID)
	}

	var payload struct {
		Data []Mention `json:"data"`
		Meta struct {
			ResultCount int `json:"result_count"`
		} `json:"meta"`
	}
	path := fmt.Sprintf("/2/users/%s/mentions?%s", url.PathEscape(userID), query.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("拉取提及失败: %w", err)
	}
	return payload.Data, nil
}

// do 发送已签名的请求并解析 JSON 响应。
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 twitter 接口失败: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apiError(resp.StatusCode, content)
	}

	if out == nil || len(content) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// apiError 尽量从响应体里提取可读的错误描述。
func apiError(status int, content []byte) error {
	var payload struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(content, &payload); err == nil {
		switch {
		case payload.Detail != "":
			return fmt.Errorf("twitter 接口返回 %d: %s", status, payload.Detail)
		case len(payload.Errors) > 0 && payload.Errors[0].Message != "":
			return fmt.Errorf("twitter 接口返回 %d: %s", status, payload.Errors[0].Message)
		case payload.Title != "":
			return fmt.Errorf("twitter 接口返回 %d: %s", status, payload.Title)
		}
	}
	return fmt.Errorf("twitter 接口返回异常状态码: %d", status)
}
