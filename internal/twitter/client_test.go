package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		APIKey:       "key",
		APISecret:    "secret",
		AccessToken:  "token",
		AccessSecret: "token-secret",
		BaseURL:      server.URL,
	})
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	return client, server
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "key"}); err == nil {
		t.Fatal("缺失凭证时应当返回错误")
	}
}

func TestCreateTweetSignsRequest(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2/tweets" {
			t.Fatalf("意外的请求: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"id":"111","text":"hello"}}`)
	}))

	tweet, err := client.CreateTweet(context.Background(), "hello", "222")
	if err != nil {
		t.Fatalf("发布推文失败: %v", err)
	}
	if tweet.ID != "111" {
		t.Fatalf("推文 ID 不符合预期: %q", tweet.ID)
	}
	if !strings.HasPrefix(gotAuth, "OAuth ") || !strings.Contains(gotAuth, `oauth_consumer_key="key"`) {
		t.Fatalf("请求缺少 OAuth 1.0a 签名: %q", gotAuth)
	}
	reply, ok := gotBody["reply"].(map[string]any)
	if !ok || reply["in_reply_to_tweet_id"] != "222" {
		t.Fatalf("回复字段不符合预期: %v", gotBody)
	}
}

func TestPostThreadChainsReplies(t *testing.T) {
	var replies []string
	counter := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text  string `json:"text"`
			Reply *struct {
				InReplyTo string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		if body.Reply != nil {
			replies = append(replies, body.Reply.InReplyTo)
		} else {
			replies = append(replies, "")
		}
		counter++
		fmt.Fprintf(w, `{"data":{"id":"%d","text":%q}}`, counter, body.Text)
	}))

	ids, err := client.PostThread(context.Background(), []string{"one", "two", "three"}, "")
	if err != nil {
		t.Fatalf("发布线程失败: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("期望发布 3 条推文, 实际 %d", len(ids))
	}
	if replies[0] != "" || replies[1] != "1" || replies[2] != "2" {
		t.Fatalf("线程没有逐条串联: %v", replies)
	}
}

func TestPostThreadSkipsEmptyTweets(t *testing.T) {
	counter := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter++
		fmt.Fprintf(w, `{"data":{"id":"%d","text":"x"}}`, counter)
	}))

	ids, err := client.PostThread(context.Background(), []string{"one", "", "  "}, "")
	if err != nil {
		t.Fatalf("发布线程失败: %v", err)
	}
	if len(ids) != 1 || counter != 1 {
		t.Fatalf("空推文应当被跳过: ids=%v counter=%d", ids, counter)
	}
}

func TestMentionsClampsMaxResults(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/42/mentions" {
			t.Fatalf("意外的请求路径: %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"data":[{"id":"901","text":"@bot what is this tx?","author_id":"7"}],"meta":{"result_count":1}}`)
	}))

	mentions, err := client.Mentions(context.Background(), "42", "900", 1)
	if err != nil {
		t.Fatalf("拉取提及失败: %v", err)
	}
	if len(mentions) != 1 || mentions[0].ID != "901" {
		t.Fatalf("提及解析不符合预期: %+v", mentions)
	}
	if !strings.Contains(gotQuery, "max_results=5") {
		t.Fatalf("max_results 没有被抬升到下限: %q", gotQuery)
	}
	if !strings.Contains(gotQuery, "since_id=900") {
		t.Fatalf("since_id 没有带上: %q", gotQuery)
	}
}

func TestMeReturnsAuthorizedUser(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/me" {
			t.Fatalf("意外的请求路径: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":{"id":"42","username":"chainecho","name":"ChainEcho"}}`)
	}))

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("查询当前用户失败: %v", err)
	}
	if user.Username != "chainecho" {
		t.Fatalf("用户名不符合预期: %q", user.Username)
	}
}

func TestAPIErrorSurfacesDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"title":"Too Many Requests","detail":"Rate limit exceeded"}`)
	}))

	_, err := client.CreateTweet(context.Background(), "hello", "")
	if err == nil || !strings.Contains(err.Error(), "Rate limit exceeded") {
		t.Fatalf("错误信息缺少接口返回的描述: %v", err)
	}
}
