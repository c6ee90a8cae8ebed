package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// FailureKind 補完サービス呼び出しの失敗分類
type FailureKind string

const (
	FailureTimeout    FailureKind = "timeout"
	FailureConnection FailureKind = "connection_error"
	FailureHTTP       FailureKind = "http_error"
	FailureOther      FailureKind = "other"
)

// CompletionError 補完サービスの型付き失敗。
// Statusが意味を持つのはKind == FailureHTTPの場合のみ。
type CompletionError struct {
	Kind    FailureKind
	Status  int
	Message string
	Err     error
}

func (e *CompletionError) Error() string {
	switch e.Kind {
	case FailureTimeout:
		return "LLMサーバーからの応答がタイムアウトしました"
	case FailureConnection:
		return "LLMサーバーに接続できません。サーバーが起動しているか、URLが正しいか確認してください"
	case FailureHTTP:
		return fmt.Sprintf("API接続エラー: %d - %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("予期せぬエラーが発生しました: %s", e.Message)
	}
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Client はOpenAI互換のチャット補完APIへのリクエストを管理します。
// パイプライン本体はこのクライアントを呼ばず、呼び出すのはチャット境界のみ。
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewClient 新しいLLMクライアントを作成する。
// タイムアウトはローカルLLMの遅い応答を考慮して120秒。
func NewClient(baseURL, apiKey, model string, maxTokens int, temperature float64) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- データ構造定義 ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Model 設定されたモデル名を返す
func (c *Client) Model() string {
	return c.model
}

// Complete システムコンテキストとユーザープロンプトからチャット補完を実行する。
// 失敗はすべて*CompletionErrorとして分類される。
func (c *Client) Complete(ctx context.Context, systemContext, userPrompt string) (string, error) {
	request := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemContext},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", &CompletionError{Kind: FailureOther, Message: "リクエストのJSON化に失敗", Err: err}
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", &CompletionError{Kind: FailureOther, Message: "HTTPリクエストの作成に失敗", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CompletionError{Kind: FailureOther, Message: "レスポンスの読み取りに失敗", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &CompletionError{
			Kind:    FailureHTTP,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", &CompletionError{Kind: FailureOther, Message: "レスポンスのJSON解析に失敗", Err: err}
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", &CompletionError{Kind: FailureOther, Message: "APIからの応答が空です"}
	}

	return completion.Choices[0].Message.Content, nil
}

// classifyTransportError ネットワーク層のエラーをタイムアウトと接続エラーに分類する
func classifyTransportError(err error) *CompletionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CompletionError{Kind: FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &CompletionError{Kind: FailureTimeout, Err: err}
	}
	return &CompletionError{Kind: FailureConnection, Err: err}
}
