package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionJSON(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + mustJSON(content) + `},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestCompleteSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("リクエストの解析に失敗: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON("売上は好調です。")))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", 1000, 0.7)

	answer, err := client.Complete(context.Background(), "システムコンテキスト", "売上はどうですか？")
	if err != nil {
		t.Fatalf("Completeに失敗: %v", err)
	}
	if answer != "売上は好調です。" {
		t.Errorf("Expected answer, got %q", answer)
	}

	if gotPath != "/v1/chat/completions" {
		t.Errorf("Expected /v1/chat/completions, got %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Bearer認証ヘッダーが設定されるべき: %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" || gotReq.MaxTokens != 1000 || gotReq.Temperature != 0.7 {
		t.Errorf("リクエストパラメータが一致しない: %+v", gotReq)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("system + userの2メッセージになるべき: %+v", gotReq.Messages)
	}
}

func TestCompleteNoAuthHeaderWhenKeyEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("APIキーが空ならAuthorizationヘッダーを付けないべき")
		}
		w.Write([]byte(completionJSON("ok")))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "local-model", 1000, 0.7)
	if _, err := client.Complete(context.Background(), "ctx", "q"); err != nil {
		t.Fatalf("Completeに失敗: %v", err)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model", 1000, 0.7)

	_, err := client.Complete(context.Background(), "ctx", "q")
	var cerr *CompletionError
	if !errors.As(err, &cerr) {
		t.Fatalf("*CompletionErrorになるべき: %v", err)
	}
	if cerr.Kind != FailureHTTP || cerr.Status != http.StatusTooManyRequests {
		t.Errorf("HTTPエラーとして分類されるべき: kind=%s status=%d", cerr.Kind, cerr.Status)
	}
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(completionJSON("too late")))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model", 1000, 0.7)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "ctx", "q")
	var cerr *CompletionError
	if !errors.As(err, &cerr) {
		t.Fatalf("*CompletionErrorになるべき: %v", err)
	}
	if cerr.Kind != FailureTimeout {
		t.Errorf("タイムアウトとして分類されるべき: %s", cerr.Kind)
	}
}

func TestCompleteConnectionError(t *testing.T) {
	// 閉じたサーバーへの接続は接続エラーになる
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, "key", "model", 1000, 0.7)

	_, err := client.Complete(context.Background(), "ctx", "q")
	var cerr *CompletionError
	if !errors.As(err, &cerr) {
		t.Fatalf("*CompletionErrorになるべき: %v", err)
	}
	if cerr.Kind != FailureConnection {
		t.Errorf("接続エラーとして分類されるべき: %s", cerr.Kind)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model", 1000, 0.7)

	_, err := client.Complete(context.Background(), "ctx", "q")
	var cerr *CompletionError
	if !errors.As(err, &cerr) {
		t.Fatalf("*CompletionErrorになるべき: %v", err)
	}
	if cerr.Kind != FailureOther {
		t.Errorf("空応答はotherとして分類されるべき: %s", cerr.Kind)
	}
}

func TestCompletionErrorMessages(t *testing.T) {
	timeout := &CompletionError{Kind: FailureTimeout}
	if timeout.Error() != "LLMサーバーからの応答がタイムアウトしました" {
		t.Errorf("タイムアウトのメッセージが正しくない: %s", timeout.Error())
	}

	httpErr := &CompletionError{Kind: FailureHTTP, Status: 500, Message: "internal"}
	if httpErr.Error() != "API接続エラー: 500 - internal" {
		t.Errorf("HTTPエラーのメッセージが正しくない: %s", httpErr.Error())
	}
}

func TestClientTrimsBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("末尾スラッシュが二重になっている: %s", r.URL.Path)
		}
		w.Write([]byte(completionJSON("ok")))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "key", "model", 1000, 0.7)
	if _, err := client.Complete(context.Background(), "ctx", "q"); err != nil {
		t.Fatalf("Completeに失敗: %v", err)
	}
}
