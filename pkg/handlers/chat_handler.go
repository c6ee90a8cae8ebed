package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"sales-insight-api/pkg/llm"
	"sales-insight-api/pkg/models"
	"sales-insight-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler AIアシスタントのAPI。ダイジェストをsystemコンテキストとして
// LLMに渡し、セッションごとの会話履歴を管理する。
type ChatHandler struct {
	analytics *services.AnalyticsService
	client    *llm.Client
	sessions  *services.SessionStore
}

// NewChatHandler 新しいChatHandlerを作成する
func NewChatHandler(analytics *services.AnalyticsService, client *llm.Client, sessions *services.SessionStore) *ChatHandler {
	return &ChatHandler{analytics: analytics, client: client, sessions: sessions}
}

// よくある質問のプリセット（元ダッシュボードのクイック質問ボタン）
var quickQuestions = map[string]string{
	"trend":         "現在の期間での売上トレンドを分析し、成長している商品や担当者を教えてください。",
	"staff":         "担当者別の売上パフォーマンスを分析し、最も優秀な担当者とその特徴を教えてください。",
	"product":       "商品別の売上分析を行い、最も売上が良い商品と粗利率の高い商品を教えてください。",
	"profitability": "全体的な収益性を分析し、改善点や推奨事項を教えてください。",
}

// Chat ユーザーの質問に対してLLMの回答を返す
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	// プリセット名ならクイック質問の本文に展開する
	if preset, ok := quickQuestions[req.Message]; ok {
		req.Message = preset
	}

	// セッションIDが指定されていない場合は新規生成
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	history := h.sessions.Get(req.SessionID)

	// 現在のフィルターと履歴からダイジェストを生成（systemコンテキスト）
	digest, err := h.analytics.RunSummary(req.Filters, history.Turns())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "データの読み込みに失敗しました: " + err.Error()})
		return
	}

	answer, err := h.client.Complete(c.Request.Context(), digest, req.Message)
	if err != nil {
		h.completionError(c, err)
		return
	}

	history.Append("user", req.Message)
	history.Append("assistant", answer)

	c.JSON(http.StatusOK, models.ChatResponse{
		Success:   true,
		Response:  answer,
		SessionID: req.SessionID,
		Timestamp: time.Now().Format(time.RFC3339),
		Model:     h.client.Model(),
	})
}

// GetQuickQuestions 利用可能なプリセット質問を返す
func (h *ChatHandler) GetQuickQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "questions": quickQuestions})
}

// GetHistory セッションの会話履歴を返す。未知のセッションIDで
// 新しいセッションを作らない（照会だけでストアが膨らまないように）。
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("session")
	turns := h.sessions.Peek(sessionID)
	if turns == nil {
		turns = []models.ConversationTurn{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionID,
		"turns":   turns,
		"count":   len(turns),
	})
}

// ClearHistory セッションの会話履歴を破棄する
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	sessionID := c.Param("session")
	h.sessions.Clear(sessionID)
	c.JSON(http.StatusOK, gin.H{"success": true, "session": sessionID})
}

// completionError LLM呼び出しの型付き失敗をHTTPレスポンスに変換する
func (h *ChatHandler) completionError(c *gin.Context, err error) {
	var compErr *llm.CompletionError
	if !errors.As(err, &compErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	log.Printf("LLM呼び出しに失敗 (kind=%s): %v", compErr.Kind, compErr)

	status := http.StatusBadGateway
	switch compErr.Kind {
	case llm.FailureTimeout:
		status = http.StatusGatewayTimeout
	case llm.FailureConnection:
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   compErr.Error(),
		"kind":    string(compErr.Kind),
	})
}
