package services

import (
	"sync"

	"sales-insight-api/pkg/models"
)

// WindowTurns 会話履歴を直近maxTurnsターンに切り詰める（時系列順のまま）。
// 古いターンは要約せず単純に捨てる。maxTurns <= 0 は空を返す。
func WindowTurns(history []models.ConversationTurn, maxTurns int) []models.ConversationTurn {
	if maxTurns <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	out := make([]models.ConversationTurn, len(history))
	copy(out, history)
	return out
}

// ConversationHistory セッション1件分の会話履歴。
// 容量を超えた古いターンは追記時に捨てられる（固定容量ウィンドウ）。
type ConversationHistory struct {
	mu       sync.Mutex
	turns    []models.ConversationTurn
	capacity int
}

// NewConversationHistory 容量付きの会話履歴を作成する
func NewConversationHistory(capacity int) *ConversationHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &ConversationHistory{capacity: capacity}
}

// Append ターンを追記し、容量を超えた分を先頭から捨てる
func (h *ConversationHistory) Append(role, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, models.ConversationTurn{Role: role, Text: text})
	if len(h.turns) > h.capacity {
		h.turns = h.turns[len(h.turns)-h.capacity:]
	}
}

// Turns 現在の履歴のコピーを返す
func (h *ConversationHistory) Turns() []models.ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.ConversationTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len 現在のターン数
func (h *ConversationHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear 履歴を空にする
func (h *ConversationHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// SessionStore セッションIDごとの会話履歴を管理する
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*ConversationHistory
	capacity int
}

// NewSessionStore セッションストアを作成する。capacityは1セッション当たりの保持ターン数。
func NewSessionStore(capacity int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*ConversationHistory),
		capacity: capacity,
	}
}

// Get セッションの履歴を返す。存在しなければ作成する。
func (s *SessionStore) Get(sessionID string) *ConversationHistory {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.sessions[sessionID]; ok {
		return h
	}
	h = NewConversationHistory(s.capacity)
	s.sessions[sessionID] = h
	return h
}

// Peek セッションの履歴を参照する。Getと違い存在しないセッションを
// 作成しないので、読み取り専用の照会でストアが膨らまない。
func (s *SessionStore) Peek(sessionID string) []models.ConversationTurn {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return h.Turns()
}

// Len 保持しているセッション数
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Clear セッションの履歴を破棄する
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
