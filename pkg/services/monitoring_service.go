package services

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogEntry は単一のリクエストログを表します。
type RequestLogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// 保持するログの上限。超えた分は古いものから捨てる。
const maxLogEntries = 10000

// MonitoringService はAPIのモニタリング機能を提供します。
type MonitoringService struct {
	logs []RequestLogEntry
	mu   sync.RWMutex
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService() *MonitoringService {
	return &MonitoringService{
		logs: make([]RequestLogEntry, 0),
	}
}

// LogRequest はリクエストを記録します。上限を超えた古いログは捨てられます。
func (s *MonitoringService) LogRequest(entry RequestLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = append(s.logs[:0:0], s.logs[len(s.logs)-maxLogEntries:]...)
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// モニタリング自身のアクセスは記録しない
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}

		s.LogRequest(RequestLogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		})
	}
}

// MonitoringStats は集計済みのリクエスト統計です。
type MonitoringStats struct {
	TotalRequests int                `json:"total_requests"`
	Endpoints     map[string]int     `json:"endpoints"`
	StatusClasses map[string]int     `json:"status_classes"`
	RecentErrors  []RequestLogEntry  `json:"recent_errors"`
	AvgResponseMs map[string]float64 `json:"avg_response_ms"`
}

// GetStats は指定時間内のログを集計して返します。
func (s *MonitoringService) GetStats(period time.Duration) MonitoringStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().Add(-period)

	stats := MonitoringStats{
		Endpoints:     make(map[string]int),
		StatusClasses: map[string]int{"2xx": 0, "4xx": 0, "5xx": 0},
		AvgResponseMs: make(map[string]float64),
		RecentErrors:  make([]RequestLogEntry, 0),
	}

	totalTime := make(map[string]time.Duration)
	for _, entry := range s.logs {
		if entry.Timestamp.Before(since) {
			continue
		}
		stats.TotalRequests++
		stats.Endpoints[entry.Path]++
		totalTime[entry.Path] += entry.ResponseTime

		switch {
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			stats.StatusClasses["2xx"]++
		case entry.StatusCode >= 400 && entry.StatusCode < 500:
			stats.StatusClasses["4xx"]++
		case entry.StatusCode >= 500:
			stats.StatusClasses["5xx"]++
		}
	}

	for path, total := range totalTime {
		stats.AvgResponseMs[path] = float64(total.Milliseconds()) / float64(stats.Endpoints[path])
	}

	// 直近のサーバーエラーを新しい順に最大10件
	for i := len(s.logs) - 1; i >= 0 && len(stats.RecentErrors) < 10; i-- {
		if s.logs[i].StatusCode >= 500 && !s.logs[i].Timestamp.Before(since) {
			stats.RecentErrors = append(stats.RecentErrors, s.logs[i])
		}
	}

	return stats
}
