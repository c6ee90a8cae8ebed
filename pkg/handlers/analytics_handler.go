package handlers

import (
	"fmt"
	"net/http"

	"sales-insight-api/pkg/models"
	"sales-insight-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 集計・ランキング・ダイジェスト・エクスポートのAPI
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler 新しいAnalyticsHandlerを作成する
func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// RunQuery フィルター＋グルーピングの集計結果を返す
func (h *AnalyticsHandler) RunQuery(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	for _, d := range req.GroupBy {
		if !services.IsValidDimension(d) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("無効なディメンションです: %s", d)})
			return
		}
	}

	rows, empty, err := h.analytics.RunQuery(req.Filters, req.GroupBy)
	if err != nil {
		h.loadError(c, err)
		return
	}

	totals, err := h.analytics.KPI(req.Filters)
	if err != nil {
		h.loadError(c, err)
		return
	}

	resp := models.QueryResponse{
		Success:     true,
		Rows:        rows,
		EmptyResult: empty,
		Totals:      totals,
	}
	if empty {
		resp.Message = "フィルター条件に一致するデータがありません"
	}
	c.JSON(http.StatusOK, resp)
}

// RunTopN 指標の降順でn件のランキングを返す
func (h *AnalyticsHandler) RunTopN(c *gin.Context) {
	var req models.TopNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	if !services.IsValidDimension(req.Dimension) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("無効なディメンションです: %s", req.Dimension)})
		return
	}
	if req.Metric == "" {
		req.Metric = services.MetricTotalSales
	}
	if !services.IsValidMetric(req.Metric) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("無効な指標です: %s", req.Metric)})
		return
	}

	rows, empty, err := h.analytics.RunTopN(req.Filters, req.Dimension, req.Metric, req.N)
	if err != nil {
		h.loadError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.QueryResponse{
		Success:     true,
		Rows:        rows,
		EmptyResult: empty,
	})
}

// RunSummary LLMに渡すコンテキストダイジェストのプレビューを返す
func (h *AnalyticsHandler) RunSummary(c *gin.Context) {
	var req models.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	history := req.History
	if req.MaxTurns > 0 {
		history = services.WindowTurns(history, req.MaxTurns)
	}

	digest, err := h.analytics.RunSummary(req.Filters, history)
	if err != nil {
		h.loadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "digest": digest})
}

// ExportCSV フィルター適用後のビューをCSVとしてダウンロードさせる
func (h *AnalyticsHandler) ExportCSV(c *gin.Context) {
	var req models.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	data, err := h.analytics.ExportCSV(req.Filters)
	if err != nil {
		h.loadError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="sales_export.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// GetValidationReport 最新の検証レポートを返す
func (h *AnalyticsHandler) GetValidationReport(c *gin.Context) {
	report, err := h.analytics.Report()
	if err != nil {
		h.loadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// GetDimensions フィルターUI向けの選択肢一覧を返す
func (h *AnalyticsHandler) GetDimensions(c *gin.Context) {
	values, err := h.analytics.Dimensions()
	if err != nil {
		h.loadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "dimensions": values})
}

// ReloadData 内容ハッシュを確認して必要ならデータを再構築する
func (h *AnalyticsHandler) ReloadData(c *gin.Context) {
	rebuilt, err := h.analytics.Reload()
	if err != nil {
		h.loadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rebuilt": rebuilt})
}

// loadError データ読み込み系の失敗を呼び出し側に返す。
// スキーマ不正もファイル不在もクラッシュではなくエラー応答になる。
func (h *AnalyticsHandler) loadError(c *gin.Context, err error) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"success": false,
		"error":   "データの読み込みに失敗しました: " + err.Error(),
	})
}
