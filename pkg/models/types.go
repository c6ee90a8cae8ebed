package models

import "time"

// 集計で使用できるディメンション名
const (
	DimensionPeriod   = "period"
	DimensionProduct  = "product"
	DimensionStaff    = "staff"
	DimensionCustomer = "customer"
)

// FilterAll はフィルター無指定を表すセンチネル値（画面の「全て」）
const FilterAll = "全て"

// PeriodFormat 売上年月の表記（月粒度）
const PeriodFormat = "2006-01"

// SalesRecord 売上データの1行。
// Periodのゼロ値は解析不能な年月、金額のnilは数値化できなかったセルを表す。
type SalesRecord struct {
	Period      time.Time `json:"period"`
	Product     string    `json:"product"`
	Staff       string    `json:"staff"`
	Customer    string    `json:"customer"`
	SalesAmount *float64  `json:"sales_amount"`
	CostAmount  *float64  `json:"cost_amount"`
	GrossProfit *float64  `json:"gross_profit"`
}

// HasPeriod 売上年月が解析できているか
func (r SalesRecord) HasPeriod() bool {
	return !r.Period.IsZero()
}

// PeriodLabel "YYYY-MM" 表記。解析不能な場合は空文字列。
func (r SalesRecord) PeriodLabel() string {
	if r.Period.IsZero() {
		return ""
	}
	return r.Period.Format(PeriodFormat)
}

// Dataset 検証済みの売上データ。検証後は不変として扱い、
// 以降の変換はすべて新しいスライスを返す。
type Dataset []SalesRecord

// FilterSpec データ絞り込み条件。すべて任意で、空値は条件なしを意味する。
// DateFrom/DateToは"YYYY-MM"表記の月（両端含む）。
type FilterSpec struct {
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	Staff    string `json:"staff,omitempty"`
	Product  string `json:"product,omitempty"`
	Customer string `json:"customer,omitempty"`
}

// IsEmpty すべての条件が未指定か
func (f FilterSpec) IsEmpty() bool {
	return f.DateFrom == "" && f.DateTo == "" &&
		isAllValue(f.Staff) && isAllValue(f.Product) && isAllValue(f.Customer)
}

func isAllValue(v string) bool {
	return v == "" || v == FilterAll || v == "all"
}

// AggregateRow 集計結果の1行。Dimensionsはグルーピングキー、
// Keyはソートとタイブレークに使う合成キー。
// PctChange系は前期比（%）で、先頭期間と前期が0の期間はnil。
type AggregateRow struct {
	Dimensions       map[string]string `json:"dimensions"`
	Key              string            `json:"-"`
	TotalSales       float64           `json:"total_sales"`
	TotalCost        float64           `json:"total_cost"`
	TotalProfit      float64           `json:"total_profit"`
	TransactionCount int               `json:"transaction_count"`
	AvgSales         float64           `json:"avg_sales"`
	ProfitRatePct    float64           `json:"profit_rate_pct"`
	PctChangeSales   *float64          `json:"pct_change_sales,omitempty"`
	PctChangeProfit  *float64          `json:"pct_change_profit,omitempty"`
}

// DatasetSummary データ全体の基本統計
type DatasetSummary struct {
	RecordCount    int     `json:"record_count"`
	DateRangeLabel string  `json:"date_range"`
	StaffCount     int     `json:"staff_count"`
	ProductCount   int     `json:"product_count"`
	CustomerCount  int     `json:"customer_count"`
	TotalSales     float64 `json:"total_sales"`
	TotalProfit    float64 `json:"total_profit"`
}

// ValidationReport データ読み込み時の検証結果。
// Issuesは致命的でないデータ品質の問題を順序付きで保持する。
type ValidationReport struct {
	IsValid bool           `json:"is_valid"`
	Issues  []string       `json:"issues"`
	Summary DatasetSummary `json:"summary"`
}

// ConversationTurn 会話履歴の1ターン
type ConversationTurn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// --- APIリクエスト/レスポンス ---

// QueryRequest 集計クエリのリクエスト
type QueryRequest struct {
	Filters FilterSpec `json:"filters"`
	GroupBy []string   `json:"group_by" binding:"required"`
}

// QueryResponse 集計クエリのレスポンス
type QueryResponse struct {
	Success     bool           `json:"success"`
	Rows        []AggregateRow `json:"rows"`
	EmptyResult bool           `json:"empty_result"` // フィルターに一致する行が0件
	Totals      *AggregateRow  `json:"totals,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// TopNRequest ランキングのリクエスト
type TopNRequest struct {
	Filters   FilterSpec `json:"filters"`
	Dimension string     `json:"dimension" binding:"required"`
	Metric    string     `json:"metric"`
	N         int        `json:"n"`
}

// SummaryRequest コンテキストダイジェストのリクエスト
type SummaryRequest struct {
	Filters  FilterSpec         `json:"filters"`
	History  []ConversationTurn `json:"history,omitempty"`
	MaxTurns int                `json:"max_turns,omitempty"`
}

// ChatRequest AIアシスタントへの質問
type ChatRequest struct {
	Message   string     `json:"message" binding:"required"`
	SessionID string     `json:"session_id,omitempty"`
	Filters   FilterSpec `json:"filters"`
}

// ChatResponse AIアシスタントの応答
type ChatResponse struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Model     string `json:"model,omitempty"`
}

// DimensionValues フィルターUI向けの選択肢一覧
type DimensionValues struct {
	Staff     []string `json:"staff"`
	Products  []string `json:"products"`
	Customers []string `json:"customers"`
	MinPeriod string   `json:"min_period"`
	MaxPeriod string   `json:"max_period"`
}
