package services

import (
	"sales-insight-api/pkg/models"
)

// AnalyticsService 検証→フィルター→集計→（ランキング｜要約）の
// パイプラインをまとめた呼び出し側向けのサービス。
// 各処理は不変のスナップショット上の純粋関数なのでロックは不要。
type AnalyticsService struct {
	cache *DatasetCache
	opts  SummaryOptions
}

// NewAnalyticsService 分析サービスを作成する
func NewAnalyticsService(cache *DatasetCache, opts SummaryOptions) *AnalyticsService {
	return &AnalyticsService{cache: cache, opts: opts}
}

// RunQuery フィルター適用後のビューを指定ディメンションで集計する。
// 2番目の戻り値はフィルターに一致する行が0件だったことを示す警告フラグ。
func (s *AnalyticsService) RunQuery(spec models.FilterSpec, dimensions []string) ([]models.AggregateRow, bool, error) {
	snap, err := s.cache.Ensure()
	if err != nil {
		return nil, false, err
	}
	view := ApplyFilters(snap.Dataset, spec)
	return Aggregate(view, dimensions), len(view) == 0, nil
}

// RunTopN 指定ディメンションの集計を指標の降順でn件に切り詰めて返す
func (s *AnalyticsService) RunTopN(spec models.FilterSpec, dimension, metric string, n int) ([]models.AggregateRow, bool, error) {
	snap, err := s.cache.Ensure()
	if err != nil {
		return nil, false, err
	}
	view := ApplyFilters(snap.Dataset, spec)
	rows := Aggregate(view, []string{dimension})
	return TopN(rows, metric, n), len(view) == 0, nil
}

// RunSummary フィルター適用後のビューと会話履歴からコンテキスト
// ダイジェストを生成する。ビューが空でも全体統計にフォールバックする。
func (s *AnalyticsService) RunSummary(spec models.FilterSpec, history []models.ConversationTurn) (string, error) {
	snap, err := s.cache.Ensure()
	if err != nil {
		return "", err
	}
	view := ApplyFilters(snap.Dataset, spec)
	return Summarize(view, snap.Dataset, spec, history, s.opts), nil
}

// KPI フィルター適用後のビュー全体を1行に集計する（KPIカード相当）
func (s *AnalyticsService) KPI(spec models.FilterSpec) (*models.AggregateRow, error) {
	snap, err := s.cache.Ensure()
	if err != nil {
		return nil, err
	}
	view := ApplyFilters(snap.Dataset, spec)
	rows := Aggregate(view, nil)
	if len(rows) == 0 {
		return &models.AggregateRow{Dimensions: map[string]string{}}, nil
	}
	return &rows[0], nil
}

// ExportCSV フィルター適用後のビューを元のカラム形式で書き出す
func (s *AnalyticsService) ExportCSV(spec models.FilterSpec) ([]byte, error) {
	snap, err := s.cache.Ensure()
	if err != nil {
		return nil, err
	}
	view := ApplyFilters(snap.Dataset, spec)
	return WriteCSV(view)
}

// Report 最新の検証レポートを返す
func (s *AnalyticsService) Report() (*models.ValidationReport, error) {
	snap, err := s.cache.Ensure()
	if err != nil {
		return nil, err
	}
	return snap.Report, nil
}

// Dimensions フィルターUI向けの選択肢一覧を返す
func (s *AnalyticsService) Dimensions() (models.DimensionValues, error) {
	snap, err := s.cache.Ensure()
	if err != nil {
		return models.DimensionValues{}, err
	}
	return DistinctValues(snap.Dataset), nil
}

// Reload 内容ハッシュを確認して必要なら再構築する。
// 戻り値は再構築が行われたかどうか。
func (s *AnalyticsService) Reload() (bool, error) {
	before := s.cache.Snapshot()
	snap, err := s.cache.Ensure()
	if err != nil {
		return false, err
	}
	return before == nil || before.Hash != snap.Hash, nil
}

// SummaryOptions 現在のダイジェスト設定を返す
func (s *AnalyticsService) SummaryOptions() SummaryOptions {
	return s.opts
}
