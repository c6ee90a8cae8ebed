package services

import (
	"sort"
	"strings"

	"sales-insight-api/pkg/models"
)

// 合成キーの区切り文字。ディメンション値に現れない制御文字を使う。
const keySeparator = "\x1f"

// aggAccumulator 1グループ分の集計中間値
type aggAccumulator struct {
	dimensions map[string]string
	totalSales float64
	totalCost  float64
	profit     float64
	count      int
	salesCount int // 売上金額が数値だった行数（平均の分母）
}

// Aggregate viewを指定ディメンションの合成キーでグルーピングし、
// 派生指標付きのAggregateRowを返す。ディメンションに依存しない汎用実装で、
// 1パスでアキュムレータを構築する。結果は合成キーの昇順（periodは"YYYY-MM"
// 表記なので時系列順と一致する）。dimensionsが空の場合は全体を1行に集計する。
//
// periodでグルーピングする場合、年月が解析できていない行はグループを
// 作らず除外する。前期比はperiod単独のグルーピングでのみ計算され、
// 先頭期間と前期の値が0の期間はnilになる。
func Aggregate(view models.Dataset, dimensions []string) []models.AggregateRow {
	groupByPeriod := false
	for _, d := range dimensions {
		if d == models.DimensionPeriod {
			groupByPeriod = true
		}
	}

	groups := make(map[string]*aggAccumulator)
	for _, rec := range view {
		if groupByPeriod && !rec.HasPeriod() {
			continue
		}

		parts := make([]string, len(dimensions))
		dims := make(map[string]string, len(dimensions))
		for i, d := range dimensions {
			v := dimensionValue(rec, d)
			parts[i] = v
			dims[d] = v
		}
		key := strings.Join(parts, keySeparator)

		acc, ok := groups[key]
		if !ok {
			acc = &aggAccumulator{dimensions: dims}
			groups[key] = acc
		}
		acc.count++
		if rec.SalesAmount != nil {
			acc.totalSales += *rec.SalesAmount
			acc.salesCount++
		}
		if rec.CostAmount != nil {
			acc.totalCost += *rec.CostAmount
		}
		if rec.GrossProfit != nil {
			acc.profit += *rec.GrossProfit
		}
	}

	rows := make([]models.AggregateRow, 0, len(groups))
	for key, acc := range groups {
		row := models.AggregateRow{
			Dimensions:       acc.dimensions,
			Key:              key,
			TotalSales:       acc.totalSales,
			TotalCost:        acc.totalCost,
			TotalProfit:      acc.profit,
			TransactionCount: acc.count,
		}
		if acc.salesCount > 0 {
			row.AvgSales = acc.totalSales / float64(acc.salesCount)
		}
		// 売上0のグループの粗利率は0（NaNにしない）
		if acc.totalSales != 0 {
			row.ProfitRatePct = acc.profit / acc.totalSales * 100
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	// 月次トレンド（period単独）のときだけ前期比を付与する
	if len(dimensions) == 1 && dimensions[0] == models.DimensionPeriod {
		attachPctChange(rows)
	}

	return rows
}

// attachPctChange 時系列（昇順ソート済み）の各行に前期比を付与する
func attachPctChange(rows []models.AggregateRow) {
	for i := 1; i < len(rows); i++ {
		prev := rows[i-1]
		if prev.TotalSales != 0 {
			v := (rows[i].TotalSales - prev.TotalSales) / prev.TotalSales * 100
			rows[i].PctChangeSales = &v
		}
		if prev.TotalProfit != 0 {
			v := (rows[i].TotalProfit - prev.TotalProfit) / prev.TotalProfit * 100
			rows[i].PctChangeProfit = &v
		}
	}
}

// dimensionValue レコードからディメンションの値を取り出す
func dimensionValue(rec models.SalesRecord, dimension string) string {
	switch dimension {
	case models.DimensionPeriod:
		return rec.PeriodLabel()
	case models.DimensionProduct:
		return rec.Product
	case models.DimensionStaff:
		return rec.Staff
	case models.DimensionCustomer:
		return rec.Customer
	default:
		return ""
	}
}

// IsValidDimension 集計に使えるディメンション名か
func IsValidDimension(name string) bool {
	switch name {
	case models.DimensionPeriod, models.DimensionProduct, models.DimensionStaff, models.DimensionCustomer:
		return true
	}
	return false
}
