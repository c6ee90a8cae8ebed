package services

import (
	"sort"

	"sales-insight-api/pkg/models"
)

// ランキングに指定できる指標名
const (
	MetricTotalSales       = "total_sales"
	MetricTotalProfit      = "total_profit"
	MetricTotalCost        = "total_cost"
	MetricProfitRate       = "profit_rate"
	MetricTransactionCount = "transaction_count"
	MetricAvgSales         = "avg_sales"
)

// TopN 集計結果を指標の降順に並べ、先頭n件を返す。
// 同値は合成キーの昇順で決定的に順序付ける。n <= 0 は空、
// nが行数以上なら全行をソートして返す。入力スライスは変更しない。
func TopN(rows []models.AggregateRow, metric string, n int) []models.AggregateRow {
	if n <= 0 {
		return []models.AggregateRow{}
	}

	sorted := make([]models.AggregateRow, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		vi, vj := MetricValue(sorted[i], metric), MetricValue(sorted[j], metric)
		if vi != vj {
			return vi > vj
		}
		return sorted[i].Key < sorted[j].Key
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// MetricValue 行から指標値を取り出す。未知の指標は売上合計にフォールバックする。
func MetricValue(row models.AggregateRow, metric string) float64 {
	switch metric {
	case MetricTotalProfit:
		return row.TotalProfit
	case MetricTotalCost:
		return row.TotalCost
	case MetricProfitRate:
		return row.ProfitRatePct
	case MetricTransactionCount:
		return float64(row.TransactionCount)
	case MetricAvgSales:
		return row.AvgSales
	default:
		return row.TotalSales
	}
}

// IsValidMetric ランキングに指定できる指標名か
func IsValidMetric(name string) bool {
	switch name {
	case MetricTotalSales, MetricTotalProfit, MetricTotalCost,
		MetricProfitRate, MetricTransactionCount, MetricAvgSales:
		return true
	}
	return false
}
