package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"sales-insight-api/pkg/models"
)

// SchemaError 必須列の不足など、Datasetを構築できない致命的エラー
type SchemaError struct {
	MissingColumns []string
	Reason         string
}

func (e *SchemaError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("必要な列が不足しています: %s", strings.Join(e.MissingColumns, ", "))
	}
	return e.Reason
}

// 必須列とそのヘッダー別名。元データは日本語ヘッダーだが英語表記も受け付ける。
var requiredColumns = []struct {
	name    string
	aliases []string
}{
	{"売上年月", []string{"売上年月", "年月", "period", "month", "date"}},
	{"商品名", []string{"商品名", "商品", "product", "product_name"}},
	{"担当者", []string{"担当者", "担当", "staff", "staff_name"}},
	{"顧客名", []string{"顧客名", "顧客", "customer", "customer_name"}},
	{"売上金額", []string{"売上金額", "売上", "sales_amount", "sales"}},
	{"仕入れ金額", []string{"仕入れ金額", "仕入金額", "原価", "cost_amount", "cost"}},
	{"粗利金額", []string{"粗利金額", "粗利", "gross_profit", "profit"}},
}

// findColumn finds the index of the first matching alias in the header
func findColumn(header []string, aliases ...string) int {
	for _, alias := range aliases {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), alias) {
				return i
			}
		}
	}
	return -1
}

// ValidateRows 生の行データ（ヘッダー行を含む）を検証してDatasetを構築する。
// 必須列の不足と全行の年月解析失敗のみが致命的で、それ以外の品質問題は
// レポートに蓄積して読み込みを継続する。入力は変更しない。
func ValidateRows(rows [][]string, profitTolerance float64) (models.Dataset, *models.ValidationReport, error) {
	if len(rows) == 0 {
		return nil, nil, &SchemaError{Reason: "データが空です（ヘッダー行がありません）"}
	}

	header := rows[0]
	dataRows := rows[1:]

	indexes := make([]int, len(requiredColumns))
	var missing []string
	for i, col := range requiredColumns {
		idx := findColumn(header, col.aliases...)
		indexes[i] = idx
		if idx == -1 {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &SchemaError{MissingColumns: missing}
	}

	periodIdx, productIdx, staffIdx, customerIdx := indexes[0], indexes[1], indexes[2], indexes[3]
	salesIdx, costIdx, profitIdx := indexes[4], indexes[5], indexes[6]

	dataset := make(models.Dataset, 0, len(dataRows))

	var (
		nullPeriods      int
		nullSales        int
		nullCosts        int
		nullProfits      int
		negativeSales    int
		negativeProfits  int
		mismatchedProfit int
	)

	for _, row := range dataRows {
		rec := models.SalesRecord{
			Period:      parsePeriod(cell(row, periodIdx)),
			Product:     strings.TrimSpace(cell(row, productIdx)),
			Staff:       strings.TrimSpace(cell(row, staffIdx)),
			Customer:    strings.TrimSpace(cell(row, customerIdx)),
			SalesAmount: parseAmount(cell(row, salesIdx)),
			CostAmount:  parseAmount(cell(row, costIdx)),
			GrossProfit: parseAmount(cell(row, profitIdx)),
		}

		if !rec.HasPeriod() {
			nullPeriods++
		}
		if rec.SalesAmount == nil {
			nullSales++
		} else if *rec.SalesAmount < 0 {
			negativeSales++
		}
		if rec.CostAmount == nil {
			nullCosts++
		}
		if rec.GrossProfit == nil {
			nullProfits++
		} else if *rec.GrossProfit < 0 {
			negativeProfits++
		}

		// 粗利整合性: 3つの金額が揃っている行のみ対象
		if rec.SalesAmount != nil && rec.CostAmount != nil && rec.GrossProfit != nil {
			expected := *rec.SalesAmount - *rec.CostAmount
			if math.Abs(*rec.GrossProfit-expected) > profitTolerance {
				mismatchedProfit++
			}
		}

		dataset = append(dataset, rec)
	}

	if len(dataRows) > 0 && nullPeriods == len(dataRows) {
		return nil, nil, &SchemaError{Reason: "売上年月をすべての行で解析できませんでした"}
	}

	// 品質問題は行ごとではなく集約して1件ずつ報告する
	var issues []string
	if nullPeriods > 0 {
		issues = append(issues, fmt.Sprintf("売上年月を解析できない行が%d件あります", nullPeriods))
	}
	if nullSales > 0 {
		issues = append(issues, fmt.Sprintf("売上金額に数値化できない値が%d件あります", nullSales))
	}
	if nullCosts > 0 {
		issues = append(issues, fmt.Sprintf("仕入れ金額に数値化できない値が%d件あります", nullCosts))
	}
	if nullProfits > 0 {
		issues = append(issues, fmt.Sprintf("粗利金額に数値化できない値が%d件あります", nullProfits))
	}
	if negativeSales > 0 {
		issues = append(issues, fmt.Sprintf("売上金額に負の値が%d件含まれています", negativeSales))
	}
	if negativeProfits > 0 {
		issues = append(issues, fmt.Sprintf("粗利金額に負の値が%d件含まれています", negativeProfits))
	}
	if mismatchedProfit > 0 {
		issues = append(issues, fmt.Sprintf("粗利金額と売上金額-仕入れ金額に不一致が%d件あります（許容差±%.0f円）", mismatchedProfit, profitTolerance))
	}

	report := &models.ValidationReport{
		IsValid: len(issues) == 0,
		Issues:  issues,
		Summary: ComputeSummary(dataset),
	}

	return dataset, report, nil
}

// ComputeSummary Datasetの基本統計を計算する
func ComputeSummary(ds models.Dataset) models.DatasetSummary {
	summary := models.DatasetSummary{RecordCount: len(ds)}

	staff := make(map[string]struct{})
	products := make(map[string]struct{})
	customers := make(map[string]struct{})

	var minPeriod, maxPeriod time.Time
	for _, rec := range ds {
		if rec.Staff != "" {
			staff[rec.Staff] = struct{}{}
		}
		if rec.Product != "" {
			products[rec.Product] = struct{}{}
		}
		if rec.Customer != "" {
			customers[rec.Customer] = struct{}{}
		}
		if rec.HasPeriod() {
			if minPeriod.IsZero() || rec.Period.Before(minPeriod) {
				minPeriod = rec.Period
			}
			if maxPeriod.IsZero() || rec.Period.After(maxPeriod) {
				maxPeriod = rec.Period
			}
		}
		if rec.SalesAmount != nil {
			summary.TotalSales += *rec.SalesAmount
		}
		if rec.GrossProfit != nil {
			summary.TotalProfit += *rec.GrossProfit
		}
	}

	summary.StaffCount = len(staff)
	summary.ProductCount = len(products)
	summary.CustomerCount = len(customers)
	if !minPeriod.IsZero() {
		summary.DateRangeLabel = fmt.Sprintf("%s 〜 %s",
			minPeriod.Format(models.PeriodFormat), maxPeriod.Format(models.PeriodFormat))
	}

	return summary
}

// DistinctValues フィルターUI向けにディメンションの選択肢を返す
func DistinctValues(ds models.Dataset) models.DimensionValues {
	staff := make(map[string]struct{})
	products := make(map[string]struct{})
	customers := make(map[string]struct{})

	var minPeriod, maxPeriod time.Time
	for _, rec := range ds {
		if rec.Staff != "" {
			staff[rec.Staff] = struct{}{}
		}
		if rec.Product != "" {
			products[rec.Product] = struct{}{}
		}
		if rec.Customer != "" {
			customers[rec.Customer] = struct{}{}
		}
		if rec.HasPeriod() {
			if minPeriod.IsZero() || rec.Period.Before(minPeriod) {
				minPeriod = rec.Period
			}
			if maxPeriod.IsZero() || rec.Period.After(maxPeriod) {
				maxPeriod = rec.Period
			}
		}
	}

	values := models.DimensionValues{
		Staff:     sortedKeys(staff),
		Products:  sortedKeys(products),
		Customers: sortedKeys(customers),
	}
	if !minPeriod.IsZero() {
		values.MinPeriod = minPeriod.Format(models.PeriodFormat)
		values.MaxPeriod = maxPeriod.Format(models.PeriodFormat)
	}
	return values
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parsePeriod 売上年月を月初日として解析する。解析不能はゼロ値。
func parsePeriod(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01", "2006/01", "2006-01-02", "2006/1/2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

// parseAmount 金額セルをfloatとして解析する。解析不能はnil。
func parseAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
