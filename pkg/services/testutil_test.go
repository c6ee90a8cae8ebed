package services

import (
	"testing"
	"time"

	"sales-insight-api/pkg/models"
)

// mustPeriod "YYYY-MM"を月初日として解析する
func mustPeriod(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(models.PeriodFormat, s)
	if err != nil {
		t.Fatalf("invalid period %q: %v", s, err)
	}
	return time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func amount(v float64) *float64 {
	return &v
}

// testRecord 省略形のレコードビルダー
func testRecord(t *testing.T, period, product, staff, customer string, sales, cost, profit float64) models.SalesRecord {
	t.Helper()
	return models.SalesRecord{
		Period:      mustPeriod(t, period),
		Product:     product,
		Staff:       staff,
		Customer:    customer,
		SalesAmount: amount(sales),
		CostAmount:  amount(cost),
		GrossProfit: amount(profit),
	}
}

// scenarioDataset 月次トレンド検証用の3行データ
func scenarioDataset(t *testing.T) models.Dataset {
	t.Helper()
	return models.Dataset{
		testRecord(t, "2024-01", "ProductA", "StaffX", "CustomerY", 1000, 600, 400),
		testRecord(t, "2024-02", "ProductA", "StaffX", "CustomerY", 1200, 700, 500),
		testRecord(t, "2024-02", "ProductB", "StaffX", "CustomerY", 300, 100, 200),
	}
}
