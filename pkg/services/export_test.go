package services

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"sales-insight-api/pkg/models"
)

func TestWriteCSVRoundTrip(t *testing.T) {
	original := scenarioDataset(t)

	out, err := WriteCSV(original)
	if err != nil {
		t.Fatalf("WriteCSVに失敗: %v", err)
	}

	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("出力CSVの解析に失敗: %v", err)
	}

	reloaded, report, err := ValidateRows(rows, 1.0)
	if err != nil {
		t.Fatalf("再取り込みに失敗: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("往復で品質問題が出るべきでない: %v", report.Issues)
	}

	// 往復同一性
	if len(reloaded) != len(original) {
		t.Fatalf("件数が一致しない: %d != %d", len(reloaded), len(original))
	}
	for i := range original {
		a, b := original[i], reloaded[i]
		if !a.Period.Equal(b.Period) || a.Product != b.Product || a.Staff != b.Staff || a.Customer != b.Customer {
			t.Errorf("行%dの属性が一致しない: %+v != %+v", i, a, b)
		}
		if *a.SalesAmount != *b.SalesAmount || *a.CostAmount != *b.CostAmount || *a.GrossProfit != *b.GrossProfit {
			t.Errorf("行%dの金額が一致しない", i)
		}
	}
}

func TestWriteCSVNilAmounts(t *testing.T) {
	ds := models.Dataset{
		{Period: mustPeriod(t, "2024-01"), Product: "ProductA", Staff: "StaffX", Customer: "CustomerY"},
	}

	out, err := WriteCSV(ds)
	if err != nil {
		t.Fatalf("WriteCSVに失敗: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header + 1 row, got %d lines", len(lines))
	}
	// 解析できなかった金額は空セル
	if lines[1] != "2024-01,ProductA,StaffX,CustomerY,,," {
		t.Errorf("nilの金額は空セルになるべき: %q", lines[1])
	}
}

func TestWriteCSVEmptyDataset(t *testing.T) {
	out, err := WriteCSV(models.Dataset{})
	if err != nil {
		t.Fatalf("WriteCSVに失敗: %v", err)
	}
	if strings.TrimSpace(string(out)) != strings.Join(exportHeader, ",") {
		t.Errorf("空データはヘッダーのみ出力するべき: %q", string(out))
	}
}

func TestAmountStringPrecision(t *testing.T) {
	if got := amountString(amount(1234.5)); got != "1234.5" {
		t.Errorf("Expected 1234.5, got %q", got)
	}
	if got := amountString(amount(1000)); got != "1000" {
		t.Errorf("整数値は小数点なしで出力: %q", got)
	}
	if got := amountString(nil); got != "" {
		t.Errorf("nilは空文字列: %q", got)
	}
}
