package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"sales-insight-api/pkg/models"
)

// exportHeader エクスポートの列順。取り込み時の必須列と同じ。
var exportHeader = []string{"売上年月", "商品名", "担当者", "顧客名", "売上金額", "仕入れ金額", "粗利金額"}

// WriteCSV Datasetを元のカラム形式のCSVに書き戻す。
// 取り込み→エクスポート→取り込みで同じDatasetが得られる（往復同一性）。
// 解析できなかった値は空セルとして出力される。
func WriteCSV(ds models.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("CSVヘッダーの書き込みに失敗: %w", err)
	}

	for _, rec := range ds {
		row := []string{
			rec.PeriodLabel(),
			rec.Product,
			rec.Staff,
			rec.Customer,
			amountString(rec.SalesAmount),
			amountString(rec.CostAmount),
			amountString(rec.GrossProfit),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("CSV行の書き込みに失敗: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSVの出力に失敗: %w", err)
	}
	return buf.Bytes(), nil
}

func amountString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
