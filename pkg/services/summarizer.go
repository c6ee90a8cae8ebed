package services

import (
	"fmt"
	"strconv"
	"strings"

	"sales-insight-api/pkg/models"
)

// SummaryOptions ダイジェスト各セクションの上限件数。
// データ件数に関係なく出力サイズを抑え、LLM呼び出しの入力を予測可能にする。
type SummaryOptions struct {
	StaffTopN    int
	ProductTopN  int
	CustomerTopN int
	TrendMonths  int
	MaxTurns     int
	AsOf         string // 任意の「時点」ラベル。空なら出力しない。
}

// DefaultSummaryOptions 既定の上限件数
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{
		StaffTopN:    5,
		ProductTopN:  5,
		CustomerTopN: 5,
		TrendMonths:  12,
		MaxTurns:     10,
	}
}

// Summarize フィルター適用済みビューから、LLMのシステムコンテキストに
// 埋め込む固定構成のダイジェストを生成する。viewが空の場合は全体データの
// 統計にフォールバックし、空のダイジェストは返さない。同じ入力からは常に
// 同じ出力が得られる（AsOf以外に時刻依存の内容はない）。
func Summarize(view, whole models.Dataset, spec models.FilterSpec, history []models.ConversationTurn, opts SummaryOptions) string {
	var b strings.Builder

	b.WriteString("あなたは優秀な売上データ分析アシスタントです。\n")
	b.WriteString("以下の売上データの要約を基に、ユーザーの質問に日本語で回答してください。\n")
	b.WriteString("データに基づいた具体的な数値や分析を含めて、洞察を提供してください。\n\n")

	if opts.AsOf != "" {
		fmt.Fprintf(&b, "データ時点: %s\n\n", opts.AsOf)
	}

	// フィルター条件
	b.WriteString("現在のフィルター設定:\n")
	fmt.Fprintf(&b, "- 期間: %s 〜 %s\n", orAll(spec.DateFrom), orAll(spec.DateTo))
	fmt.Fprintf(&b, "- 担当者: %s\n", orAll(spec.Staff))
	fmt.Fprintf(&b, "- 商品: %s\n", orAll(spec.Product))
	fmt.Fprintf(&b, "- 顧客: %s\n\n", orAll(spec.Customer))

	target := view
	if len(view) == 0 {
		// フォールバック: フィルターに一致する行がなくてもダイジェストは返す
		b.WriteString("注意: フィルター条件に一致するデータがないため、全体データの統計を示します。\n\n")
		target = whole
	}

	writeBasicStats(&b, target)
	writeRankingSection(&b, target, models.DimensionStaff, "担当者別売上ランキング", opts.StaffTopN)
	writeRankingSection(&b, target, models.DimensionProduct, "商品別売上ランキング", opts.ProductTopN)
	writeTrendSection(&b, target, opts.TrendMonths)
	writeRankingSection(&b, target, models.DimensionCustomer, "顧客別売上ランキング", opts.CustomerTopN)
	writeHistorySection(&b, history, opts.MaxTurns)

	return b.String()
}

func writeBasicStats(b *strings.Builder, ds models.Dataset) {
	s := ComputeSummary(ds)

	b.WriteString("売上データの概要:\n")
	fmt.Fprintf(b, "- 総データ件数: %s件\n", formatCount(s.RecordCount))
	if s.DateRangeLabel != "" {
		fmt.Fprintf(b, "- 期間: %s\n", s.DateRangeLabel)
	}
	fmt.Fprintf(b, "- 担当者数: %d名\n", s.StaffCount)
	fmt.Fprintf(b, "- 商品数: %d種類\n", s.ProductCount)
	fmt.Fprintf(b, "- 顧客数: %d社\n", s.CustomerCount)
	fmt.Fprintf(b, "- 総売上: %s\n", formatYen(s.TotalSales))
	fmt.Fprintf(b, "- 総粗利: %s\n", formatYen(s.TotalProfit))
	if s.TotalSales != 0 {
		fmt.Fprintf(b, "- 平均粗利率: %.1f%%\n", s.TotalProfit/s.TotalSales*100)
	} else {
		b.WriteString("- 平均粗利率: 0.0%\n")
	}
	b.WriteString("\n")
}

func writeRankingSection(b *strings.Builder, ds models.Dataset, dimension, title string, topN int) {
	rows := TopN(Aggregate(ds, []string{dimension}), MetricTotalSales, topN)
	if len(rows) == 0 {
		return
	}

	fmt.Fprintf(b, "%s（上位%d件）:\n", title, len(rows))
	for i, row := range rows {
		name := row.Dimensions[dimension]
		if name == "" {
			name = "（不明）"
		}
		fmt.Fprintf(b, "%d. %s: 売上 %s、粗利 %s、粗利率 %.1f%%\n",
			i+1, name, formatYen(row.TotalSales), formatYen(row.TotalProfit), row.ProfitRatePct)
	}
	b.WriteString("\n")
}

func writeTrendSection(b *strings.Builder, ds models.Dataset, months int) {
	rows := Aggregate(ds, []string{models.DimensionPeriod})
	if len(rows) == 0 {
		return
	}
	// 直近monthsヶ月分に絞る（昇順ソート済みなので末尾を取る）
	if months > 0 && len(rows) > months {
		rows = rows[len(rows)-months:]
	}

	fmt.Fprintf(b, "月次推移（直近%dヶ月）:\n", len(rows))
	for _, row := range rows {
		line := fmt.Sprintf("- %s: 売上 %s、粗利 %s",
			row.Dimensions[models.DimensionPeriod], formatYen(row.TotalSales), formatYen(row.TotalProfit))
		if row.PctChangeSales != nil {
			line += fmt.Sprintf("、売上前月比 %+.1f%%", *row.PctChangeSales)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeHistorySection(b *strings.Builder, history []models.ConversationTurn, maxTurns int) {
	turns := WindowTurns(history, maxTurns)
	if len(turns) == 0 {
		return
	}

	fmt.Fprintf(b, "これまでの会話（直近%dターン）:\n", len(turns))
	for _, turn := range turns {
		role := "ユーザー"
		if turn.Role == "assistant" {
			role = "アシスタント"
		}
		fmt.Fprintf(b, "%s: %s\n", role, turn.Text)
	}
	b.WriteString("\n")
}

func orAll(v string) string {
	if v == "" {
		return models.FilterAll
	}
	return v
}

// formatYen 通貨形式（¥1,234,567）でフォーマットする。小数は四捨五入。
func formatYen(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 0, 64)
	s = groupDigits(s)
	if neg {
		return "-¥" + s
	}
	return "¥" + s
}

func formatCount(n int) string {
	return groupDigits(strconv.Itoa(n))
}

// groupDigits 3桁ごとにカンマを挿入する
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
