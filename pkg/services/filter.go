package services

import (
	"time"

	"sales-insight-api/pkg/models"
)

// ApplyFilters FilterSpecをDatasetに適用し、入力順を保った部分列を返す。
// 純粋関数であり、どの条件の組み合わせでも（すべて未指定でも）有効。
// 期間境界は月粒度で両端を含む。DateFrom > DateTo は空の結果になる。
func ApplyFilters(ds models.Dataset, spec models.FilterSpec) models.Dataset {
	from, hasFrom := parseBound(spec.DateFrom)
	to, hasTo := parseBound(spec.DateTo)

	filtered := make(models.Dataset, 0, len(ds))
	for _, rec := range ds {
		if hasFrom || hasTo {
			// 期間条件がある場合、年月不明の行は一致しない
			if !rec.HasPeriod() {
				continue
			}
			if hasFrom && rec.Period.Before(from) {
				continue
			}
			if hasTo && rec.Period.After(to) {
				continue
			}
		}
		if !matchesKey(spec.Staff, rec.Staff) {
			continue
		}
		if !matchesKey(spec.Product, rec.Product) {
			continue
		}
		if !matchesKey(spec.Customer, rec.Customer) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

// matchesKey 完全一致フィルター。空値と「全て」/"all"は条件なしとして扱う。
func matchesKey(selected, value string) bool {
	if selected == "" || selected == models.FilterAll || selected == "all" {
		return true
	}
	return selected == value
}

// parseBound "YYYY-MM"の境界値を解析する。解析できない値は条件なしとして扱う。
func parseBound(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t := parsePeriod(s)
	if t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}
