// api/query.go
package api

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"collaboratorium/internal/store"
)

// ==== Типы сортировки и параметров листинга ====

type SortKey struct {
	Field string
	Desc  bool
}

type ListParams struct {
	Limit   int
	Offset  int
	Sort    []SortKey
	Filters map[string][]string
	Q       string
	Nulls   string // "last" (default) | "first"
}

// ==== Парсинг query-параметров ====

// parseListParams разбирает параметры листинга. Каждый числовой и
// сортировочный параметр принимается и с подчёркиванием (_limit), и без.
func parseListParams(q url.Values) ListParams {
	lp := ListParams{
		Limit:   queryInt(q, 50, 1000, "_limit", "limit"),
		Offset:  queryInt(q, 0, 0, "_offset", "offset"),
		Sort:    parseSortKeys(firstQuery(q, "_sort", "sort")),
		Filters: make(map[string][]string),
		Q:       strings.TrimSpace(q.Get("q")),
		Nulls:   "last",
	}
	if strings.EqualFold(strings.TrimSpace(q.Get("nulls")), "first") {
		lp.Nulls = "first"
	}

	// всё, что не служебный ключ — фильтр по полю
	for key, vals := range q {
		if isServiceKey(key) {
			continue
		}
		clean := make([]string, 0, len(vals))
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				clean = append(clean, v)
			}
		}
		if len(clean) > 0 {
			lp.Filters[key] = clean
		}
	}
	return lp
}

// firstQuery отдаёт первое непустое значение из перечисленных ключей
func firstQuery(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// queryInt читает неотрицательное число; max 0 — без верхней границы.
// Мусор и выход за границы тихо откатываются к значению по умолчанию.
func queryInt(q url.Values, fallback, max int, keys ...string) int {
	raw := firstQuery(q, keys...)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || (max > 0 && n > max) {
		return fallback
	}
	return n
}

// parseSortKeys разбирает "name,-version": префикс "-" — по убыванию,
// "+" допускается и означает возрастание
func parseSortKeys(raw string) []SortKey {
	if raw == "" {
		return nil
	}
	var keys []SortKey
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		desc := strings.HasPrefix(p, "-")
		p = strings.TrimPrefix(strings.TrimPrefix(p, "-"), "+")
		if p != "" {
			keys = append(keys, SortKey{Field: p, Desc: desc})
		}
	}
	return keys
}

func isServiceKey(key string) bool {
	switch key {
	case "q", "offset", "limit", "sort", "order",
		"_offset", "_limit", "_sort", "_order",
		"nulls", "form":
		return true
	}
	return false
}

// ==== Фильтрация ====

// applyFilters оставляет строки, у которых каждое указанное поле совпало
// хотя бы с одним значением фильтра (сравнение строковыми представлениями)
func applyFilters(rows []*store.Row, lp ListParams) []*store.Row {
	if len(lp.Filters) == 0 && lp.Q == "" {
		return rows
	}
	out := make([]*store.Row, 0, len(rows))
rowLoop:
	for _, row := range rows {
		for field, wanted := range lp.Filters {
			got, ok := rowValue(row, field)
			if !ok || got == nil {
				continue rowLoop
			}
			gs := toString(got)
			match := false
			for _, w := range wanted {
				if gs == w {
					match = true
					break
				}
			}
			if !match {
				continue rowLoop
			}
		}
		if lp.Q != "" && !rowMatchesQuery(row, lp.Q) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func rowMatchesQuery(row *store.Row, q string) bool {
	needle := strings.ToLower(q)
	for _, v := range row.Values {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// ==== Утилита ====

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func rowValue(row *store.Row, key string) (any, bool) {
	switch key {
	case "id":
		return row.ID, true
	case "version":
		return row.Version, true
	case "created_at":
		return row.CreatedAt, true
	case "updated_at":
		return row.UpdatedAt, true
	}
	v, ok := row.Values[key]
	return v, ok
}

// ==== Сортировка с политикой nulls ====

func cmpByKey(a, b *store.Row, key string, nullsPolicy string, desc bool) int {
	av, aok := rowValue(a, key)
	bv, bok := rowValue(b, key)

	aNull := !aok || av == nil
	bNull := !bok || bv == nil
	if aNull || bNull {
		if aNull && bNull {
			return 0
		}
		// null уходит в конец (или в начало при nulls=first), независимо от desc
		if nullsPolicy == "first" {
			if aNull {
				return -1
			}
			return 1
		}
		if aNull {
			return 1
		}
		return -1
	}

	var cmp int
	af, aIsNum := asFloat(av)
	bf, bIsNum := asFloat(bv)
	if aIsNum && bIsNum {
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(toString(av), toString(bv))
	}
	if desc {
		cmp = -cmp
	}
	return cmp
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func sortRowsMulti(rows []*store.Row, keys []SortKey, nullsPolicy string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			if c := cmpByKey(rows[i], rows[j], k.Field, nullsPolicy, k.Desc); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
