package memstore

import (
	"sort"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
)

// sortRows orders a materialized row set per the pagination contract:
// stable sort on the normalized sort key and direction.
func sortRows[T any](rows []T, page store.PageRequest, dateOf func(T) int64, orderOf func(T) string) {
	less := func(i, j int) bool {
		if page.Sort == store.SortByOrder {
			if page.Order == store.SortAsc {
				return orderOf(rows[i]) < orderOf(rows[j])
			}
			return orderOf(rows[i]) > orderOf(rows[j])
		}
		if page.Order == store.SortAsc {
			return dateOf(rows[i]) < dateOf(rows[j])
		}
		return dateOf(rows[i]) > dateOf(rows[j])
	}
	sort.SliceStable(rows, less)
}

// Plain list results are ordered newest-first, matching the relational
// backend's default ORDER BY.
func sortPurchases(list []*model.Purchase) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Date.After(list[j].Date)
	})
}

func sortTesters(list []*model.Tester) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UUID < list[j].UUID
	})
}

func sortMappings(list []*model.IDMapping) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
}

func sortByPurchaseID[T any](list []T, key func(T) string) {
	sort.SliceStable(list, func(i, j int) bool {
		return key(list[i]) < key(list[j])
	})
}
