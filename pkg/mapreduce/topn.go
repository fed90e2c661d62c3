package mapreduce

import (
	"cmp"
	"fmt"
	"slices"
)

// Totals collects the left-word totals from a result's sentinel records.
func Totals(result *Result) map[string]int {
	totals := make(map[string]int)
	for _, partition := range result.Partitions {
		for _, o := range partition {
			if o.Key.IsTotal() {
				totals[o.Key.Left] = int(o.Frequency)
			}
		}
	}
	return totals
}

// TopKeys returns the n most frequent left words as "word:count" strings
// (e.g., "the:1153"). Ties are broken alphabetically.
func TopKeys(totals map[string]int, n int) []string {
	type kv struct {
		Key   string
		Value int
	}

	ss := make([]kv, 0, len(totals))
	for k, v := range totals {
		ss = append(ss, kv{k, v})
	}

	slices.SortFunc(ss, func(a, b kv) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	limit := max(min(n, len(ss)), 0)

	keys := make([]string, limit)
	for i := range limit {
		keys[i] = fmt.Sprintf("%s:%d", ss[i].Key, ss[i].Value)
	}
	return keys
}
