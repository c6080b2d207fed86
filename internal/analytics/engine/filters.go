package engine

import (
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/models"
)

func allRows(ds *dataset.Dataset) []int {
	rows := make([]int, ds.Len())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// applyFilters keeps rows whose column equals the filter value for every
// filter. Filters on columns the dataset lacks are ignored.
func applyFilters(ds *dataset.Dataset, rows []int, f models.Filters) []int {
	keys := make([]string, 0, len(f))
	for _, k := range f.Keys() {
		if ds.HasColumn(string(k)) {
			keys = append(keys, string(k))
		}
	}
	if len(keys) == 0 {
		return rows
	}

	out := make([]int, 0, len(rows))
rowLoop:
	for _, i := range rows {
		for _, k := range keys {
			if v, _ := ds.Value(i, k); v != f[models.FilterKey(k)] {
				continue rowLoop
			}
		}
		out = append(out, i)
	}
	return out
}

// applyTimeWindow keeps rows inside an inclusive hour range or on the
// requested side of the weekend flag.
func applyTimeWindow(ds *dataset.Dataset, rows []int, tw *models.TimeWindow) []int {
	if tw == nil {
		return rows
	}
	out := make([]int, 0, len(rows))
	for _, i := range rows {
		r := ds.Row(i)
		switch tw.Kind {
		case models.WindowHourRange:
			if r.HourOfDay < tw.Min || r.HourOfDay > tw.Max {
				continue
			}
		case models.WindowWeekend:
			if !r.IsWeekend {
				continue
			}
		case models.WindowWeekday:
			if r.IsWeekend {
				continue
			}
		}
		out = append(out, i)
	}
	return out
}

// restrictToCompare keeps rows whose group value is one of the compare-set members.
func restrictToCompare(ds *dataset.Dataset, rows []int, column string, compare []string) []int {
	members := make(map[string]struct{}, len(compare))
	for _, c := range compare {
		members[c] = struct{}{}
	}
	out := make([]int, 0, len(rows))
	for _, i := range rows {
		v, _ := ds.Value(i, column)
		if _, ok := members[v]; ok {
			out = append(out, i)
		}
	}
	return out
}
