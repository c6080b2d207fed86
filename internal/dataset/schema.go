package dataset

import (
	"math"
	"sort"

	"insightx-workers/internal/analytics/vocabulary"
)

// DateRange spans the earliest and latest transaction dates (YYYY-MM-DD).
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// SchemaInfo summarizes the loaded dataset for display surfaces.
type SchemaInfo struct {
	TotalRows        int       `json:"totalRows"`
	Columns          []string  `json:"columns"`
	DateRange        DateRange `json:"dateRange"`
	States           []string  `json:"states"`
	Banks            []string  `json:"banks"`
	Categories       []string  `json:"categories"`
	AgeGroups        []string  `json:"ageGroups"`
	Devices          []string  `json:"devices"`
	Networks         []string  `json:"networks"`
	TransactionTypes []string  `json:"transactionTypes"`
	Days             []string  `json:"days"`
	FraudRate        float64   `json:"fraudRate"`
	FailureRate      float64   `json:"failureRate"`
}

// Describe computes the schema summary. Distinct values are sorted and
// empty strings are skipped.
func (d *Dataset) Describe() SchemaInfo {
	info := SchemaInfo{
		TotalRows:        d.Len(),
		Columns:          d.Columns(),
		States:           d.distinct(ColSenderState),
		Banks:            d.distinct(ColSenderBank),
		Categories:       d.distinct(ColMerchantCategory),
		AgeGroups:        d.distinct(ColSenderAgeGroup),
		Devices:          d.distinct(ColDeviceType),
		Networks:         d.distinct(ColNetworkType),
		TransactionTypes: d.distinct(ColTransactionType),
		Days:             append([]string{}, vocabulary.Weekdays...),
	}

	var fraud, failed int
	for i := range d.rows {
		r := &d.rows[i]
		if r.IsFraud {
			fraud++
		}
		if r.IsFailed {
			failed++
		}
		if r.Date == "" {
			continue
		}
		if info.DateRange.Min == "" || r.Date < info.DateRange.Min {
			info.DateRange.Min = r.Date
		}
		if r.Date > info.DateRange.Max {
			info.DateRange.Max = r.Date
		}
	}
	if n := d.Len(); n > 0 {
		info.FraudRate = round2(float64(fraud) / float64(n) * 100)
		info.FailureRate = round2(float64(failed) / float64(n) * 100)
	}
	return info
}

func (d *Dataset) distinct(column string) []string {
	if !d.HasColumn(column) {
		return []string{}
	}
	seen := map[string]struct{}{}
	for i := range d.rows {
		v, _ := d.Value(i, column)
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
