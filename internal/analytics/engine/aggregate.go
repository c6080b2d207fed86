package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"insightx-workers/internal/dataset"
	"insightx-workers/internal/models"
)

// requiredColumn names the dataset column a metric reads, if any.
func requiredColumn(m models.Metric) string {
	switch m {
	case models.MetricFraudRate:
		return dataset.ColIsFraud
	case models.MetricFailureRate:
		return dataset.ColIsFailed
	case models.MetricAvgAmount, models.MetricTotalVolume:
		return dataset.ColAmount
	}
	return ""
}

// accumulator gathers everything any metric needs in one pass.
// Amounts are summed as decimals so large volumes do not drift.
type accumulator struct {
	n      int
	fraud  int
	failed int
	amount decimal.Decimal
}

func (a *accumulator) add(t models.Transaction) {
	a.n++
	if t.IsFraud {
		a.fraud++
	}
	if t.IsFailed {
		a.failed++
	}
	a.amount = a.amount.Add(decimal.NewFromFloat(t.Amount))
}

func (a *accumulator) value(m models.Metric) (float64, error) {
	if a.n == 0 {
		return 0, fmt.Errorf("no rows to aggregate for %s", m)
	}
	n := float64(a.n)
	switch m {
	case models.MetricFraudRate:
		return float64(a.fraud) / n * 100, nil
	case models.MetricFailureRate:
		return float64(a.failed) / n * 100, nil
	case models.MetricAvgAmount:
		return a.amount.Div(decimal.NewFromInt(int64(a.n))).InexactFloat64(), nil
	case models.MetricCount:
		return n, nil
	case models.MetricTotalVolume:
		return a.amount.InexactFloat64(), nil
	}
	return 0, fmt.Errorf("unsupported metric %s", m)
}

func checkMetricColumn(ds *dataset.Dataset, m models.Metric) error {
	if col := requiredColumn(m); col != "" && !ds.HasColumn(col) {
		return fmt.Errorf("column '%s' not available", col)
	}
	return nil
}

// scalar computes the metric over the selected rows.
func scalar(ds *dataset.Dataset, rows []int, m models.Metric) (float64, error) {
	if err := checkMetricColumn(ds, m); err != nil {
		return 0, err
	}
	var acc accumulator
	for _, i := range rows {
		acc.add(ds.Row(i))
	}
	return acc.value(m)
}

// aggregateGroups computes the metric per distinct value of column, in first-seen
// order. Rows with an empty group value are left out.
func aggregateGroups(ds *dataset.Dataset, rows []int, m models.Metric, column string) ([]models.GroupRow, error) {
	if err := checkMetricColumn(ds, m); err != nil {
		return nil, err
	}
	if !ds.HasColumn(column) {
		return nil, fmt.Errorf("column '%s' not available", column)
	}

	var order []string
	accs := map[string]*accumulator{}
	for _, i := range rows {
		key, _ := ds.Value(i, column)
		if key == "" {
			continue
		}
		acc, ok := accs[key]
		if !ok {
			acc = &accumulator{}
			accs[key] = acc
			order = append(order, key)
		}
		acc.add(ds.Row(i))
	}

	out := make([]models.GroupRow, 0, len(order))
	for _, key := range order {
		acc := accs[key]
		v, err := acc.value(m)
		if err != nil {
			return nil, err
		}
		out = append(out, models.GroupRow{
			Group:     key,
			Value:     v,
			Formatted: FormatValue(v, m),
			Count:     acc.n,
		})
	}
	return out, nil
}
