// Package engine executes structured analytics queries against the
// transaction dataset and explains the numbers it produces.
package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"insightx-workers/internal/analytics/vocabulary"
	"insightx-workers/internal/common/errors"
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/models"
)

const (
	DefaultBreakdownSize = 5

	fallbackNarrative = "Query parsed successfully but no dimension detected. Showing overall stats."
	noRowsMessage     = "No transactions matched your filters. Try broadening the query."
)

// Options tunes the executor. Zero values fall back to the defaults.
type Options struct {
	ComparisonZThreshold float64
	AnomalyZThreshold    float64
	BreakdownSize        int
}

func DefaultOptions() Options {
	return Options{
		ComparisonZThreshold: DefaultComparisonZThreshold,
		AnomalyZThreshold:    DefaultAnomalyZThreshold,
		BreakdownSize:        DefaultBreakdownSize,
	}
}

// Executor is stateless apart from its options and safe for concurrent use.
type Executor struct {
	opts Options
}

func NewExecutor(opts Options) *Executor {
	def := DefaultOptions()
	if opts.ComparisonZThreshold <= 0 {
		opts.ComparisonZThreshold = def.ComparisonZThreshold
	}
	if opts.AnomalyZThreshold <= 0 {
		opts.AnomalyZThreshold = def.AnomalyZThreshold
	}
	if opts.BreakdownSize <= 0 {
		opts.BreakdownSize = def.BreakdownSize
	}
	return &Executor{opts: opts}
}

// Execute runs q against ds. Failures never escape as errors or panics; they
// come back as a result with Success=false and a readable Error.
func (e *Executor) Execute(q models.StructuredQuery, ds *dataset.Dataset) (res models.AnalyticsResult) {
	res = models.AnalyticsResult{
		Success:     true,
		Intent:      q.Intent,
		Metric:      q.Metric,
		MetricLabel: q.Metric.Label(),
		GroupBy:     q.GroupBy,
		Filters:     q.Filters.Clone(),
		Compare:     append([]string{}, q.Compare...),
		Insights:    []string{},
		Anomalies:   []models.Anomaly{},
		QueryJSON:   q.JSON(),
	}
	if g, ok := q.Group(); ok {
		res.DimLabel = g.Label()
	}

	defer func() {
		if r := recover(); r != nil {
			fail(&res, errors.NewComputationError(fmt.Errorf("%v", r)))
		}
	}()

	if ds == nil {
		fail(&res, errors.NewDatasetUnavailableError())
		return res
	}
	if err := e.run(q, ds, &res); err != nil {
		stdErr, ok := errors.AsStandardError(err)
		if !ok {
			stdErr = errors.NewComputationError(err)
		}
		fail(&res, stdErr)
	}
	return res
}

func (e *Executor) run(q models.StructuredQuery, ds *dataset.Dataset, res *models.AnalyticsResult) error {
	if !q.Metric.Valid() {
		supported := make([]string, len(models.Metrics))
		for i, m := range models.Metrics {
			supported[i] = string(m)
		}
		return errors.NewUnknownMetricError(string(q.Metric), supported)
	}

	res.TotalRows = ds.Len()
	rows := applyFilters(ds, allRows(ds), q.Filters)
	if len(rows) == 0 {
		return errors.NewNoRowsMatchedError(noRowsMessage, "filters: "+q.Filters.String())
	}
	rows = applyTimeWindow(ds, rows, q.TimeWindow)
	if len(rows) == 0 {
		return errors.NewNoRowsMatchedError(noRowsMessage, "time window: "+q.TimeWindow.String())
	}

	group, grouped := q.Group()
	if grouped && (!group.Valid() || !ds.HasColumn(string(group))) {
		grouped = false
	}

	if grouped && len(q.Compare) > 0 {
		rows = restrictToCompare(ds, rows, string(group), q.Compare)
		if len(rows) == 0 {
			msg := fmt.Sprintf("No transactions matched the comparison set [%s] for %s. Try broadening the query.",
				strings.Join(q.Compare, ", "), group.Label())
			return errors.NewNoRowsMatchedError(msg, "compare: "+strings.Join(q.Compare, ","))
		}
	}
	res.FilteredRows = len(rows)

	switch {
	case q.Intent == models.IntentTrend:
		return e.trend(q, ds, rows, group, grouped, res)
	case q.Intent == models.IntentAnomaly:
		return e.anomaly(q, ds, rows, group, grouped, res)
	case grouped:
		return e.grouped(q, ds, rows, group, res)
	case q.Intent == models.IntentSingle:
		return e.single(q, ds, rows, res)
	default:
		return e.fallback(q, ds, rows, res)
	}
}

func (e *Executor) single(q models.StructuredQuery, ds *dataset.Dataset, rows []int, res *models.AnalyticsResult) error {
	if err := setScalar(ds, rows, q.Metric, res); err != nil {
		return err
	}

	column := string(models.DimMerchantCategory)
	if !ds.HasColumn(column) {
		column = string(models.DimSenderState)
	}
	if ds.HasColumn(column) {
		breakdown, err := aggregateGroups(ds, rows, q.Metric, column)
		if err != nil {
			return err
		}
		sortRows(breakdown, false)
		res.Breakdown = truncate(breakdown, e.opts.BreakdownSize)
	}

	res.Narrative, res.Insights = singleNarrative(res, q)
	return nil
}

func (e *Executor) grouped(q models.StructuredQuery, ds *dataset.Dataset, rows []int, group models.Dimension, res *models.AnalyticsResult) error {
	table, err := aggregateGroups(ds, rows, q.Metric, string(group))
	if err != nil {
		return err
	}
	sortRows(table, q.Ascending())
	table = truncate(table, q.TopN)

	res.Table = table
	res.DimLabel = group.Label()
	res.Narrative, res.Insights = groupedNarrative(table, q.Metric, group)
	res.Anomalies = DetectAnomalies(table, e.opts.ComparisonZThreshold)
	return nil
}

func (e *Executor) trend(q models.StructuredQuery, ds *dataset.Dataset, rows []int, group models.Dimension, grouped bool, res *models.AnalyticsResult) error {
	column := models.DimMonth
	if grouped && group.IsTimeLike() {
		column = group
	}
	if !ds.HasColumn(string(column)) {
		column = models.DimDayOfWeek
	}
	if !ds.HasColumn(string(column)) {
		return e.fallback(q, ds, rows, res)
	}

	table, err := aggregateGroups(ds, rows, q.Metric, string(column))
	if err != nil {
		return err
	}
	if len(table) == 0 {
		return fmt.Errorf("no %s values to trend over", column)
	}
	sortChronological(table, column)

	res.Table = table
	res.DimLabel = column.Label()
	res.Narrative, res.Insights = trendNarrative(table, q.Metric, column)
	return nil
}

func (e *Executor) anomaly(q models.StructuredQuery, ds *dataset.Dataset, rows []int, group models.Dimension, grouped bool, res *models.AnalyticsResult) error {
	dim := models.DimMerchantCategory
	if grouped {
		dim = group
	}
	if !ds.HasColumn(string(dim)) {
		return e.fallback(q, ds, rows, res)
	}

	table, err := aggregateGroups(ds, rows, q.Metric, string(dim))
	if err != nil {
		return err
	}

	res.Table = table
	res.DimLabel = dim.Label()
	res.Anomalies = DetectAnomalies(table, e.opts.AnomalyZThreshold)
	res.Narrative, res.Insights = anomalyNarrative(res.Anomalies, q.Metric, dim)
	return nil
}

func (e *Executor) fallback(q models.StructuredQuery, ds *dataset.Dataset, rows []int, res *models.AnalyticsResult) error {
	if err := setScalar(ds, rows, q.Metric, res); err != nil {
		return err
	}
	res.Narrative = fallbackNarrative
	return nil
}

func setScalar(ds *dataset.Dataset, rows []int, m models.Metric, res *models.AnalyticsResult) error {
	v, err := scalar(ds, rows, m)
	if err != nil {
		return err
	}
	res.Value = &v
	res.ValueFormatted = FormatValue(v, m)
	return nil
}

// fail clears every payload field so a failed result carries only the
// echoed query and the error.
func fail(res *models.AnalyticsResult, err *errors.StandardError) {
	res.Success = false
	res.Error = err.Message
	res.ErrorCode = string(err.Code)
	res.Value = nil
	res.ValueFormatted = ""
	res.Table = nil
	res.Breakdown = nil
	res.Narrative = ""
	res.Insights = []string{}
	res.Anomalies = []models.Anomaly{}
}

func sortRows(rows []models.GroupRow, ascending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if ascending {
			return rows[i].Value < rows[j].Value
		}
		return rows[i].Value > rows[j].Value
	})
}

func truncate(rows []models.GroupRow, n int) []models.GroupRow {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// sortChronological orders time buckets: weekdays Monday first, hours
// numerically, and months or quarters by their sortable labels.
func sortChronological(rows []models.GroupRow, column models.Dimension) {
	var less func(a, b string) bool
	switch column {
	case models.DimDayOfWeek:
		less = func(a, b string) bool { return vocabulary.WeekdayIndex(a) < vocabulary.WeekdayIndex(b) }
	case models.DimHourOfDay:
		less = func(a, b string) bool {
			x, _ := strconv.Atoi(a)
			y, _ := strconv.Atoi(b)
			return x < y
		}
	default:
		less = func(a, b string) bool { return a < b }
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i].Group, rows[j].Group) })
}
