// internal/models/query.go
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Intent is the analytical shape of a question.
type Intent string

const (
	IntentSingle     Intent = "single"
	IntentComparison Intent = "comparison"
	IntentTrend      Intent = "trend"
	IntentRanking    Intent = "ranking"
	IntentAnomaly    Intent = "anomaly"
)

// Metric is the quantitative measure computed over the selected rows.
type Metric string

const (
	MetricFraudRate   Metric = "fraud_rate"
	MetricFailureRate Metric = "failure_rate"
	MetricAvgAmount   Metric = "avg_amount"
	MetricCount       Metric = "count"
	MetricTotalVolume Metric = "total_volume"
)

// Metrics lists every supported metric in canonical order.
var Metrics = []Metric{MetricFraudRate, MetricFailureRate, MetricAvgAmount, MetricCount, MetricTotalVolume}

var metricLabels = map[Metric]string{
	MetricFraudRate:   "Fraud Rate (%)",
	MetricFailureRate: "Failure Rate (%)",
	MetricAvgAmount:   "Avg Amount (₹)",
	MetricCount:       "Transaction Count",
	MetricTotalVolume: "Total Volume (₹)",
}

func (m Metric) Valid() bool {
	_, ok := metricLabels[m]
	return ok
}

// Label returns the display label, or the raw name for unknown metrics.
func (m Metric) Label() string {
	if l, ok := metricLabels[m]; ok {
		return l
	}
	return string(m)
}

// Dimension is a categorical column rows can be grouped by.
type Dimension string

const (
	DimDeviceType       Dimension = "device_type"
	DimNetworkType      Dimension = "network_type"
	DimSenderState      Dimension = "sender_state"
	DimSenderBank       Dimension = "sender_bank"
	DimMerchantCategory Dimension = "merchant_category"
	DimSenderAgeGroup   Dimension = "sender_age_group"
	DimDayOfWeek        Dimension = "day_of_week"
	DimHourOfDay        Dimension = "hour_of_day"
	DimTransactionType  Dimension = "transaction_type"
	DimMonth            Dimension = "month"
	DimQuarter          Dimension = "quarter"
)

var dimensionLabels = map[Dimension]string{
	DimDeviceType:       "Device",
	DimNetworkType:      "Network",
	DimSenderState:      "State",
	DimSenderBank:       "Bank",
	DimMerchantCategory: "Category",
	DimSenderAgeGroup:   "Age Group",
	DimDayOfWeek:        "Day of Week",
	DimHourOfDay:        "Hour of Day",
	DimTransactionType:  "Transaction Type",
	DimMonth:            "Month",
	DimQuarter:          "Quarter",
}

func (d Dimension) Valid() bool {
	_, ok := dimensionLabels[d]
	return ok
}

func (d Dimension) Label() string {
	if l, ok := dimensionLabels[d]; ok {
		return l
	}
	return string(d)
}

// IsTimeLike reports whether the dimension orders rows in time.
func (d Dimension) IsTimeLike() bool {
	switch d {
	case DimMonth, DimDayOfWeek, DimHourOfDay, DimQuarter:
		return true
	}
	return false
}

// DimensionPtr is a convenience for optional group-by fields.
func DimensionPtr(d Dimension) *Dimension {
	return &d
}

// FilterKey names a column a filter can restrict on.
type FilterKey string

const (
	FilterMonthNum          FilterKey = "month_num"
	FilterIsWeekend         FilterKey = "is_weekend"
	FilterReceiverBank      FilterKey = "receiver_bank"
	FilterReceiverAgeGroup  FilterKey = "receiver_age_group"
	FilterTransactionStatus FilterKey = "transaction_status"
)

// FilterFor returns the filter key restricting on a dimension column.
func FilterFor(d Dimension) FilterKey {
	return FilterKey(d)
}

func (k FilterKey) Valid() bool {
	switch k {
	case FilterMonthNum, FilterIsWeekend, FilterReceiverBank, FilterReceiverAgeGroup, FilterTransactionStatus:
		return true
	}
	return Dimension(k).Valid()
}

// Filters maps known columns to an exact-match value.
// Unknown keys never survive construction or decoding.
type Filters map[FilterKey]string

// ParseFilters builds Filters from loosely typed input, dropping unknown keys
// and normalizing numeric and boolean values to their string form.
func ParseFilters(raw map[string]interface{}) Filters {
	out := Filters{}
	for k, v := range raw {
		key := FilterKey(k)
		if !key.Valid() {
			continue
		}
		if s, ok := filterValueString(key, v); ok {
			out[key] = s
		}
	}
	return out
}

func filterValueString(key FilterKey, v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		if key == FilterIsWeekend {
			switch strings.ToLower(val) {
			case "true", "1":
				return "1", true
			case "false", "0":
				return "0", true
			}
			return "", false
		}
		return val, true
	case bool:
		if val {
			return "1", true
		}
		return "0", true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case json.Number:
		return val.String(), true
	}
	return "", false
}

func (f *Filters) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = ParseFilters(raw)
	return nil
}

func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the filter keys in lexical order.
func (f Filters) Keys() []FilterKey {
	keys := make([]FilterKey, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (f Filters) String() string {
	parts := make([]string, 0, len(f))
	for _, k := range f.Keys() {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// TimeWindowKind discriminates the TimeWindow variants.
type TimeWindowKind string

const (
	WindowHourRange TimeWindowKind = "hour_range"
	WindowWeekend   TimeWindowKind = "weekend"
	WindowWeekday   TimeWindowKind = "weekday"
)

// TimeWindow restricts rows by hour range or by the weekend flag.
type TimeWindow struct {
	Kind  TimeWindowKind `json:"type"`
	Label string         `json:"label,omitempty"`
	Min   int            `json:"min"`
	Max   int            `json:"max"`
}

func (w TimeWindow) String() string {
	if w.Kind == WindowHourRange {
		return fmt.Sprintf("%s %02d:00-%02d:59", w.Label, w.Min, w.Max)
	}
	return string(w.Kind)
}

// SortOrder is the direction grouped results are ranked in.
type SortOrder string

const (
	SortDescending SortOrder = "descending"
	SortAscending  SortOrder = "ascending"
)

// DefaultTopN is the group limit applied when none is requested.
const DefaultTopN = 10

// StructuredQuery is the parsed, executable form of a free-text question.
type StructuredQuery struct {
	Intent     Intent      `json:"intent"`
	Metric     Metric      `json:"metric"`
	GroupBy    *Dimension  `json:"group_by"`
	Filters    Filters     `json:"filters"`
	TimeWindow *TimeWindow `json:"time_window"`
	Sort       SortOrder   `json:"sort"`
	TopN       int         `json:"top_n"`
	Compare    []string    `json:"compare"`
	Confidence float64     `json:"confidence"`
	Reasoning  string      `json:"confidence_reasoning"`
	RawQuery   string      `json:"raw_query"`
	Followup   bool        `json:"followup"`
}

// NewStructuredQuery returns a query carrying every default.
func NewStructuredQuery(raw string) StructuredQuery {
	return StructuredQuery{
		Intent:   IntentSingle,
		Metric:   MetricCount,
		Filters:  Filters{},
		Sort:     SortDescending,
		TopN:     DefaultTopN,
		Compare:  []string{},
		RawQuery: raw,
	}
}

func (q StructuredQuery) Ascending() bool {
	return q.Sort == SortAscending
}

// Group returns the group-by dimension if one is set.
func (q StructuredQuery) Group() (Dimension, bool) {
	if q.GroupBy == nil || *q.GroupBy == "" {
		return "", false
	}
	return *q.GroupBy, true
}

// Clone returns a deep copy that shares no mutable state with q.
func (q StructuredQuery) Clone() StructuredQuery {
	out := q
	if q.GroupBy != nil {
		g := *q.GroupBy
		out.GroupBy = &g
	}
	if q.TimeWindow != nil {
		tw := *q.TimeWindow
		out.TimeWindow = &tw
	}
	out.Filters = q.Filters.Clone()
	out.Compare = append([]string{}, q.Compare...)
	return out
}

// JSON renders the query as the indented echo carried on results.
func (q StructuredQuery) JSON() string {
	if q.Filters == nil {
		q.Filters = Filters{}
	}
	if q.Compare == nil {
		q.Compare = []string{}
	}
	b, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseStructuredQuery decodes a query echo, filling defaults for absent fields.
func ParseStructuredQuery(data []byte) (StructuredQuery, error) {
	q := NewStructuredQuery("")
	if err := json.Unmarshal(data, &q); err != nil {
		return StructuredQuery{}, fmt.Errorf("decode structured query: %w", err)
	}
	if q.Filters == nil {
		q.Filters = Filters{}
	}
	if q.Compare == nil {
		q.Compare = []string{}
	}
	if q.TopN <= 0 {
		q.TopN = DefaultTopN
	}
	if q.Sort != SortAscending {
		q.Sort = SortDescending
	}
	return q, nil
}
