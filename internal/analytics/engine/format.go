package engine

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"insightx-workers/internal/models"
)

var printer = message.NewPrinter(language.English)

// FormatValue renders a metric value the way every narrative and table shows it.
func FormatValue(v float64, m models.Metric) string {
	switch m {
	case models.MetricFraudRate, models.MetricFailureRate:
		return fmt.Sprintf("%.2f%%", v)
	case models.MetricAvgAmount:
		return "₹" + printer.Sprintf("%.2f", v)
	case models.MetricCount:
		return printer.Sprintf("%.0f", v)
	case models.MetricTotalVolume:
		return "₹" + printer.Sprintf("%.0f", v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatInt renders a row count with thousands separators.
func FormatInt(n int) string {
	return printer.Sprintf("%d", n)
}

var filterLabels = map[models.FilterKey]string{
	models.FilterReceiverBank:      "Receiver Bank",
	models.FilterReceiverAgeGroup:  "Receiver Age Group",
	models.FilterTransactionStatus: "Status",
}

// DescribeFilters renders active filters as "Label: value" phrases in key order.
func DescribeFilters(f models.Filters) []string {
	out := make([]string, 0, len(f))
	for _, k := range f.Keys() {
		v := f[k]
		switch k {
		case models.FilterIsWeekend:
			if v == "1" {
				out = append(out, "Weekend only")
			} else {
				out = append(out, "Weekdays only")
			}
		case models.FilterMonthNum:
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 12 {
				out = append(out, "Month: "+v)
				continue
			}
			out = append(out, "Month: "+time.Month(n).String())
		default:
			label, ok := filterLabels[k]
			if !ok {
				label = models.Dimension(k).Label()
			}
			out = append(out, label+": "+v)
		}
	}
	return out
}
