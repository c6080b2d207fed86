package response

import (
	"fmt"
	"strings"

	"insightx-workers/internal/analytics/vocabulary"
	"insightx-workers/internal/models"
)

var followUpPool = map[models.Metric][]string{
	models.MetricFraudRate: {
		"Which hour has the highest fraud rate?",
		"Compare fraud rate by age group",
		"Show fraud trend by day of week",
		"What is the fraud rate in Maharashtra?",
	},
	models.MetricFailureRate: {
		"Which bank has the highest failure rate?",
		"Compare failure rate by network type",
		"Show failure rate trend by hour",
		"Is failure rate higher on weekends?",
	},
	models.MetricAvgAmount: {
		"Which age group has the highest average amount?",
		"Compare average amount by category",
		"What is average transaction for P2P vs P2M?",
		"Which state has the highest average transaction?",
	},
	models.MetricCount: {
		"Which device is most popular?",
		"How many transactions happen during evenings?",
		"Compare transaction count by bank",
	},
	models.MetricTotalVolume: {
		"Which state generates the highest total volume?",
		"Compare total volume by transaction type",
		"What is the total volume for Education category?",
	},
}

var genericFollowUps = []string{
	"Show me the overall summary",
	"What is the fraud rate by device?",
	"Which bank has the lowest failure rate?",
	"Compare transaction volumes by state",
}

// crossDimensions suggests where to slice next after grouping by a dimension.
var crossDimensions = map[models.Dimension][]models.Dimension{
	models.DimSenderState:      {models.DimSenderBank, models.DimDeviceType},
	models.DimSenderBank:       {models.DimNetworkType, models.DimSenderState},
	models.DimDeviceType:       {models.DimNetworkType, models.DimSenderAgeGroup},
	models.DimNetworkType:      {models.DimDeviceType, models.DimHourOfDay},
	models.DimMerchantCategory: {models.DimSenderAgeGroup, models.DimTransactionType},
	models.DimSenderAgeGroup:   {models.DimMerchantCategory, models.DimDeviceType},
	models.DimDayOfWeek:        {models.DimHourOfDay},
	models.DimHourOfDay:        {models.DimDayOfWeek},
	models.DimTransactionType:  {models.DimMerchantCategory},
	models.DimMonth:            {models.DimDayOfWeek},
	models.DimQuarter:          {models.DimMonth},
}

var dimensionPhrases = map[models.Dimension]string{
	models.DimSenderState:      "state",
	models.DimSenderBank:       "bank",
	models.DimDeviceType:       "device",
	models.DimNetworkType:      "network",
	models.DimMerchantCategory: "category",
	models.DimSenderAgeGroup:   "age group",
	models.DimDayOfWeek:        "day of week",
	models.DimHourOfDay:        "hour",
	models.DimTransactionType:  "transaction type",
	models.DimMonth:            "month",
	models.DimQuarter:          "quarter",
}

var metricSwap = map[models.Metric]models.Metric{
	models.MetricFraudRate:   models.MetricFailureRate,
	models.MetricFailureRate: models.MetricFraudRate,
	models.MetricAvgAmount:   models.MetricTotalVolume,
	models.MetricCount:       models.MetricAvgAmount,
	models.MetricTotalVolume: models.MetricCount,
}

// FollowUps proposes exactly four distinct next questions. Drill-downs
// derived from the result come first, then the metric's canned prompts,
// then generic ones.
func FollowUps(res models.AnalyticsResult) []string {
	phrase := metricPhrase(res.Metric)
	var candidates []string

	if state, ok := res.Filters[models.FilterFor(models.DimSenderState)]; ok {
		if alt := alternate(vocabulary.States, state); alt != "" {
			candidates = append(candidates, fmt.Sprintf("What is the %s in %s?", phrase, alt))
		}
	}
	if bank, ok := res.Filters[models.FilterFor(models.DimSenderBank)]; ok {
		if alt := alternate(vocabulary.Banks, bank); alt != "" {
			candidates = append(candidates, fmt.Sprintf("What is the %s for %s?", phrase, alt))
		}
	}

	group := models.Dimension("")
	if res.GroupBy != nil {
		group = *res.GroupBy
	}
	if next, ok := crossDimensions[group]; ok {
		for _, d := range next {
			candidates = append(candidates, fmt.Sprintf("Compare %s by %s", phrase, dimensionPhrases[d]))
		}
	} else {
		candidates = append(candidates, fmt.Sprintf("Compare %s by state", phrase))
	}

	if swap, ok := metricSwap[res.Metric]; ok {
		if p, grouped := dimensionPhrases[group]; grouped {
			candidates = append(candidates, fmt.Sprintf("What is the %s by %s?", metricPhrase(swap), p))
		} else {
			candidates = append(candidates, fmt.Sprintf("What is the overall %s?", metricPhrase(swap)))
		}
	}

	candidates = append(candidates, followUpPool[res.Metric]...)
	candidates = append(candidates, genericFollowUps...)
	return dedupe(candidates, followUpCount)
}

// alternate returns the first vocabulary member other than current.
func alternate(vocab []string, current string) string {
	for _, v := range vocab {
		if !strings.EqualFold(v, current) {
			return v
		}
	}
	return ""
}

func dedupe(in []string, limit int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, limit)
	for _, s := range in {
		key := strings.ToLower(strings.TrimRight(s, "?"))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
