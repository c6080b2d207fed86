// internal/analytics/parser/keywords.go
package parser

import "insightx-workers/internal/models"

// Table order matters: on equal hit counts the earlier entry wins.

type intentKeywords struct {
	intent models.Intent
	words  []string
}

var intentTable = []intentKeywords{
	{models.IntentTrend, []string{
		"trend", "over time", "monthly", "weekly", "daily", "by month", "by week",
		"by day", "by hour", "time series", "timeline", "pattern", "seasonal",
		"growth", "decline", "change",
	}},
	{models.IntentRanking, []string{
		"top", "bottom", "best", "worst", "highest", "lowest", "rank", "ranking",
		"most", "least", "who has", "who is", "maximum", "minimum",
	}},
	{models.IntentComparison, []string{
		"compare", "vs", "versus", "against", "difference between", "contrast",
		"between", "across", "each", "per", "by device", "by bank",
		"by state", "by category",
	}},
	{models.IntentAnomaly, []string{
		"anomal", "outlier", "unusual", "spike", "abnormal", "sudden", "unexpected",
	}},
	{models.IntentSingle, []string{
		"what is", "what's", "show", "tell me", "give me", "display",
		"overall", "total", "summary", "overview",
	}},
}

type metricKeywords struct {
	metric models.Metric
	words  []string
}

var metricTable = []metricKeywords{
	{models.MetricFraudRate, []string{"fraud", "fraudulent", "scam", "flag", "flagged", "suspicious", "risk"}},
	{models.MetricFailureRate, []string{
		"fail", "failure", "failed", "decline", "declined", "unstable",
		"unsuccessful", "error", "drop", "dropout", "bounce",
	}},
	{models.MetricAvgAmount, []string{"average", "avg", "mean", "typical", "usual", "standard amount", "transaction size"}},
	{models.MetricCount, []string{
		"count", "volume", "number", "how many", "total transaction",
		"frequency", "most used", "popular", "busiest",
	}},
	{models.MetricTotalVolume, []string{"total amount", "total value", "revenue", "sum", "aggregate", "cumulative"}},
}

type dimensionKeywords struct {
	dim   models.Dimension
	words []string
}

var dimensionTable = []dimensionKeywords{
	{models.DimDeviceType, []string{"device", "android", "ios", "web", "mobile", "browser", "platform"}},
	{models.DimNetworkType, []string{"network", "5g", "4g", "3g", "wifi", "wi-fi", "connectivity", "connection"}},
	{models.DimSenderState, []string{"state", "region", "city", "location", "geography"}},
	{models.DimSenderBank, []string{"bank", "lender", "provider", "financial institution"}},
	{models.DimMerchantCategory, []string{"category", "sector", "merchant", "industry", "type of purchase", "spend category"}},
	{models.DimSenderAgeGroup, []string{"age", "age group", "demographic", "generation", "young", "senior", "millennial"}},
	{models.DimDayOfWeek, []string{
		"day", "weekday", "weekend", "monday", "tuesday", "wednesday",
		"thursday", "friday", "saturday", "sunday",
	}},
	{models.DimHourOfDay, []string{
		"hour", "time", "peak hour", "morning", "afternoon", "evening",
		"night", "midnight", "clock",
	}},
	{models.DimTransactionType, []string{
		"transaction type", "p2p", "p2m", "bill payment", "recharge",
		"mode", "payment type",
	}},
	{models.DimMonth, []string{
		"month", "monthly", "january", "february", "march", "april", "may",
		"june", "july", "august", "september", "october", "november", "december",
	}},
}

var (
	ascendingWords = []string{"lowest", "least", "bottom", "worst", "minimum", "min"}

	// rankingWords force the ranking intent unless the question is a trend.
	rankingWords = []string{
		"top", "bottom", "rank", "highest", "lowest", "best", "worst",
		"which", "who has", "most", "least",
	}

	comparisonWords = []string{"vs", "versus", "compare"}

	followupSignals = []string{
		"what about", "only ", "and in ", "for ", "same but",
		"now for", "show me only", "just ", "in that case",
		"how about", "what if",
	}
)

type timeKeyword struct {
	word   string
	window models.TimeWindow
}

// midnight precedes night so that it stays reachable under substring matching.
var timeTable = []timeKeyword{
	{"morning", models.TimeWindow{Kind: models.WindowHourRange, Label: "morning", Min: 6, Max: 11}},
	{"afternoon", models.TimeWindow{Kind: models.WindowHourRange, Label: "afternoon", Min: 12, Max: 16}},
	{"evening", models.TimeWindow{Kind: models.WindowHourRange, Label: "evening", Min: 17, Max: 20}},
	{"midnight", models.TimeWindow{Kind: models.WindowHourRange, Label: "midnight", Min: 0, Max: 5}},
	{"night", models.TimeWindow{Kind: models.WindowHourRange, Label: "night", Min: 21, Max: 23}},
	{"weekend", models.TimeWindow{Kind: models.WindowWeekend}},
	{"weekday", models.TimeWindow{Kind: models.WindowWeekday}},
}

type monthName struct {
	name string
	num  int
}

// Abbreviations are scanned before full names; matching is per token.
var monthTable = []monthName{
	{"jan", 1}, {"feb", 2}, {"mar", 3}, {"apr", 4}, {"may", 5}, {"jun", 6},
	{"jul", 7}, {"aug", 8}, {"sep", 9}, {"oct", 10}, {"nov", 11}, {"dec", 12},
	{"january", 1}, {"february", 2}, {"march", 3}, {"april", 4},
	{"june", 6}, {"july", 7}, {"august", 8}, {"september", 9},
	{"october", 10}, {"november", 11}, {"december", 12},
}

type ageWord struct {
	prefixes []string
	group    string
}

// Semantic age words, checked in order against token prefixes.
var ageWords = []ageWord{
	{[]string{"young", "youth"}, "18-25"},
	{[]string{"senior", "elder", "old"}, "56+"},
	{[]string{"millennial"}, "26-35"},
}

type txnTypeWord struct {
	phrases []string
	value   string
}

var txnTypeWords = []txnTypeWord{
	{[]string{"p2p"}, "P2P"},
	{[]string{"p2m"}, "P2M"},
	{[]string{"bill payment", "bill pay"}, "Bill Payment"},
	{[]string{"recharge"}, "Recharge"},
}
