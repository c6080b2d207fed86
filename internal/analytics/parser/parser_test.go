package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightx-workers/internal/models"
)

func parse(text string) models.StructuredQuery {
	return New(nil).Parse(text, "")
}

func TestNormalize(t *testing.T) {
	got := Normalize("What's the FRAUD rate, for 56+ users aged 18-25?")
	assert.Equal(t, "what s the fraud rate  for 56+ users aged 18-25", got)
}

func TestParse_Defaults(t *testing.T) {
	q := parse("hello there")

	assert.Equal(t, models.IntentSingle, q.Intent)
	assert.Equal(t, models.MetricCount, q.Metric)
	assert.Nil(t, q.GroupBy)
	assert.Empty(t, q.Filters)
	assert.Empty(t, q.Compare)
	assert.Equal(t, models.SortDescending, q.Sort)
	assert.Equal(t, models.DefaultTopN, q.TopN)
	assert.InDelta(t, 0.47, q.Confidence, 1e-9)
	assert.Equal(t, "hello there", q.RawQuery)
	assert.Contains(t, q.Reasoning, "No group-by detected")
}

func TestParse_SingleMetric(t *testing.T) {
	q := parse("What is the overall fraud rate?")

	assert.Equal(t, models.IntentSingle, q.Intent)
	assert.Equal(t, models.MetricFraudRate, q.Metric)
	assert.Nil(t, q.GroupBy)
}

func TestParse_ComparePromotion(t *testing.T) {
	q := parse("HDFC vs SBI failure rate")

	require.NotNil(t, q.GroupBy)
	assert.Equal(t, models.DimSenderBank, *q.GroupBy)
	assert.Equal(t, []string{"HDFC", "SBI"}, q.Compare)
	assert.Equal(t, models.IntentComparison, q.Intent)
	assert.Equal(t, models.MetricFailureRate, q.Metric)
	_, hasBankFilter := q.Filters[models.FilterFor(models.DimSenderBank)]
	assert.False(t, hasBankFilter)
	assert.InDelta(t, 0.83, q.Confidence, 1e-9)

	again := parse("HDFC vs SBI failure rate")
	assert.Equal(t, q, again)
}

func TestParse_CompareUsesVocabularyOrder(t *testing.T) {
	q := parse("5G vs 3G failure rate")

	assert.Equal(t, []string{"3G", "5G"}, q.Compare)
	require.NotNil(t, q.GroupBy)
	assert.Equal(t, models.DimNetworkType, *q.GroupBy)
	_, hasNetworkFilter := q.Filters[models.FilterFor(models.DimNetworkType)]
	assert.False(t, hasNetworkFilter)
}

func TestParse_TransactionTypePromotion(t *testing.T) {
	q := parse("P2P vs P2M average amount")

	require.NotNil(t, q.GroupBy)
	assert.Equal(t, models.DimTransactionType, *q.GroupBy)
	assert.Equal(t, []string{"P2P", "P2M"}, q.Compare)
	assert.Equal(t, models.MetricAvgAmount, q.Metric)
	assert.NotContains(t, q.Filters, models.FilterFor(models.DimTransactionType))
}

func TestParse_Ranking(t *testing.T) {
	t.Run("highest sorts descending", func(t *testing.T) {
		q := parse("Which state has the highest fraud rate?")
		assert.Equal(t, models.IntentRanking, q.Intent)
		require.NotNil(t, q.GroupBy)
		assert.Equal(t, models.DimSenderState, *q.GroupBy)
		assert.Equal(t, models.SortDescending, q.Sort)
	})

	t.Run("lowest sorts ascending", func(t *testing.T) {
		q := parse("Which bank has the lowest failure rate?")
		assert.Equal(t, models.IntentRanking, q.Intent)
		assert.True(t, q.Ascending())
	})

	t.Run("top N", func(t *testing.T) {
		q := parse("top 5 states by revenue")
		assert.Equal(t, 5, q.TopN)
		assert.Equal(t, models.MetricTotalVolume, q.Metric)
		assert.Equal(t, models.IntentRanking, q.Intent)
	})
}

func TestParse_TrendOverridesRanking(t *testing.T) {
	q := parse("Show fraud trend by hour")

	assert.Equal(t, models.IntentTrend, q.Intent)
	require.NotNil(t, q.GroupBy)
	assert.Equal(t, models.DimHourOfDay, *q.GroupBy)
}

func TestParse_TimeLikeGroupForcesTrend(t *testing.T) {
	q := parse("failure rate each month")

	require.NotNil(t, q.GroupBy)
	assert.Equal(t, models.DimMonth, *q.GroupBy)
	assert.NotEqual(t, models.IntentSingle, q.Intent)
}

func TestParse_Filters(t *testing.T) {
	tests := []struct {
		text string
		key  models.FilterKey
		want string
	}{
		{"fraud rate in Maharashtra", models.FilterFor(models.DimSenderState), "Maharashtra"},
		{"fraud rate for 56+ users", models.FilterFor(models.DimSenderAgeGroup), "56+"},
		{"avg amount for 26-35 users", models.FilterFor(models.DimSenderAgeGroup), "26-35"},
		{"how many young users", models.FilterFor(models.DimSenderAgeGroup), "18-25"},
		{"fraud rate among seniors", models.FilterFor(models.DimSenderAgeGroup), "56+"},
		{"count of bill payments", models.FilterFor(models.DimTransactionType), "Bill Payment"},
		{"failure rate on weekends", models.FilterIsWeekend, "1"},
		{"failure rate on weekdays", models.FilterIsWeekend, "0"},
		{"failure rate in March", models.FilterMonthNum, "3"},
		{"failure rate in sep", models.FilterMonthNum, "9"},
		{"average spend on Education", models.FilterFor(models.DimMerchantCategory), "Education"},
		{"how many iOS payments", models.FilterFor(models.DimDeviceType), "iOS"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := parse(tt.text)
			assert.Equal(t, tt.want, q.Filters[tt.key])
		})
	}
}

func TestParse_MonthNeedsWholeToken(t *testing.T) {
	q := parse("Show me the overall summary")
	assert.NotContains(t, q.Filters, models.FilterMonthNum)
}

func TestParse_TimeWindow(t *testing.T) {
	tests := []struct {
		text string
		want models.TimeWindow
	}{
		{"how many transactions during evening", models.TimeWindow{Kind: models.WindowHourRange, Label: "evening", Min: 17, Max: 20}},
		{"fraud rate at midnight", models.TimeWindow{Kind: models.WindowHourRange, Label: "midnight", Min: 0, Max: 5}},
		{"fraud rate at night", models.TimeWindow{Kind: models.WindowHourRange, Label: "night", Min: 21, Max: 23}},
		{"count on the weekend", models.TimeWindow{Kind: models.WindowWeekend}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := parse(tt.text)
			require.NotNil(t, q.TimeWindow)
			assert.Equal(t, tt.want, *q.TimeWindow)
		})
	}

	assert.Nil(t, parse("fraud rate by state").TimeWindow)
}

func TestParse_Followup(t *testing.T) {
	p := New(nil)

	assert.False(t, p.Parse("what about only HDFC?", "").Followup)

	q := p.Parse("what about only HDFC?", "CONVERSATION HISTORY (most recent last):")
	assert.True(t, q.Followup)
	assert.Equal(t, "HDFC", q.Filters[models.FilterFor(models.DimSenderBank)])

	assert.False(t, p.Parse("fraud rate by state", "CONVERSATION HISTORY").Followup)
}

func TestParse_FuzzyState(t *testing.T) {
	exact := New(ExactMatcher{}).Parse("fraud rate in maharastra", "")
	assert.NotContains(t, exact.Filters, models.FilterFor(models.DimSenderState))

	fuzzy := New(NewFuzzyMatcher(DefaultFuzzyThreshold)).Parse("fraud rate in maharastra", "")
	assert.Equal(t, "Maharashtra", fuzzy.Filters[models.FilterFor(models.DimSenderState)])
}

func TestParse_ConfidenceBounds(t *testing.T) {
	for _, text := range []string{
		"", "fraud fraud fraud fraud fraud fraud fraud", "compare vs versus against each per across between",
		"HDFC vs SBI vs ICICI vs Axis failure rate trend by month",
	} {
		q := parse(text)
		assert.GreaterOrEqual(t, q.Confidence, 0.0, text)
		assert.LessOrEqual(t, q.Confidence, 1.0, text)
	}
}
