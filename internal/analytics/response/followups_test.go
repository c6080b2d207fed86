package response

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightx-workers/internal/models"
)

func TestFollowUps_DrillDowns(t *testing.T) {
	res := groupedResult(models.IntentComparison, models.MetricFailureRate, models.DimSenderBank)
	res.Filters[models.FilterFor(models.DimSenderState)] = "Andhra Pradesh"

	got := FollowUps(res)

	assert.Equal(t, []string{
		"What is the failure rate in Delhi?",
		"Compare failure rate by network",
		"Compare failure rate by state",
		"What is the fraud rate by bank?",
	}, got)
}

func TestFollowUps_BankAlternate(t *testing.T) {
	res := scalarResult(models.MetricFraudRate, 0.2, "0.20%")
	res.Filters[models.FilterFor(models.DimSenderBank)] = "Axis"

	got := FollowUps(res)

	require.Len(t, got, 4)
	assert.Equal(t, "What is the fraud rate for HDFC?", got[0])
	assert.Equal(t, "Compare fraud rate by state", got[1])
	assert.Equal(t, "What is the overall failure rate?", got[2])
	assert.Equal(t, "Which hour has the highest fraud rate?", got[3])
}

func TestFollowUps_AlwaysFourDistinct(t *testing.T) {
	for _, m := range models.Metrics {
		got := FollowUps(scalarResult(m, 1, "1"))
		require.Len(t, got, 4, m)

		seen := map[string]bool{}
		for _, q := range got {
			key := strings.ToLower(q)
			assert.False(t, seen[key], "duplicate %q", q)
			seen[key] = true
		}
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"Compare A", "compare a?", "B", "C", "D", "E"}, 4)
	assert.Equal(t, []string{"Compare A", "B", "C", "D"}, got)
}
