// Package parser translates free-text questions into StructuredQuery values
// using fixed keyword tables. Parsing never fails; weak signals produce
// low-confidence defaults.
package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"insightx-workers/internal/analytics/vocabulary"
	"insightx-workers/internal/models"
)

var (
	punctuation = regexp.MustCompile(`[^\w\s\-+]`)
	topNPattern = regexp.MustCompile(`\b(?:top|bottom|best|worst)\s+(\d+)\b`)
	agePattern  = regexp.MustCompile(`\b(18-25|26-35|36-45|46-55)\b|\b(56)\+`)
)

const (
	defaultIntentConfidence = 0.5
	defaultMetricConfidence = 0.4
	noGroupConfidence       = 0.5
	promotedConfidence      = 0.95
	loneNetworkConfidence   = 0.85
	maxSignalConfidence     = 0.95
)

// Parser is safe for concurrent use; it holds no per-call state.
type Parser struct {
	matcher EntityMatcher
}

// New returns a Parser using the given matcher for state resolution.
// A nil matcher means exact matching only.
func New(matcher EntityMatcher) *Parser {
	if matcher == nil {
		matcher = ExactMatcher{}
	}
	return &Parser{matcher: matcher}
}

// Normalize lower-cases text and replaces punctuation other than hyphens and
// plus signs with spaces.
func Normalize(raw string) string {
	return strings.TrimSpace(punctuation.ReplaceAllString(strings.ToLower(raw), " "))
}

// Parse converts raw text into a StructuredQuery. contextHint is the memory
// transcript; a non-empty hint is required for follow-up detection.
func (p *Parser) Parse(raw, contextHint string) models.StructuredQuery {
	tok := Normalize(raw)
	q := models.NewStructuredQuery(raw)

	intent, intentConf := detectIntent(tok)
	metric, metricConf := detectMetric(tok)
	groupBy, groupConf := detectDimension(tok)

	q.Intent = intent
	q.Metric = metric
	q.Filters = p.detectFilters(raw, tok)
	q.TimeWindow = detectTimeWindow(tok)
	if containsAny(tok, ascendingWords) {
		q.Sort = models.SortAscending
	}
	q.TopN = extractTopN(tok)

	// Two or more members of one vocabulary turn into a compare-set on that
	// dimension, replacing any single-value filter the scan set for it.
	promotions := []struct {
		dim   models.Dimension
		vocab []string
	}{
		{models.DimSenderBank, vocabulary.Banks},
		{models.DimDeviceType, vocabulary.Devices},
		{models.DimNetworkType, vocabulary.Networks},
		{models.DimTransactionType, vocabulary.TransactionTypes},
	}
	for _, pr := range promotions {
		hits := vocabularyHits(tok, pr.vocab)
		if len(hits) < 2 {
			continue
		}
		groupBy = models.DimensionPtr(pr.dim)
		groupConf = promotedConfidence
		q.Compare = hits
		delete(q.Filters, models.FilterFor(pr.dim))
		break
	}
	if groupBy == nil && len(vocabularyHits(tok, vocabulary.Networks)) == 1 {
		groupBy = models.DimensionPtr(models.DimNetworkType)
		groupConf = loneNetworkConfidence
	}
	q.GroupBy = groupBy

	q.Intent = overrideIntent(q, tok)
	q.Followup = contextHint != "" && containsAny(tok, followupSignals)

	dimConf := noGroupConfidence
	if q.GroupBy != nil {
		dimConf = groupConf
	}
	q.Confidence = round2((intentConf + metricConf + dimConf) / 3)
	q.Reasoning = reasoning(q, intentConf, metricConf, groupConf)
	return q
}

func overrideIntent(q models.StructuredQuery, tok string) models.Intent {
	intent := q.Intent
	if g, ok := q.Group(); ok && intent == models.IntentSingle {
		if g.IsTimeLike() {
			intent = models.IntentTrend
		} else {
			intent = models.IntentComparison
		}
	}
	if containsAny(tok, rankingWords) && intent != models.IntentTrend {
		intent = models.IntentRanking
	}
	if containsAny(tok, comparisonWords) {
		intent = models.IntentComparison
	}
	if len(q.Compare) >= 2 {
		intent = models.IntentComparison
	}
	return intent
}

func detectIntent(tok string) (models.Intent, float64) {
	best, bestHits := models.IntentSingle, 0
	for _, row := range intentTable {
		if hits := countHits(tok, row.words); hits > bestHits {
			best, bestHits = row.intent, hits
		}
	}
	if bestHits == 0 {
		return models.IntentSingle, defaultIntentConfidence
	}
	return best, signalConfidence(0.6, bestHits)
}

func detectMetric(tok string) (models.Metric, float64) {
	best, bestHits := models.MetricCount, 0
	for _, row := range metricTable {
		if hits := countHits(tok, row.words); hits > bestHits {
			best, bestHits = row.metric, hits
		}
	}
	if bestHits == 0 {
		return models.MetricCount, defaultMetricConfidence
	}
	return best, signalConfidence(0.65, bestHits)
}

func detectDimension(tok string) (*models.Dimension, float64) {
	var (
		best     models.Dimension
		bestHits int
	)
	for _, row := range dimensionTable {
		if hits := countHits(tok, row.words); hits > bestHits {
			best, bestHits = row.dim, hits
		}
	}
	if bestHits == 0 {
		return nil, 0
	}
	return models.DimensionPtr(best), signalConfidence(0.6, bestHits)
}

// detectFilters scans each closed vocabulary; the first entry found wins.
func (p *Parser) detectFilters(raw, tok string) models.Filters {
	f := models.Filters{}

	if s, ok := p.matcher.Match(tok, vocabulary.States); ok {
		f[models.FilterFor(models.DimSenderState)] = s
	}

	exact := ExactMatcher{}
	for _, scan := range []struct {
		dim   models.Dimension
		vocab []string
	}{
		{models.DimSenderBank, vocabulary.Banks},
		{models.DimMerchantCategory, vocabulary.Categories},
		{models.DimDeviceType, vocabulary.Devices},
		{models.DimNetworkType, vocabulary.Networks},
	} {
		if v, ok := exact.Match(tok, scan.vocab); ok {
			f[models.FilterFor(scan.dim)] = v
		}
	}

	if age, ok := detectAgeGroup(raw, tok); ok {
		f[models.FilterFor(models.DimSenderAgeGroup)] = age
	}

	for _, tw := range txnTypeWords {
		if containsAny(tok, tw.phrases) {
			f[models.FilterFor(models.DimTransactionType)] = tw.value
			break
		}
	}

	if strings.Contains(tok, "weekend") {
		f[models.FilterIsWeekend] = "1"
	} else if strings.Contains(tok, "weekday") {
		f[models.FilterIsWeekend] = "0"
	}

	tokens := tokenSet(tok)
	for _, m := range monthTable {
		if tokens[m.name] {
			f[models.FilterMonthNum] = strconv.Itoa(m.num)
			break
		}
	}
	return f
}

func detectAgeGroup(raw, tok string) (string, bool) {
	if m := agePattern.FindStringSubmatch(raw); m != nil {
		if m[1] != "" {
			return m[1], true
		}
		return "56+", true
	}
	fields := strings.Fields(tok)
	for _, aw := range ageWords {
		for _, field := range fields {
			for _, prefix := range aw.prefixes {
				if strings.HasPrefix(field, prefix) {
					return aw.group, true
				}
			}
		}
	}
	return "", false
}

func detectTimeWindow(tok string) *models.TimeWindow {
	for _, tk := range timeTable {
		if strings.Contains(tok, tk.word) {
			w := tk.window
			return &w
		}
	}
	return nil
}

func extractTopN(tok string) int {
	m := topNPattern.FindStringSubmatch(tok)
	if m == nil {
		return models.DefaultTopN
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return models.DefaultTopN
	}
	return n
}

// vocabularyHits lists every vocabulary entry present in tok, in vocabulary order.
func vocabularyHits(tok string, vocab []string) []string {
	var hits []string
	for _, v := range vocab {
		if strings.Contains(tok, strings.ToLower(v)) {
			hits = append(hits, v)
		}
	}
	return hits
}

func reasoning(q models.StructuredQuery, intentConf, metricConf, groupConf float64) string {
	parts := []string{
		fmt.Sprintf("Intent='%s' (conf %.0f%%)", q.Intent, intentConf*100),
		fmt.Sprintf("Metric='%s' (conf %.0f%%)", q.Metric, metricConf*100),
	}
	if g, ok := q.Group(); ok {
		parts = append(parts, fmt.Sprintf("GroupBy='%s' (conf %.0f%%)", g, groupConf*100))
	} else {
		parts = append(parts, "No group-by detected")
	}
	if len(q.Filters) > 0 {
		parts = append(parts, "Filters="+q.Filters.String())
	}
	if len(q.Compare) > 0 {
		parts = append(parts, "Compare=["+strings.Join(q.Compare, ", ")+"]")
	}
	if q.TimeWindow != nil {
		parts = append(parts, "TimeWindow="+q.TimeWindow.String())
	}
	if q.Followup {
		parts = append(parts, "Follow-up query detected")
	}
	return strings.Join(parts, " | ")
}

func countHits(tok string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(tok, w) {
			n++
		}
	}
	return n
}

func containsAny(tok string, words []string) bool {
	for _, w := range words {
		if strings.Contains(tok, w) {
			return true
		}
	}
	return false
}

func tokenSet(tok string) map[string]bool {
	set := map[string]bool{}
	for _, f := range strings.Fields(tok) {
		set[f] = true
	}
	return set
}

func signalConfidence(base float64, hits int) float64 {
	return math.Min(maxSignalConfidence, base+0.1*float64(hits))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
