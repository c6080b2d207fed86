// Package memory keeps the bounded conversation history that lets follow-up
// questions inherit the fields of the previous question.
package memory

import (
	"fmt"
	"strings"

	"insightx-workers/internal/models"
)

const (
	DefaultCapacity     = 10
	DefaultContextTurns = 3
)

// HistoryEntry is the display projection of one resolved query.
type HistoryEntry struct {
	Query    string         `json:"query"`
	Metric   models.Metric  `json:"metric"`
	Intent   models.Intent  `json:"intent"`
	GroupBy  string         `json:"groupBy"`
	Filters  models.Filters `json:"filters"`
	Followup bool           `json:"followup"`
}

// ContextMemory is a FIFO of resolved queries. It is not safe for concurrent
// use; Store serializes access per session.
type ContextMemory struct {
	history  []models.StructuredQuery
	capacity int
}

func New(capacity int) *ContextMemory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ContextMemory{capacity: capacity}
}

// Push stores q, merging it onto the latest entry first when it is a
// follow-up. The stored (possibly merged) query is returned.
func (m *ContextMemory) Push(q models.StructuredQuery) models.StructuredQuery {
	resolved := q.Clone()
	if q.Followup && len(m.history) > 0 {
		resolved = merge(m.history[len(m.history)-1], q)
	}
	m.history = append(m.history, resolved)
	if over := len(m.history) - m.capacity; over > 0 {
		m.history = append([]models.StructuredQuery(nil), m.history[over:]...)
	}
	return resolved.Clone()
}

// Last returns the most recent stored query.
func (m *ContextMemory) Last() (models.StructuredQuery, bool) {
	if len(m.history) == 0 {
		return models.StructuredQuery{}, false
	}
	return m.history[len(m.history)-1].Clone(), true
}

func (m *ContextMemory) Len() int {
	return len(m.history)
}

func (m *ContextMemory) Clear() {
	m.history = nil
}

// ContextText renders the last n entries as a transcript for the parser.
// It returns "" when the history is empty.
func (m *ContextMemory) ContextText(n int) string {
	if len(m.history) == 0 {
		return ""
	}
	if n <= 0 {
		n = DefaultContextTurns
	}
	recent := m.history
	if len(recent) > n {
		recent = recent[len(recent)-n:]
	}

	var b strings.Builder
	b.WriteString("CONVERSATION HISTORY (most recent last):\n")
	for i, q := range recent {
		fmt.Fprintf(&b, "  [%d] User: %q\n", i+1, q.RawQuery)
		fmt.Fprintf(&b, "       → %s\n", summary(q))
	}
	b.WriteString("\nIf the next query is a follow-up, inherit metric/group_by/intent from above.")
	return b.String()
}

// History lists stored queries, most recent first.
func (m *ContextMemory) History() []HistoryEntry {
	out := make([]HistoryEntry, 0, len(m.history))
	for i := len(m.history) - 1; i >= 0; i-- {
		q := m.history[i]
		group := "—"
		if g, ok := q.Group(); ok {
			group = string(g)
		}
		out = append(out, HistoryEntry{
			Query:    q.RawQuery,
			Metric:   q.Metric,
			Intent:   q.Intent,
			GroupBy:  group,
			Filters:  q.Filters.Clone(),
			Followup: q.Followup,
		})
	}
	return out
}

func summary(q models.StructuredQuery) string {
	parts := []string{"metric=" + string(q.Metric), "intent=" + string(q.Intent)}
	if g, ok := q.Group(); ok {
		parts = append(parts, "group_by="+string(g))
	}
	if len(q.Filters) > 0 {
		parts = append(parts, "filters="+q.Filters.String())
	}
	if len(q.Compare) > 0 {
		parts = append(parts, "compare=["+strings.Join(q.Compare, ", ")+"]")
	}
	return strings.Join(parts, " | ")
}

// merge overlays the non-default fields of next onto a copy of prev.
// Filters are unioned (next wins on collisions); compare, time window and
// top-N are replaced wholesale.
func merge(prev, next models.StructuredQuery) models.StructuredQuery {
	out := prev.Clone()
	out.RawQuery = next.RawQuery
	out.Followup = true

	if next.Intent != models.IntentSingle {
		out.Intent = next.Intent
	}
	if next.Metric != models.MetricCount {
		out.Metric = next.Metric
	}
	if g, ok := next.Group(); ok {
		out.GroupBy = models.DimensionPtr(g)
	}
	for k, v := range next.Filters {
		out.Filters[k] = v
	}
	if len(next.Compare) > 0 {
		out.Compare = append([]string{}, next.Compare...)
	}
	if next.TimeWindow != nil {
		tw := *next.TimeWindow
		out.TimeWindow = &tw
	}
	if next.TopN != models.DefaultTopN && next.TopN > 0 {
		out.TopN = next.TopN
	}
	return out
}
