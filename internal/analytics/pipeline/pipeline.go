// Package pipeline wires parser, context memory, executor and assembler
// into the per-question control flow shared by the workers and the console.
package pipeline

import (
	"time"

	"insightx-workers/internal/analytics/engine"
	"insightx-workers/internal/analytics/memory"
	"insightx-workers/internal/analytics/parser"
	"insightx-workers/internal/analytics/response"
	"insightx-workers/internal/common/config"
	"insightx-workers/internal/common/errors"
	"insightx-workers/internal/common/logger"
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/models"
)

// Config carries the tunables the pipeline hands to its stages.
type Config struct {
	HistorySize          int
	ContextTurns         int
	FuzzyMatching        bool
	FuzzyThreshold       float64
	ComparisonZThreshold float64
	AnomalyZThreshold    float64
	SessionIdleTTL       time.Duration
}

// ConfigFrom maps the analytics config section onto pipeline settings.
func ConfigFrom(a config.AnalyticsConfig) Config {
	return Config{
		HistorySize:          a.HistorySize,
		ContextTurns:         a.ContextTurns,
		FuzzyMatching:        a.FuzzyMatching,
		FuzzyThreshold:       a.FuzzyThreshold,
		ComparisonZThreshold: a.ComparisonZThreshold,
		AnomalyZThreshold:    a.AnomalyZThreshold,
		SessionIdleTTL:       config.GetSeconds(a.SessionIdleTTL),
	}
}

// Resolution is a resolved query plus the transcript it was parsed against.
type Resolution struct {
	Query       models.StructuredQuery
	ContextHint string
}

// Answer is everything one question produces.
type Answer struct {
	Query    models.StructuredQuery `json:"query"`
	Result   models.AnalyticsResult `json:"result"`
	Response models.InsightResponse `json:"response"`
}

type Pipeline struct {
	parser       *parser.Parser
	sessions     *memory.Store
	executor     *engine.Executor
	assembler    *response.Assembler
	data         *dataset.Holder
	contextTurns int
	logger       logger.Logger
}

func New(cfg Config, data *dataset.Holder, log logger.Logger) *Pipeline {
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = memory.DefaultContextTurns
	}
	return &Pipeline{
		parser:   parser.New(parser.NewMatcher(cfg.FuzzyMatching, cfg.FuzzyThreshold)),
		sessions: memory.NewStore(cfg.HistorySize, cfg.SessionIdleTTL),
		executor: engine.NewExecutor(engine.Options{
			ComparisonZThreshold: cfg.ComparisonZThreshold,
			AnomalyZThreshold:    cfg.AnomalyZThreshold,
		}),
		assembler:    response.NewAssembler(),
		data:         data,
		contextTurns: cfg.ContextTurns,
		logger:       log,
	}
}

// Resolve parses text against the session's recent history and records the
// resolved query. Follow-ups come back already merged with their predecessor.
func (p *Pipeline) Resolve(sessionID, text string) (models.StructuredQuery, error) {
	r, err := p.ResolveWithContext(sessionID, text)
	return r.Query, err
}

// ResolveWithContext is Resolve that also reports the context hint used.
func (p *Pipeline) ResolveWithContext(sessionID, text string) (Resolution, error) {
	var r Resolution
	err := p.sessions.Do(sessionID, func(m *memory.ContextMemory) error {
		r.ContextHint = m.ContextText(p.contextTurns)
		r.Query = m.Push(p.parser.Parse(text, r.ContextHint))
		return nil
	})
	if err != nil {
		return Resolution{}, errors.NewInvalidInputError(err.Error())
	}

	p.logger.Debug("query resolved", map[string]interface{}{
		"sessionId":  sessionID,
		"intent":     r.Query.Intent,
		"metric":     r.Query.Metric,
		"followup":   r.Query.Followup,
		"confidence": r.Query.Confidence,
	})
	return r, nil
}

// Executor exposes the stateless executor for callers that bring their own query.
func (p *Pipeline) Executor() *engine.Executor {
	return p.executor
}

// Dataset returns the currently loaded dataset, or nil.
func (p *Pipeline) Dataset() *dataset.Dataset {
	return p.data.Get()
}

// Execute runs q against the current dataset. Failures are in-band.
func (p *Pipeline) Execute(q models.StructuredQuery) models.AnalyticsResult {
	return p.executor.Execute(q, p.data.Get())
}

func (p *Pipeline) Assemble(res models.AnalyticsResult, confidence float64) models.InsightResponse {
	return p.assembler.Assemble(res, confidence)
}

// Ask answers one question end to end.
func (p *Pipeline) Ask(sessionID, text string) (Answer, error) {
	q, err := p.Resolve(sessionID, text)
	if err != nil {
		return Answer{}, err
	}
	res := p.Execute(q)
	resp := p.Assemble(res, q.Confidence)

	fields := map[string]interface{}{
		"sessionId": sessionID,
		"queryId":   resp.QueryID,
		"intent":    res.Intent,
		"metric":    res.Metric,
		"success":   res.Success,
	}
	if res.Success {
		p.logger.Info("question answered", fields)
	} else {
		fields["errorCode"] = res.ErrorCode
		p.logger.Warn("question not answered", fields)
	}
	return Answer{Query: q, Result: res, Response: resp}, nil
}

// History lists the session's resolved queries, most recent first.
func (p *Pipeline) History(sessionID string) ([]memory.HistoryEntry, error) {
	var out []memory.HistoryEntry
	err := p.sessions.Do(sessionID, func(m *memory.ContextMemory) error {
		out = m.History()
		return nil
	})
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	return out, nil
}

// ContextText renders the session transcript the parser would see next.
func (p *Pipeline) ContextText(sessionID string) (string, error) {
	var out string
	err := p.sessions.Do(sessionID, func(m *memory.ContextMemory) error {
		out = m.ContextText(p.contextTurns)
		return nil
	})
	if err != nil {
		return "", errors.NewInvalidInputError(err.Error())
	}
	return out, nil
}

// Reset forgets the session's history.
func (p *Pipeline) Reset(sessionID string) {
	p.sessions.Drop(sessionID)
}

// Schema describes the loaded dataset.
func (p *Pipeline) Schema() (dataset.SchemaInfo, error) {
	ds := p.data.Get()
	if ds == nil {
		return dataset.SchemaInfo{}, errors.NewDatasetUnavailableError()
	}
	return ds.Describe(), nil
}

// Sweep drops idle sessions.
func (p *Pipeline) Sweep() int {
	n := p.sessions.Sweep()
	if n > 0 {
		p.logger.Debug("idle sessions dropped", map[string]interface{}{"count": n, "remaining": p.sessions.Len()})
	}
	return n
}

// Sessions reports how many conversations are held in memory.
func (p *Pipeline) Sessions() int {
	return p.sessions.Len()
}

func (p *Pipeline) Ready() bool {
	return p.data.Ready()
}
