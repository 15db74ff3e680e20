/*
engine.go - Aggregation across schemes

PURPOSE:
  The Engine answers the three questions the rest of the system asks:
    1. EvaluateAgent: every scheme's result for one agent, plus totals
    2. Classify:      which near-miss band an agent falls into
    3. NearMiss:      the bands of a manager's whole downline

  It owns no configuration. Every call takes the *Snapshot to evaluate
  against, so one query sees one configuration version from start to end.

SKIPPING vs FAILING:
  A scheme whose source table is missing, whose agent-code column is unset
  or absent, or that has no row for the agent contributes nothing. Only a
  failing TableSource is returned as an error.

SEE ALSO:
  - evaluator.go: Per-scheme algorithms
  - classifier.go: Bands and folders
  - nearmiss.go: Downline roll-up
*/
package prize

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultWorkers bounds downline evaluation when no worker count is configured.
const DefaultWorkers = 8

// Engine evaluates snapshots against uploaded tables.
type Engine struct {
	tables  TableSource
	log     *zap.Logger
	bands   Bands
	mode    MatchMode
	workers int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithBands replaces the default near-miss bands.
func WithBands(b Bands) EngineOption {
	return func(e *Engine) { e.bands = b }
}

// WithMatchMode sets how manager codes are matched.
func WithMatchMode(m MatchMode) EngineOption {
	return func(e *Engine) { e.mode = m }
}

// WithWorkers bounds concurrent agent evaluations in downline queries.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates an engine reading tables from src.
func NewEngine(src TableSource, opts ...EngineOption) *Engine {
	e := &Engine{
		tables:  src,
		log:     zap.NewNop(),
		bands:   DefaultBands(DefaultBandUnit),
		mode:    MatchExact,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bands returns the engine's near-miss bands.
func (e *Engine) Bands() Bands { return e.bands }

// MatchMode returns the engine's manager matching mode.
func (e *Engine) MatchMode() MatchMode { return e.mode }

// =============================================================================
// BUNDLE
// =============================================================================

// Subtotals splits a bundle's total by category.
type Subtotals struct {
	Periodic   decimal.Decimal
	Cumulative decimal.Decimal
}

// Bundle is every result for one agent.
type Bundle struct {
	AgentCode string
	Results   []Result
	Total     decimal.Decimal
	Subtotals Subtotals
}

// Matched reports whether any scheme had a row for the agent.
// An unmatched bundle means "no data", not "zero prize".
func (b *Bundle) Matched() bool {
	return len(b.Results) > 0
}

// ByCategory returns the results of one category, in configuration order.
func (b *Bundle) ByCategory(c Category) []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Category == c {
			out = append(out, r)
		}
	}
	return out
}

func (b *Bundle) add(r Result) {
	b.Results = append(b.Results, r)
	b.Total = b.Total.Add(r.Prize)
	switch r.Category {
	case CategoryCumulative:
		b.Subtotals.Cumulative = b.Subtotals.Cumulative.Add(r.Prize)
	default:
		b.Subtotals.Periodic = b.Subtotals.Periodic.Add(r.Prize)
	}
}

// =============================================================================
// EVALUATE AGENT
// =============================================================================

// EvaluateAgent runs every scheme of snap for the agent. Results keep
// configuration order.
func (e *Engine) EvaluateAgent(ctx context.Context, snap *Snapshot, agentCode string) (*Bundle, error) {
	code := Normalize(agentCode)
	bundle := &Bundle{
		AgentCode: code,
		Total:     decimal.Zero,
		Subtotals: Subtotals{Periodic: decimal.Zero, Cumulative: decimal.Zero},
	}
	if code == "" || snap == nil {
		return bundle, nil
	}

	for _, s := range snap.Schemes {
		row, ok, err := e.resolveRow(ctx, s, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		bundle.add(Evaluate(s, row))
	}
	return bundle, nil
}

// resolveRow finds the agent's row for s. ok is false when the scheme is
// skipped for any reason other than a store failure.
func (e *Engine) resolveRow(ctx context.Context, s Scheme, code string) (Row, bool, error) {
	if s.Rule == nil || s.Columns.AgentCode == "" {
		e.log.Debug("scheme skipped: incomplete configuration",
			zap.String("scheme", s.Name), zap.String("id", s.ID))
		return nil, false, nil
	}
	t, err := e.tables.Table(ctx, s.SourceTable)
	if err != nil {
		return nil, false, fmt.Errorf("scheme %q: load table %q: %w", s.Name, s.SourceTable, err)
	}
	if t == nil {
		e.log.Debug("scheme skipped: table not uploaded",
			zap.String("scheme", s.Name), zap.String("table", s.SourceTable))
		return nil, false, nil
	}
	if !t.HasColumn(s.Columns.AgentCode) {
		e.log.Debug("scheme skipped: agent code column absent",
			zap.String("scheme", s.Name), zap.String("column", s.Columns.AgentCode))
		return nil, false, nil
	}
	row, ok := t.First(s.Columns.AgentCode, code)
	return row, ok, nil
}
