/*
Package prize provides the incentive prize calculation engine.

PURPOSE:
  Agents are paid incentive prizes according to schemes an administrator
  configures. Each scheme reads one row of uploaded performance data for an
  agent and turns it into a tier, a payout rate, a prize and the distance to
  the next tier. The engine runs every scheme for one agent and sums the
  prizes; managers get the same numbers rolled up over their downline.

KEY CONCEPTS IN THIS FILE (types.go):
  - Scheme: One configured incentive program (columns + rule + tiers)
  - Category: Periodic (re-evaluated against tiers) or Cumulative (passthrough)
  - Kind: Which algorithm a periodic scheme uses
  - Result: The ephemeral evaluation of one scheme for one agent

DESIGN PRINCIPLES:
  1. Determinism: Evaluation is a pure function of (snapshot, table, code)
  2. Precision: Amounts are decimal.Decimal, rounding happens at display time
  3. Closed rules: A scheme's kind is a sealed variant, never a label to grep
  4. Absorb, don't raise: Bad cells read as zero, broken schemes are skipped

SEE ALSO:
  - rule.go: The sealed Rule variant
  - tier.go: Tier table lookups
  - evaluator.go: Per-kind algorithms
  - engine.go: Aggregation across schemes
*/
package prize

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORY & KIND
// =============================================================================

// Category groups schemes for display subtotals.
type Category string

const (
	// CategoryPeriodic schemes are re-evaluated against their tiers on every query.
	CategoryPeriodic Category = "weekly"

	// CategoryCumulative schemes surface figures computed upstream.
	CategoryCumulative Category = "cumulative"
)

// Kind identifies the evaluation algorithm.
type Kind string

const (
	KindFlatTier          Kind = "flat_tier"
	KindBridgeConfirmed   Kind = "bridge_confirmed"
	KindBridgeConditional Kind = "bridge_conditional"
	KindPassthrough       Kind = "passthrough"
)

// IsBridge reports whether k is one of the two-period kinds.
func (k Kind) IsBridge() bool {
	return k == KindBridgeConfirmed || k == KindBridgeConditional
}

// =============================================================================
// SCHEME
// =============================================================================

// Columns names the identification columns of a scheme's source table.
// An empty name means the feature it backs is unavailable for that scheme.
type Columns struct {
	AgentCode   string
	AgentName   string
	Branch      string
	Agency      string
	ManagerCode string
}

// Scheme is one configured incentive program.
type Scheme struct {
	ID          string
	Name        string
	Description string
	SourceTable string
	Columns     Columns
	Rule        Rule
	Tiers       TierTable
}

// Kind returns the kind of the scheme's rule.
func (s Scheme) Kind() Kind {
	if s.Rule == nil {
		return ""
	}
	return s.Rule.Kind()
}

// Category is derived from the rule so the two can never disagree.
func (s Scheme) Category() Category {
	if s.Kind() == KindPassthrough {
		return CategoryCumulative
	}
	return CategoryPeriodic
}

// =============================================================================
// RESULT - One scheme evaluated for one agent
// =============================================================================

// Result is the evaluation of one scheme against one agent's row.
// It is recomputed on every query and never persisted.
type Result struct {
	SchemeID    string
	SchemeName  string
	Description string
	Category    Category
	Kind        Kind

	// Value is the figure tiers were applied to (FlatTier, BridgeConditional)
	// or the reported cumulative figure (Passthrough).
	Value decimal.Decimal

	// PriorValue and CurrentValue are the two periods of a BridgeConfirmed scheme.
	// CurrentValue is also set for BridgeConditional.
	PriorValue   decimal.Decimal
	CurrentValue decimal.Decimal

	Tier     Tier
	Achieved bool
	Rate     decimal.Decimal

	// Requirement is the current-period amount for bridge kinds.
	Requirement decimal.Decimal

	NextTier         decimal.Decimal
	HasNext          bool
	Shortfall        decimal.Decimal
	CurrentShortfall decimal.Decimal

	Prize decimal.Decimal

	// Projected marks a forward-looking BridgeConditional estimate.
	Projected bool
}

// ReportableValue is the figure used for near-miss classification:
// the current-period value for BridgeConfirmed, Value otherwise.
func (r Result) ReportableValue() decimal.Decimal {
	if r.Kind == KindBridgeConfirmed {
		return r.CurrentValue
	}
	return r.Value
}

// Hundred converts whole-number percentages into multipliers.
var Hundred = decimal.NewFromInt(100)
