package prize

import "github.com/shopspring/decimal"

// =============================================================================
// RULE - Closed set of scheme shapes
// =============================================================================

// Rule carries the kind-specific data of a scheme. The set of
// implementations is closed: the unexported method keeps other packages
// from adding kinds the evaluator would not know how to run.
type Rule interface {
	Kind() Kind
	rule()
}

// FlatTier pays tier.threshold * rate on a single value.
type FlatTier struct {
	ValueColumn string
}

// BridgeConfirmed pays on last period's tier once this period's
// requirement is met.
type BridgeConfirmed struct {
	PriorColumn   string
	CurrentColumn string
	Requirement   decimal.Decimal
}

// BridgeConditional projects the payout that a tier reached this period
// would earn if the requirement is met next period.
type BridgeConditional struct {
	CurrentColumn string
	Requirement   decimal.Decimal
}

// Passthrough surfaces a value and a prize computed upstream.
type Passthrough struct {
	ValueColumn string
	PrizeColumn string
}

func (FlatTier) Kind() Kind          { return KindFlatTier }
func (BridgeConfirmed) Kind() Kind   { return KindBridgeConfirmed }
func (BridgeConditional) Kind() Kind { return KindBridgeConditional }
func (Passthrough) Kind() Kind       { return KindPassthrough }

func (FlatTier) rule()          {}
func (BridgeConfirmed) rule()   {}
func (BridgeConditional) rule() {}
func (Passthrough) rule()       {}

// DefaultRequirement is the current-period requirement new bridge schemes start with.
var DefaultRequirement = decimal.NewFromInt(100000)

// valueColumns lists the data columns a rule reads, for configuration review.
func valueColumns(r Rule) []string {
	switch r := r.(type) {
	case FlatTier:
		return []string{r.ValueColumn}
	case BridgeConfirmed:
		return []string{r.PriorColumn, r.CurrentColumn}
	case BridgeConditional:
		return []string{r.CurrentColumn}
	case Passthrough:
		// The cumulative value column is optional; only the prize is required.
		return []string{r.PrizeColumn}
	default:
		return nil
	}
}
