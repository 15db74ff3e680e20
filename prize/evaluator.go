/*
evaluator.go - Per-kind prize algorithms

PURPOSE:
  Turns one scheme and the one row that matched an agent into a Result.
  Each kind has its own algorithm; the dispatch is an exhaustive switch over
  the sealed Rule variant.

ALGORITHMS:
  FlatTier:
    tier  = achieved(tiers, value)
    prize = tier.threshold * rate/100
    The prize follows the tier's threshold, not the raw value, so agents are
    paid for reaching milestones.

  BridgeConfirmed:
    gate  = current >= requirement
    tier  = achieved(tiers, prior)           (only when the gate is open)
    prize = (tier.threshold + requirement) * rate/100
    A closed gate pays nothing and reports requirement - current.

  BridgeConditional:
    tier  = achieved(tiers, current)
    prize = (tier.threshold + requirement) * rate/100
    The requirement is next period's planned activity; the result is Projected.

  Passthrough:
    value and prize are read from the row unchanged.

FAILURE SEMANTICS:
  Missing columns and unparseable cells read as zero. Evaluate never fails.
*/
package prize

import "github.com/shopspring/decimal"

// Evaluate runs the scheme's rule against row.
func Evaluate(s Scheme, row Row) Result {
	res := Result{
		SchemeID:    s.ID,
		SchemeName:  s.Name,
		Description: s.Description,
		Category:    s.Category(),
		Kind:        s.Kind(),
	}

	switch r := s.Rule.(type) {
	case FlatTier:
		evalFlatTier(&res, s.Tiers, r, row)
	case BridgeConfirmed:
		evalBridgeConfirmed(&res, s.Tiers, r, row)
	case BridgeConditional:
		evalBridgeConditional(&res, s.Tiers, r, row)
	case Passthrough:
		evalPassthrough(&res, r, row)
	}
	return res
}

func evalFlatTier(res *Result, tiers TierTable, r FlatTier, row Row) {
	res.Value = ParseAmount(row.Value(r.ValueColumn))
	applyTier(res, tiers, res.Value, decimal.Zero)
	res.NextTier, res.HasNext = tiers.Next(res.Value)
	res.Shortfall = tiers.Shortfall(res.Value)
}

func evalBridgeConfirmed(res *Result, tiers TierTable, r BridgeConfirmed, row Row) {
	res.PriorValue = ParseAmount(row.Value(r.PriorColumn))
	res.CurrentValue = ParseAmount(row.Value(r.CurrentColumn))
	res.Requirement = r.Requirement
	res.Prize = decimal.Zero

	if res.CurrentValue.LessThan(r.Requirement) {
		res.CurrentShortfall = r.Requirement.Sub(res.CurrentValue)
		return
	}
	applyTier(res, tiers, res.PriorValue, r.Requirement)
}

func evalBridgeConditional(res *Result, tiers TierTable, r BridgeConditional, row Row) {
	res.CurrentValue = ParseAmount(row.Value(r.CurrentColumn))
	res.Value = res.CurrentValue
	res.Requirement = r.Requirement
	res.Projected = true
	applyTier(res, tiers, res.Value, r.Requirement)
	if !res.Tier.Threshold.IsPositive() {
		// A zero tier projects nothing; the requirement alone is not a prize.
		res.Tier, res.Achieved, res.Rate, res.Prize = Tier{}, false, decimal.Zero, decimal.Zero
	}
	res.NextTier, res.HasNext = tiers.Next(res.Value)
	res.Shortfall = tiers.Shortfall(res.Value)
}

func evalPassthrough(res *Result, r Passthrough, row Row) {
	res.Value = ParseAmount(row.Value(r.ValueColumn))
	res.Prize = ParseAmount(row.Value(r.PrizeColumn))
}

// applyTier looks v up in tiers and pays (threshold + bonusBase) * rate/100.
func applyTier(res *Result, tiers TierTable, v, bonusBase decimal.Decimal) {
	tier, ok := tiers.Achieved(v)
	if !ok {
		res.Prize = decimal.Zero
		return
	}
	res.Tier = tier
	res.Achieved = true
	res.Rate = tier.Rate
	res.Prize = tier.Threshold.Add(bonusBase).Mul(tier.Multiplier())
}
