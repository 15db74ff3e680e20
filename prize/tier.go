package prize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER TABLE
// =============================================================================

// Tier is a (threshold, rate) pair. Rate is a whole-number percentage.
type Tier struct {
	Threshold decimal.Decimal
	Rate      decimal.Decimal
}

// NewTier builds a tier from plain numbers.
func NewTier(threshold, rate float64) Tier {
	return Tier{Threshold: decimal.NewFromFloat(threshold), Rate: decimal.NewFromFloat(rate)}
}

// Multiplier returns rate/100.
func (t Tier) Multiplier() decimal.Decimal {
	return t.Rate.Div(Hundred)
}

// TierTable is sorted descending by threshold with distinct thresholds.
// Build it with NewTierTable; the lookups rely on the ordering.
type TierTable []Tier

// NewTierTable sorts tiers descending and rejects duplicate thresholds.
func NewTierTable(tiers ...Tier) (TierTable, error) {
	out := make(TierTable, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Threshold.GreaterThan(out[j].Threshold)
	})
	for i := 1; i < len(out); i++ {
		if out[i].Threshold.Equal(out[i-1].Threshold) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateThreshold, out[i].Threshold)
		}
	}
	return out, nil
}

// MustTierTable is NewTierTable for fixed literals; it panics on duplicates.
func MustTierTable(tiers ...Tier) TierTable {
	t, err := NewTierTable(tiers...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTiers is the tier set new periodic schemes start with.
func DefaultTiers() TierTable {
	return MustTierTable(
		NewTier(100000, 100),
		NewTier(200000, 200),
		NewTier(300000, 200),
		NewTier(500000, 300),
	)
}

// Achieved returns the tier with the largest threshold <= v.
func (t TierTable) Achieved(v decimal.Decimal) (Tier, bool) {
	for _, tier := range t {
		if tier.Threshold.LessThanOrEqual(v) {
			return tier, true
		}
	}
	return Tier{}, false
}

// Next returns the smallest threshold > v.
func (t TierTable) Next(v decimal.Decimal) (decimal.Decimal, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Threshold.GreaterThan(v) {
			return t[i].Threshold, true
		}
	}
	return decimal.Zero, false
}

// Shortfall is the distance from v to the next tier, or zero at the top.
func (t TierTable) Shortfall(v decimal.Decimal) decimal.Decimal {
	next, ok := t.Next(v)
	if !ok {
		return decimal.Zero
	}
	return next.Sub(v)
}

// Ascending returns a copy ordered by increasing threshold.
func (t TierTable) Ascending() []Tier {
	out := make([]Tier, len(t))
	for i, tier := range t {
		out[len(t)-1-i] = tier
	}
	return out
}

// =============================================================================
// RAW VALUE PARSING
// =============================================================================

// ParseAmount reads a raw cell as a number. Thousands separators and
// surrounding whitespace are ignored; anything unparseable is zero.
func ParseAmount(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case float32:
		return ParseAmount(float64(v))
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case int32:
		return decimal.NewFromInt(int64(v))
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if s == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return ParseAmount(fmt.Sprint(v))
	}
}
