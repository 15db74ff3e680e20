package prize

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BANDS
// =============================================================================

// DefaultBandUnit anchors the default bands.
const DefaultBandUnit = 100000

// Band is a half-open value range [Lower, Upper) named after the target an
// agent in it is closest to reaching.
type Band struct {
	Label  string
	Target decimal.Decimal
	Lower  decimal.Decimal
	Upper  decimal.Decimal
}

// Contains reports whether v is in [Lower, Upper).
func (b Band) Contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(b.Lower) && v.LessThan(b.Upper)
}

// Bands is an ordered set of non-overlapping bands, highest target first.
type Bands []Band

// DefaultBands returns four bands anchored at multiples of unit:
//
//	target 5u: [3u, 5u)
//	target 3u: [2u, 3u)
//	target 2u: [1u, 2u)
//	target 1u: [0, 1u)
func DefaultBands(unit int64) Bands {
	if unit <= 0 {
		unit = DefaultBandUnit
	}
	u := decimal.NewFromInt(unit)
	mk := func(target, lower int64) Band {
		t := u.Mul(decimal.NewFromInt(target))
		return Band{
			Label:  t.StringFixed(0),
			Target: t,
			Lower:  u.Mul(decimal.NewFromInt(lower)),
			Upper:  t,
		}
	}
	return Bands{mk(5, 3), mk(3, 2), mk(2, 1), mk(1, 0)}
}

// Classify returns the unique band containing v.
func (bs Bands) Classify(v decimal.Decimal) (Band, bool) {
	for _, b := range bs {
		if b.Contains(v) {
			return b, true
		}
	}
	return Band{}, false
}

// =============================================================================
// FOLDERS
// =============================================================================

// Folder selects which scheme kinds a near-miss query looks at.
type Folder string

const (
	FolderTier   Folder = "tier"
	FolderBridge Folder = "bridge"
)

// ParseFolder accepts the folder names and their Korean labels.
func ParseFolder(s string) (Folder, error) {
	switch s {
	case string(FolderTier), "구간":
		return FolderTier, nil
	case string(FolderBridge), "브릿지":
		return FolderBridge, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFolder, s)
	}
}

// Includes reports whether results of kind k belong in the folder.
// Cumulative results are never classified.
func (f Folder) Includes(k Kind) bool {
	switch f {
	case FolderTier:
		return k == KindFlatTier
	case FolderBridge:
		return k.IsBridge()
	default:
		return false
	}
}

// Placement is where classification put an agent.
type Placement struct {
	Band   Band
	Value  decimal.Decimal
	Result Result
}

// classifyResults returns the first result, in configuration order, of the
// folder whose reportable value lands in a band.
func classifyResults(bands Bands, results []Result, folder Folder) (Placement, bool) {
	for _, r := range results {
		if !folder.Includes(r.Kind) {
			continue
		}
		v := r.ReportableValue()
		if b, ok := bands.Classify(v); ok {
			return Placement{Band: b, Value: v, Result: r}, true
		}
	}
	return Placement{}, false
}

// Classify evaluates the agent and places them in a band of the folder.
func (e *Engine) Classify(ctx context.Context, snap *Snapshot, agentCode string, folder Folder) (Placement, bool, error) {
	bundle, err := e.EvaluateAgent(ctx, snap, agentCode)
	if err != nil {
		return Placement{}, false, err
	}
	p, ok := classifyResults(e.bands, bundle.Results, folder)
	return p, ok, nil
}
