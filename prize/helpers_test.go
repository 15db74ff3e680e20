package prize_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/prize/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	weeklyTable     = "weekly.csv"
	cumulativeTable = "cumulative.csv"
)

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, amount(want).Equal(got), "want %d, got %s", want, got.String())
}

var weeklyColumns = prize.Columns{
	AgentCode:   "사번",
	AgentName:   "성명",
	Branch:      "지점",
	Agency:      "대리점",
	ManagerCode: "매니저코드",
}

func flatScheme(id string) prize.Scheme {
	return prize.Scheme{
		ID:          id,
		Name:        "주차 " + id,
		SourceTable: weeklyTable,
		Columns:     weeklyColumns,
		Rule:        prize.FlatTier{ValueColumn: "실적"},
		Tiers:       prize.DefaultTiers(),
	}
}

func bridgeScheme(id string, tiers prize.TierTable) prize.Scheme {
	return prize.Scheme{
		ID:          id,
		Name:        "브릿지 " + id,
		SourceTable: weeklyTable,
		Columns:     weeklyColumns,
		Rule: prize.BridgeConfirmed{
			PriorColumn:   "전기실적",
			CurrentColumn: "당기실적",
			Requirement:   prize.DefaultRequirement,
		},
		Tiers: tiers,
	}
}

func conditionalScheme(id string) prize.Scheme {
	return prize.Scheme{
		ID:          id,
		Name:        "조건부 " + id,
		SourceTable: weeklyTable,
		Columns:     weeklyColumns,
		Rule: prize.BridgeConditional{
			CurrentColumn: "당기실적",
			Requirement:   prize.DefaultRequirement,
		},
		Tiers: prize.DefaultTiers(),
	}
}

func passthroughScheme(id string) prize.Scheme {
	return prize.Scheme{
		ID:          id,
		Name:        "누계 " + id,
		SourceTable: cumulativeTable,
		Columns:     prize.Columns{AgentCode: "사번"},
		Rule:        prize.Passthrough{ValueColumn: "누계실적", PrizeColumn: "누계시상"},
		// Tiers are ignored for cumulative schemes.
		Tiers: prize.DefaultTiers(),
	}
}

func weeklyRows(rows ...prize.Row) *prize.Table {
	return prize.NewTable(weeklyTable,
		[]string{"사번", "성명", "지점", "대리점", "매니저코드", "실적", "전기실적", "당기실적"},
		rows)
}

func cumulativeRows(rows ...prize.Row) *prize.Table {
	return prize.NewTable(cumulativeTable, []string{"사번", "누계실적", "누계시상"}, rows)
}

func newTestEngine(t *testing.T, tables ...*prize.Table) (*prize.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	for _, tbl := range tables {
		require.NoError(t, mem.SaveTable(context.Background(), tbl))
	}
	return prize.NewEngine(mem), mem
}

func snapshot(schemes ...prize.Scheme) *prize.Snapshot {
	return prize.NewSnapshot(prize.Config{Schemes: schemes})
}
