package prize_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritzGA/meritz-prize/prize"
)

func rosterTable() *prize.Table {
	return prize.NewTable("roster.csv",
		[]string{"설계사코드", "설계사명", "지원매니저코드", "실적", "신계약"},
		[]prize.Row{
			{"설계사코드": "1001", "설계사명": "김철수", "지원매니저코드": "M1", "실적": "120000", "신계약": "3"},
			{"설계사코드": "1002", "설계사명": "이영희", "지원매니저코드": "M1", "실적": "620000", "신계약": "0"},
			{"설계사코드": "1003", "설계사명": "박민수", "지원매니저코드": "M1", "실적": "n/a", "신계약": "1"},
			{"설계사코드": "2001", "설계사명": "최지훈", "지원매니저코드": "M2", "실적": "900000", "신계약": "5"},
		})
}

func mustCondition(t *testing.T, s string) prize.Condition {
	t.Helper()
	c, err := prize.ParseCondition(s)
	require.NoError(t, err)
	return c
}

func rosterConfig(t *testing.T) prize.RosterConfig {
	return prize.RosterConfig{
		SourceTable:   "roster.csv",
		ManagerColumn: "지원매니저코드",
		Columns: []prize.RosterColumn{
			{Column: "실적", Numeric: true},
			{Column: "신계약", Numeric: true},
			{Column: "없는열"},
		},
		Goals: []prize.Goal{{Column: "실적", Targets: []decimal.Decimal{amount(100000), amount(300000), amount(500000)}}},
		Tags:  []prize.Tag{{Name: "신계약", Column: "신계약", Condition: mustCondition(t, ">= 1")}},
	}
}

func TestBuildRoster_ColumnsGoalsAndTags(t *testing.T) {
	// GIVEN: A roster with base columns, numeric columns, a goal and a tag
	// WHEN: The roster is built for M1
	// THEN: Present columns are shown in order, goals and tags are computed

	report := prize.BuildRoster(rosterTable(), rosterConfig(t), "m1", prize.MatchExact)

	assert.Equal(t, "M1", report.ManagerCode)
	assert.Equal(t, []string{"설계사명", "설계사코드", "실적", "신계약"}, report.Columns)
	assert.Equal(t, 3, report.Matched)
	require.Len(t, report.Rows, 3)

	first := report.Rows[0]
	assert.Equal(t, "김철수", first.Cells["설계사명"])
	assertAmount(t, 120000, first.Cells["실적"].(decimal.Decimal))
	require.Len(t, first.Goals, 1)
	assert.Equal(t, "300,000 구간", first.Goals[0].Label)
	assertAmount(t, 180000, first.Goals[0].Shortfall)
	assert.Equal(t, "[신계약] ", first.TagText())

	second := report.Rows[1]
	assert.Equal(t, prize.TopGoalLabel, second.Goals[0].Label)
	assert.False(t, second.Goals[0].HasNext)
	assert.Empty(t, second.Tags)

	// Unparseable numbers read as zero.
	third := report.Rows[2]
	assertAmount(t, 0, third.Cells["실적"].(decimal.Decimal))
	assert.Equal(t, "100,000 구간", third.Goals[0].Label)
}

func TestBuildRoster_NumericFilterDropsRows(t *testing.T) {
	cfg := rosterConfig(t)
	filter := mustCondition(t, "> 100,000")
	cfg.Columns[0].Filter = &filter

	report := prize.BuildRoster(rosterTable(), cfg, "M1", prize.MatchExact)

	assert.Equal(t, 3, report.Matched)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "1001", report.Rows[0].Cells["설계사코드"])
	assert.Equal(t, "1002", report.Rows[1].Cells["설계사코드"])
}

func TestEngine_Roster_Unconfigured(t *testing.T) {
	engine, _ := newTestEngine(t, rosterTable())

	_, err := engine.Roster(context.Background(), snapshot(), "M1")

	assert.ErrorIs(t, err, prize.ErrTableNotFound)
	assert.True(t, prize.IsNotFound(err))
}

func TestEngine_Roster_TableMissing(t *testing.T) {
	engine, _ := newTestEngine(t)
	snap := prize.NewSnapshot(prize.Config{Roster: rosterConfig(t)})

	_, err := engine.Roster(context.Background(), snap, "M1")

	assert.ErrorIs(t, err, prize.ErrTableNotFound)
}

func TestEngine_Roster_UsesSnapshotConfig(t *testing.T) {
	engine, _ := newTestEngine(t, rosterTable())
	snap := prize.NewSnapshot(prize.Config{Roster: rosterConfig(t)})

	report, err := engine.Roster(context.Background(), snap, "M2")
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.Equal(t, "최지훈", report.Rows[0].Cells["설계사명"])
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]decimal.Decimal{
		"0":          amount(0),
		"999":        amount(999),
		"1,000":      amount(1000),
		"300,000":    amount(300000),
		"12,345,679": decimal.RequireFromString("12345678.6"),
		"-1,500":     amount(-1500),
		"-1,234,568": decimal.RequireFromString("-1234567.6"),
	}
	for want, in := range tests {
		assert.Equal(t, want, prize.FormatAmount(in))
	}
}
