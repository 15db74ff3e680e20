package prize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meritzGA/meritz-prize/prize"
)

func identityTable() *prize.Table {
	return weeklyRows(
		prize.Row{"사번": "1001", "성명": "김철수", "지점": "1지점"},
		prize.Row{"사번": "1002", "성명": "김철수", "지점": "11지점"},
		prize.Row{"사번": "1003", "성명": " 김철수 ", "지점": "강남 3 지점"},
		prize.Row{"사번": "1004", "성명": "이영희", "지점": "1지점"},
		prize.Row{"사번": 1001.0, "성명": "김철수", "지점": "1지점"},
	)
}

func TestEngine_FindAgentCodes(t *testing.T) {
	engine, _ := newTestEngine(t, identityTable())
	snap := snapshot(flatScheme("a"))

	tests := []struct {
		name   string
		agent  string
		branch string
		want   []string
	}{
		{"branch code not preceded by a digit", "김철수", "1", []string{"1001"}},
		{"suffix in input is ignored", "김철수", "1지점", []string{"1001"}},
		{"two-digit branch", "김철수", "11", []string{"1002"}},
		{"spaces around branch", "김철수", "3", []string{"1003"}},
		{"any branch", "김철수", prize.AnyBranch, []string{"1001", "1002", "1003"}},
		{"name mismatch", "박민수", prize.AnyBranch, []string{}},
		{"branch mismatch", "이영희", "2", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes, err := engine.FindAgentCodes(context.Background(), snap, tt.agent, tt.branch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes)
		})
	}
}

func TestEngine_FindAgentCodes_IgnoresCumulativeSchemes(t *testing.T) {
	// GIVEN: The agent exists only in a cumulative scheme's table
	// WHEN: Looking them up
	// THEN: Nothing is found

	cum := passthroughScheme("c")
	cum.Columns.AgentName = "성명"
	engine, _ := newTestEngine(t, prize.NewTable(cumulativeTable, []string{"사번", "성명"},
		[]prize.Row{{"사번": "9001", "성명": "김철수"}}))

	codes, err := engine.FindAgentCodes(context.Background(), snapshot(cum), "김철수", prize.AnyBranch)
	require.NoError(t, err)

	assert.Empty(t, codes)
}

func TestEngine_FindAgentCodes_EmptyInput(t *testing.T) {
	engine, _ := newTestEngine(t, identityTable())

	codes, err := engine.FindAgentCodes(context.Background(), snapshot(flatScheme("a")), "", "1")
	require.NoError(t, err)
	assert.Empty(t, codes)

	codes, err = engine.FindAgentCodes(context.Background(), snapshot(flatScheme("a")), "김철수", "지점")
	require.NoError(t, err)
	assert.Empty(t, codes)
}
