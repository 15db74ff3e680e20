package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/meritzGA/meritz-prize/prize"
)

func newObservedReviewer(t *testing.T) (*ReviewScheduler, *testServer, *observer.ObservedLogs) {
	t.Helper()
	s := newTestServer(t, adminPassword)
	core, logs := observer.New(zapcore.InfoLevel)
	rs := NewReviewScheduler(s.reg, prize.NewEngine(s.store), zap.New(core))
	return rs, s, logs
}

func TestReviewScheduler_LogsOnlyChanges(t *testing.T) {
	// GIVEN: A clean configuration
	// WHEN: The scheme's table is deleted between checks
	// THEN: The issue is logged once, not on every check

	rs, s, logs := newObservedReviewer(t)
	ctx := context.Background()

	issues, err := rs.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 1, logs.FilterMessage("configuration review clean").Len())

	_, err = rs.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("configuration review clean").Len(), "unchanged result is not logged again")

	rec := s.do(t, http.MethodDelete, "/api/admin/tables/weekly.csv", nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)

	issues, err = rs.Check(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, prize.SeveritySkip, issues[0].Severity)

	_, err = rs.Check(ctx)
	require.NoError(t, err)
	warned := logs.FilterMessage("configuration issue").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "w1", warned[0].ContextMap()["scheme_id"])
}

func TestReviewScheduler_StartStop(t *testing.T) {
	rs, _, logs := newObservedReviewer(t)
	rs.Interval = time.Hour

	rs.Start()
	rs.Start()
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("configuration review clean").Len() == 1
	}, time.Second, 10*time.Millisecond, "runs once on start")
	rs.Stop()
	rs.Stop()

	assert.Equal(t, 1, logs.FilterMessage("configuration review started").Len())
	assert.Equal(t, 1, logs.FilterMessage("configuration review stopped").Len())
}

func TestReviewScheduler_Disabled(t *testing.T) {
	rs, _, logs := newObservedReviewer(t)
	rs.Interval = 0

	rs.Start()
	rs.Stop()

	assert.Equal(t, 1, logs.FilterMessage("configuration review disabled").Len())
	assert.Zero(t, logs.FilterMessage("configuration review clean").Len())
}
