/*
reviewer.go - Background configuration review

PURPOSE:
  Tables get replaced and deleted independently of the schemes that read
  them. A scheme whose table vanished keeps evaluating to "no data" without
  anyone noticing. The reviewer periodically runs Engine.Review against the
  live snapshot and logs the findings whenever they change.

DESIGN:
  - Background goroutine driven by a ticker, plus one check on start
  - Logs only when the set of issues differs from the previous check
  - Never modifies the configuration

USAGE:
  reviewer := NewReviewScheduler(registry, engine, log)
  reviewer.Interval = 10 * time.Minute
  reviewer.Start()
  // ... later
  reviewer.Stop()

SEE ALSO:
  - admin.go: GET /review (the same check on demand)
  - prize/validate.go: Engine.Review
*/
package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meritzGA/meritz-prize/prize"
)

// ReviewScheduler periodically reviews the live configuration.
type ReviewScheduler struct {
	Registry *prize.Registry
	Engine   *prize.Engine

	// Interval between checks. Zero or negative disables the scheduler.
	Interval time.Duration

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastMu sync.Mutex
	last   string
}

// NewReviewScheduler creates a scheduler with a ten minute interval.
func NewReviewScheduler(reg *prize.Registry, engine *prize.Engine, log *zap.Logger) *ReviewScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewScheduler{
		Registry: reg,
		Engine:   engine,
		Interval: 10 * time.Minute,
		log:      log,
	}
}

// Start begins periodic checks. Calling Start twice has no effect.
func (rs *ReviewScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.Interval <= 0 {
		rs.log.Info("configuration review disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)
	go rs.run(rs.ticker, rs.stop)

	rs.log.Info("configuration review started", zap.Duration("interval", rs.Interval))
}

// Stop halts the scheduler and waits for a running check to finish.
func (rs *ReviewScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.log.Info("configuration review stopped")
}

func (rs *ReviewScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	rs.Check(ctx)
	for {
		select {
		case <-ticker.C:
			rs.Check(ctx)
		case <-stop:
			return
		}
	}
}

// Check reviews the current snapshot once. Findings are logged when they
// differ from the previous check; the issues are returned either way.
func (rs *ReviewScheduler) Check(ctx context.Context) ([]prize.Issue, error) {
	snap := rs.Registry.Current()
	issues, err := rs.Engine.Review(ctx, snap)
	if err != nil {
		rs.log.Error("configuration review failed", zap.Error(err))
		return nil, err
	}

	fp := fingerprint(issues)
	if fp == rs.swapLast(fp) {
		return issues, nil
	}

	if len(issues) == 0 {
		rs.log.Info("configuration review clean", zap.Int64("version", snap.Version))
		return issues, nil
	}
	for _, is := range issues {
		rs.log.Warn("configuration issue",
			zap.Int64("version", snap.Version),
			zap.String("scheme_id", is.SchemeID),
			zap.String("scheme", is.SchemeName),
			zap.String("field", is.Field),
			zap.String("severity", string(is.Severity)),
			zap.String("message", is.Message))
	}
	return issues, nil
}

// swapLast stores fp and returns the previous fingerprint.
func (rs *ReviewScheduler) swapLast(fp string) string {
	rs.lastMu.Lock()
	defer rs.lastMu.Unlock()
	prev := rs.last
	rs.last = fp
	return prev
}

func fingerprint(issues []prize.Issue) string {
	var b strings.Builder
	b.WriteString("review")
	for _, is := range issues {
		fmt.Fprintf(&b, "|%s/%s/%s/%s", is.SchemeID, is.Field, is.Severity, is.Message)
	}
	return b.String()
}
