package cache

import (
	"context"
	"testing"
	"time"

	"StockWatch/internal/domain/models"
	applogger "StockWatch/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func snapAt(ts time.Time) *models.Snapshot {
	return &models.Snapshot{
		Quotes:      map[string]models.SymbolResult{},
		RefreshedAt: ts,
	}
}

type spyMetrics struct {
	lastAge float64
}

func (s *spyMetrics) RecordFetch(_, _ string)             {}
func (s *spyMetrics) RecordError(_ string)                {}
func (s *spyMetrics) RecordLastPrice(_ string, _ float64) {}
func (s *spyMetrics) RecordCycleDuration(_ float64)       {}
func (s *spyMetrics) RecordSnapshotAge(seconds float64)   { s.lastAge = seconds }

func TestEmptyUntilFirstCommit(t *testing.T) {
	c := NewSnapshot(5*time.Minute, testLogger(t))

	if c.Ready() {
		t.Fatalf("expected not ready")
	}
	if c.Stale() {
		t.Fatalf("empty cache must not be stale")
	}
	if _, _, ok := c.Current(); ok {
		t.Fatalf("expected no snapshot")
	}

	if !c.Commit(context.Background(), snapAt(time.Now())) {
		t.Fatalf("expected commit to succeed")
	}
	if !c.Ready() {
		t.Fatalf("expected ready after commit")
	}
}

func TestCommitRejectsOlder(t *testing.T) {
	c := NewSnapshot(5*time.Minute, testLogger(t))
	now := time.Now()

	if !c.Commit(context.Background(), snapAt(now)) {
		t.Fatalf("first commit failed")
	}
	if c.Commit(context.Background(), snapAt(now.Add(-time.Minute))) {
		t.Fatalf("older snapshot must be rejected")
	}
	if c.Commit(context.Background(), snapAt(now)) {
		t.Fatalf("equal timestamp must be rejected")
	}
	if !c.Commit(context.Background(), snapAt(now.Add(time.Second))) {
		t.Fatalf("newer snapshot must be accepted")
	}

	snap, _, _ := c.Current()
	if !snap.RefreshedAt.Equal(now.Add(time.Second)) {
		t.Fatalf("unexpected current snapshot %v", snap.RefreshedAt)
	}
}

func TestCommitRejectsZero(t *testing.T) {
	c := NewSnapshot(5*time.Minute, testLogger(t))
	if c.Commit(context.Background(), nil) {
		t.Fatalf("nil snapshot must be rejected")
	}
	if c.Commit(context.Background(), snapAt(time.Time{})) {
		t.Fatalf("zero timestamp must be rejected")
	}
}

func TestStaleAfterTTL(t *testing.T) {
	c := NewSnapshot(100*time.Millisecond, testLogger(t))
	c.Commit(context.Background(), snapAt(time.Now()))

	if c.Stale() {
		t.Fatalf("fresh snapshot reported stale")
	}
	time.Sleep(150 * time.Millisecond)
	if !c.Stale() {
		t.Fatalf("expected stale after TTL")
	}
	// stale data still serves
	if _, _, ok := c.Current(); !ok {
		t.Fatalf("stale snapshot must still serve")
	}
	if !c.Ready() {
		t.Fatalf("readiness must not revert")
	}
}

func TestAgeGaugeTracksRealAge(t *testing.T) {
	spy := &spyMetrics{lastAge: -1}
	c := NewSnapshot(5*time.Minute, testLogger(t), WithMetrics(spy))

	c.ReportAge()
	if spy.lastAge != -1 {
		t.Fatalf("empty cache must not report an age")
	}

	// a warm-started snapshot is 90s old at commit and the gauge says so
	if !c.Commit(context.Background(), snapAt(time.Now().Add(-90*time.Second))) {
		t.Fatalf("commit failed")
	}
	if spy.lastAge < 89 || spy.lastAge > 95 {
		t.Fatalf("expected gauge near 90s at commit, got %v", spy.lastAge)
	}
	atCommit := spy.lastAge

	time.Sleep(20 * time.Millisecond)
	c.ReportAge()
	if spy.lastAge <= atCommit {
		t.Fatalf("expected gauge to keep growing, got %v after %v", spy.lastAge, atCommit)
	}
}

func TestAgeGrows(t *testing.T) {
	c := NewSnapshot(time.Minute, testLogger(t))
	c.Commit(context.Background(), snapAt(time.Now()))

	_, age1, _ := c.Current()
	time.Sleep(20 * time.Millisecond)
	_, age2, _ := c.Current()
	if age2 <= age1 {
		t.Fatalf("expected age to grow: %v then %v", age1, age2)
	}
}
