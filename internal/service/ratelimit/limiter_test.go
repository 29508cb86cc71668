package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacerBurst(t *testing.T) {
	p := NewPacer(100, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("burst should not block, took %v", elapsed)
	}
}

func TestPacerSlowDownAndReset(t *testing.T) {
	p := NewPacer(8, 1)

	p.SlowDown()
	if got := p.Rate(); got != 4 {
		t.Fatalf("expected rate 4, got %v", got)
	}
	p.SlowDown()
	p.SlowDown()
	p.SlowDown()
	p.SlowDown()
	if got := p.Rate(); got != 1 {
		t.Fatalf("expected floor rate 1, got %v", got)
	}

	p.Reset()
	if got := p.Rate(); got != 8 {
		t.Fatalf("expected base rate 8, got %v", got)
	}
}

func TestPacerWaitCancel(t *testing.T) {
	p := NewPacer(0.001, 1)
	ctx := context.Background()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := p.Wait(cctx); err == nil {
		t.Fatalf("expected context error")
	}
}
