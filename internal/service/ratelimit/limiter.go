package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer is a token bucket that spaces upstream calls. Wait blocks until a
// token is available or the context ends. SlowDown halves the refill rate
// for the remainder of the cycle after an upstream rate-limit signal;
// Reset restores the configured rate at cycle start.
type Pacer struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	baseRate   float64
	minRate    float64
	last       time.Time
}

// NewPacer creates a pacer with the given sustained rate and burst capacity.
func NewPacer(perSec float64, burst int) *Pacer {
	if perSec <= 0 {
		perSec = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{
		tokens:     float64(burst),
		capacity:   float64(burst),
		refillRate: perSec,
		baseRate:   perSec,
		minRate:    perSec / 8,
		last:       time.Now(),
	}
}

// Wait consumes one token, sleeping until one accrues.
func (p *Pacer) Wait(ctx context.Context) error {
	for {
		p.mu.Lock()
		p.refill(time.Now())
		if p.tokens >= 1 {
			p.tokens--
			p.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - p.tokens) / p.refillRate * float64(time.Second))
		p.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SlowDown halves the refill rate, bounded below so progress continues.
func (p *Pacer) SlowDown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refillRate /= 2
	if p.refillRate < p.minRate {
		p.refillRate = p.minRate
	}
}

// Reset restores the configured rate and empties accumulated burst beyond
// capacity.
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refillRate = p.baseRate
	if p.tokens > p.capacity {
		p.tokens = p.capacity
	}
}

// Rate returns the current refill rate in tokens per second.
func (p *Pacer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refillRate
}

func (p *Pacer) refill(now time.Time) {
	elapsed := now.Sub(p.last).Seconds()
	if elapsed > 0 {
		p.tokens += elapsed * p.refillRate
		if p.tokens > p.capacity {
			p.tokens = p.capacity
		}
		p.last = now
	}
}
