// Package throttle converts the operator's gentleness knob into randomized
// inter-request delays.
//
// Mapping: base = gentleness/100 * 10s, and each draw is base scaled by a
// uniform jitter in [0.5, 1.5). Gentleness 0 disables the delay entirely,
// 100 averages ten seconds between page loads. Linear in gentleness, so
// higher is always slower in expectation.
package throttle

import (
	"context"
	"math/rand"
	"time"
)

const fullDelay = 10 * time.Second // average delay at gentleness 100

type Policy struct {
	gentleness int
	rng        *rand.Rand
}

// New builds a policy for a gentleness value in [0,100]. Values outside
// the range are the config layer's problem; New clamps defensively.
func New(gentleness int) *Policy {
	return newSeeded(gentleness, rand.NewSource(time.Now().UnixNano()))
}

func newSeeded(gentleness int, src rand.Source) *Policy {
	if gentleness < 0 {
		gentleness = 0
	}
	if gentleness > 100 {
		gentleness = 100
	}
	return &Policy{gentleness: gentleness, rng: rand.New(src)}
}

// Duration draws the next delay. Each draw is independent.
func (p *Policy) Duration() time.Duration {
	if p.gentleness <= 0 {
		return 0
	}
	base := float64(fullDelay) * float64(p.gentleness) / 100
	jitter := 0.5 + p.rng.Float64()
	return time.Duration(base * jitter)
}

// Wait sleeps for d or until ctx is cancelled.
func (p *Policy) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay draws a duration and sleeps it off; the drawn value is returned
// so callers can report what they waited.
func (p *Policy) Delay(ctx context.Context) (time.Duration, error) {
	d := p.Duration()
	return d, p.Wait(ctx, d)
}
