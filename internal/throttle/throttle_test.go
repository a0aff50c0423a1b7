package throttle

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationNonNegative(t *testing.T) {
	for _, g := range []int{0, 1, 10, 50, 100} {
		p := newSeeded(g, rand.NewSource(1))
		for i := 0; i < 100; i++ {
			assert.GreaterOrEqual(t, p.Duration(), time.Duration(0), "gentleness=%d", g)
		}
	}
}

func TestZeroGentlenessNeverSleeps(t *testing.T) {
	p := newSeeded(0, rand.NewSource(1))
	for i := 0; i < 10; i++ {
		assert.Zero(t, p.Duration())
	}
}

func TestDurationWithinJitterBounds(t *testing.T) {
	p := newSeeded(50, rand.NewSource(7))
	base := 5 * time.Second
	for i := 0; i < 1000; i++ {
		d := p.Duration()
		assert.GreaterOrEqual(t, d, base/2)
		assert.Less(t, d, base*3/2)
	}
}

func TestMonotonicInExpectation(t *testing.T) {
	mean := func(g int) time.Duration {
		p := newSeeded(g, rand.NewSource(42))
		var sum time.Duration
		const n = 2000
		for i := 0; i < n; i++ {
			sum += p.Duration()
		}
		return sum / n
	}
	prev := mean(0)
	for _, g := range []int{10, 25, 50, 75, 100} {
		m := mean(g)
		assert.Greater(t, m, prev, "gentleness=%d", g)
		prev = m
	}
}

func TestClamping(t *testing.T) {
	assert.Zero(t, newSeeded(-5, rand.NewSource(1)).Duration())
	d := newSeeded(250, rand.NewSource(1)).Duration()
	assert.LessOrEqual(t, d, 15*time.Second)
}

func TestWaitCancellable(t *testing.T) {
	p := newSeeded(100, rand.NewSource(1))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := p.Wait(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}
