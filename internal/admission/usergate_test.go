package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserGatesAcquireRelease(t *testing.T) {
	g := NewUserGates(50 * time.Millisecond)

	_, ok := g.Acquire(1)
	assert.True(t, ok)

	// Second acquire while the job is active is refused.
	wait, ok := g.Acquire(1)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	// The cooldown runs from completion, not from the acquire.
	time.Sleep(60 * time.Millisecond)
	g.Release(1)
	_, ok = g.Acquire(1)
	assert.False(t, ok, "still cooling down after release")

	time.Sleep(60 * time.Millisecond)
	_, ok = g.Acquire(1)
	assert.True(t, ok)
}

func TestUserGatesActiveBlocksPastWindow(t *testing.T) {
	g := NewUserGates(10 * time.Millisecond)

	_, ok := g.Acquire(1)
	assert.True(t, ok)

	// Even long past the nominal window an unfinished job keeps the gate:
	// one job per user, however slow.
	time.Sleep(30 * time.Millisecond)
	wait, ok := g.Acquire(1)
	assert.False(t, ok)
	assert.Equal(t, 10*time.Millisecond, wait)
}

func TestUserGatesCancelChargesNothing(t *testing.T) {
	g := NewUserGates(time.Minute)

	_, ok := g.Acquire(1)
	assert.True(t, ok)
	g.Cancel(1)

	_, ok = g.Acquire(1)
	assert.True(t, ok, "cancel must not leave a cooldown behind")
}

func TestUserGatesZeroCooldown(t *testing.T) {
	g := NewUserGates(0)

	_, ok := g.Acquire(1)
	assert.True(t, ok)
	g.Release(1)

	_, ok = g.Acquire(1)
	assert.True(t, ok)
}

func TestUserGatesZeroCooldownActiveStillWaits(t *testing.T) {
	g := NewUserGates(0)

	_, ok := g.Acquire(1)
	assert.True(t, ok)

	// No cooldown does not mean no wait while the job itself is running;
	// the reported estimate must never be zero.
	wait, ok := g.Acquire(1)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
}

func TestUserGatesSweepDropsExpired(t *testing.T) {
	g := NewUserGates(time.Millisecond)

	for user := int64(0); user < 100; user++ {
		_, ok := g.Acquire(user)
		assert.True(t, ok)
		g.Release(user)
	}
	time.Sleep(10 * time.Millisecond)

	// Any acquire sweeps its shard; touch every shard once.
	for user := int64(0); user < 100; user++ {
		_, ok := g.Acquire(user)
		assert.True(t, ok)
		g.Cancel(user)
	}

	total := 0
	for i := range g.shards {
		g.shards[i].mu.Lock()
		total += len(g.shards[i].entries)
		g.shards[i].mu.Unlock()
	}
	assert.Zero(t, total)
}
