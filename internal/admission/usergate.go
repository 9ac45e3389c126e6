package admission

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"
)

const gateShards = 64

type gateEntry struct {
	active    bool // a job is currently running for this user
	busyUntil time.Time
}

type gateShard struct {
	mu      sync.Mutex
	entries map[int64]gateEntry
}

// UserGates serialises jobs per user: at most one active job, followed by a
// cooldown that starts when the job completes. The table is sharded by user
// id so unrelated users never contend on one lock, and the shard count is
// fixed so the lock table itself cannot grow.
type UserGates struct {
	cooldown time.Duration
	shards   [gateShards]gateShard
}

// NewUserGates builds the gate table for the given cooldown window.
func NewUserGates(cooldown time.Duration) *UserGates {
	g := &UserGates{cooldown: cooldown}
	for i := range g.shards {
		g.shards[i].entries = make(map[int64]gateEntry)
	}
	return g
}

func (g *UserGates) shard(user int64) *gateShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(user, 10)))
	return &g.shards[h.Sum32()%gateShards]
}

// Acquire attempts to take the user's gate. On rejection it reports the
// remaining wait. The read-modify-write is a single critical section per
// shard, never a global lock.
func (g *UserGates) Acquire(user int64) (time.Duration, bool) {
	now := time.Now()
	s := g.shard(user)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	e, ok := s.entries[user]
	if ok {
		if e.active {
			// Job still running; the final cooldown is only known at
			// completion, so report the nominal window as the estimate.
			// The wait must stay positive even with a zero cooldown, or
			// the caller would tell the user to retry in zero seconds.
			wait := e.busyUntil.Sub(now)
			if wait <= 0 {
				wait = g.cooldown
			}
			if wait <= 0 {
				wait = time.Second
			}
			return wait, false
		}
		if now.Before(e.busyUntil) {
			return e.busyUntil.Sub(now), false
		}
	}

	s.entries[user] = gateEntry{active: true, busyUntil: now.Add(g.cooldown)}
	return 0, true
}

// Release ends the user's active job and restarts the cooldown from now:
// the busy window is appended after the job, not measured from its start.
func (g *UserGates) Release(user int64) {
	now := time.Now()
	s := g.shard(user)
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.cooldown <= 0 {
		delete(s.entries, user)
		return
	}
	s.entries[user] = gateEntry{active: false, busyUntil: now.Add(g.cooldown)}
}

// Cancel undoes an Acquire whose job never started (for example when the
// caller gave up waiting for a concurrency slot). No cooldown is charged.
func (g *UserGates) Cancel(user int64) {
	s := g.shard(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, user)
}

// sweepLocked drops expired inactive entries from one shard. Called under
// the shard lock on every acquire, so per-shard memory stays bounded by
// the users active inside one cooldown window.
func (s *gateShard) sweepLocked(now time.Time) {
	for user, e := range s.entries {
		if !e.active && now.After(e.busyUntil) {
			delete(s.entries, user)
		}
	}
}
