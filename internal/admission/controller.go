// Package admission gates inbound media requests before they may reach the
// transcode executor: group and message deduplication, a declared-size
// ceiling, per-user serialisation with cooldown, and a global concurrency
// cap. A request passes all gates or is rejected by the first failing one,
// with no side effects from later gates.
package admission

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"

	"rondo/internal/model"
)

var (
	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rondo",
		Name:      "admission_rejections_total",
		Help:      "Requests rejected before transcoding, by reason",
	}, []string{"reason"})

	admittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rondo",
		Name:      "admission_admitted_total",
		Help:      "Requests that passed all admission gates",
	})

	activePermits = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rondo",
		Name:      "admission_active_permits",
		Help:      "Concurrency permits currently held",
	})
)

// Reason classifies an admission rejection.
type Reason string

const (
	ReasonDuplicate      Reason = "duplicate"
	ReasonDuplicateGroup Reason = "duplicate-group"
	ReasonSizeLimit      Reason = "size-limit"
	ReasonRateLimited    Reason = "rate-limited"
	ReasonNoCapacity     Reason = "no-capacity"
)

// Rejection explains why a request was not admitted. Silent rejections
// (idempotent retries of an already-handled message) must not be reported
// back to the user.
type Rejection struct {
	Reason Reason
	Wait   time.Duration // only set for rate-limited
	Silent bool
}

// Permit represents a held concurrency slot plus the user's gate. Close
// releases both exactly once and is safe on every exit path.
type Permit struct {
	once    sync.Once
	release func()
}

// Close releases the permit. Idempotent.
func (p *Permit) Close() {
	p.once.Do(p.release)
}

// Config holds the admission gate parameters.
type Config struct {
	Concurrency     int
	UserCooldown    time.Duration
	MaxDeclaredSize int64 // bytes; <= 0 disables the declared-size gate
	MessageTTL      time.Duration
	GroupTTL        time.Duration
}

// Controller implements the permit-then-run contract.
type Controller struct {
	cfg    Config
	dedupe *DedupeStore
	gates  *UserGates
	sem    *semaphore.Weighted
}

// New builds a controller. Zero TTLs get the standard windows.
func New(cfg Config) (*Controller, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MessageTTL <= 0 {
		cfg.MessageTTL = 180 * time.Second
	}
	if cfg.GroupTTL <= 0 {
		cfg.GroupTTL = 300 * time.Second
	}
	dedupe, err := NewDedupeStore()
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:    cfg,
		dedupe: dedupe,
		gates:  NewUserGates(cfg.UserCooldown),
		sem:    semaphore.NewWeighted(int64(cfg.Concurrency)),
	}, nil
}

// Close releases the controller's resources.
func (c *Controller) Close() error { return c.dedupe.Close() }

// Admit runs the gate sequence, suspending on the global concurrency cap
// until a slot frees up or ctx is cancelled.
func (c *Controller) Admit(ctx context.Context, req model.Request) (*Permit, *Rejection) {
	return c.admit(ctx, req, true)
}

// TryAdmit is the non-blocking variant: a full concurrency cap yields an
// immediate no-capacity rejection instead of suspending.
func (c *Controller) TryAdmit(req model.Request) (*Permit, *Rejection) {
	return c.admit(context.Background(), req, false)
}

func (c *Controller) admit(ctx context.Context, req model.Request, block bool) (*Permit, *Rejection) {
	// 1. Group dedupe: within one album burst only the first item wins.
	if req.MediaGroupID != "" {
		if !c.dedupe.FirstSeen(groupKey(req.MediaGroupID), c.cfg.GroupTTL) {
			return nil, c.reject(Rejection{Reason: ReasonDuplicateGroup})
		}
	}

	// 2. Message dedupe: idempotent redelivery of the same inbound event is
	// treated as already handled, not as an error.
	if !c.dedupe.FirstSeen(messageKey(req.ChatID, req.MessageID), c.cfg.MessageTTL) {
		return nil, c.reject(Rejection{Reason: ReasonDuplicate, Silent: true})
	}

	// 3. Declared-size ceiling.
	if c.cfg.MaxDeclaredSize > 0 && req.DeclaredSize > c.cfg.MaxDeclaredSize {
		return nil, c.reject(Rejection{Reason: ReasonSizeLimit})
	}

	// 4. Per-user gate.
	if wait, ok := c.gates.Acquire(req.UserID); !ok {
		return nil, c.reject(Rejection{Reason: ReasonRateLimited, Wait: wait})
	}

	// 5. Global concurrency. A caller that gives up here must hand the
	// user's gate back before leaving, without charging a cooldown.
	if block {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			c.gates.Cancel(req.UserID)
			return nil, c.reject(Rejection{Reason: ReasonNoCapacity})
		}
	} else if !c.sem.TryAcquire(1) {
		c.gates.Cancel(req.UserID)
		return nil, c.reject(Rejection{Reason: ReasonNoCapacity})
	}

	admittedTotal.Inc()
	activePermits.Inc()
	userID := req.UserID
	return &Permit{release: func() {
		c.sem.Release(1)
		c.gates.Release(userID)
		activePermits.Dec()
	}}, nil
}

func (c *Controller) reject(r Rejection) *Rejection {
	rejectionsTotal.WithLabelValues(string(r.Reason)).Inc()
	return &r
}
