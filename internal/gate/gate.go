// Package gate serializes access to the external image-generation provider.
// The provider enforces a global small-N concurrency limit, so every render
// round trip must pass through one process-wide Gate.
package gate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultPermits     = 1
	DefaultWaitTimeout = 3 * time.Minute
)

// Permit is proof of admission. It is single-use: releasing it twice, or
// releasing it after the gate force-recovered it from a stuck holder, is a
// harmless no-op.
type Permit struct {
	seq uint64
}

// Gate grants up to N concurrent permits, queueing further callers in
// arrival order. A caller whose wait exceeds the timeout assumes the oldest
// holder is stuck on a dead provider call and forcibly reclaims its permit,
// trading strict mutual exclusion for forward progress.
type Gate struct {
	mu       sync.Mutex
	permits  int
	inFlight map[uint64]struct{}
	seq      uint64
	waiters  []chan uint64
	timeout  time.Duration
	logger   zerolog.Logger
}

// New creates a Gate with the given permit count and wait timeout. Values
// below the minimum fall back to the defaults.
func New(permits int, waitTimeout time.Duration, logger zerolog.Logger) *Gate {
	if permits < 1 {
		permits = DefaultPermits
	}
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Gate{
		permits:  permits,
		inFlight: make(map[uint64]struct{}, permits),
		timeout:  waitTimeout,
		logger:   logger,
	}
}

// Acquire blocks until a permit is free, the context is cancelled, or the
// configured wait timeout elapses. On timeout the gate force-recovers: the
// oldest outstanding permit is invalidated and its slot handed to this
// caller, so one hung provider call can never starve the pipeline.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	g.mu.Lock()
	if len(g.inFlight) < g.permits {
		p := g.grantLocked()
		g.mu.Unlock()
		return p, nil
	}

	ch := make(chan uint64, 1)
	g.waiters = append(g.waiters, ch)
	g.mu.Unlock()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case seq := <-ch:
		return &Permit{seq: seq}, nil
	case <-ctx.Done():
		g.abandon(ch)
		return nil, ctx.Err()
	case <-timer.C:
		return g.forceRecover(ch)
	}
}

// Release frees the permit. Stale permits (already released, or invalidated
// by force recovery) are ignored so double release cannot grant a spurious
// extra slot.
func (g *Gate) Release(p *Permit) {
	if p == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inFlight[p.seq]; !ok {
		return
	}
	delete(g.inFlight, p.seq)
	g.wakeLocked()
}

// InFlight returns the number of permits currently outstanding.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}

// grantLocked registers a fresh permit. Caller holds g.mu.
func (g *Gate) grantLocked() *Permit {
	g.seq++
	g.inFlight[g.seq] = struct{}{}
	return &Permit{seq: g.seq}
}

// wakeLocked hands the freed slot to the first waiter, if any. Caller holds g.mu.
func (g *Gate) wakeLocked() {
	if len(g.waiters) == 0 || len(g.inFlight) >= g.permits {
		return
	}
	ch := g.waiters[0]
	g.waiters = g.waiters[1:]
	p := g.grantLocked()
	ch <- p.seq
}

// abandon removes a cancelled waiter from the queue. If a grant raced in
// through its channel, the slot is returned to the pool.
func (g *Gate) abandon(ch chan uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, w := range g.waiters {
		if w == ch {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			return
		}
	}
	select {
	case seq := <-ch:
		delete(g.inFlight, seq)
		g.wakeLocked()
	default:
	}
}

// forceRecover invalidates the oldest outstanding permit and grants its slot
// to the timed-out waiter. The previous holder's eventual Release becomes a
// no-op because its sequence number is no longer in flight.
func (g *Gate) forceRecover(ch chan uint64) (*Permit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// A grant may have raced in just before the timer fired.
	select {
	case seq := <-ch:
		return &Permit{seq: seq}, nil
	default:
	}

	for i, w := range g.waiters {
		if w == ch {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			break
		}
	}

	var oldest uint64
	for seq := range g.inFlight {
		if oldest == 0 || seq < oldest {
			oldest = seq
		}
	}
	if oldest != 0 {
		delete(g.inFlight, oldest)
		g.logger.Warn().
			Uint64("reclaimed_permit", oldest).
			Dur("waited", g.timeout).
			Msg("generation gate: holder presumed stuck, permit reclaimed")
	}

	return g.grantLocked(), nil
}
