package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestGate(permits int, timeout time.Duration) *Gate {
	return New(permits, timeout, zerolog.Nop())
}

func TestAcquireRelease(t *testing.T) {
	g := newTestGate(1, time.Second)

	p, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if g.InFlight() != 1 {
		t.Fatalf("InFlight = %d, want 1", g.InFlight())
	}

	g.Release(p)
	if g.InFlight() != 0 {
		t.Fatalf("InFlight after release = %d, want 0", g.InFlight())
	}
}

func TestDoubleReleaseIsNoOp(t *testing.T) {
	g := newTestGate(1, time.Second)

	p, _ := g.Acquire(context.Background())

	// Second caller queues behind the holder.
	granted := make(chan *Permit, 1)
	go func() {
		p2, err := g.Acquire(context.Background())
		if err == nil {
			granted <- p2
		}
	}()

	time.Sleep(20 * time.Millisecond)
	g.Release(p)
	g.Release(p)

	select {
	case <-granted:
	case <-time.After(time.Second):
		t.Fatal("queued caller was never granted")
	}

	// The double release must not have produced an extra free slot.
	if got := g.InFlight(); got != 1 {
		t.Fatalf("InFlight = %d, want 1", got)
	}
}

func TestWaitersGrantedInArrivalOrder(t *testing.T) {
	g := newTestGate(1, 5*time.Second)
	holder, _ := g.Acquire(context.Background())

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	release := make(chan *Permit, 3)

	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("waiter %d: %v", n, err)
				return
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			release <- p
		}(i)
		// Stagger arrivals so queue order is deterministic.
		time.Sleep(30 * time.Millisecond)
	}

	g.Release(holder)
	for i := 0; i < 3; i++ {
		g.Release(<-release)
	}
	wg.Wait()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("grant order = %v, want [1 2 3]", order)
	}
}

func TestForceRecoveryOnTimeout(t *testing.T) {
	g := newTestGate(1, 50*time.Millisecond)

	stuck, _ := g.Acquire(context.Background())

	start := time.Now()
	p, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after timeout returned error: %v", err)
	}
	if waited := time.Since(start); waited < 50*time.Millisecond {
		t.Fatalf("force recovery fired too early after %s", waited)
	}

	// The reclaimed holder's release is stale and must not free the slot.
	g.Release(stuck)
	if got := g.InFlight(); got != 1 {
		t.Fatalf("InFlight after stale release = %d, want 1", got)
	}

	g.Release(p)
	if got := g.InFlight(); got != 0 {
		t.Fatalf("InFlight = %d, want 0", got)
	}
}

func TestAcquireHonorsContextCancel(t *testing.T) {
	g := newTestGate(1, 5*time.Second)
	holder, _ := g.Acquire(context.Background())
	defer g.Release(holder)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.Acquire(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Acquire error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Acquire never returned")
	}

	// The abandoned waiter must no longer be in the queue.
	g.mu.Lock()
	waiters := len(g.waiters)
	g.mu.Unlock()
	if waiters != 0 {
		t.Fatalf("waiters = %d, want 0", waiters)
	}
}

func TestMultiplePermits(t *testing.T) {
	g := newTestGate(2, time.Second)

	p1, _ := g.Acquire(context.Background())
	p2, _ := g.Acquire(context.Background())
	if g.InFlight() != 2 {
		t.Fatalf("InFlight = %d, want 2", g.InFlight())
	}

	blocked := make(chan struct{})
	go func() {
		p3, err := g.Acquire(context.Background())
		if err == nil {
			close(blocked)
			g.Release(p3)
		}
	}()

	select {
	case <-blocked:
		t.Fatal("third caller should have queued")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release(p1)
	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("third caller never granted after release")
	}
	g.Release(p2)
}
