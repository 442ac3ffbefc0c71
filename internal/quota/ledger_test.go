package quota

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordAndStatus(t *testing.T) {
	l := New(100, 0, "UTC")
	l.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	l.periodStart = l.periodStartFor(l.now())

	l.Record(30)
	l.Record(20)

	st := l.Status()
	if st.Used != 50 {
		t.Fatalf("Used = %d, want 50", st.Used)
	}
	if st.Remaining != 50 {
		t.Fatalf("Remaining = %d, want 50", st.Remaining)
	}
	if !st.CanAfford(50) {
		t.Fatal("CanAfford(50) = false, want true")
	}
	if st.CanAfford(51) {
		t.Fatal("CanAfford(51) = true, want false")
	}
}

func TestLazyResetAfterBoundary(t *testing.T) {
	l := New(100, 0, "UTC")
	l.now = fixedClock(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC))
	l.periodStart = l.periodStartFor(l.now())

	l.Record(100)
	if st := l.Status(); st.Remaining != 0 {
		t.Fatalf("Remaining = %d, want 0", st.Remaining)
	}

	// Cross the boundary without touching the ledger in between: Status
	// alone must report a fresh budget.
	l.now = fixedClock(time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC))
	st := l.Status()
	if st.Used != 0 {
		t.Fatalf("Used after reset = %d, want 0", st.Used)
	}
	if st.Remaining != 100 {
		t.Fatalf("Remaining after reset = %d, want 100", st.Remaining)
	}
}

func TestResetHourRespected(t *testing.T) {
	// Reset at 08:00; 07:59 still belongs to the previous period.
	l := New(10, 8, "UTC")
	l.now = fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	l.periodStart = l.periodStartFor(l.now())
	l.Record(10)

	l.now = fixedClock(time.Date(2026, 3, 2, 7, 59, 0, 0, time.UTC))
	if st := l.Status(); st.Used != 10 {
		t.Fatalf("Used before boundary = %d, want 10", st.Used)
	}

	l.now = fixedClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	if st := l.Status(); st.Used != 0 {
		t.Fatalf("Used at boundary = %d, want 0", st.Used)
	}
}

func TestResetAtReported(t *testing.T) {
	l := New(10, 0, "UTC")
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	l.now = fixedClock(now)
	l.periodStart = l.periodStartFor(now)

	st := l.Status()
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !st.ResetAt.Equal(want) {
		t.Fatalf("ResetAt = %s, want %s", st.ResetAt, want)
	}
}

func TestRecordIgnoresNonPositiveCost(t *testing.T) {
	l := New(10, 0, "UTC")
	l.Record(0)
	l.Record(-5)
	if st := l.Status(); st.Used != 0 {
		t.Fatalf("Used = %d, want 0", st.Used)
	}
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	l := New(10, 0, "Not/AZone")
	if l.loc != time.UTC {
		t.Fatalf("loc = %v, want UTC", l.loc)
	}
}
