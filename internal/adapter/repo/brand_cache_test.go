package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"server/internal/domain"
)

type countingBrandRepo struct {
	calls  int
	brands map[string]*domain.Brand
}

func (r *countingBrandRepo) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	r.calls++
	b, ok := r.brands[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (r *countingBrandRepo) ListActive(ctx context.Context) ([]*domain.Brand, error) {
	r.calls++
	out := make([]*domain.Brand, 0, len(r.brands))
	for _, b := range r.brands {
		out = append(out, b)
	}
	return out, nil
}

func TestBrandCacheServesFreshEntries(t *testing.T) {
	inner := &countingBrandRepo{brands: map[string]*domain.Brand{
		"acme": {ID: "acme", Name: "Acme", SlotOffset: 1, Active: true},
	}}
	cache := NewBrandCache(inner, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		b, err := cache.GetByID(context.Background(), "acme")
		if err != nil {
			t.Fatalf("GetByID returned error: %v", err)
		}
		if b.SlotOffset != 1 {
			t.Fatalf("SlotOffset = %d, want 1", b.SlotOffset)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
}

func TestBrandCacheExpires(t *testing.T) {
	inner := &countingBrandRepo{brands: map[string]*domain.Brand{
		"acme": {ID: "acme", Name: "Acme"},
	}}
	cache := NewBrandCache(inner, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if _, err := cache.GetByID(context.Background(), "acme"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.GetByID(context.Background(), "acme"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2", inner.calls)
	}
}

func TestBrandCacheDoesNotCacheMisses(t *testing.T) {
	inner := &countingBrandRepo{brands: map[string]*domain.Brand{}}
	cache := NewBrandCache(inner, time.Minute)

	if _, err := cache.GetByID(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	inner.brands["ghost"] = &domain.Brand{ID: "ghost"}
	if _, err := cache.GetByID(context.Background(), "ghost"); err != nil {
		t.Fatalf("newly added brand not visible: %v", err)
	}
}
