package formid

import (
	"context"
	"errors"
	"testing"

	"github.com/formloom/formloom/internal/domain"
)

// fakeRegistry marks a fixed set of ids as taken.
type fakeRegistry struct {
	taken map[string]bool
}

func (f *fakeRegistry) FormIDTaken(_ context.Context, id string) (bool, error) {
	return f.taken[id], nil
}

func TestAllocate_ReturnsEightCharID(t *testing.T) {
	a := NewAllocator(&fakeRegistry{taken: map[string]bool{}})

	id, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(id) != 8 {
		t.Fatalf("expected 8-char id, got %q", id)
	}
}

// The allocator must skip ids already present in the registry.
func TestAllocate_RetriesOnCollision(t *testing.T) {
	a := NewAllocator(&fakeRegistry{taken: map[string]bool{"collided": true}})

	calls := 0
	a.generate = func() (string, error) {
		calls++
		if calls == 1 {
			return "collided", nil
		}
		return "freshone", nil
	}

	id, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if id != "freshone" {
		t.Fatalf("expected the second candidate, got %q", id)
	}
	if calls != 2 {
		t.Fatalf("expected 2 generate calls, got %d", calls)
	}
}

// Exhausting the retry ceiling must surface a validation error, never loop.
func TestAllocate_FailsAfterRetryCeiling(t *testing.T) {
	a := NewAllocator(&fakeRegistry{taken: map[string]bool{"stuck": true}})
	a.generate = func() (string, error) { return "stuck", nil }

	_, err := a.Allocate(context.Background())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// Distinct allocations never hand out the same id once one is registered.
func TestAllocate_NeverReturnsTakenID(t *testing.T) {
	reg := &fakeRegistry{taken: map[string]bool{}}
	a := NewAllocator(reg)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := a.Allocate(context.Background())
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("id %q allocated twice", id)
		}
		seen[id] = true
		reg.taken[id] = true
	}
}
