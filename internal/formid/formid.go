// Package formid allocates the short public identifiers that name form
// endpoints.
package formid

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/formloom/formloom/internal/domain"
)

// length of a public form identifier. Eight characters over the default
// 64-symbol alphabet give 64^8 ≈ 2.8e14 possible ids.
const length = 8

// maxAttempts bounds the retry loop. The id space makes even one collision
// unlikely; hitting the ceiling indicates something badly wrong, not bad luck.
const maxAttempts = 32

// Registry is the subset of the store the allocator needs. Taken probes the
// allocation registry, which keeps ids of deleted forms so they are never
// reused. The probe is an optimization only: the registry's uniqueness
// constraint is what actually prevents two racing allocations from both
// succeeding.
type Registry interface {
	FormIDTaken(ctx context.Context, id string) (bool, error)
}

// Allocator produces collision-free public form identifiers.
type Allocator struct {
	registry Registry

	// generate is swappable in tests to force collisions.
	generate func() (string, error)
}

// NewAllocator returns an allocator backed by the given registry.
func NewAllocator(registry Registry) *Allocator {
	return &Allocator{
		registry: registry,
		generate: func() (string, error) { return gonanoid.New(length) },
	}
}

// Allocate returns a fresh identifier not present in the registry. After
// maxAttempts collisions it gives up with domain.ErrValidation rather than
// loop unboundedly.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		id, err := a.generate()
		if err != nil {
			return "", err
		}
		taken, err := a.registry.FormIDTaken(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("form id allocation exhausted after %d attempts: %w", maxAttempts, domain.ErrValidation)
}
