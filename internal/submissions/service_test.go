package submissions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/formloom/formloom/internal/domain"
	"github.com/formloom/formloom/internal/models"
	"github.com/formloom/formloom/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	return NewService(mem), mem
}

func seedForm(t *testing.T, mem *store.MemoryStore, f models.Form) models.Form {
	t.Helper()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
		f.UpdatedAt = f.CreatedAt
	}
	if err := mem.CreateForm(context.Background(), f); err != nil {
		t.Fatalf("seed form %q: %v", f.ID, err)
	}
	return f
}

func counter(t *testing.T, mem *store.MemoryStore, formID string) int64 {
	t.Helper()
	f, err := mem.GetForm(context.Background(), formID)
	if err != nil {
		t.Fatalf("get form %q: %v", formID, err)
	}
	return f.SubmissionCount
}

func TestIngest_AllowedOriginIncrementsCounter(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{
		ID: "form0001", UserID: "alice", Name: "contact",
		IsActive: true, AllowedOrigins: []string{"https://a.com"},
	})

	sub, form, err := svc.Ingest(context.Background(), IngestInput{
		FormID: "form0001",
		Data:   map[string]any{"email": "visitor@example.com"},
		Origin: "https://a.com",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if sub.ID == "" {
		t.Fatal("submission id not assigned")
	}
	if form.ID != "form0001" {
		t.Fatalf("returned form %q, want form0001", form.ID)
	}
	if got := counter(t, mem, "form0001"); got != 1 {
		t.Fatalf("counter = %d, want 1", got)
	}

	// Counter matches the live row count.
	rows, err := mem.CountSubmissions(context.Background(), "form0001")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("row count = %d, want 1", rows)
	}
}

func TestIngest_DisallowedOriginLeavesCounterAlone(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{
		ID: "form0001", UserID: "alice", Name: "contact",
		IsActive: true, AllowedOrigins: []string{"https://a.com"},
	})

	_, _, err := svc.Ingest(context.Background(), IngestInput{
		FormID: "form0001",
		Data:   map[string]any{"email": "visitor@example.com"},
		Origin: "https://b.com",
	})
	if !errors.Is(err, domain.ErrOriginNotAllowed) {
		t.Fatalf("expected ErrOriginNotAllowed, got %v", err)
	}
	if got := counter(t, mem, "form0001"); got != 0 {
		t.Fatalf("counter = %d, want 0", got)
	}
}

func TestIngest_ReferrerFallsBackForOrigin(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{
		ID: "form0001", UserID: "alice", Name: "contact",
		IsActive: true, AllowedOrigins: []string{"a.com"},
	})

	if _, _, err := svc.Ingest(context.Background(), IngestInput{
		FormID:   "form0001",
		Referrer: "https://a.com/landing",
	}); err != nil {
		t.Fatalf("ingest with referrer fallback: %v", err)
	}
}

func TestIngest_EmptyAllowListMeansUnrestricted(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: true})

	if _, _, err := svc.Ingest(context.Background(), IngestInput{
		FormID: "form0001",
		Origin: "https://anywhere.example",
	}); err != nil {
		t.Fatalf("ingest without allow-list: %v", err)
	}
}

func TestIngest_InactiveAndUnknownAreDistinctKinds(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: false})

	_, _, err := svc.Ingest(context.Background(), IngestInput{FormID: "form0001"})
	if !errors.Is(err, domain.ErrFormInactive) {
		t.Fatalf("expected ErrFormInactive, got %v", err)
	}

	_, _, err = svc.Ingest(context.Background(), IngestInput{FormID: "missing1"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func seedSubmissions(t *testing.T, mem *store.MemoryStore, formID string, n int, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		sub := models.Submission{
			ID:        fmt.Sprintf("sub-%02d", i),
			FormID:    formID,
			Data:      map[string]any{"seq": i, "email": fmt.Sprintf("user%d@example.com", i)},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := mem.InsertSubmission(context.Background(), sub); err != nil {
			t.Fatalf("seed submission %d: %v", i, err)
		}
	}
}

func TestList_PaginationMetadata(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: true})
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedSubmissions(t, mem, "form0001", 25, base)

	page, err := svc.List(context.Background(), "form0001", "alice", models.SubmissionQuery{Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.Total != 25 {
		t.Fatalf("total = %d, want 25", page.Pagination.Total)
	}
	if page.Pagination.TotalPages != 3 {
		t.Fatalf("totalPages = %d, want 3", page.Pagination.TotalPages)
	}
	if len(page.Submissions) != 10 {
		t.Fatalf("page size = %d, want 10", len(page.Submissions))
	}

	beyond, err := svc.List(context.Background(), "form0001", "alice", models.SubmissionQuery{Page: 4, Limit: 10})
	if err != nil {
		t.Fatalf("list beyond last page: %v", err)
	}
	if len(beyond.Submissions) != 0 {
		t.Fatalf("expected empty page, got %d rows", len(beyond.Submissions))
	}
}

func TestList_DateRangeInclusive(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: true})
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedSubmissions(t, mem, "form0001", 10, base)

	start := base.Add(2 * time.Hour) // sub-02
	end := base.Add(5 * time.Hour)   // sub-05
	page, err := svc.List(context.Background(), "form0001", "alice", models.SubmissionQuery{
		StartDate: &start, EndDate: &end,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.Total != 4 {
		t.Fatalf("total = %d, want 4 (bounds inclusive)", page.Pagination.Total)
	}
}

// Search filters only within the already-paginated page, and totals reflect
// the in-page match count. That is the documented behavior, not a bug.
func TestList_SearchIsInPageOnly(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: true})
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedSubmissions(t, mem, "form0001", 30, base)

	// Newest-first page 1 of 10 holds sub-29..sub-20; "user2" matches
	// user29@... down to user20@... within that page.
	page, err := svc.List(context.Background(), "form0001", "alice", models.SubmissionQuery{
		Page: 1, Limit: 10, Search: "USER2",
	})
	if err != nil {
		t.Fatalf("list with search: %v", err)
	}
	if len(page.Submissions) != 10 {
		t.Fatalf("in-page matches = %d, want 10", len(page.Submissions))
	}
	if page.Pagination.Total != 10 {
		t.Fatalf("total under search = %d, want in-page 10", page.Pagination.Total)
	}

	// sub-29 exists, but page 2 holds sub-19..sub-10, so searching for it
	// there finds nothing: the filter never leaves the page.
	page2, err := svc.List(context.Background(), "form0001", "alice", models.SubmissionQuery{
		Page: 2, Limit: 10, Search: "user29",
	})
	if err != nil {
		t.Fatalf("list page 2 with search: %v", err)
	}
	if len(page2.Submissions) != 0 {
		t.Fatalf("expected no matches on page 2, got %d", len(page2.Submissions))
	}
	if page2.Pagination.Total != 0 {
		t.Fatalf("total = %d, want 0", page2.Pagination.Total)
	}
}

func TestList_OwnershipSemantics(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: true})

	if _, err := svc.List(context.Background(), "form0001", "mallory", models.SubmissionQuery{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.List(context.Background(), "missing1", "alice", models.SubmissionQuery{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_ScopedToForm(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: true})
	seedForm(t, mem, models.Form{ID: "form0002", UserID: "alice", Name: "other", IsActive: true})
	seedSubmissions(t, mem, "form0001", 1, time.Now().UTC())

	if _, err := svc.Get(context.Background(), "form0001", "sub-00", "alice"); err != nil {
		t.Fatalf("get: %v", err)
	}

	// Same submission id through the wrong form id must not resolve.
	if _, err := svc.Get(context.Background(), "form0002", "sub-00", "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across forms, got %v", err)
	}
}

func TestDelete_DecrementsCounter(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: true})
	seedSubmissions(t, mem, "form0001", 3, time.Now().UTC())

	if got := counter(t, mem, "form0001"); got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}

	if err := svc.Delete(context.Background(), "form0001", "sub-01", "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got := counter(t, mem, "form0001"); got != 2 {
		t.Fatalf("counter = %d, want 2", got)
	}
	rows, _ := mem.CountSubmissions(context.Background(), "form0001")
	if rows != 2 {
		t.Fatalf("row count = %d, want 2", rows)
	}

	if err := svc.Delete(context.Background(), "form0001", "sub-01", "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestForExport_NewestFirstWithDateFilter(t *testing.T) {
	svc, mem := newTestService(t)
	seedForm(t, mem, models.Form{ID: "form0001", UserID: "alice", Name: "contact", IsActive: true})
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedSubmissions(t, mem, "form0001", 5, base)

	start := base.Add(1 * time.Hour)
	subs, err := svc.ForExport(context.Background(), "form0001", "alice", &start, nil)
	if err != nil {
		t.Fatalf("forExport: %v", err)
	}
	if len(subs) != 4 {
		t.Fatalf("exported %d submissions, want 4", len(subs))
	}
	if subs[0].ID != "sub-04" {
		t.Fatalf("expected newest first, got %q", subs[0].ID)
	}

	if _, err := svc.ForExport(context.Background(), "form0001", "mallory", nil, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
