// Package forms owns the form lifecycle: ownership-scoped CRUD plus the
// public lookup that backs the ingestion path.
package forms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formloom/formloom/internal/domain"
	"github.com/formloom/formloom/internal/formid"
	"github.com/formloom/formloom/internal/models"
)

// recentLimit is how many submissions Get attaches for dashboard display.
const recentLimit = 5

// createAttempts bounds retries when a freshly allocated id loses the
// insert race. The registry constraint reports the loss as a conflict.
const createAttempts = 3

// Store is the persistence surface the form manager needs.
type Store interface {
	CreateForm(ctx context.Context, f models.Form) error
	GetForm(ctx context.Context, id string) (models.Form, error)
	ListForms(ctx context.Context, userID string, q models.FormListQuery) ([]models.Form, int64, error)
	UpdateForm(ctx context.Context, f models.Form) error
	DeleteForm(ctx context.Context, id string) error
	RecentSubmissions(ctx context.Context, formID string, n int) ([]models.Submission, error)
}

// Service is the form manager.
type Service struct {
	store Store
	ids   *formid.Allocator
}

// NewService wires the form manager to its store and identifier allocator.
func NewService(store Store, ids *formid.Allocator) *Service {
	return &Service{store: store, ids: ids}
}

// Create allocates an identifier and persists a new active form with a zero
// submission counter. Optional fields default to empty; a nil origin list
// means no restriction.
func (s *Service) Create(ctx context.Context, in models.FormCreate) (models.Form, error) {
	var lastErr error
	for i := 0; i < createAttempts; i++ {
		id, err := s.ids.Allocate(ctx)
		if err != nil {
			return models.Form{}, err
		}

		now := time.Now().UTC()
		f := models.Form{
			ID:                id,
			UserID:            in.UserID,
			Name:              in.Name,
			Description:       in.Description,
			RedirectURL:       in.RedirectURL,
			NotificationEmail: in.NotificationEmail,
			AllowedOrigins:    in.AllowedOrigins,
			IsActive:          true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if f.AllowedOrigins == nil {
			f.AllowedOrigins = []string{}
		}

		err = s.store.CreateForm(ctx, f)
		if err == nil {
			return f, nil
		}
		// A concurrent allocation won the race on this id; try a new one.
		if errors.Is(err, domain.ErrConflict) {
			lastErr = err
			continue
		}
		return models.Form{}, err
	}
	return models.Form{}, fmt.Errorf("create form: %w", lastErr)
}

// Get returns the form plus its most recent submissions. Existence is
// checked before ownership, so a non-owner of an existing form gets
// ErrForbidden while an unknown id gets ErrNotFound for everyone.
func (s *Service) Get(ctx context.Context, formID, userID string) (models.FormDetail, error) {
	f, err := s.store.GetForm(ctx, formID)
	if err != nil {
		return models.FormDetail{}, err
	}
	if f.UserID != userID {
		return models.FormDetail{}, fmt.Errorf("form %q: %w", formID, domain.ErrForbidden)
	}

	recent, err := s.store.RecentSubmissions(ctx, formID, recentLimit)
	if err != nil {
		return models.FormDetail{}, err
	}
	return models.FormDetail{Form: f, RecentSubmissions: recent}, nil
}

// List returns one page of the caller's own forms. Unknown sort keys fall
// back to createdAt, unknown orders to desc.
func (s *Service) List(ctx context.Context, userID string, q models.FormListQuery) (models.FormPage, error) {
	q = normalizeFormQuery(q)

	forms, total, err := s.store.ListForms(ctx, userID, q)
	if err != nil {
		return models.FormPage{}, err
	}
	return models.FormPage{
		Forms:      forms,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// Update merge-patches the form: fields present in the patch overwrite
// (explicit nulls clear), absent fields are untouched. Existence-then-
// ownership semantics as in Get.
func (s *Service) Update(ctx context.Context, formID, userID string, patch models.FormUpdate) (models.Form, error) {
	f, err := s.store.GetForm(ctx, formID)
	if err != nil {
		return models.Form{}, err
	}
	if f.UserID != userID {
		return models.Form{}, fmt.Errorf("form %q: %w", formID, domain.ErrForbidden)
	}

	applyPatch(&f, patch)
	f.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateForm(ctx, f); err != nil {
		return models.Form{}, err
	}
	return f, nil
}

// Delete removes the form and all of its submissions as one atomic unit.
func (s *Service) Delete(ctx context.Context, formID, userID string) error {
	f, err := s.store.GetForm(ctx, formID)
	if err != nil {
		return err
	}
	if f.UserID != userID {
		return fmt.Errorf("form %q: %w", formID, domain.ErrForbidden)
	}
	return s.store.DeleteForm(ctx, formID)
}

// GetPublic is the unauthenticated lookup backing the public ingestion path.
// It is the only operation exempt from ownership checks.
func (s *Service) GetPublic(ctx context.Context, formID string) (models.Form, error) {
	return s.store.GetForm(ctx, formID)
}

func applyPatch(f *models.Form, patch models.FormUpdate) {
	if patch.Name.Set && patch.Name.Valid {
		f.Name = patch.Name.Value
	}
	if patch.Description.Set {
		f.Description = ""
		if patch.Description.Valid {
			f.Description = patch.Description.Value
		}
	}
	if patch.RedirectURL.Set {
		f.RedirectURL = ""
		if patch.RedirectURL.Valid {
			f.RedirectURL = patch.RedirectURL.Value
		}
	}
	if patch.NotificationEmail.Set {
		f.NotificationEmail = ""
		if patch.NotificationEmail.Valid {
			f.NotificationEmail = patch.NotificationEmail.Value
		}
	}
	if patch.AllowedOrigins.Set {
		f.AllowedOrigins = []string{}
		if patch.AllowedOrigins.Valid {
			f.AllowedOrigins = patch.AllowedOrigins.Value
		}
	}
	if patch.IsActive.Set && patch.IsActive.Valid {
		f.IsActive = patch.IsActive.Value
	}
}

func normalizeFormQuery(q models.FormListQuery) models.FormListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	switch q.SortBy {
	case models.SortName, models.SortSubmissionCount:
	default:
		q.SortBy = models.SortCreatedAt
	}
	if q.Order != models.OrderAsc {
		q.Order = models.OrderDesc
	}
	return q
}
