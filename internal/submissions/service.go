// Package submissions implements the public ingestion pipeline and the
// owner-facing query surface over collected submissions.
package submissions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/formloom/formloom/internal/domain"
	"github.com/formloom/formloom/internal/models"
)

// Store is the persistence surface the submission service needs.
type Store interface {
	GetForm(ctx context.Context, id string) (models.Form, error)
	InsertSubmission(ctx context.Context, s models.Submission) error
	ListSubmissions(ctx context.Context, formID string, q models.SubmissionQuery) ([]models.Submission, int64, error)
	GetSubmission(ctx context.Context, id string) (models.Submission, error)
	DeleteSubmission(ctx context.Context, id, formID string) error
	AllSubmissions(ctx context.Context, formID string, start, end *time.Time) ([]models.Submission, error)
}

// Service ingests and queries submissions.
type Service struct {
	store Store
}

// NewService wires the submission service to its store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// IngestInput carries one untrusted public submission. Data is accepted
// verbatim with no schema validation of its contents.
type IngestInput struct {
	FormID    string
	Data      map[string]any
	Origin    string
	IPAddress string
	UserAgent string
	Referrer  string
}

// Ingest validates the submission against the form's policy, persists it,
// and increments the form's counter in the same store transaction. The form
// is returned alongside so the boundary can act on its redirect settings.
//
// Unknown form ids return domain.ErrNotFound; inactive forms return
// domain.ErrFormInactive. The two stay distinct here for logging even though
// the public boundary renders them identically.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (models.Submission, models.Form, error) {
	form, err := s.store.GetForm(ctx, in.FormID)
	if err != nil {
		return models.Submission{}, models.Form{}, err
	}
	if !form.IsActive {
		return models.Submission{}, models.Form{}, fmt.Errorf("form %q: %w", in.FormID, domain.ErrFormInactive)
	}

	if len(form.AllowedOrigins) > 0 {
		// Browsers omit Origin on some form posts; the referrer is the
		// fallback signal, matching what the allow-list was written against.
		origin := in.Origin
		if origin == "" {
			origin = in.Referrer
		}
		if !originAllowed(origin, form.AllowedOrigins) {
			return models.Submission{}, models.Form{}, fmt.Errorf("origin %q: %w", origin, domain.ErrOriginNotAllowed)
		}
	}

	data := in.Data
	if data == nil {
		data = map[string]any{}
	}

	sub := models.Submission{
		ID:        uuid.New().String(),
		FormID:    in.FormID,
		Data:      data,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Referrer:  in.Referrer,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertSubmission(ctx, sub); err != nil {
		return models.Submission{}, models.Form{}, err
	}
	return sub, form, nil
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a != "" && strings.Contains(origin, a) {
			return true
		}
	}
	return false
}

// List returns one page of a form's submissions for its owner. Date bounds
// are applied store-side before pagination.
//
// Search is applied after the page is fetched, against the JSON-serialized
// payload, case-insensitively. That means an active search matches only
// within the already-paginated slice and total/totalPages count in-page
// matches, not the full dataset. Known precision limitation, kept on purpose.
func (s *Service) List(ctx context.Context, formID, userID string, q models.SubmissionQuery) (models.SubmissionPage, error) {
	if err := s.checkOwner(ctx, formID, userID); err != nil {
		return models.SubmissionPage{}, err
	}

	q = normalizeQuery(q)
	subs, total, err := s.store.ListSubmissions(ctx, formID, q)
	if err != nil {
		return models.SubmissionPage{}, err
	}

	if q.Search != "" {
		subs = searchFilter(subs, q.Search)
		total = int64(len(subs))
	}

	return models.SubmissionPage{
		Submissions: subs,
		Pagination:  models.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// Get returns one submission, scoped to the form and its owner.
func (s *Service) Get(ctx context.Context, formID, submissionID, userID string) (models.Submission, error) {
	if err := s.checkOwner(ctx, formID, userID); err != nil {
		return models.Submission{}, err
	}

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return models.Submission{}, err
	}
	if sub.FormID != formID {
		return models.Submission{}, fmt.Errorf("submission %q: %w", submissionID, domain.ErrNotFound)
	}
	return sub, nil
}

// Delete removes one submission and decrements the form's counter in the
// same store transaction.
func (s *Service) Delete(ctx context.Context, formID, submissionID, userID string) error {
	if err := s.checkOwner(ctx, formID, userID); err != nil {
		return err
	}
	return s.store.DeleteSubmission(ctx, submissionID, formID)
}

// ForExport returns the full date-filtered submission set newest-first,
// after the usual ownership check. The export serializer consumes it as an
// already-authorized set.
func (s *Service) ForExport(ctx context.Context, formID, userID string, start, end *time.Time) ([]models.Submission, error) {
	if err := s.checkOwner(ctx, formID, userID); err != nil {
		return nil, err
	}
	return s.store.AllSubmissions(ctx, formID, start, end)
}

// checkOwner confirms existence, then ownership, in that order.
func (s *Service) checkOwner(ctx context.Context, formID, userID string) error {
	form, err := s.store.GetForm(ctx, formID)
	if err != nil {
		return err
	}
	if form.UserID != userID {
		return fmt.Errorf("form %q: %w", formID, domain.ErrForbidden)
	}
	return nil
}

// searchFilter keeps submissions whose serialized payload contains the term,
// case-insensitively. json.Marshal sorts map keys, so the serialized form is
// canonical regardless of insertion order.
func searchFilter(subs []models.Submission, term string) []models.Submission {
	term = strings.ToLower(term)
	matched := []models.Submission{}
	for _, sub := range subs {
		raw, err := json.Marshal(sub.Data)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(raw)), term) {
			matched = append(matched, sub)
		}
	}
	return matched
}

func normalizeQuery(q models.SubmissionQuery) models.SubmissionQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Order != models.OrderAsc {
		q.Order = models.OrderDesc
	}
	return q
}
