package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/formloom/formloom/internal/domain"
	"github.com/formloom/formloom/internal/models"
)

// MemoryStore is an in-memory implementation of the store methods, used by
// unit tests so the service layer can be exercised without a database. It
// mirrors the Postgres semantics: form ids live in a registry that survives
// deletion, and submission writes move the counter in the same critical
// section.
type MemoryStore struct {
	mu          sync.Mutex
	users       map[string]models.User
	hashes      map[string]string // user id -> password hash
	formIDs     map[string]bool   // allocation registry, never shrinks
	forms       map[string]models.Form
	submissions map[string]models.Submission
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       map[string]models.User{},
		hashes:      map[string]string{},
		formIDs:     map[string]bool{},
		forms:       map[string]models.Form{},
		submissions: map[string]models.Submission{},
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u models.User, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email %q: %w", u.Email, domain.ErrConflict)
		}
	}
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	return nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (models.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, m.hashes[u.ID], nil
		}
	}
	return models.User{}, "", domain.ErrNotFound
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) FormIDTaken(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.formIDs[id], nil
}

func (m *MemoryStore) CreateForm(_ context.Context, f models.Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.formIDs[f.ID] {
		return fmt.Errorf("form id %q: %w", f.ID, domain.ErrConflict)
	}
	m.formIDs[f.ID] = true
	f.AllowedOrigins = originsOrEmpty(f.AllowedOrigins)
	m.forms[f.ID] = f
	return nil
}

func (m *MemoryStore) GetForm(_ context.Context, id string) (models.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	if !ok {
		return models.Form{}, domain.ErrNotFound
	}
	return f, nil
}

func (m *MemoryStore) ListForms(_ context.Context, userID string, q models.FormListQuery) ([]models.Form, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owned := []models.Form{}
	for _, f := range m.forms {
		if f.UserID == userID {
			owned = append(owned, f)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		a, b := owned[i], owned[j]
		if q.Order == models.OrderAsc {
			a, b = b, a
		}
		switch q.SortBy {
		case models.SortName:
			return a.Name > b.Name
		case models.SortSubmissionCount:
			return a.SubmissionCount > b.SubmissionCount
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	total := int64(len(owned))
	return pageOf(owned, q.Page, q.Limit), total, nil
}

func (m *MemoryStore) UpdateForm(_ context.Context, f models.Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.forms[f.ID]
	if !ok {
		return domain.ErrNotFound
	}
	f.SubmissionCount = current.SubmissionCount
	f.AllowedOrigins = originsOrEmpty(f.AllowedOrigins)
	m.forms[f.ID] = f
	return nil
}

func (m *MemoryStore) DeleteForm(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.forms[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.forms, id)
	for sid, s := range m.submissions {
		if s.FormID == id {
			delete(m.submissions, sid)
		}
	}
	return nil
}

func (m *MemoryStore) InsertSubmission(_ context.Context, s models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[s.FormID]
	if !ok {
		return domain.ErrNotFound
	}
	m.submissions[s.ID] = s
	f.SubmissionCount++
	m.forms[s.FormID] = f
	return nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, formID string, q models.SubmissionQuery) ([]models.Submission, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := m.filteredLocked(formID, q.StartDate, q.EndDate)
	sortSubmissions(matched, q.Order)

	total := int64(len(matched))
	return pageOf(matched, q.Page, q.Limit), total, nil
}

func (m *MemoryStore) RecentSubmissions(_ context.Context, formID string, n int) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := m.filteredLocked(formID, nil, nil)
	sortSubmissions(matched, models.OrderDesc)
	if len(matched) > n {
		matched = matched[:n]
	}
	return matched, nil
}

func (m *MemoryStore) AllSubmissions(_ context.Context, formID string, start, end *time.Time) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := m.filteredLocked(formID, start, end)
	sortSubmissions(matched, models.OrderDesc)
	return matched, nil
}

func (m *MemoryStore) GetSubmission(_ context.Context, id string) (models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) DeleteSubmission(_ context.Context, id, formID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok || s.FormID != formID {
		return domain.ErrNotFound
	}
	delete(m.submissions, id)
	if f, ok := m.forms[formID]; ok {
		f.SubmissionCount--
		m.forms[formID] = f
	}
	return nil
}

func (m *MemoryStore) CountSubmissions(_ context.Context, formID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, s := range m.submissions {
		if s.FormID == formID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) filteredLocked(formID string, start, end *time.Time) []models.Submission {
	matched := []models.Submission{}
	for _, s := range m.submissions {
		if s.FormID != formID {
			continue
		}
		if start != nil && s.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && s.CreatedAt.After(*end) {
			continue
		}
		matched = append(matched, s)
	}
	return matched
}

func sortSubmissions(subs []models.Submission, order string) {
	sort.Slice(subs, func(i, j int) bool {
		if strings.EqualFold(order, models.OrderAsc) {
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}

func pageOf[T any](rows []T, page, limit int) []T {
	offset := (page - 1) * limit
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
