package models

import "time"

// User owns forms. Password hash never leaves the store layer's own structs;
// this record is what handlers return.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Form is one public ingestion endpoint.
type Form struct {
	ID                string    `json:"id"`
	UserID            string    `json:"-"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	RedirectURL       string    `json:"redirectUrl,omitempty"`
	NotificationEmail string    `json:"notificationEmail,omitempty"`
	AllowedOrigins    []string  `json:"allowedOrigins"`
	IsActive          bool      `json:"isActive"`
	SubmissionCount   int64     `json:"submissionCount"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Submission is one accepted ingestion event. Data is the schema-less payload
// accepted verbatim from the submitter.
type Submission struct {
	ID        string         `json:"id"`
	FormID    string         `json:"formId"`
	Data      map[string]any `json:"data"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	Referrer  string         `json:"referrer,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FormCreate carries the already-validated fields for a new form.
// AllowedOrigins nil/empty means no origin restriction.
type FormCreate struct {
	UserID            string
	Name              string
	Description       string
	RedirectURL       string
	NotificationEmail string
	AllowedOrigins    []string
}

// FormUpdate is a merge-patch: fields left absent are untouched, fields set
// to an explicit null clear the stored value.
type FormUpdate struct {
	Name              Optional[string]   `json:"name"`
	Description       Optional[string]   `json:"description"`
	RedirectURL       Optional[string]   `json:"redirectUrl"`
	NotificationEmail Optional[string]   `json:"notificationEmail"`
	AllowedOrigins    Optional[[]string] `json:"allowedOrigins"`
	IsActive          Optional[bool]     `json:"isActive"`
}

// Pagination describes one page of a result set. Total covers the full
// filtered set, not just the returned rows.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NewPagination computes page metadata with totalPages = ceil(total/limit).
func NewPagination(page, limit int, total int64) Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// FormPage is one page of a user's forms.
type FormPage struct {
	Forms      []Form     `json:"forms"`
	Pagination Pagination `json:"pagination"`
}

// SubmissionPage is one page of a form's submissions.
type SubmissionPage struct {
	Submissions []Submission `json:"submissions"`
	Pagination  Pagination   `json:"pagination"`
}

// FormDetail is a form plus its most recent submissions, for dashboard views.
type FormDetail struct {
	Form
	RecentSubmissions []Submission `json:"recentSubmissions"`
}
