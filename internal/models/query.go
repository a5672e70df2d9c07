package models

import "time"

// Sort keys accepted by the list endpoints.
const (
	SortCreatedAt       = "createdAt"
	SortName            = "name"
	SortSubmissionCount = "submissionCount"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// FormListQuery selects one page of a user's forms.
type FormListQuery struct {
	Page   int
	Limit  int
	SortBy string
	Order  string
}

// SubmissionQuery selects one page of a form's submissions, ordered by
// creation time. StartDate and EndDate are inclusive bounds applied before
// pagination; Search is a case-insensitive substring test applied after the
// page is fetched.
type SubmissionQuery struct {
	Page      int
	Limit     int
	Order     string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
}

// ExportQuery selects the full (unpaginated) submission set for export.
type ExportQuery struct {
	Format    string
	StartDate *time.Time
	EndDate   *time.Time
}
