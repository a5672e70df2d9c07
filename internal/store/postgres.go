package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formloom/formloom/internal/domain"
	"github.com/formloom/formloom/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable persistence layer for users, forms and
// submissions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// isUniqueViolation reports whether err is a Postgres unique-key violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ---- users ----

// CreateUser inserts a new user. The email uniqueness constraint is the
// authority for duplicate registration; violations map to domain.ErrConflict.
func (p *PostgresStore) CreateUser(ctx context.Context, u models.User, passwordHash string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO users(id, email, password_hash, name, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, u.ID, u.Email, passwordHash, u.Name, u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %q: %w", u.Email, domain.ErrConflict)
	}
	return err
}

// GetUserByEmail returns the user and its password hash for login checks.
func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (models.User, string, error) {
	var u models.User
	var hash string
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, created_at
		FROM users WHERE email=$1
	`, email).Scan(&u.ID, &u.Email, &hash, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, "", domain.ErrNotFound
	}
	return u, hash, err
}

// GetUser returns the user by id.
func (p *PostgresStore) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, name, created_at FROM users WHERE id=$1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, domain.ErrNotFound
	}
	return u, err
}

// ---- forms ----

// FormIDTaken probes the allocation registry. The registry keeps ids of
// deleted forms too, so released ids are never re-issued.
func (p *PostgresStore) FormIDTaken(ctx context.Context, id string) (bool, error) {
	var taken bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM form_ids WHERE id=$1)
	`, id).Scan(&taken)
	return taken, err
}

// CreateForm registers the form id and inserts the form row in one
// transaction. The form_ids primary key is the final arbiter of id
// collisions: losing the race maps to domain.ErrConflict so the allocator
// can retry.
func (p *PostgresStore) CreateForm(ctx context.Context, f models.Form) error {
	origins, err := json.Marshal(originsOrEmpty(f.AllowedOrigins))
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO form_ids(id) VALUES ($1)`, f.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("form id %q: %w", f.ID, domain.ErrConflict)
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO forms(id, user_id, name, description, redirect_url,
			notification_email, allowed_origins, is_active, submission_count,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, f.ID, f.UserID, f.Name, f.Description, f.RedirectURL,
		f.NotificationEmail, origins, f.IsActive, f.SubmissionCount,
		f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetForm returns the form by id, or domain.ErrNotFound.
func (p *PostgresStore) GetForm(ctx context.Context, id string) (models.Form, error) {
	return scanForm(p.pool.QueryRow(ctx, `
		SELECT id, user_id, name, description, redirect_url, notification_email,
		       allowed_origins, is_active, submission_count, created_at, updated_at
		FROM forms WHERE id=$1
	`, id))
}

// ListForms returns one page of a user's forms plus the full count.
func (p *PostgresStore) ListForms(ctx context.Context, userID string, q models.FormListQuery) ([]models.Form, int64, error) {
	var total int64
	if err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM forms WHERE user_id=$1
	`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.Limit
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, user_id, name, description, redirect_url, notification_email,
		       allowed_origins, is_active, submission_count, created_at, updated_at
		FROM forms WHERE user_id=$1
		ORDER BY %s %s
		LIMIT $2 OFFSET $3
	`, formSortColumn(q.SortBy), sortDirection(q.Order)), userID, q.Limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	forms := []models.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, 0, err
		}
		forms = append(forms, f)
	}
	return forms, total, rows.Err()
}

// UpdateForm persists the merged form row.
func (p *PostgresStore) UpdateForm(ctx context.Context, f models.Form) error {
	origins, err := json.Marshal(originsOrEmpty(f.AllowedOrigins))
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE forms
		SET name=$2, description=$3, redirect_url=$4, notification_email=$5,
		    allowed_origins=$6, is_active=$7, updated_at=$8
		WHERE id=$1
	`, f.ID, f.Name, f.Description, f.RedirectURL, f.NotificationEmail,
		origins, f.IsActive, f.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteForm removes the form row; its submissions go with it via
// ON DELETE CASCADE in the same statement, so row count and counter can
// never diverge. The form_ids registry row stays.
func (p *PostgresStore) DeleteForm(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM forms WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- submissions ----

// InsertSubmission persists the submission and increments the owning form's
// counter in one transaction. Both effects commit together or neither does.
func (p *PostgresStore) InsertSubmission(ctx context.Context, s models.Submission) error {
	data, err := json.Marshal(s.Data)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO submissions(id, form_id, data, ip_address, user_agent, referrer, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, s.ID, s.FormID, data, s.IPAddress, s.UserAgent, s.Referrer, s.CreatedAt)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE forms SET submission_count = submission_count + 1 WHERE id=$1
	`, s.FormID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit(ctx)
}

// ListSubmissions returns one page of a form's submissions plus the count of
// the full date-filtered set. The optional date bounds are inclusive and
// applied before pagination.
func (p *PostgresStore) ListSubmissions(ctx context.Context, formID string, q models.SubmissionQuery) ([]models.Submission, int64, error) {
	where := `form_id=$1`
	args := []any{formID}
	if q.StartDate != nil {
		args = append(args, *q.StartDate)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if q.EndDate != nil {
		args = append(args, *q.EndDate)
		where += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}

	var total int64
	if err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.Limit
	args = append(args, q.Limit, offset)
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, form_id, data, ip_address, user_agent, referrer, created_at
		FROM submissions WHERE %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, where, sortDirection(q.Order), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	subs, err := collectSubmissions(rows)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// RecentSubmissions returns the n newest submissions of a form.
func (p *PostgresStore) RecentSubmissions(ctx context.Context, formID string, n int) ([]models.Submission, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, form_id, data, ip_address, user_agent, referrer, created_at
		FROM submissions WHERE form_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, formID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// AllSubmissions returns the full date-filtered submission set newest-first,
// for export.
func (p *PostgresStore) AllSubmissions(ctx context.Context, formID string, start, end *time.Time) ([]models.Submission, error) {
	where := `form_id=$1`
	args := []any{formID}
	if start != nil {
		args = append(args, *start)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if end != nil {
		args = append(args, *end)
		where += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, form_id, data, ip_address, user_agent, referrer, created_at
		FROM submissions WHERE `+where+`
		ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// GetSubmission returns the submission by id, or domain.ErrNotFound.
func (p *PostgresStore) GetSubmission(ctx context.Context, id string) (models.Submission, error) {
	var s models.Submission
	var data []byte
	err := p.pool.QueryRow(ctx, `
		SELECT id, form_id, data, ip_address, user_agent, referrer, created_at
		FROM submissions WHERE id=$1
	`, id).Scan(&s.ID, &s.FormID, &data, &s.IPAddress, &s.UserAgent, &s.Referrer, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Submission{}, domain.ErrNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}
	if err := json.Unmarshal(data, &s.Data); err != nil {
		return models.Submission{}, err
	}
	return s, nil
}

// DeleteSubmission removes one submission and decrements the owning form's
// counter in one transaction, mirroring InsertSubmission.
func (p *PostgresStore) DeleteSubmission(ctx context.Context, id, formID string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		DELETE FROM submissions WHERE id=$1 AND form_id=$2
	`, id, formID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		UPDATE forms SET submission_count = submission_count - 1 WHERE id=$1
	`, formID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CountSubmissions recounts a form's submissions by scanning. Used only as a
// consistency check against the maintained counter, never to serve reads.
func (p *PostgresStore) CountSubmissions(ctx context.Context, formID string) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM submissions WHERE form_id=$1
	`, formID).Scan(&count)
	return count, err
}

// ---- scan helpers ----

func originsOrEmpty(origins []string) []string {
	if origins == nil {
		return []string{}
	}
	return origins
}

func scanForm(row pgx.Row) (models.Form, error) {
	var f models.Form
	var origins []byte
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Description, &f.RedirectURL,
		&f.NotificationEmail, &origins, &f.IsActive, &f.SubmissionCount,
		&f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Form{}, domain.ErrNotFound
	}
	if err != nil {
		return models.Form{}, err
	}
	if err := json.Unmarshal(origins, &f.AllowedOrigins); err != nil {
		return models.Form{}, err
	}
	return f, nil
}

func collectSubmissions(rows pgx.Rows) ([]models.Submission, error) {
	subs := []models.Submission{}
	for rows.Next() {
		var s models.Submission
		var data []byte
		if err := rows.Scan(&s.ID, &s.FormID, &data, &s.IPAddress, &s.UserAgent,
			&s.Referrer, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &s.Data); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// formSortColumn maps an API sort key to its column. Keys are validated by
// the service layer; the default keeps unknown keys out of the SQL text.
func formSortColumn(sortBy string) string {
	switch sortBy {
	case models.SortName:
		return "name"
	case models.SortSubmissionCount:
		return "submission_count"
	default:
		return "created_at"
	}
}

func sortDirection(order string) string {
	if order == models.OrderAsc {
		return "ASC"
	}
	return "DESC"
}
