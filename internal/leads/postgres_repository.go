package leads

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database. The table
// assigns id, created_at and status defaults.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db Querier) *PostgresRepository {
	if db == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const insertLeadSQL = `
	INSERT INTO leads (
		project_type, description, timeline, budget_range, zip_code,
		full_name, email, phone, preferred_contact, source_page,
		user_agent, ip, status
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING id::text, created_at
`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, sub *Submission, meta Metadata) (*Lead, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	lead := newLead(sub, meta)
	if err := r.db.QueryRow(ctx, insertLeadSQL,
		lead.ProjectType,
		lead.Description,
		lead.Timeline,
		lead.BudgetRange,
		lead.ZipCode,
		lead.FullName,
		lead.Email,
		lead.Phone,
		lead.PreferredContact,
		lead.SourcePage,
		lead.UserAgent,
		lead.IP,
		lead.Status,
	).Scan(&lead.ID, &lead.CreatedAt); err != nil {
		return nil, &StoreError{Op: "insert", Err: err}
	}
	lead.CreatedAt = lead.CreatedAt.UTC()
	return &lead, nil
}

const selectLeadSQL = `
	SELECT id::text, project_type, description, timeline, budget_range, zip_code,
		full_name, email, phone, preferred_contact, source_page,
		user_agent, ip, status, created_at
	FROM leads
	WHERE id = $1
`

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	var lead Lead
	err := r.db.QueryRow(ctx, selectLeadSQL, id).Scan(
		&lead.ID,
		&lead.ProjectType,
		&lead.Description,
		&lead.Timeline,
		&lead.BudgetRange,
		&lead.ZipCode,
		&lead.FullName,
		&lead.Email,
		&lead.Phone,
		&lead.PreferredContact,
		&lead.SourcePage,
		&lead.UserAgent,
		&lead.IP,
		&lead.Status,
		&lead.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, ErrLeadNotFound
		}
		return nil, &StoreError{Op: "select", Err: err}
	}
	return &lead, nil
}

// isInvalidUUID detects invalid_text_representation, raised when the
// caller passes an id that is not a uuid.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

var _ Repository = (*PostgresRepository)(nil)
