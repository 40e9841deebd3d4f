package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortly/internal/database"
	"github.com/vadimbarashkov/shortly/internal/models"
)

type urlRecord struct {
	ID         int64          `db:"id"`
	ShortCode  sql.NullString `db:"short_code"`
	LongURL    string         `db:"long_url"`
	ClickCount int64          `db:"click_count"`
	CreatedAt  time.Time      `db:"created_at"`
	ExpiresAt  sql.NullTime   `db:"expires_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	url := &models.URL{
		ID:         r.ID,
		ShortCode:  r.ShortCode.String,
		LongURL:    r.LongURL,
		ClickCount: r.ClickCount,
		CreatedAt:  r.CreatedAt,
	}

	if r.ExpiresAt.Valid {
		expiresAt := r.ExpiresAt.Time
		url.ExpiresAt = &expiresAt
	}

	return url
}

// URLRepository provides access to the urls table, the single source of
// truth for URL records.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new record without a short code and returns it with the
// database-assigned id. The short code is set afterwards via SetShortCode,
// once it can be derived from the id.
func (r *URLRepository) Create(ctx context.Context, longURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(long_url, expires_at)
		VALUES ($1, $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, longURL, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// SetShortCode completes the second creation phase by storing the short code
// derived from the record id.
func (r *URLRepository) SetShortCode(ctx context.Context, id int64, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.SetShortCode"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET short_code = $1
		WHERE id = $2
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to set short code: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByShortCode retrieves a fully-created record by its short code.
// Records still missing a short code are never matched.
func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// IncrementClickCount atomically bumps the click counter for a record.
func (r *URLRepository) IncrementClickCount(ctx context.Context, id int64) error {
	const op = "database.postgres.URLRepository.IncrementClickCount"

	query := `UPDATE urls
		SET click_count = click_count + 1
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: failed to increment click count: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}
