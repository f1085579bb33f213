package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discount_reminder/internal/domain/discount"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrDiscountNotFound = fmt.Errorf("discount not found")
var ErrMetaNotFound = fmt.Errorf("discount meta not found")

// Schema:
//
//	discounts(id BIGSERIAL PRIMARY KEY, code TEXT NOT NULL, notify_target TEXT NOT NULL,
//	          status TEXT NOT NULL, expires_at TIMESTAMPTZ NULL, max_uses INT NOT NULL DEFAULT 0,
//	          use_count INT NOT NULL DEFAULT 0, created_at TIMESTAMPTZ, updated_at TIMESTAMPTZ)
//	discount_meta(discount_id BIGINT REFERENCES discounts(id) ON DELETE CASCADE,
//	              meta_key TEXT, meta_value TEXT, PRIMARY KEY (discount_id, meta_key))
type PostgresDiscountRepository struct {
	db *sql.DB
}

func NewPostgresDiscountRepository(db *sql.DB) *PostgresDiscountRepository {
	return &PostgresDiscountRepository{db: db}
}

const discountColumns = `id, code, notify_target, status, expires_at, max_uses, use_count, created_at, updated_at`

func scanDiscount(row interface{ Scan(...any) error }) (*discount.Discount, error) {
	d := &discount.Discount{}
	err := row.Scan(&d.ID, &d.Code, &d.NotifyTarget, &d.Status, &d.ExpiresAt, &d.MaxUses, &d.UseCount, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *PostgresDiscountRepository) ListActive(ctx context.Context) ([]*discount.Discount, error) {
	query := `SELECT ` + discountColumns + `
               FROM discounts WHERE status = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, discount.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("error listing active discounts: %w", err)
	}
	defer rows.Close()

	discounts := make([]*discount.Discount, 0)
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning active discount: %w", err)
		}
		discounts = append(discounts, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active discounts: %w", err)
	}
	return discounts, nil
}

func (r *PostgresDiscountRepository) GetByID(ctx context.Context, id int64) (*discount.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`
	d, err := scanDiscount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDiscountNotFound
		}
		return nil, fmt.Errorf("error getting discount by ID: %w", err)
	}
	return d, nil
}

func (r *PostgresDiscountRepository) GetMeta(ctx context.Context, discountID int64, key string) (string, error) {
	query := `SELECT meta_value FROM discount_meta WHERE discount_id = $1 AND meta_key = $2`
	var value sql.NullString
	err := r.db.QueryRowContext(ctx, query, discountID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrMetaNotFound
		}
		return "", fmt.Errorf("error getting discount meta %q: %w", key, err)
	}
	return value.String, nil
}

// SetMeta inserts or overwrites a single annotation.
func (r *PostgresDiscountRepository) SetMeta(ctx context.Context, discountID int64, key, value string) error {
	query := `INSERT INTO discount_meta (discount_id, meta_key, meta_value)
               VALUES ($1, $2, $3)
               ON CONFLICT (discount_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`
	if _, err := r.db.ExecContext(ctx, query, discountID, key, value); err != nil {
		return fmt.Errorf("error setting discount meta %q: %w", key, err)
	}
	return nil
}

func (r *PostgresDiscountRepository) DeleteMeta(ctx context.Context, discountID int64, key string) error {
	query := `DELETE FROM discount_meta WHERE discount_id = $1 AND meta_key = $2`
	res, err := r.db.ExecContext(ctx, query, discountID, key)
	if err != nil {
		return fmt.Errorf("error deleting discount meta %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deleting discount meta %q: %w", key, err)
	}
	if n == 0 {
		return ErrMetaNotFound
	}
	return nil
}
