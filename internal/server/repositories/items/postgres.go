// Package items provides the PostgreSQL-backed repository for items.
package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/dbx"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const selectColumns = `id, title, description, price, owner_id, attachment_key, created_at, updated_at`

// PostgresRepository implements item storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*models.Item, error) {
	i := &models.Item{}
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.Price, &i.OwnerID, &i.AttachmentKey, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return i, nil
}

// wrapError maps driver errors onto the common sentinels. A foreign key
// violation means the owner row is gone.
func wrapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: owner does not exist", common.ErrorNotFound)
		}
	}
	return fmt.Errorf("db error: %w", err)
}

// Create inserts item and fills in its generated fields.
func (r *PostgresRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	query := `
		INSERT INTO items (title, description, price, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, attachment_key, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, item.Title, item.Description, item.Price, item.OwnerID).
		Scan(&item.ID, &item.AttachmentKey, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, wrapError(err)
	}
	return item, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + selectColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapError(err)
	}
	return item, nil
}

// List returns a page of items ordered by id, optionally restricted to one owner.
func (r *PostgresRepository) List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error) {
	query := `SELECT ` + selectColumns + ` FROM items`
	args := []any{filter.Skip, filter.Limit}
	if filter.OwnerID != nil {
		query += ` WHERE owner_id = $3`
		args = append(args, *filter.OwnerID)
	}
	query += ` ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Update writes title, description and price. The owner is never changed.
func (r *PostgresRepository) Update(ctx context.Context, item *models.Item) (*models.Item, error) {
	query := `
		UPDATE items SET title = $1, description = $2, price = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, item.Title, item.Description, item.Price, item.ID).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM items WHERE id = $1`, id)
}

// SetAttachmentKey records the object-storage key of the item attachment.
func (r *PostgresRepository) SetAttachmentKey(ctx context.Context, id int64, key string) error {
	return r.execOne(ctx, `UPDATE items SET attachment_key = $1, updated_at = now() WHERE id = $2`, key, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
