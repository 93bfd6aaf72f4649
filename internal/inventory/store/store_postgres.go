package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"dlvery/internal/inventory/models"
	"dlvery/pkg/platform/sentinel"
)

// Schema creates the products and inventory_movements tables.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	sku              TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL,
	quantity         INTEGER NOT NULL CHECK (quantity >= 0),
	unit_price_cents BIGINT NOT NULL DEFAULT 0,
	damaged          BOOLEAN NOT NULL DEFAULT FALSE,
	perishable       BOOLEAN NOT NULL DEFAULT FALSE,
	expiry_date      DATE,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	version          INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS inventory_movements (
	seq          BIGSERIAL PRIMARY KEY,
	id           UUID NOT NULL UNIQUE,
	sku          TEXT NOT NULL REFERENCES products(sku) ON DELETE CASCADE,
	type         TEXT NOT NULL,
	quantity     INTEGER NOT NULL,
	delta        INTEGER NOT NULL,
	balance      INTEGER NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	reference    TEXT NOT NULL DEFAULT '',
	performed_by TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS inventory_movements_sku_idx ON inventory_movements (sku, seq DESC);
`

const uniqueViolation = "23505"

const selectColumns = `
	sku, name, description, category, quantity, unit_price_cents, damaged,
	perishable, expiry_date, created_at, updated_at, version`

// PostgresStore persists products in PostgreSQL. Product rows and their
// movements are written in one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Product, opening *models.Movement) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (`+selectColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, p.SKU, p.Name, p.Description, string(p.Category), p.Quantity, p.UnitPriceCents, p.Damaged,
			p.Perishable, p.ExpiryDate, p.CreatedAt, p.UpdatedAt, p.Version)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return fmt.Errorf("%s: %w", pqErr.Constraint, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert product: %w", err)
		}
		return insertMovement(ctx, tx, opening)
	})
}

func (s *PostgresStore) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM products WHERE sku = $1`, sku))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context, q Query) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM products
		WHERE ($1 = FALSE OR quantity > 0) AND ($2 = '' OR category = $2)
		ORDER BY sku
	`, q.AvailableOnly, string(q.Category))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// LastSKU orders by length first so PREFIX-10000 sorts after PREFIX-9999.
func (s *PostgresStore) LastSKU(ctx context.Context, prefix string) (string, error) {
	var sku string
	err := s.db.QueryRowContext(ctx, `
		SELECT sku FROM products
		WHERE sku LIKE $1 || '-%' AND substr(sku, length($1) + 2) ~ '^[0-9]+$'
		ORDER BY length(sku) DESC, sku DESC
		LIMIT 1
	`, prefix).Scan(&sku)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("last sku: %w", err)
	}
	return sku, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Product, m *models.Movement) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET
				name = $3,
				description = $4,
				category = $5,
				quantity = $6,
				unit_price_cents = $7,
				damaged = $8,
				perishable = $9,
				expiry_date = $10,
				updated_at = $11,
				version = version + 1
			WHERE sku = $1 AND version = $2
		`, p.SKU, p.Version, p.Name, p.Description, string(p.Category), p.Quantity, p.UnitPriceCents,
			p.Damaged, p.Perishable, p.ExpiryDate, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if n != 1 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE sku = $1)`, p.SKU).Scan(&exists); err != nil {
				return fmt.Errorf("check product: %w", err)
			}
			if !exists {
				return sentinel.ErrNotFound
			}
			return sentinel.ErrInvalidState
		}
		return insertMovement(ctx, tx, m)
	})
	if err != nil {
		return err
	}
	p.Version++
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sku string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE sku = $1`, sku)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Movements(ctx context.Context, sku string) ([]models.Movement, error) {
	if _, err := s.FindBySKU(ctx, sku); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, type, quantity, delta, balance, reason, reference, performed_by, created_at
		FROM inventory_movements WHERE sku = $1
		ORDER BY seq DESC
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	out := make([]models.Movement, 0)
	for rows.Next() {
		var (
			m   models.Movement
			typ string
		)
		if err := rows.Scan(&m.ID, &m.SKU, &typ, &m.Quantity, &m.Delta, &m.Balance,
			&m.Reason, &m.Reference, &m.PerformedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Type = models.MovementType(typ)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertMovement(ctx context.Context, tx *sql.Tx, m *models.Movement) error {
	if m == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_movements (id, sku, type, quantity, delta, balance, reason, reference, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.SKU, string(m.Type), m.Quantity, m.Delta, m.Balance, m.Reason, m.Reference, m.PerformedBy, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*models.Product, error) {
	var (
		p        models.Product
		category string
		expiry   sql.NullTime
	)
	err := row.Scan(&p.SKU, &p.Name, &p.Description, &category, &p.Quantity, &p.UnitPriceCents,
		&p.Damaged, &p.Perishable, &expiry, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.Category = models.Category(category)
	if expiry.Valid {
		at := expiry.Time
		p.ExpiryDate = &at
	}
	return &p, nil
}
