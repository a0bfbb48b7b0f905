package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MrWong99/voiceorder/internal/catalog"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// Compile-time interface check.
var _ catalog.Store = (*Store)(nil)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store is the PostgreSQL-backed dish catalog. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a connection pool to the database at dsn, pings it and runs
// [Migrate].
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres catalog: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres catalog: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool. The caller runs [Migrate] and owns the
// pool's lifetime.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// List implements [catalog.Source]. Available dishes are returned in
// insertion order so snapshots are stable.
func (s *Store) List(ctx context.Context) ([]types.CatalogDish, error) {
	const q = `
		SELECT id, name, price::text
		FROM   dishes
		WHERE  available
		ORDER  BY seq`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: list: %w", err)
	}
	dishes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.CatalogDish, error) {
		var (
			d     types.CatalogDish
			price string
		)
		if err := row.Scan(&d.ID, &d.Name, &price); err != nil {
			return types.CatalogDish{}, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return types.CatalogDish{}, fmt.Errorf("dish %q: price %q: %w", d.ID, price, err)
		}
		d.Price = p
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: list: %w", err)
	}
	return dishes, nil
}

// Add implements [catalog.Store].
func (s *Store) Add(ctx context.Context, dish catalog.Dish) (catalog.Dish, error) {
	dish.Name = strings.TrimSpace(dish.Name)
	if err := catalog.ValidateDish(dish); err != nil {
		return catalog.Dish{}, fmt.Errorf("postgres catalog: add %q: %w", dish.Name, err)
	}
	if dish.ID == "" {
		dish.ID = uuid.NewString()
	}

	const q = `
		INSERT INTO dishes (id, name, price, category, available)
		VALUES ($1, $2, $3::numeric, $4, $5)`

	_, err := s.pool.Exec(ctx, q, dish.ID, dish.Name, dish.Price.String(), dish.Category, dish.Available)
	if err != nil {
		return catalog.Dish{}, mapWriteError("add", err)
	}
	return dish, nil
}

// Get implements [catalog.Store].
func (s *Store) Get(ctx context.Context, id string) (catalog.Dish, error) {
	const q = `
		SELECT id, name, price::text, category, available
		FROM   dishes
		WHERE  id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return catalog.Dish{}, fmt.Errorf("postgres catalog: get: %w", err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDish)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Dish{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Dish{}, fmt.Errorf("postgres catalog: get: %w", err)
	}
	return d, nil
}

// Dishes implements [catalog.Store].
func (s *Store) Dishes(ctx context.Context, opts catalog.ListOptions) ([]catalog.Dish, error) {
	var (
		args       []any
		conditions []string
	)
	if !opts.IncludeUnavailable {
		conditions = append(conditions, "available")
	}
	if opts.Category != "" {
		args = append(args, opts.Category)
		conditions = append(conditions, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}

	q := "SELECT id, name, price::text, category, available\nFROM   dishes\n"
	if len(conditions) > 0 {
		q += "WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n"
	}
	q += "ORDER  BY seq"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: dishes: %w", err)
	}
	dishes, err := pgx.CollectRows(rows, scanDish)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: dishes: %w", err)
	}
	return dishes, nil
}

// Update implements [catalog.Store].
func (s *Store) Update(ctx context.Context, dish catalog.Dish) error {
	dish.Name = strings.TrimSpace(dish.Name)
	if err := catalog.ValidateDish(dish); err != nil {
		return fmt.Errorf("postgres catalog: update %q: %w", dish.ID, err)
	}

	const q = `
		UPDATE dishes
		SET    name = $2, price = $3::numeric, category = $4, available = $5, updated_at = now()
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, dish.ID, dish.Name, dish.Price.String(), dish.Category, dish.Available)
	if err != nil {
		return mapWriteError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Remove implements [catalog.Store].
func (s *Store) Remove(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dishes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres catalog: remove: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// BulkImport implements [catalog.Store]. The whole import runs in one
// transaction: either every dish is inserted or none is.
func (s *Store) BulkImport(ctx context.Context, dishes []catalog.Dish) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres catalog: bulk import: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
		INSERT INTO dishes (id, name, price, category, available)
		VALUES ($1, $2, $3::numeric, $4, $5)`

	batch := &pgx.Batch{}
	for i, d := range dishes {
		d.Name = strings.TrimSpace(d.Name)
		if err := catalog.ValidateDish(d); err != nil {
			return 0, fmt.Errorf("postgres catalog: bulk import at index %d (name %q): %w", i, d.Name, err)
		}
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		batch.Queue(q, d.ID, d.Name, d.Price.String(), d.Category, d.Available)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range dishes {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("postgres catalog: bulk import at index %d (name %q): %w", i, dishes[i].Name, mapWriteError("insert", err))
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("postgres catalog: bulk import: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres catalog: bulk import: commit: %w", err)
	}
	return len(dishes), nil
}

// scanDish scans a full dish row.
func scanDish(row pgx.CollectableRow) (catalog.Dish, error) {
	var (
		d     catalog.Dish
		price string
	)
	if err := row.Scan(&d.ID, &d.Name, &price, &d.Category, &d.Available); err != nil {
		return catalog.Dish{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return catalog.Dish{}, fmt.Errorf("dish %q: price %q: %w", d.ID, price, err)
	}
	d.Price = p
	return d, nil
}

// mapWriteError translates unique violations into the catalog sentinels.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == "dishes_pkey" {
			return catalog.ErrDuplicateID
		}
		return catalog.ErrDuplicateName
	}
	return fmt.Errorf("postgres catalog: %s: %w", op, err)
}
