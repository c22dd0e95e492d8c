package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/database"
	"github.com/MrJamesThe3rd/till/internal/money"
)

const (
	selectProducts = `SELECT id, name, barcode, price_minor FROM products`
	searchFilter   = ` WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(barcode, '')) LIKE ? ESCAPE '\'`
	orderProducts  = ` ORDER BY name ASC, id ASC`
)

type Store struct {
	db       *sqlx.DB
	currency string

	list       *sqlx.Stmt
	search     *sqlx.Stmt
	page       *sqlx.Stmt
	pageSearch *sqlx.Stmt
	get        *sqlx.Stmt
	byBarcode  *sqlx.Stmt
}

// New prepares the catalog read statements.
func New(ctx context.Context, db *sqlx.DB, currency string) (*Store, error) {
	s := &Store{db: db, currency: strings.ToUpper(currency)}

	prepared := []struct {
		dst   **sqlx.Stmt
		query string
	}{
		{&s.list, selectProducts + orderProducts},
		{&s.search, selectProducts + searchFilter + orderProducts},
		{&s.page, selectProducts + orderProducts + ` LIMIT ? OFFSET ?`},
		{&s.pageSearch, selectProducts + searchFilter + orderProducts + ` LIMIT ? OFFSET ?`},
		{&s.get, selectProducts + ` WHERE id = ?`},
		{&s.byBarcode, selectProducts + ` WHERE barcode = ? ORDER BY id ASC LIMIT 1`},
	}

	for _, p := range prepared {
		stmt, err := db.PreparexContext(ctx, db.Rebind(p.query))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("preparing catalog statement: %w", err)
		}

		*p.dst = stmt
	}

	return s, nil
}

func (s *Store) Close() error {
	var errs []error

	for _, stmt := range []*sqlx.Stmt{s.list, s.search, s.page, s.pageSearch, s.get, s.byBarcode} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}

	return errors.Join(errs...)
}

type productRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Barcode    sql.NullString `db:"barcode"`
	PriceMinor int64          `db:"price_minor"`
}

func (s *Store) toProduct(r productRow) *catalog.Product {
	p := &catalog.Product{
		ID:    r.ID,
		Name:  r.Name,
		Price: money.FromMinor(s.currency, r.PriceMinor),
	}

	if r.Barcode.Valid {
		p.Barcode = &r.Barcode.String
	}

	return p
}

func (s *Store) selectAll(ctx context.Context, op string, stmt *sqlx.Stmt, args ...any) ([]*catalog.Product, error) {
	var rows []productRow
	if err := stmt.SelectContext(ctx, &rows, args...); err != nil {
		return nil, unavailable(op, err)
	}

	products := make([]*catalog.Product, len(rows))
	for i, r := range rows {
		products[i] = s.toProduct(r)
	}

	return products, nil
}

func (s *Store) selectOne(ctx context.Context, op string, stmt *sqlx.Stmt, args ...any) (*catalog.Product, error) {
	var r productRow

	err := stmt.GetContext(ctx, &r, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, unavailable(op, err)
	}

	return s.toProduct(r), nil
}

func (s *Store) List(ctx context.Context) ([]*catalog.Product, error) {
	return s.selectAll(ctx, "listing products", s.list)
}

func (s *Store) Search(ctx context.Context, query string) ([]*catalog.Product, error) {
	p := database.LikePattern(query)
	return s.selectAll(ctx, "searching products", s.search, p, p)
}

func (s *Store) Page(ctx context.Context, query string, limit, offset int) ([]*catalog.Product, error) {
	if query == "" {
		return s.selectAll(ctx, "paging products", s.page, limit, offset)
	}

	p := database.LikePattern(query)

	return s.selectAll(ctx, "paging products", s.pageSearch, p, p, limit, offset)
}

func (s *Store) Get(ctx context.Context, id string) (*catalog.Product, error) {
	return s.selectOne(ctx, "getting product", s.get, id)
}

func (s *Store) FindByBarcode(ctx context.Context, barcode string) (*catalog.Product, error) {
	return s.selectOne(ctx, "finding product by barcode", s.byBarcode, barcode)
}

func (s *Store) Create(ctx context.Context, p *catalog.Product) error {
	if err := insertProduct(ctx, s.db, p); err != nil {
		return unavailable("creating product", err)
	}

	return nil
}

func (s *Store) Update(ctx context.Context, p *catalog.Product) error {
	res, err := updateProduct(ctx, s.db, p)
	if err != nil {
		return unavailable("updating product", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownProduct, p.ID)
	}

	return nil
}

func (s *Store) Set(ctx context.Context, p *catalog.Product) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO products (id, name, barcode, price_minor) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, barcode = excluded.barcode, price_minor = excluded.price_minor`),
		p.ID, p.Name, nullString(p.Barcode), p.Price.ToMinor(),
	)
	if err != nil {
		return unavailable("setting product", err)
	}

	return nil
}

// Delete removes the product and clears it from ledger items in the same
// database transaction.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.inTx(ctx, "deleting product", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE transaction_items SET product_id = NULL WHERE product_id = ?`), id); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM products WHERE id = ?`), id)

		return err
	})
}

func (s *Store) DeleteAll(ctx context.Context) error {
	return s.inTx(ctx, "deleting all products", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE transaction_items SET product_id = NULL WHERE product_id IS NOT NULL`); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM products`)

		return err
	})
}

func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return unavailable(op, err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}

	return nil
}

func (s *Store) BeginImport(ctx context.Context) (catalog.ImportTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable("beginning import", err)
	}

	return &importTx{tx: tx, store: s}, nil
}

type importTx struct {
	tx    *sqlx.Tx
	store *Store
}

func (t *importTx) FindByBarcodes(ctx context.Context, barcodes []string) ([]*catalog.Product, error) {
	query, args, err := sqlx.In(selectProducts+` WHERE barcode IN (?) ORDER BY id ASC`, barcodes)
	if err != nil {
		return nil, fmt.Errorf("building barcode query: %w", err)
	}

	var rows []productRow
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(query), args...); err != nil {
		return nil, unavailable("finding products by barcode", err)
	}

	products := make([]*catalog.Product, len(rows))
	for i, r := range rows {
		products[i] = t.store.toProduct(r)
	}

	return products, nil
}

func (t *importTx) CreateProducts(ctx context.Context, products []*catalog.Product) error {
	for _, p := range products {
		if err := insertProduct(ctx, t.tx, p); err != nil {
			return fmt.Errorf("%w: inserting %q: %w", apperr.ErrWriteFailed, p.Name, err)
		}
	}

	return nil
}

func (t *importTx) UpdateProducts(ctx context.Context, products []*catalog.Product) error {
	for _, p := range products {
		if _, err := updateProduct(ctx, t.tx, p); err != nil {
			return fmt.Errorf("%w: updating %q: %w", apperr.ErrWriteFailed, p.Name, err)
		}
	}

	return nil
}

func (t *importTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrWriteFailed, err)
	}

	return nil
}

func (t *importTx) Rollback() error {
	return t.tx.Rollback()
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

func insertProduct(ctx context.Context, e execer, p *catalog.Product) error {
	_, err := e.ExecContext(ctx, e.Rebind(
		`INSERT INTO products (id, name, barcode, price_minor) VALUES (?, ?, ?, ?)`),
		p.ID, p.Name, nullString(p.Barcode), p.Price.ToMinor(),
	)

	return err
}

func updateProduct(ctx context.Context, e execer, p *catalog.Product) (sql.Result, error) {
	return e.ExecContext(ctx, e.Rebind(
		`UPDATE products SET name = ?, barcode = ?, price_minor = ? WHERE id = ?`),
		p.Name, nullString(p.Barcode), p.Price.ToMinor(), p.ID,
	)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageUnavailable, err)
}
