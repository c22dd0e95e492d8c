package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/database"
	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

// unpagedLimit stands in for "no limit": Postgres has no LIMIT -1.
const unpagedLimit = math.MaxInt32

type variant int

const (
	variantAll variant = iota
	variantRange
	variantSearch
	variantRangeSearch
)

const (
	rangePredicate  = `t.created_at BETWEEN ? AND ?`
	searchPredicate = `(LOWER(t.id) LIKE ? ESCAPE '\' OR EXISTS (
		SELECT 1 FROM transaction_items si
		JOIN products sp ON sp.id = si.product_id
		WHERE si.transaction_id = t.id AND LOWER(sp.name) LIKE ? ESCAPE '\'))`
)

var predicates = map[variant]string{
	variantAll:         ``,
	variantRange:       ` WHERE ` + rangePredicate,
	variantSearch:      ` WHERE ` + searchPredicate,
	variantRangeSearch: ` WHERE ` + rangePredicate + ` AND ` + searchPredicate,
}

type statements struct {
	list  *sqlx.Stmt
	count *sqlx.Stmt
}

type Store struct {
	db       *sqlx.DB
	currency string
	queries  map[variant]statements
}

// New prepares the list and count statement of every query variant.
func New(ctx context.Context, db *sqlx.DB, currency string) (*Store, error) {
	s := &Store{
		db:       db,
		currency: strings.ToUpper(currency),
		queries:  make(map[variant]statements, len(predicates)),
	}

	for v, where := range predicates {
		list, err := db.PreparexContext(ctx, db.Rebind(
			`SELECT t.id, t.created_at FROM transactions t`+where+
				` ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?`))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("preparing list statement: %w", err)
		}

		s.queries[v] = statements{list: list}

		count, err := db.PreparexContext(ctx, db.Rebind(`SELECT COUNT(*) FROM transactions t`+where))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("preparing count statement: %w", err)
		}

		s.queries[v] = statements{list: list, count: count}
	}

	return s, nil
}

// Close releases the prepared statements.
func (s *Store) Close() error {
	var errs []error

	for _, st := range s.queries {
		if st.list != nil {
			errs = append(errs, st.list.Close())
		}

		if st.count != nil {
			errs = append(errs, st.count.Close())
		}
	}

	return errors.Join(errs...)
}

type headerRow struct {
	ID        string `db:"id"`
	CreatedAt int64  `db:"created_at"`
}

type itemRow struct {
	ID             int64          `db:"id"`
	TransactionID  string         `db:"transaction_id"`
	ProductID      sql.NullString `db:"product_id"`
	ProductName    sql.NullString `db:"product_name"`
	Quantity       int            `db:"quantity"`
	UnitPrice      int64          `db:"unit_price_minor"`
	DiscountAmount int64          `db:"discount_amount_minor"`
}

const selectItems = `
	SELECT ti.id, ti.transaction_id, ti.product_id, p.name AS product_name,
		ti.quantity, ti.unit_price_minor, ti.discount_amount_minor
	FROM transaction_items ti
	LEFT JOIN products p ON p.id = ti.product_id`

// CreateWithItems writes the header and its items in one database
// transaction. A caller whose ctx is already done gets its error and nothing
// is written; after that the write is detached from ctx and runs to commit or
// rollback. An item whose product no longer exists is stored without a
// product reference.
func (s *Store) CreateWithItems(ctx context.Context, tx *transaction.Transaction) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: begin: %w", apperr.ErrWriteFailed, err)
	}

	// database/sql rolls a transaction back when its context ends, so the
	// transaction itself must not carry the caller's cancellation.
	wctx := context.WithoutCancel(ctx)

	dbtx, err := s.db.BeginTxx(wctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", apperr.ErrWriteFailed, err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(wctx, dbtx.Rebind(
		`INSERT INTO transactions (id, created_at) VALUES (?, ?)`),
		tx.ID, tx.CreatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("%w: inserting header: %w", apperr.ErrWriteFailed, err)
	}

	insertItem, err := dbtx.PreparexContext(wctx, dbtx.Rebind(`
		INSERT INTO transaction_items
			(transaction_id, product_id, quantity, unit_price_minor, discount_amount_minor)
		VALUES (?, (SELECT id FROM products WHERE id = ?), ?, ?, ?)
		RETURNING id`))
	if err != nil {
		return fmt.Errorf("%w: preparing item insert: %w", apperr.ErrWriteFailed, err)
	}
	defer insertItem.Close()

	for i := range tx.Items {
		it := &tx.Items[i]

		if err := insertItem.QueryRowxContext(wctx,
			tx.ID, nullString(it.ProductID), it.Quantity, it.UnitPrice.ToMinor(), it.DiscountAmount.ToMinor(),
		).Scan(&it.ID); err != nil {
			return fmt.Errorf("%w: inserting item %d: %w", apperr.ErrWriteFailed, i, err)
		}

		it.TransactionID = tx.ID
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", apperr.ErrWriteFailed, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	rtx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable("getting transaction", err)
	}
	defer rtx.Rollback()

	var h headerRow

	err = rtx.GetContext(ctx, &h, rtx.Rebind(`SELECT id, created_at FROM transactions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, unavailable("getting transaction", err)
	}

	txs, err := s.withItems(ctx, rtx, []headerRow{h})
	if err != nil {
		return nil, err
	}

	return txs[0], nil
}

func (s *Store) List(ctx context.Context, q transaction.Query, page transaction.Page) ([]*transaction.Transaction, error) {
	v, args, err := bind(q)
	if err != nil {
		return nil, err
	}

	limit := page.Limit
	if limit == 0 {
		limit = unpagedLimit
	}

	rtx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable("listing transactions", err)
	}
	defer rtx.Rollback()

	var headers []headerRow
	if err := rtx.StmtxContext(ctx, s.queries[v].list).
		SelectContext(ctx, &headers, append(args, limit, page.Offset())...); err != nil {
		return nil, unavailable("listing transactions", err)
	}

	return s.withItems(ctx, rtx, headers)
}

func (s *Store) Count(ctx context.Context, q transaction.Query) (int, error) {
	v, args, err := bind(q)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.queries[v].count.GetContext(ctx, &n, args...); err != nil {
		return 0, unavailable("counting transactions", err)
	}

	return n, nil
}

// withItems loads the items of every header in one query and attaches them
// in id order.
func (s *Store) withItems(ctx context.Context, rtx *sqlx.Tx, headers []headerRow) ([]*transaction.Transaction, error) {
	txs := make([]*transaction.Transaction, len(headers))
	if len(headers) == 0 {
		return txs, nil
	}

	ids := make([]string, len(headers))
	byID := make(map[string]*transaction.Transaction, len(headers))

	for i, h := range headers {
		txs[i] = &transaction.Transaction{
			ID:        h.ID,
			CreatedAt: time.Unix(h.CreatedAt, 0).UTC(),
			Currency:  s.currency,
			Items:     []transaction.Item{},
		}
		ids[i] = h.ID
		byID[h.ID] = txs[i]
	}

	query, args, err := sqlx.In(selectItems+` WHERE ti.transaction_id IN (?) ORDER BY ti.id ASC`, ids)
	if err != nil {
		return nil, unavailable("building item query", err)
	}

	var rows []itemRow
	if err := rtx.SelectContext(ctx, &rows, rtx.Rebind(query), args...); err != nil {
		return nil, unavailable("loading items", err)
	}

	for _, r := range rows {
		tx := byID[r.TransactionID]
		tx.Items = append(tx.Items, s.toItem(r))
	}

	return txs, nil
}

func (s *Store) toItem(r itemRow) transaction.Item {
	it := transaction.Item{
		ID:             r.ID,
		TransactionID:  r.TransactionID,
		ProductName:    r.ProductName.String,
		Quantity:       r.Quantity,
		UnitPrice:      money.FromMinor(s.currency, r.UnitPrice),
		DiscountAmount: money.FromMinor(s.currency, r.DiscountAmount),
	}

	if r.ProductID.Valid {
		it.ProductID = &r.ProductID.String
	}

	return it
}

func (s *Store) RemoveItem(ctx context.Context, itemID int64) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM transaction_items WHERE id = ?`), itemID); err != nil {
		return unavailable("removing item", err)
	}

	return nil
}

// Delete removes the transaction and its items together.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.inTx(ctx, "deleting transaction", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM transaction_items WHERE transaction_id = ?`), id); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM transactions WHERE id = ?`), id)

		return err
	})
}

func (s *Store) DeleteAll(ctx context.Context) error {
	return s.inTx(ctx, "deleting all transactions", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_items`); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM transactions`)

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

// bind maps a query to its prepared statement and positional arguments.
func bind(q transaction.Query) (variant, []any, error) {
	switch q := q.(type) {
	case transaction.AllQuery:
		return variantAll, nil, nil
	case transaction.DateRangeQuery:
		return variantRange, []any{q.Start.Unix(), q.End.Unix()}, nil
	case transaction.SearchQuery:
		p := database.LikePattern(q.Text)
		return variantSearch, []any{p, p}, nil
	case transaction.DateRangeSearchQuery:
		p := database.LikePattern(q.Text)
		return variantRangeSearch, []any{q.Start.Unix(), q.End.Unix(), p, p}, nil
	default:
		return 0, nil, fmt.Errorf("%w: unknown query %T", apperr.ErrInvalidArgument, q)
	}
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
