package store_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/catalog/store"
	"github.com/MrJamesThe3rd/till/internal/database"
	"github.com/MrJamesThe3rd/till/internal/money"
)

func eur(s string) money.Money {
	return money.Of("EUR", decimal.RequireFromString(s))
}

func newStore(t *testing.T) (*store.Store, *sqlx.DB) {
	t.Helper()

	ctx := context.Background()

	db, err := database.New(database.DriverSQLite, ":memory:?_pragma=foreign_keys(1)", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(ctx, db))

	s, err := store.New(ctx, db, "EUR")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, db
}

func seed(t *testing.T, s *store.Store, products ...*catalog.Product) {
	t.Helper()

	for _, p := range products {
		require.NoError(t, s.Create(context.Background(), p))
	}
}

func names(products []*catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}

	return out
}

func TestStore_CreateGetAndFind(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	seed(t, s,
		&catalog.Product{ID: "a", Name: "Espresso", Barcode: new("5601"), Price: eur("0.85")},
		&catalog.Product{ID: "b", Name: "Espresso double", Barcode: new("5601"), Price: eur("1.40")},
		&catalog.Product{ID: "c", Name: "Water", Price: eur("1")},
	)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Espresso", got.Name)
	assert.Equal(t, "5601", *got.Barcode)
	assert.True(t, got.Price.Equal(eur("0.85")))

	water, err := s.Get(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, water.Barcode)

	missing, err := s.Get(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	first, err := s.FindByBarcode(ctx, "5601")
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)

	none, err := s.FindByBarcode(ctx, "0000")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStore_ListSearchAndPage(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	seed(t, s,
		&catalog.Product{ID: "1", Name: "Croissant", Price: eur("1.10")},
		&catalog.Product{ID: "2", Name: "Apple", Barcode: new("ABC-77"), Price: eur("0.30")},
		&catalog.Product{ID: "3", Name: "Bread", Price: eur("2")},
		&catalog.Product{ID: "4", Name: "Crab 100%", Price: eur("9")},
	)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Bread", "Crab 100%", "Croissant"}, names(all))

	type testCase struct {
		name  string
		query string
		want  []string
	}

	tests := []testCase{
		{name: "NameIgnoresCase", query: "cR", want: []string{"Crab 100%", "Croissant"}},
		{name: "Barcode", query: "abc-7", want: []string{"Apple"}},
		{name: "PercentIsLiteral", query: "100%", want: []string{"Crab 100%"}},
		{name: "NoMatch", query: "zzz", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	page, err := s.Page(ctx, "", 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Bread", "Crab 100%"}, names(page))

	page, err = s.Page(ctx, "", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Croissant"}, names(page))

	page, err = s.Page(ctx, "cr", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Croissant"}, names(page))
}

func TestStore_UpdateAndSet(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	seed(t, s, &catalog.Product{ID: "a", Name: "Tea", Barcode: new("1"), Price: eur("1")})

	require.NoError(t, s.Update(ctx, &catalog.Product{ID: "a", Name: "Green tea", Price: eur("1.5")}))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Green tea", got.Name)
	assert.Nil(t, got.Barcode)
	assert.True(t, got.Price.Equal(eur("1.5")))

	err = s.Update(ctx, &catalog.Product{ID: "missing", Name: "x", Price: eur("1")})
	assert.ErrorIs(t, err, catalog.ErrUnknownProduct)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	require.NoError(t, s.Set(ctx, &catalog.Product{ID: "a", Name: "Black tea", Price: eur("1.2")}))
	require.NoError(t, s.Set(ctx, &catalog.Product{ID: "b", Name: "Coffee", Price: eur("0.9")}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Black tea", "Coffee"}, names(all))
}

func TestStore_DeleteClearsLedgerReferences(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()

	seed(t, s,
		&catalog.Product{ID: "a", Name: "Tea", Price: eur("1")},
		&catalog.Product{ID: "b", Name: "Coffee", Price: eur("1")},
	)

	_, err := db.Exec(`INSERT INTO transactions (id, created_at) VALUES ('t1', 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO transaction_items
		(transaction_id, product_id, quantity, unit_price_minor, discount_amount_minor)
		VALUES ('t1', 'a', 1, 100000, 0), ('t1', 'b', 1, 100000, 0)`)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a"))

	var refs []sql.NullString
	require.NoError(t, db.Select(&refs, `SELECT product_id FROM transaction_items ORDER BY id`))
	require.Len(t, refs, 2)
	assert.False(t, refs[0].Valid)
	assert.Equal(t, "b", refs[1].String)

	require.NoError(t, s.DeleteAll(ctx))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	var items int
	require.NoError(t, db.Get(&items, `SELECT COUNT(*) FROM transaction_items WHERE product_id IS NULL`))
	assert.Equal(t, 2, items)
}

func TestStore_ImportTx(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	seed(t, s, &catalog.Product{ID: "a", Name: "Tea", Barcode: new("111"), Price: eur("1")})

	itx, err := s.BeginImport(ctx)
	require.NoError(t, err)

	found, err := itx.FindByBarcodes(ctx, []string{"111", "999"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].ID)

	require.NoError(t, itx.CreateProducts(ctx, []*catalog.Product{{ID: "n", Name: "New", Price: eur("3")}}))
	require.NoError(t, itx.UpdateProducts(ctx, []*catalog.Product{{ID: "a", Name: "Tea 2", Barcode: new("111"), Price: eur("2")}}))
	require.NoError(t, itx.Rollback())

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tea"}, names(all))

	itx, err = s.BeginImport(ctx)
	require.NoError(t, err)
	require.NoError(t, itx.CreateProducts(ctx, []*catalog.Product{{ID: "n", Name: "New", Price: eur("3")}}))
	require.NoError(t, itx.Commit())

	all, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"New", "Tea"}, names(all))
}
