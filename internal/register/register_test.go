package register_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/register"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

type fakeProducts map[string]*catalog.Product

func (f fakeProducts) Get(_ context.Context, id string) (*catalog.Product, error) {
	return f[id], nil
}

func (f fakeProducts) FindByBarcode(_ context.Context, barcode string) (*catalog.Product, error) {
	for _, p := range f {
		if p.Barcode != nil && *p.Barcode == barcode {
			return p, nil
		}
	}

	return nil, nil
}

type fakeLedger struct {
	err      error
	recorded [][]transaction.ItemDraft
}

func (f *fakeLedger) Record(_ context.Context, drafts []transaction.ItemDraft) (*transaction.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.recorded = append(f.recorded, drafts)

	return &transaction.Transaction{ID: "tx-1", Currency: "USD"}, nil
}

func usd(s string) money.Money {
	return money.Of("USD", decimal.RequireFromString(s))
}

func newSession(ledger *fakeLedger) *register.Session {
	products := fakeProducts{
		"soap":  {ID: "soap", Name: "Soap", Barcode: new("4001"), Price: usd("2.50")},
		"towel": {ID: "towel", Name: "Towel", Price: usd("12")},
	}

	return register.NewSession(products, ledger, "USD")
}

func TestSession_AddAndScan(t *testing.T) {
	s := newSession(&fakeLedger{})
	ctx := context.Background()

	_, err := s.Add(ctx, "towel", 1)
	require.NoError(t, err)

	c, err := s.Scan(ctx, "4001", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, c.Totals().TotalQuantity)
	assert.True(t, c.Totals().FinalTotal.Equal(usd("17")))

	_, err = s.Scan(ctx, "9999", 1)
	assert.ErrorIs(t, err, register.ErrProductNotFound)

	_, err = s.Add(ctx, "ghost", 1)
	assert.ErrorIs(t, err, register.ErrProductNotFound)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	assert.Equal(t, 2, s.Cart().Len())
}

func TestSession_CheckoutRecordsAndClears(t *testing.T) {
	ledger := &fakeLedger{}
	s := newSession(ledger)
	ctx := context.Background()

	_, err := s.Add(ctx, "soap", 2)
	require.NoError(t, err)
	_, err = s.SetItemDiscount(0, 20)
	require.NoError(t, err)
	_, err = s.SetCartDiscount(10)
	require.NoError(t, err)

	tx, err := s.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)

	require.Len(t, ledger.recorded, 1)
	require.Len(t, ledger.recorded[0], 1)
	assert.True(t, ledger.recorded[0][0].DiscountAmount.Equal(usd("0.5")))

	assert.True(t, s.Cart().IsEmpty())
	assert.Zero(t, s.Cart().DiscountPercent())
}

func TestSession_CheckoutFailureKeepsCart(t *testing.T) {
	ledger := &fakeLedger{err: apperr.ErrWriteFailed}
	s := newSession(ledger)
	ctx := context.Background()

	_, err := s.Add(ctx, "towel", 3)
	require.NoError(t, err)

	_, err = s.Checkout(ctx)
	assert.ErrorIs(t, err, apperr.ErrWriteFailed)

	c := s.Cart()
	require.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Items()[0].Quantity)
}

func TestSession_CheckoutEmptyCart(t *testing.T) {
	_, err := newSession(&fakeLedger{}).Checkout(context.Background())
	assert.ErrorIs(t, err, register.ErrEmptyCart)
}

func TestSession_InvalidEditLeavesCart(t *testing.T) {
	s := newSession(&fakeLedger{})
	ctx := context.Background()

	_, err := s.Add(ctx, "towel", 1)
	require.NoError(t, err)

	c, err := s.SetQuantity(5, 1)
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())

	c, err = s.RemoveItem(0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = s.Add(ctx, "towel", 1)
	require.NoError(t, err)
	assert.True(t, s.Clear().IsEmpty())
}
