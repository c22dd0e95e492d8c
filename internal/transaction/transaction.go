package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/till/internal/money"
)

// Transaction is a completed sale recorded in the ledger. It is never updated
// in place; items may be removed and the whole transaction may be deleted.
type Transaction struct {
	ID        string
	CreatedAt time.Time
	Currency  string
	Items     []Item
}

// Item is one persisted line of a transaction. The discount is stored as an
// absolute amount per unit, never as a percentage.
type Item struct {
	ID             int64
	TransactionID  string
	ProductID      *string // nil once the product has been deleted
	ProductName    string  // empty when the product no longer exists
	Quantity       int
	UnitPrice      money.Money
	DiscountAmount money.Money
}

// ItemDraft is a line item waiting to be written as part of a new transaction.
type ItemDraft struct {
	ProductID      *string
	ProductName    string
	Quantity       int
	UnitPrice      money.Money
	DiscountAmount money.Money
}

func (i Item) DiscountedUnitPrice() money.Money {
	return money.Of(i.UnitPrice.Currency(), i.UnitPrice.Amount().Sub(i.DiscountAmount.Amount()))
}

func (i Item) TotalPrice() money.Money {
	return i.DiscountedUnitPrice().Times(int64(i.Quantity))
}

// TotalAmount is the sum of every item's total price. A transaction without
// items totals zero.
func (t *Transaction) TotalAmount() money.Money {
	sum := decimal.Zero
	for _, it := range t.Items {
		sum = sum.Add(it.TotalPrice().Amount())
	}

	return money.Of(t.Currency, sum)
}

// TotalDiscount is the sum of every item's discount multiplied by its quantity.
func (t *Transaction) TotalDiscount() money.Money {
	sum := decimal.Zero
	for _, it := range t.Items {
		sum = sum.Add(it.DiscountAmount.Amount().Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	return money.Of(t.Currency, sum)
}

func (t *Transaction) TotalQuantity() int {
	n := 0
	for _, it := range t.Items {
		n += it.Quantity
	}

	return n
}
