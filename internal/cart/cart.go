// Package cart prices the sale being rung up at the register. A Cart is an
// immutable value: every operation returns a new Cart whose totals have been
// recomputed from its items.
//
// Item discounts are percentages applied to each unit price first. The
// whole-cart discount is a percentage of the subtotal after item discounts.
package cart

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

var ErrIndexOutOfRange = fmt.Errorf("%w: item index out of range", apperr.ErrInvalidArgument)

// Item is one line of the cart. UnitPrice is captured when the product is
// added and does not follow later catalog price changes.
type Item struct {
	Product         catalog.Product
	Quantity        int
	UnitPrice       money.Money
	DiscountPercent int
}

// DiscountedUnitPrice is the unit price after the item discount.
func (i Item) DiscountedUnitPrice() money.Money {
	d, _ := i.UnitPrice.ApplyDiscount(i.DiscountPercent) // percent validated on entry
	return d
}

// UnitDiscount is the absolute discount on a single unit.
func (i Item) UnitDiscount() money.Money {
	return money.Of(i.UnitPrice.Currency(), i.UnitPrice.Amount().Sub(i.DiscountedUnitPrice().Amount()))
}

func (i Item) OriginalPrice() money.Money { return i.UnitPrice.Times(int64(i.Quantity)) }
func (i Item) TotalPrice() money.Money    { return i.DiscountedUnitPrice().Times(int64(i.Quantity)) }

type Totals struct {
	OriginalSubtotal    money.Money // sum of unit price * quantity
	ItemDiscountTotal   money.Money
	Subtotal            money.Money // after item discounts
	CartDiscountAmount  money.Money
	TotalDiscountAmount money.Money
	FinalTotal          money.Money
	TotalQuantity       int
}

type Cart struct {
	currency        string
	items           []Item
	discountPercent int
	totals          Totals
}

// New returns an empty cart priced in currency.
func New(currency string) Cart {
	return Cart{currency: strings.ToUpper(currency)}.recompute()
}

func (c Cart) Currency() string     { return c.currency }
func (c Cart) Items() []Item        { return slices.Clone(c.items) }
func (c Cart) Len() int             { return len(c.items) }
func (c Cart) IsEmpty() bool        { return len(c.items) == 0 }
func (c Cart) DiscountPercent() int { return c.discountPercent }
func (c Cart) Totals() Totals       { return c.totals }

// AddOrIncrement adds quantity units of p. A product already in the cart has
// its quantity increased and keeps its position and original unit price.
func (c Cart) AddOrIncrement(p catalog.Product, quantity int) (Cart, error) {
	if quantity <= 0 {
		return c, fmt.Errorf("%w: quantity %d must be positive", apperr.ErrInvalidArgument, quantity)
	}

	if p.Price.Currency() != c.currency {
		return c, fmt.Errorf("%w: product %s priced in %s, cart uses %s",
			money.ErrCurrencyMismatch, p.ID, p.Price.Currency(), c.currency)
	}

	items := slices.Clone(c.items)

	i := slices.IndexFunc(items, func(it Item) bool { return it.Product.ID == p.ID })
	if i >= 0 {
		items[i].Quantity += quantity
	} else {
		items = append(items, Item{Product: p, Quantity: quantity, UnitPrice: p.Price})
	}

	return c.with(items), nil
}

// SetQuantity replaces the quantity of the item at index. A quantity of zero
// or less removes the item.
func (c Cart) SetQuantity(index, quantity int) (Cart, error) {
	if err := c.checkIndex(index); err != nil {
		return c, err
	}

	if quantity <= 0 {
		return c.RemoveItem(index)
	}

	items := slices.Clone(c.items)
	items[index].Quantity = quantity

	return c.with(items), nil
}

func (c Cart) RemoveItem(index int) (Cart, error) {
	if err := c.checkIndex(index); err != nil {
		return c, err
	}

	return c.with(slices.Delete(slices.Clone(c.items), index, index+1)), nil
}

func (c Cart) SetItemDiscount(index, percent int) (Cart, error) {
	if err := c.checkIndex(index); err != nil {
		return c, err
	}

	if err := checkPercent(percent); err != nil {
		return c, err
	}

	items := slices.Clone(c.items)
	items[index].DiscountPercent = percent

	return c.with(items), nil
}

func (c Cart) SetCartDiscount(percent int) (Cart, error) {
	if err := checkPercent(percent); err != nil {
		return c, err
	}

	next := c
	next.discountPercent = percent

	return next.recompute(), nil
}

// Clear empties the cart and drops the whole-cart discount.
func (c Cart) Clear() Cart {
	return New(c.currency)
}

// ToLedgerDraft converts the items into ledger drafts. This is the only place
// a percentage discount becomes an absolute amount; the ledger stores the
// amount so recorded sales do not change if percentage rounding ever does.
// The whole-cart discount is not part of the drafts.
func (c Cart) ToLedgerDraft() []transaction.ItemDraft {
	drafts := make([]transaction.ItemDraft, len(c.items))

	for i, it := range c.items {
		drafts[i] = transaction.ItemDraft{
			ProductID:      new(it.Product.ID),
			ProductName:    it.Product.Name,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			DiscountAmount: it.UnitDiscount(),
		}
	}

	return drafts
}

func (c Cart) with(items []Item) Cart {
	next := c
	next.items = items

	return next.recompute()
}

func (c Cart) recompute() Cart {
	original, subtotal := decimal.Zero, decimal.Zero
	quantity := 0

	for _, it := range c.items {
		original = original.Add(it.OriginalPrice().Amount())
		subtotal = subtotal.Add(it.TotalPrice().Amount())
		quantity += it.Quantity
	}

	sub := money.Of(c.currency, subtotal)
	cartDiscount, _ := sub.PercentOf(c.discountPercent) // percent validated on entry
	itemDiscount := original.Sub(subtotal)

	c.totals = Totals{
		OriginalSubtotal:    money.Of(c.currency, original),
		ItemDiscountTotal:   money.Of(c.currency, itemDiscount),
		Subtotal:            sub,
		CartDiscountAmount:  cartDiscount,
		TotalDiscountAmount: money.Of(c.currency, itemDiscount.Add(cartDiscount.Amount())),
		FinalTotal:          money.Of(c.currency, subtotal.Sub(cartDiscount.Amount())),
		TotalQuantity:       quantity,
	}

	return c
}

func (c Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(c.items))
	}

	return nil
}

func checkPercent(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: discount percent %d outside [0,100]", apperr.ErrInvalidArgument, percent)
	}

	return nil
}
