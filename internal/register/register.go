// Package register holds the cart of the single active register and turns it
// into a ledger transaction at checkout.
package register

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/cart"
	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

var (
	ErrProductNotFound = fmt.Errorf("%w: product not found", apperr.ErrInvalidArgument)
	ErrEmptyCart       = fmt.Errorf("%w: cart is empty", apperr.ErrInvalidArgument)
)

// Products resolves cart additions.
type Products interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*catalog.Product, error)
}

// Ledger records completed sales.
type Ledger interface {
	Record(ctx context.Context, drafts []transaction.ItemDraft) (*transaction.Transaction, error)
}

type Session struct {
	products Products
	ledger   Ledger

	mu   sync.Mutex
	cart cart.Cart
}

func NewSession(products Products, ledger Ledger, currency string) *Session {
	return &Session{
		products: products,
		ledger:   ledger,
		cart:     cart.New(currency),
	}
}

// Cart returns the current cart.
func (s *Session) Cart() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cart
}

func (s *Session) Add(ctx context.Context, productID string, quantity int) (cart.Cart, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return s.Cart(), fmt.Errorf("looking up product: %w", err)
	}

	if p == nil {
		return s.Cart(), fmt.Errorf("%w: id %s", ErrProductNotFound, productID)
	}

	return s.update(func(c cart.Cart) (cart.Cart, error) { return c.AddOrIncrement(*p, quantity) })
}

// Scan adds the first product carrying barcode.
func (s *Session) Scan(ctx context.Context, barcode string, quantity int) (cart.Cart, error) {
	p, err := s.products.FindByBarcode(ctx, barcode)
	if err != nil {
		return s.Cart(), fmt.Errorf("looking up barcode: %w", err)
	}

	if p == nil {
		return s.Cart(), fmt.Errorf("%w: barcode %s", ErrProductNotFound, barcode)
	}

	return s.update(func(c cart.Cart) (cart.Cart, error) { return c.AddOrIncrement(*p, quantity) })
}

func (s *Session) SetQuantity(index, quantity int) (cart.Cart, error) {
	return s.update(func(c cart.Cart) (cart.Cart, error) { return c.SetQuantity(index, quantity) })
}

func (s *Session) RemoveItem(index int) (cart.Cart, error) {
	return s.update(func(c cart.Cart) (cart.Cart, error) { return c.RemoveItem(index) })
}

func (s *Session) SetItemDiscount(index, percent int) (cart.Cart, error) {
	return s.update(func(c cart.Cart) (cart.Cart, error) { return c.SetItemDiscount(index, percent) })
}

func (s *Session) SetCartDiscount(percent int) (cart.Cart, error) {
	return s.update(func(c cart.Cart) (cart.Cart, error) { return c.SetCartDiscount(percent) })
}

func (s *Session) Clear() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = s.cart.Clear()

	return s.cart
}

// Checkout records the cart as a transaction and starts a new cart. If the
// write fails the cart is kept so the sale can be retried.
func (s *Session) Checkout(ctx context.Context) (*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	tx, err := s.ledger.Record(ctx, s.cart.ToLedgerDraft())
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	s.cart = s.cart.Clear()

	return tx, nil
}

func (s *Session) update(fn func(cart.Cart) (cart.Cart, error)) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.cart)
	if err != nil {
		return s.cart, err
	}

	s.cart = next

	return next, nil
}
