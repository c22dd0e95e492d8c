package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/clock"
	"github.com/MrJamesThe3rd/till/internal/id"
	"github.com/MrJamesThe3rd/till/internal/notify"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	// CreateWithItems writes the header and all items as one unit. Item ids
	// are filled in on success.
	CreateWithItems(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, q Query, page Page) ([]*Transaction, error)
	Count(ctx context.Context, q Query) (int, error)

	RemoveItem(ctx context.Context, itemID int64) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// Tables whose writes can change a ledger read. Product rows are included
// because search matches product names.
// ErrNoItems is returned when a transaction is created without items.
var ErrNoItems = fmt.Errorf("%w: transaction has no items", apperr.ErrInvalidArgument)

var watchedTables = []string{notify.TableTransactions, notify.TableTransactionItems, notify.TableProducts}

type Service struct {
	repo     Repository
	broker   *notify.Broker
	clock    clock.Clock
	ids      id.Generator
	currency string
}

func NewService(repo Repository, broker *notify.Broker, clk clock.Clock, ids id.Generator, currency string) *Service {
	return &Service{
		repo:     repo,
		broker:   broker,
		clock:    clk,
		ids:      ids,
		currency: strings.ToUpper(currency),
	}
}

// Create records a transaction stamped with createdAt, truncated to the second.
// Drafts are validated before anything is written.
func (s *Service) Create(ctx context.Context, createdAt time.Time, drafts []ItemDraft) (*Transaction, error) {
	if len(drafts) == 0 {
		return nil, ErrNoItems
	}

	for i, d := range drafts {
		if err := s.validateDraft(d); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	tx := &Transaction{
		ID:        s.ids.NewID(),
		CreatedAt: createdAt.Truncate(time.Second),
		Currency:  s.currency,
		Items:     make([]Item, len(drafts)),
	}

	for i, d := range drafts {
		tx.Items[i] = Item{
			TransactionID:  tx.ID,
			ProductID:      d.ProductID,
			ProductName:    d.ProductName,
			Quantity:       d.Quantity,
			UnitPrice:      d.UnitPrice,
			DiscountAmount: d.DiscountAmount,
		}
	}

	if err := s.repo.CreateWithItems(ctx, tx); err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	s.broker.Publish(notify.TableTransactions, notify.TableTransactionItems)

	return tx, nil
}

// Record creates a transaction stamped with the current time.
func (s *Service) Record(ctx context.Context, drafts []ItemDraft) (*Transaction, error) {
	return s.Create(ctx, s.clock.Now(), drafts)
}

// Get returns nil without an error when no transaction has the id.
func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, page Page) ([]*Transaction, error) {
	q, err := filter.Query()
	if err != nil {
		return nil, err
	}

	if err := page.validate(); err != nil {
		return nil, err
	}

	return s.repo.List(ctx, q, page)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	q, err := filter.Query()
	if err != nil {
		return 0, err
	}

	return s.repo.Count(ctx, q)
}

// Watch streams the filtered page now and again after every ledger write until
// ctx is done.
func (s *Service) Watch(ctx context.Context, filter Filter, page Page) (<-chan notify.Snapshot[[]*Transaction], error) {
	q, err := filter.Query()
	if err != nil {
		return nil, err
	}

	if err := page.validate(); err != nil {
		return nil, err
	}

	return notify.Watch(ctx, s.broker, watchedTables, func(ctx context.Context) ([]*Transaction, error) {
		return s.repo.List(ctx, q, page)
	}), nil
}

// WatchAll streams the whole ledger.
func (s *Service) WatchAll(ctx context.Context) <-chan notify.Snapshot[[]*Transaction] {
	return notify.Watch(ctx, s.broker, watchedTables, func(ctx context.Context) ([]*Transaction, error) {
		return s.repo.List(ctx, AllQuery{}, Unpaged)
	})
}

// WatchCount streams the number of transactions matching filter.
func (s *Service) WatchCount(ctx context.Context, filter Filter) (<-chan notify.Snapshot[int], error) {
	q, err := filter.Query()
	if err != nil {
		return nil, err
	}

	return notify.Watch(ctx, s.broker, watchedTables, func(ctx context.Context) (int, error) {
		return s.repo.Count(ctx, q)
	}), nil
}

// RemoveItem deletes one line. The transaction stays even when it has no
// items left.
func (s *Service) RemoveItem(ctx context.Context, itemID int64) error {
	if err := s.repo.RemoveItem(ctx, itemID); err != nil {
		return fmt.Errorf("removing item %d: %w", itemID, err)
	}

	s.broker.Publish(notify.TableTransactionItems)

	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}

	s.broker.Publish(notify.TableTransactions, notify.TableTransactionItems)

	return nil
}

// DeleteAll wipes the ledger.
func (s *Service) DeleteAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("deleting all transactions: %w", err)
	}

	s.broker.Publish(notify.TableTransactions, notify.TableTransactionItems)

	return nil
}

func (s *Service) validateDraft(d ItemDraft) error {
	if d.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %d must be positive", apperr.ErrInvalidArgument, d.Quantity)
	}

	if d.UnitPrice.Currency() != s.currency || d.DiscountAmount.Currency() != s.currency {
		return fmt.Errorf("%w: item priced in %s, ledger uses %s",
			apperr.ErrInvalidArgument, d.UnitPrice.Currency(), s.currency)
	}

	if d.UnitPrice.IsNegative() || d.DiscountAmount.IsNegative() {
		return fmt.Errorf("%w: negative price or discount", apperr.ErrInvalidArgument)
	}

	if err := d.UnitPrice.CheckStorable(); err != nil {
		return err
	}

	if d.DiscountAmount.Amount().GreaterThan(d.UnitPrice.Amount()) {
		return fmt.Errorf("%w: discount %s exceeds unit price %s",
			apperr.ErrInvalidArgument, d.DiscountAmount, d.UnitPrice)
	}

	return nil
}
