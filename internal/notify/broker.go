// Package notify turns committed writes into fresh query results for
// subscribers. Stores call Publish with the tables a write touched; Watch
// re-runs a query whenever one of its tables changes.
package notify

import (
	"context"
	"sync"
)

// Table names published by the stores.
const (
	TableProducts         = "products"
	TableTransactions     = "transactions"
	TableTransactionItems = "transaction_items"
)

type subscription struct {
	tables map[string]struct{}
	signal chan struct{}
}

// Broker fans out table change signals. The zero value is not usable; call NewBroker.
type Broker struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[*subscription]struct{})}
}

// Subscribe returns a channel that receives a value after any write to one of
// tables. Signals coalesce: several writes before the receiver drains the
// channel produce a single signal. The returned func releases the subscription.
func (b *Broker) Subscribe(tables ...string) (<-chan struct{}, func()) {
	sub := &subscription{
		tables: make(map[string]struct{}, len(tables)),
		signal: make(chan struct{}, 1),
	}
	for _, t := range tables {
		sub.tables[t] = struct{}{}
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once

	return sub.signal, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
		})
	}
}

// Publish signals every subscription interested in any of tables.
func (b *Broker) Publish(tables ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		if !sub.interested(tables) {
			continue
		}

		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

func (s *subscription) interested(tables []string) bool {
	for _, t := range tables {
		if _, ok := s.tables[t]; ok {
			return true
		}
	}

	return false
}

// Snapshot is one delivery of a watched query: either a result or the error
// the query failed with.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Watch runs load once immediately and again after every change to tables,
// delivering each result on the returned channel. A single goroutine serves
// the subscription, so a subscriber never receives an older result after a
// newer one. The channel is closed when ctx is done.
func Watch[T any](ctx context.Context, b *Broker, tables []string, load func(context.Context) (T, error)) <-chan Snapshot[T] {
	out := make(chan Snapshot[T])

	// Subscribe before the first load so a write racing with it is not lost.
	signal, cancel := b.Subscribe(tables...)

	go func() {
		defer close(out)
		defer cancel()

		for {
			v, err := load(ctx)
			if ctx.Err() != nil {
				return
			}

			select {
			case out <- Snapshot[T]{Value: v, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case <-signal:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
