package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/id"
	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/notify"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=catalog
type Repository interface {
	List(ctx context.Context) ([]*Product, error)
	Search(ctx context.Context, query string) ([]*Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
	Page(ctx context.Context, query string, limit, offset int) ([]*Product, error)

	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Set(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error

	BeginImport(ctx context.Context) (ImportTx, error)
}

// ImportTx is the unit of work behind ImportBatch.
type ImportTx interface {
	FindByBarcodes(ctx context.Context, barcodes []string) ([]*Product, error)
	CreateProducts(ctx context.Context, products []*Product) error
	UpdateProducts(ctx context.Context, products []*Product) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo     Repository
	broker   *notify.Broker
	ids      id.Generator
	currency string
}

func NewService(repo Repository, broker *notify.Broker, ids id.Generator, currency string) *Service {
	return &Service{
		repo:     repo,
		broker:   broker,
		ids:      ids,
		currency: strings.ToUpper(currency),
	}
}

type CreateParams struct {
	Name    string
	Barcode string
	Price   money.Money
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Product, error) {
	p := s.newProduct(params)
	if err := s.validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	s.broker.Publish(notify.TableProducts)

	return p, nil
}

// Update replaces the name, barcode and price of an existing product.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: product id is required", apperr.ErrInvalidArgument)
	}

	normalize(p)

	if err := s.validate(p); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("updating product %s: %w", p.ID, err)
	}

	s.broker.Publish(notify.TableProducts)

	return nil
}

// Set inserts p, or replaces the product that already has its id.
func (s *Service) Set(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = s.ids.NewID()
	}

	normalize(p)

	if err := s.validate(p); err != nil {
		return err
	}

	if err := s.repo.Set(ctx, p); err != nil {
		return fmt.Errorf("setting product %s: %w", p.ID, err)
	}

	s.broker.Publish(notify.TableProducts)

	return nil
}

// Get returns nil without an error when no product has the id.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// FindByBarcode returns the first product carrying barcode, or nil.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode is required", apperr.ErrInvalidArgument)
	}

	return s.repo.FindByBarcode(ctx, barcode)
}

func (s *Service) List(ctx context.Context) ([]*Product, error) {
	return s.repo.List(ctx)
}

// Search matches query against name and barcode, ignoring case. A blank
// query lists everything.
func (s *Service) Search(ctx context.Context, query string) ([]*Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.List(ctx)
	}

	return s.repo.Search(ctx, query)
}

// Delete removes the product. Ledger items that referenced it keep their
// prices but lose the product reference.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting product %s: %w", id, err)
	}

	s.broker.Publish(notify.TableProducts, notify.TableTransactionItems)

	return nil
}

func (s *Service) DeleteAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("deleting all products: %w", err)
	}

	s.broker.Publish(notify.TableProducts, notify.TableTransactionItems)

	return nil
}

func (s *Service) Watch(ctx context.Context) <-chan notify.Snapshot[[]*Product] {
	return notify.Watch(ctx, s.broker, []string{notify.TableProducts}, s.List)
}

func (s *Service) WatchSearch(ctx context.Context, query string) <-chan notify.Snapshot[[]*Product] {
	return notify.Watch(ctx, s.broker, []string{notify.TableProducts}, func(ctx context.Context) ([]*Product, error) {
		return s.Search(ctx, query)
	})
}

// Page loads page pageIndex of size pageSize, optionally filtered by query.
func (s *Service) Page(ctx context.Context, pageIndex, pageSize int, query string) (*Page, error) {
	if pageIndex < 0 || pageSize <= 0 {
		return nil, fmt.Errorf("%w: page %d size %d", apperr.ErrInvalidArgument, pageIndex, pageSize)
	}

	items, err := s.repo.Page(ctx, strings.TrimSpace(query), pageSize, pageIndex*pageSize)
	if err != nil {
		return nil, err
	}

	page := &Page{Items: items}

	if pageIndex > 0 {
		page.PrevKey = new(pageIndex - 1)
	}

	if len(items) == pageSize {
		page.NextKey = new(pageIndex + 1)
	}

	return page, nil
}

type ImportResult struct {
	Created []*Product
	Updated []*Product
}

// ImportBatch creates the given products in one unit. A row whose barcode is
// already in the catalog updates that product instead of adding a new one.
func (s *Service) ImportBatch(ctx context.Context, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	incoming := make([]*Product, len(params))

	var barcodes []string

	for i, p := range params {
		incoming[i] = s.newProduct(p)
		if err := s.validate(incoming[i]); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		if incoming[i].Barcode != nil {
			barcodes = append(barcodes, *incoming[i].Barcode)
		}
	}

	itx, err := s.repo.BeginImport(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	var existing []*Product
	if len(barcodes) > 0 {
		if existing, err = itx.FindByBarcodes(ctx, barcodes); err != nil {
			return nil, fmt.Errorf("find by barcodes: %w", err)
		}
	}

	lookup := make(map[string]*Product, len(existing))
	for _, e := range existing {
		if _, seen := lookup[*e.Barcode]; !seen {
			lookup[*e.Barcode] = e
		}
	}

	result := &ImportResult{}

	for _, p := range incoming {
		if p.Barcode != nil {
			if e, found := lookup[*p.Barcode]; found {
				p.ID = e.ID
				result.Updated = append(result.Updated, p)

				continue
			}

			lookup[*p.Barcode] = p
		}

		result.Created = append(result.Created, p)
	}

	if len(result.Created) > 0 {
		if err := itx.CreateProducts(ctx, result.Created); err != nil {
			return nil, fmt.Errorf("create products: %w", err)
		}
	}

	if len(result.Updated) > 0 {
		if err := itx.UpdateProducts(ctx, result.Updated); err != nil {
			return nil, fmt.Errorf("update products: %w", err)
		}
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	s.broker.Publish(notify.TableProducts)

	return result, nil
}

func (s *Service) newProduct(params CreateParams) *Product {
	p := &Product{
		ID:    s.ids.NewID(),
		Name:  params.Name,
		Price: params.Price,
	}

	if params.Barcode != "" {
		p.Barcode = &params.Barcode
	}

	normalize(p)

	return p
}

func (s *Service) validate(p *Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", apperr.ErrInvalidArgument)
	}

	if p.Price.Currency() != s.currency {
		return fmt.Errorf("%w: price in %q, catalog uses %s", apperr.ErrInvalidArgument, p.Price.Currency(), s.currency)
	}

	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price %s", apperr.ErrInvalidArgument, p.Price)
	}

	if err := p.Price.CheckStorable(); err != nil {
		return err
	}

	return nil
}

// normalize trims the name and drops a blank barcode.
func normalize(p *Product) {
	p.Name = strings.TrimSpace(p.Name)

	if p.Barcode != nil {
		code := strings.TrimSpace(*p.Barcode)
		if code == "" {
			p.Barcode = nil
		} else {
			p.Barcode = &code
		}
	}
}
