// Package report aggregates the ledger into sales summaries and CSV exports.
//
// Figures come from recorded items only. A whole-cart discount given at the
// register is not stored in the ledger, so Revenue is the total after item
// discounts and can exceed what customers paid for sales that had a cart
// discount.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

// Ledger is the read side of the transaction service.
type Ledger interface {
	List(ctx context.Context, filter transaction.Filter, page transaction.Page) ([]*transaction.Transaction, error)
}

// DayTotal aggregates the sales of one calendar day.
type DayTotal struct {
	Date     time.Time
	Count    int
	Quantity int
	Revenue  money.Money
}

// Summary aggregates the sales matching a filter.
type Summary struct {
	Count     int
	Quantity  int
	Gross     money.Money // before discounts
	Discounts money.Money
	Revenue   money.Money // after item discounts, before any cart discount
	Days      []DayTotal  // oldest first
}

// Service builds sales reports over the ledger.
type Service struct {
	ledger   Ledger
	currency string
	loc      *time.Location
}

// NewService creates a report service. Days are bucketed in loc.
func NewService(ledger Ledger, currency string, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}

	return &Service{ledger: ledger, currency: strings.ToUpper(currency), loc: loc}
}

// Summarize totals every transaction matching filter.
func (s *Service) Summarize(ctx context.Context, filter transaction.Filter) (*Summary, error) {
	txs, err := s.ledger.List(ctx, filter, transaction.Unpaged)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	gross, discounts, revenue := decimal.Zero, decimal.Zero, decimal.Zero
	sum := &Summary{Count: len(txs)}

	days := make(map[time.Time]*DayTotal)
	dayRevenue := make(map[time.Time]decimal.Decimal)

	for _, tx := range txs {
		y, m, d := tx.CreatedAt.In(s.loc).Date()
		key := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

		day, ok := days[key]
		if !ok {
			day = &DayTotal{Date: key}
			days[key] = day
		}

		day.Count++

		for _, it := range tx.Items {
			q := decimal.NewFromInt(int64(it.Quantity))

			gross = gross.Add(it.UnitPrice.Amount().Mul(q))
			discounts = discounts.Add(it.DiscountAmount.Amount().Mul(q))
			revenue = revenue.Add(it.TotalPrice().Amount())
			dayRevenue[key] = dayRevenue[key].Add(it.TotalPrice().Amount())

			sum.Quantity += it.Quantity
			day.Quantity += it.Quantity
		}
	}

	sum.Gross = money.Of(s.currency, gross)
	sum.Discounts = money.Of(s.currency, discounts)
	sum.Revenue = money.Of(s.currency, revenue)

	for key, day := range days {
		day.Revenue = money.Of(s.currency, dayRevenue[key])
		sum.Days = append(sum.Days, *day)
	}

	slices.SortFunc(sum.Days, func(a, b DayTotal) int { return a.Date.Compare(b.Date) })

	return sum, nil
}

var csvHeader = []string{
	"transaction_id", "created_at", "item_id", "product_id", "product_name",
	"quantity", "unit_price", "discount_amount", "total_price",
}

// WriteCSV writes one row per transaction item, newest transaction first.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer, filter transaction.Filter) error {
	txs, err := s.ledger.List(ctx, filter, transaction.Unpaged)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, tx := range txs {
		created := tx.CreatedAt.In(s.loc).Format(time.RFC3339)

		for _, it := range tx.Items {
			productID := ""
			if it.ProductID != nil {
				productID = *it.ProductID
			}

			if err := cw.Write([]string{
				tx.ID,
				created,
				strconv.FormatInt(it.ID, 10),
				productID,
				it.ProductName,
				strconv.Itoa(it.Quantity),
				it.UnitPrice.Amount().String(),
				it.DiscountAmount.Amount().String(),
				it.TotalPrice().Amount().String(),
			}); err != nil {
				return fmt.Errorf("writing transaction %s: %w", tx.ID, err)
			}
		}
	}

	cw.Flush()

	return cw.Error()
}

// Text renders a plain-text summary suitable for an email or a terminal.
func (s *Service) Text(sum *Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Sales: %d | Items: %d\n", sum.Count, sum.Quantity)
	fmt.Fprintf(&sb, "Gross: %s | Discounts: %s | Revenue: %s\n", sum.Gross, sum.Discounts, sum.Revenue)

	for _, d := range sum.Days {
		fmt.Fprintf(&sb, "* %s | %d sales | %d items | %s\n", d.Date.Format(time.DateOnly), d.Count, d.Quantity, d.Revenue)
	}

	return sb.String()
}
