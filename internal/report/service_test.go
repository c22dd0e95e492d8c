package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

type fakeLedger struct {
	txs []*transaction.Transaction
	err error
}

func (f *fakeLedger) List(_ context.Context, _ transaction.Filter, _ transaction.Page) ([]*transaction.Transaction, error) {
	return f.txs, f.err
}

func eur(s string) money.Money {
	return money.Of("EUR", decimal.RequireFromString(s))
}

func ledger() *fakeLedger {
	coffee := "p-coffee"

	return &fakeLedger{txs: []*transaction.Transaction{
		{
			ID:        "t3",
			CreatedAt: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
			Currency:  "EUR",
			Items: []transaction.Item{
				{ID: 3, ProductID: &coffee, ProductName: "Coffee", Quantity: 2, UnitPrice: eur("1.50"), DiscountAmount: eur("0.15")},
			},
		},
		{
			ID:        "t2",
			CreatedAt: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
			Currency:  "EUR",
			Items: []transaction.Item{
				{ID: 2, Quantity: 1, UnitPrice: eur("10"), DiscountAmount: eur("0")},
			},
		},
		{
			ID:        "t1",
			CreatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
			Currency:  "EUR",
			Items: []transaction.Item{
				{ID: 1, ProductID: &coffee, ProductName: "Coffee", Quantity: 1, UnitPrice: eur("1.50"), DiscountAmount: eur("0")},
			},
		},
	}}
}

func TestService_Summarize(t *testing.T) {
	s := NewService(ledger(), "EUR", time.UTC)

	sum, err := s.Summarize(context.Background(), transaction.Filter{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if sum.Count != 3 || sum.Quantity != 4 {
		t.Errorf("expected 3 sales and 4 items, got %d and %d", sum.Count, sum.Quantity)
	}

	checks := map[string]struct {
		got  money.Money
		want string
	}{
		"gross":     {sum.Gross, "14.50"},
		"discounts": {sum.Discounts, "0.30"},
		"revenue":   {sum.Revenue, "14.20"},
	}

	for name, c := range checks {
		if !c.got.Equal(eur(c.want)) {
			t.Errorf("%s: expected %s, got %s", name, c.want, c.got.Amount())
		}
	}

	if len(sum.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(sum.Days))
	}

	if sum.Days[0].Date.Day() != 1 || sum.Days[0].Count != 2 || !sum.Days[0].Revenue.Equal(eur("11.50")) {
		t.Errorf("unexpected first day %+v", sum.Days[0])
	}

	if sum.Days[1].Date.Day() != 2 || !sum.Days[1].Revenue.Equal(eur("2.70")) {
		t.Errorf("unexpected second day %+v", sum.Days[1])
	}
}

func TestService_SummarizeBucketsInLocation(t *testing.T) {
	lisbonSummer := time.FixedZone("WEST", 3600)
	s := NewService(&fakeLedger{txs: []*transaction.Transaction{{
		ID:        "late",
		CreatedAt: time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC),
		Currency:  "EUR",
	}}}, "EUR", lisbonSummer)

	sum, err := s.Summarize(context.Background(), transaction.Filter{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if len(sum.Days) != 1 || sum.Days[0].Date.Day() != 2 {
		t.Errorf("expected the sale on May 2nd local time, got %+v", sum.Days)
	}

	if !sum.Revenue.IsZero() {
		t.Errorf("expected zero revenue for a sale without items")
	}
}

func TestService_SummarizeError(t *testing.T) {
	s := NewService(&fakeLedger{err: errors.New("boom")}, "EUR", time.UTC)

	if _, err := s.Summarize(context.Background(), transaction.Filter{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_WriteCSV(t *testing.T) {
	s := NewService(ledger(), "EUR", time.UTC)

	var buf bytes.Buffer
	if err := s.WriteCSV(context.Background(), &buf, transaction.Filter{}); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(records))
	}

	want := []string{"t3", "2024-05-02T09:00:00Z", "3", "p-coffee", "Coffee", "2", "1.5", "0.15", "2.7"}
	if strings.Join(records[1], ",") != strings.Join(want, ",") {
		t.Errorf("unexpected first row %v", records[1])
	}

	if records[2][3] != "" || records[2][4] != "" {
		t.Errorf("expected empty product columns for an item without product, got %v", records[2])
	}
}

func TestService_Text(t *testing.T) {
	s := NewService(ledger(), "EUR", time.UTC)

	sum, err := s.Summarize(context.Background(), transaction.Filter{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	body := s.Text(sum)

	expectedSubstrings := []string{
		"Sales: 3 | Items: 4",
		"* 2024-05-01 | 2 sales | 2 items |",
		"* 2024-05-02 | 1 sales | 2 items |",
	}

	for _, sub := range expectedSubstrings {
		if !strings.Contains(body, sub) {
			t.Errorf("expected body to contain %q, got:\n%s", sub, body)
		}
	}
}
