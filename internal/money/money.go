package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/till/internal/apperr"
)

// Scale is the number of fractional digits kept when a value is rounded or
// converted to its integer storage form.
const Scale = 5

var (
	ErrCurrencyMismatch = fmt.Errorf("%w: currency mismatch", apperr.ErrInvalidArgument)
	ErrOutOfRange       = fmt.Errorf("%w: amount outside storable range", apperr.ErrInvalidArgument)
)

// Bounds of an amount whose integer storage form fits in an int64.
var (
	MaxStorable = decimal.New(math.MaxInt64, -Scale)
	MinStorable = decimal.New(math.MinInt64, -Scale)
)

// RoundingMode selects how TimesDecimal rounds its result to Scale.
type RoundingMode int

const (
	HalfEven RoundingMode = iota
	HalfUp
	Down
	Floor
	Ceiling
)

func (r RoundingMode) round(d decimal.Decimal, places int32) decimal.Decimal {
	switch r {
	case HalfUp:
		return d.Round(places)
	case Down:
		return d.Truncate(places)
	case Floor:
		return d.RoundFloor(places)
	case Ceiling:
		return d.RoundCeil(places)
	default:
		return d.RoundBank(places)
	}
}

// Money is an immutable decimal amount in a single currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

func Of(currency string, amount decimal.Decimal) Money {
	return Money{amount: amount, currency: strings.ToUpper(currency)}
}

func Zero(currency string) Money {
	return Of(currency, decimal.Zero)
}

// FromMinor builds a Money from its integer storage form (amount * 10^Scale).
func FromMinor(currency string, minor int64) Money {
	return Of(currency, decimal.New(minor, -Scale))
}

// Parse reads a decimal string such as "12.50" into a Money.
func Parse(currency, s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: amount %q: %v", apperr.ErrInvalidArgument, s, err)
	}

	return Of(currency, d), nil
}

// KnownCurrency reports whether code is an ISO 4217 code go-money knows how to format.
func KnownCurrency(code string) bool {
	return gomoney.GetCurrency(strings.ToUpper(code)) != nil
}

// Sum adds values that all share currency. An empty list yields zero.
func Sum(currency string, values ...Money) (Money, error) {
	total := Zero(currency)

	for _, v := range values {
		var err error
		if total, err = total.Plus(v); err != nil {
			return Money{}, err
		}
	}

	return total, nil
}

func (m Money) Currency() string        { return m.currency }
func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) Neg() Money              { return Money{amount: m.amount.Neg(), currency: m.currency} }
func (m Money) Equal(n Money) bool      { return m.currency == n.currency && m.amount.Equal(n.amount) }

func (m Money) Times(n int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(n)), currency: m.currency}
}

func (m Money) sameCurrency(n Money) bool { return m.currency == n.currency }

func (m Money) Plus(n Money) (Money, error) {
	if !m.sameCurrency(n) {
		return Money{}, fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, m.currency, n.currency)
	}

	return Money{amount: m.amount.Add(n.amount), currency: m.currency}, nil
}

func (m Money) Minus(n Money) (Money, error) {
	if !m.sameCurrency(n) {
		return Money{}, fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, m.currency, n.currency)
	}

	return Money{amount: m.amount.Sub(n.amount), currency: m.currency}, nil
}

// Cmp returns -1, 0 or +1 as m is less than, equal to or greater than n.
func (m Money) Cmp(n Money) (int, error) {
	if !m.sameCurrency(n) {
		return 0, fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, m.currency, n.currency)
	}

	return m.amount.Cmp(n.amount), nil
}

// TimesDecimal multiplies by a decimal factor and rounds the result to Scale.
func (m Money) TimesDecimal(factor decimal.Decimal, mode RoundingMode) Money {
	return Money{amount: mode.round(m.amount.Mul(factor), Scale), currency: m.currency}
}

// ApplyDiscount returns m * (100-percent) / 100 rounded half-even to Scale.
func (m Money) ApplyDiscount(percent int) (Money, error) {
	if err := checkPercent(percent); err != nil {
		return Money{}, err
	}

	return m.TimesDecimal(decimal.New(int64(100-percent), -2), HalfEven), nil
}

// PercentOf returns m * percent / 100 rounded half-even to Scale.
func (m Money) PercentOf(percent int) (Money, error) {
	if err := checkPercent(percent); err != nil {
		return Money{}, err
	}

	return m.TimesDecimal(decimal.New(int64(percent), -2), HalfEven), nil
}

// CheckStorable returns ErrOutOfRange when m rounded to Scale does not fit
// the integer storage form.
func (m Money) CheckStorable() error {
	r := m.amount.RoundBank(Scale)
	if r.GreaterThan(MaxStorable) || r.LessThan(MinStorable) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, m.amount)
	}

	return nil
}

// ToMinor converts m to its integer storage form. The conversion is lossy
// beyond Scale digits and rounds half-even. Amounts failing CheckStorable do
// not convert meaningfully.
func (m Money) ToMinor() int64 {
	return m.amount.Shift(Scale).RoundBank(0).IntPart()
}

// Format renders m with the currency's symbol, separators and fraction digits.
func (m Money) Format() string {
	cur := *gomoney.New(0, m.currency).Currency()
	if cur.Template == "" {
		return m.amount.StringFixedBank(2) + " " + m.currency
	}

	minor := m.amount.Shift(int32(cur.Fraction)).RoundBank(0).IntPart()

	return cur.Formatter().Format(minor)
}

func (m Money) String() string { return m.Format() }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount    string `json:"amount"`
		Currency  string `json:"currency"`
		Formatted string `json:"formatted"`
	}{
		Amount:    m.amount.String(),
		Currency:  m.currency,
		Formatted: m.Format(),
	})
}

func checkPercent(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: percent %d outside [0,100]", apperr.ErrInvalidArgument, percent)
	}

	return nil
}
