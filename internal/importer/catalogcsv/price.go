package catalogcsv

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var errEmptyPrice = errors.New("empty price")

// parsePrice reads prices written either way round: "1.234,56", "1,234.56",
// "0,85" or "12". When both separators appear the last one is the decimal
// mark; a separator repeated on its own only groups thousands. Currency
// symbols and spaces are ignored.
func parsePrice(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' {
			return r
		}

		return -1
	}, s)

	if clean == "" {
		return decimal.Zero, errEmptyPrice
	}

	dot, comma := strings.LastIndexByte(clean, '.'), strings.LastIndexByte(clean, ',')

	var decimalMark, grouping string

	switch {
	case dot >= 0 && comma >= 0:
		if dot > comma {
			decimalMark, grouping = ".", ","
		} else {
			decimalMark, grouping = ",", "."
		}
	case comma >= 0:
		if strings.Count(clean, ",") > 1 {
			grouping = ","
		} else {
			decimalMark = ","
		}
	case dot >= 0:
		if strings.Count(clean, ".") > 1 {
			grouping = "."
		} else {
			decimalMark = "."
		}
	}

	if grouping != "" {
		clean = strings.ReplaceAll(clean, grouping, "")
	}

	if decimalMark == "," {
		clean = strings.Replace(clean, ",", ".", 1)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %q: %w", s, err)
	}

	return d, nil
}
