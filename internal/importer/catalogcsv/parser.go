// Package catalogcsv reads product lists from CSV files exported by
// spreadsheets or other point of sale systems.
package catalogcsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/till/internal/catalog"
	enc "github.com/MrJamesThe3rd/till/internal/encoding"
	"github.com/MrJamesThe3rd/till/internal/money"
)

var ErrNoProfile = errors.New("no matching product list format found: expected name and price columns")

// separators are tried in order; the first that yields a known header wins.
var separators = []rune{';', ','}

// Parser reads product CSV files. It auto-detects the text encoding, the
// field separator and which header layout is being used.
type Parser struct {
	currency string
}

func NewParser(currency string) *Parser {
	return &Parser{currency: currency}
}

func (p *Parser) Parse(r io.Reader) ([]catalog.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	for _, sep := range separators {
		rows, err := readRows(data, sep)
		if err != nil {
			continue
		}

		profile, cols, headerIdx := detectProfile(rows)
		if profile == nil {
			continue
		}

		return p.parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
	}

	return nil, ErrNoProfile
}

func readRows(data []byte, sep rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return rows, nil
}

// colIndex maps normalized column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header that matches a known profile.
// Returns the matched profile, column index map, and header row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := normalizeHeader(cell)
			if _, seen := cols[name]; name != "" && !seen {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows extracts products from data rows using the matched profile.
// Blank rows are skipped; a row with only one of name and price is an error.
func (p *Parser) parseRows(prof *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]catalog.CreateParams, error) {
	nameIdx := cols[prof.NameCol]
	priceIdx := cols[prof.PriceCol]

	barcodeIdx, hasBarcode := cols[prof.BarcodeCol]
	if !hasBarcode {
		barcodeIdx = -1
	}

	var out []catalog.CreateParams

	for i, row := range rows {
		rowNum := headerRowNum + i + 1 // 1-based

		name := cellValue(row, nameIdx)
		rawPrice := cellValue(row, priceIdx)

		if name == "" && rawPrice == "" {
			continue
		}

		if name == "" {
			return nil, fmt.Errorf("row %d: missing name", rowNum)
		}

		price, err := parsePrice(rawPrice)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		out = append(out, catalog.CreateParams{
			Name:    name,
			Barcode: cellValue(row, barcodeIdx),
			Price:   money.Of(p.currency, price),
		})
	}

	return out, nil
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return trimCell(row[idx])
}

// trimCell strips whitespace and the ="..." wrapper spreadsheets put around
// numeric codes to keep their leading zeros.
func trimCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(s)
}
