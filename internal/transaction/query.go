package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/till/internal/apperr"
)

// Query selects which transactions a read returns. It is one of AllQuery,
// DateRangeQuery, SearchQuery or DateRangeSearchQuery; each variant is served
// by its own prepared statement.
type Query interface {
	isQuery()
}

type AllQuery struct{}

// DateRangeQuery matches transactions created within [Start, End], inclusive.
type DateRangeQuery struct {
	Start time.Time
	End   time.Time
}

// SearchQuery matches transactions whose id or any item's product name
// contains Text, ignoring case.
type SearchQuery struct {
	Text string
}

type DateRangeSearchQuery struct {
	Start time.Time
	End   time.Time
	Text  string
}

func (AllQuery) isQuery()             {}
func (DateRangeQuery) isQuery()       {}
func (SearchQuery) isQuery()          {}
func (DateRangeSearchQuery) isQuery() {}

// Open ends used when a filter carries only one bound.
var (
	RangeFloor   = time.Unix(0, 0).UTC()
	RangeCeiling = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Filter is the caller-facing form of a Query. Nil bounds are open and blank
// text disables search. Bounds are used as given; callers adjust them to day
// boundaries in their own timezone.
type Filter struct {
	Start *time.Time
	End   *time.Time
	Text  string
}

// Query resolves f to the matching variant.
func (f Filter) Query() (Query, error) {
	text := strings.TrimSpace(f.Text)

	if f.Start == nil && f.End == nil {
		if text == "" {
			return AllQuery{}, nil
		}

		return SearchQuery{Text: text}, nil
	}

	start, end := RangeFloor, RangeCeiling
	if f.Start != nil {
		start = *f.Start
	}

	if f.End != nil {
		end = *f.End
	}

	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", apperr.ErrInvalidArgument,
			start.Format(time.DateTime), end.Format(time.DateTime))
	}

	if text == "" {
		return DateRangeQuery{Start: start, End: end}, nil
	}

	return DateRangeSearchQuery{Start: start, End: end, Text: text}, nil
}

// Page addresses one page of results. Number starts at 0. A zero Limit reads
// every row.
type Page struct {
	Number int
	Limit  int
}

// Unpaged reads every matching row.
var Unpaged = Page{}

func PageAt(number, limit int) Page {
	return Page{Number: number, Limit: limit}
}

func (p Page) Offset() int {
	return p.Number * p.Limit
}

func (p Page) validate() error {
	if p.Number < 0 || p.Limit < 0 {
		return fmt.Errorf("%w: page %d limit %d", apperr.ErrInvalidArgument, p.Number, p.Limit)
	}

	return nil
}
