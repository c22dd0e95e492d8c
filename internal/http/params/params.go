// Package params reads the query parameters shared by the ledger endpoints.
package params

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

// Filter reads start_date, end_date (YYYY-MM-DD, inclusive, local time) and q.
func Filter(r *http.Request) (transaction.Filter, error) {
	q := r.URL.Query()
	filter := transaction.Filter{Text: q.Get("q")}

	if s := q.Get("start_date"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			return filter, fmt.Errorf("%w: start_date: %w", apperr.ErrInvalidArgument, err)
		}

		filter.Start = &t
	}

	if s := q.Get("end_date"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			return filter, fmt.Errorf("%w: end_date: %w", apperr.ErrInvalidArgument, err)
		}

		filter.End = new(t.AddDate(0, 0, 1).Add(-time.Second))
	}

	return filter, nil
}

// Page reads page and limit. Without a limit every row is returned.
func Page(r *http.Request) (transaction.Page, error) {
	number, err := Int(r, "page", 0)
	if err != nil {
		return transaction.Unpaged, err
	}

	limit, err := Int(r, "limit", 0)
	if err != nil {
		return transaction.Unpaged, err
	}

	return transaction.PageAt(number, limit), nil
}

func Int(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", apperr.ErrInvalidArgument, name, err)
	}

	return n, nil
}
