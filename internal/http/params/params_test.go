package params_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/http/params"
)

func TestFilter(t *testing.T) {
	r := httptest.NewRequest("GET", "/?start_date=2024-03-01&end_date=2024-03-02&q=tea", nil)

	f, err := params.Filter(r)
	require.NoError(t, err)

	assert.Equal(t, "tea", f.Text)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), *f.Start)
	assert.Equal(t, time.Date(2024, 3, 2, 23, 59, 59, 0, time.Local), *f.End)
}

func TestFilter_Open(t *testing.T) {
	f, err := params.Filter(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.Nil(t, f.Start)
	assert.Nil(t, f.End)
	assert.Empty(t, f.Text)
}

func TestFilter_Invalid(t *testing.T) {
	for _, target := range []string{"/?start_date=yesterday", "/?end_date=2024-13-01"} {
		_, err := params.Filter(httptest.NewRequest("GET", target, nil))
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument, target)
	}
}

func TestPage(t *testing.T) {
	p, err := params.Page(httptest.NewRequest("GET", "/?page=2&limit=25", nil))
	require.NoError(t, err)
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, 25, p.Limit)

	p, err = params.Page(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Zero(t, p.Limit)

	_, err = params.Page(httptest.NewRequest("GET", "/?limit=ten", nil))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
