package importer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/importer"
)

func TestService_Import(t *testing.T) {
	s := importer.NewService("GBP")

	got, err := s.Import(importer.FormatCSV, strings.NewReader("name,price\nScone,2.10\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Scone", got[0].Name)
	assert.Equal(t, "GBP", got[0].Price.Currency())

	_, err = s.Import("xlsx", strings.NewReader(""))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = s.Import(importer.FormatCSV, strings.NewReader("nothing here\n"))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
