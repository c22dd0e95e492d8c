package importer

import (
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/importer/catalogcsv"
)

type Service struct {
	csvImporter Importer
}

func NewService(currency string) *Service {
	return &Service{
		csvImporter: catalogcsv.NewParser(currency),
	}
}

func (s *Service) Import(format Format, r io.Reader) ([]catalog.CreateParams, error) {
	var importer Importer

	switch format {
	case FormatCSV, "":
		importer = s.csvImporter
	default:
		return nil, fmt.Errorf("%w: unknown import format %q", apperr.ErrInvalidArgument, format)
	}

	params, err := importer.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidArgument, err)
	}

	return params, nil
}
