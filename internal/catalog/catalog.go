package catalog

import (
	"fmt"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/money"
)

// ErrUnknownProduct is returned when an update names a product id that does
// not exist.
var ErrUnknownProduct = fmt.Errorf("%w: unknown product", apperr.ErrInvalidArgument)

// Product is a sellable item. Barcodes are optional and not unique.
type Product struct {
	ID      string
	Name    string
	Barcode *string
	Price   money.Money
}

// Page is one page of a paginated catalog read. PrevKey is nil on the first
// page and NextKey is nil once a page comes back short.
type Page struct {
	Items   []*Product
	PrevKey *int
	NextKey *int
}
