package catalogcsv

import "strings"

// Profile describes the header layout of a product list export.
// Adding a new layout is just adding a new Profile to the profiles slice.
type Profile struct {
	Name       string
	NameCol    string
	BarcodeCol string // optional in the file even when set
	PriceCol   string
}

// requiredCols returns the column names that must be present for this profile to match.
func (p Profile) requiredCols() []string {
	return []string{p.NameCol, p.PriceCol}
}

// profiles is the ordered list of layouts to try during auto-detection.
// Column names are compared case-insensitively.
var profiles = []Profile{
	{
		Name:       "english",
		NameCol:    "name",
		BarcodeCol: "barcode",
		PriceCol:   "price",
	},
	{
		Name:       "artigos",
		NameCol:    "designação",
		BarcodeCol: "código de barras",
		PriceCol:   "preço",
	},
	{
		Name:       "pvp",
		NameCol:    "nome",
		BarcodeCol: "ean",
		PriceCol:   "pvp",
	},
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
