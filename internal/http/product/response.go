package product

import (
	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/money"
)

type Response struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Barcode *string     `json:"barcode"`
	Price   money.Money `json:"price"`
}

type pageResponse struct {
	Items   []Response `json:"items"`
	PrevKey *int       `json:"prev_key"`
	NextKey *int       `json:"next_key"`
}

func ToResponse(p *catalog.Product) Response {
	return Response{ID: p.ID, Name: p.Name, Barcode: p.Barcode, Price: p.Price}
}

func ToResponseList(products []*catalog.Product) []Response {
	resp := make([]Response, len(products))
	for i, p := range products {
		resp[i] = ToResponse(p)
	}

	return resp
}
