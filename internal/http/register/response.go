package register

import (
	"github.com/MrJamesThe3rd/till/internal/cart"
	"github.com/MrJamesThe3rd/till/internal/money"
)

type cartItemResponse struct {
	ProductID           string      `json:"product_id"`
	ProductName         string      `json:"product_name"`
	Quantity            int         `json:"quantity"`
	UnitPrice           money.Money `json:"unit_price"`
	DiscountPercent     int         `json:"discount_percent"`
	DiscountedUnitPrice money.Money `json:"discounted_unit_price"`
	TotalPrice          money.Money `json:"total_price"`
}

type totalsResponse struct {
	OriginalSubtotal    money.Money `json:"original_subtotal"`
	ItemDiscountTotal   money.Money `json:"item_discount_total"`
	Subtotal            money.Money `json:"subtotal"`
	CartDiscountAmount  money.Money `json:"cart_discount_amount"`
	TotalDiscountAmount money.Money `json:"total_discount_amount"`
	FinalTotal          money.Money `json:"final_total"`
	TotalQuantity       int         `json:"total_quantity"`
}

type cartResponse struct {
	Currency        string             `json:"currency"`
	Items           []cartItemResponse `json:"items"`
	DiscountPercent int                `json:"discount_percent"`
	Totals          totalsResponse     `json:"totals"`
}

func toCartResponse(c cart.Cart) cartResponse {
	items := c.Items()
	t := c.Totals()

	resp := cartResponse{
		Currency:        c.Currency(),
		Items:           make([]cartItemResponse, len(items)),
		DiscountPercent: c.DiscountPercent(),
		Totals: totalsResponse{
			OriginalSubtotal:    t.OriginalSubtotal,
			ItemDiscountTotal:   t.ItemDiscountTotal,
			Subtotal:            t.Subtotal,
			CartDiscountAmount:  t.CartDiscountAmount,
			TotalDiscountAmount: t.TotalDiscountAmount,
			FinalTotal:          t.FinalTotal,
			TotalQuantity:       t.TotalQuantity,
		},
	}

	for i, it := range items {
		resp.Items[i] = cartItemResponse{
			ProductID:           it.Product.ID,
			ProductName:         it.Product.Name,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			DiscountPercent:     it.DiscountPercent,
			DiscountedUnitPrice: it.DiscountedUnitPrice(),
			TotalPrice:          it.TotalPrice(),
		}
	}

	return resp
}
