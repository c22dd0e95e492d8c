package transaction

import (
	"time"

	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

type Response struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	Currency      string         `json:"currency"`
	Items         []itemResponse `json:"items"`
	TotalAmount   money.Money    `json:"total_amount"`
	TotalDiscount money.Money    `json:"total_discount"`
	TotalQuantity int            `json:"total_quantity"`
}

type itemResponse struct {
	ID             int64       `json:"id"`
	ProductID      *string     `json:"product_id"`
	ProductName    string      `json:"product_name"`
	Quantity       int         `json:"quantity"`
	UnitPrice      money.Money `json:"unit_price"`
	DiscountAmount money.Money `json:"discount_amount"`
	TotalPrice     money.Money `json:"total_price"`
}

func ToResponse(tx *transaction.Transaction) Response {
	resp := Response{
		ID:            tx.ID,
		CreatedAt:     tx.CreatedAt,
		Currency:      tx.Currency,
		Items:         make([]itemResponse, len(tx.Items)),
		TotalAmount:   tx.TotalAmount(),
		TotalDiscount: tx.TotalDiscount(),
		TotalQuantity: tx.TotalQuantity(),
	}

	for i, it := range tx.Items {
		resp.Items[i] = itemResponse{
			ID:             it.ID,
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			DiscountAmount: it.DiscountAmount,
			TotalPrice:     it.TotalPrice(),
		}
	}

	return resp
}

func toResponseList(txs []*transaction.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}
