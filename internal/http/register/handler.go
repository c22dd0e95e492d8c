package register

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/cart"
	"github.com/MrJamesThe3rd/till/internal/http/respond"
	httptx "github.com/MrJamesThe3rd/till/internal/http/transaction"
	"github.com/MrJamesThe3rd/till/internal/register"
)

type Handler struct {
	session *register.Session
}

func NewHandler(session *register.Session) *Handler {
	return &Handler{session: session}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/cart", h.cart)
	r.Delete("/cart", h.clear)
	r.Put("/cart/discount", h.setCartDiscount)
	r.Post("/cart/items", h.add)
	r.Post("/cart/scan", h.scan)
	r.Put("/cart/items/{index}", h.setQuantity)
	r.Delete("/cart/items/{index}", h.removeItem)
	r.Put("/cart/items/{index}/discount", h.setItemDiscount)
	r.Post("/checkout", h.checkout)
}

type addRequest struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
	Quantity  int    `json:"quantity"`
}

// quantity defaults to one unit when omitted.
func (req addRequest) quantity() int {
	if req.Quantity == 0 {
		return 1
	}

	return req.Quantity
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type discountRequest struct {
	Percent int `json:"percent"`
}

func (h *Handler) cart(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, toCartResponse(h.session.Cart()))
}

func (h *Handler) clear(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, toCartResponse(h.session.Clear()))
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	h.write(w)(h.session.Add(r.Context(), req.ProductID, req.quantity()))
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	h.write(w)(h.session.Scan(r.Context(), req.Barcode, req.quantity()))
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	var req quantityRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	h.write(w)(h.session.SetQuantity(index, req.Quantity))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	h.write(w)(h.session.RemoveItem(index))
}

func (h *Handler) setItemDiscount(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	var req discountRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	h.write(w)(h.session.SetItemDiscount(index, req.Percent))
}

func (h *Handler) setCartDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	h.write(w)(h.session.SetCartDiscount(req.Percent))
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	tx, err := h.session.Checkout(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, httptx.ToResponse(tx))
}

func (h *Handler) write(w http.ResponseWriter) func(cart.Cart, error) {
	return func(c cart.Cart, err error) {
		if err != nil {
			respond.Error(w, err)
			return
		}

		respond.JSON(w, http.StatusOK, toCartResponse(c))
	}
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respond.Error(w, fmt.Errorf("%w: item index: %w", apperr.ErrInvalidArgument, err))
		return 0, false
	}

	return index, true
}
