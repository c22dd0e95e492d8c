package transaction

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/till/internal/apperr"
	"github.com/MrJamesThe3rd/till/internal/http/params"
	"github.com/MrJamesThe3rd/till/internal/http/respond"
	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/transaction"
)

type Handler struct {
	svc      *transaction.Service
	currency string
}

func NewHandler(svc *transaction.Service, currency string) *Handler {
	return &Handler{svc: svc, currency: currency}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Delete("/", h.deleteAll)
	r.Get("/count", h.count)
	r.Delete("/items/{itemID}", h.removeItem)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

type createItemRequest struct {
	ProductID      *string `json:"product_id,omitempty"`
	ProductName    string  `json:"product_name"`
	Quantity       int     `json:"quantity"`
	UnitPrice      string  `json:"unit_price"`
	DiscountAmount string  `json:"discount_amount,omitempty"`
}

type createTransactionRequest struct {
	CreatedAt *time.Time          `json:"created_at,omitempty"`
	Items     []createItemRequest `json:"items"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	drafts := make([]transaction.ItemDraft, len(req.Items))

	for i, it := range req.Items {
		d, err := h.toDraft(it)
		if err != nil {
			respond.Error(w, fmt.Errorf("item %d: %w", i, err))
			return
		}

		drafts[i] = d
	}

	var (
		tx  *transaction.Transaction
		err error
	)

	if req.CreatedAt != nil {
		tx, err = h.svc.Create(r.Context(), *req.CreatedAt, drafts)
	} else {
		tx, err = h.svc.Record(r.Context(), drafts)
	}

	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, ToResponse(tx))
}

func (h *Handler) toDraft(it createItemRequest) (transaction.ItemDraft, error) {
	price, err := money.Parse(h.currency, it.UnitPrice)
	if err != nil {
		return transaction.ItemDraft{}, err
	}

	discount := money.Zero(h.currency)
	if it.DiscountAmount != "" {
		if discount, err = money.Parse(h.currency, it.DiscountAmount); err != nil {
			return transaction.ItemDraft{}, err
		}
	}

	return transaction.ItemDraft{
		ProductID:      it.ProductID,
		ProductName:    it.ProductName,
		Quantity:       it.Quantity,
		UnitPrice:      price,
		DiscountAmount: discount,
	}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := params.Filter(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	page, err := params.Page(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	txs, err := h.svc.List(r.Context(), filter, page)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(txs))
}

type countResponse struct {
	Count int `json:"count"`
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	filter, err := params.Filter(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	n, err := h.svc.Count(r.Context(), filter)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	if tx == nil {
		respond.NotFound(w, "transaction")
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAll(r.Context()); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		respond.Error(w, fmt.Errorf("%w: item id: %w", apperr.ErrInvalidArgument, err))
		return
	}

	if err := h.svc.RemoveItem(r.Context(), itemID); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stream sends the filtered page as server-sent events: once on connect and
// again after every ledger write, until the client goes away.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	filter, err := params.Filter(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	page, err := params.Page(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	snapshots, err := h.svc.Watch(r.Context(), filter, page)
	if err != nil {
		respond.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range snapshots {
		event, data := "transactions", []byte(nil)

		if snap.Err != nil {
			slog.Error("ledger stream failed", "error", snap.Err)
			event, data = "error", []byte(strconv.Quote("ledger unavailable"))
		} else if data, err = json.Marshal(toResponseList(snap.Value)); err != nil {
			slog.Error("failed to encode stream event", "error", err)
			return
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return
		}

		flusher.Flush()
	}
}
