package product

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/http/params"
	"github.com/MrJamesThe3rd/till/internal/http/respond"
	"github.com/MrJamesThe3rd/till/internal/money"
)

type Handler struct {
	svc      *catalog.Service
	currency string
}

func NewHandler(svc *catalog.Service, currency string) *Handler {
	return &Handler{svc: svc, currency: currency}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Delete("/", h.deleteAll)
	r.Get("/page", h.page)
	r.Get("/barcode/{code}", h.findByBarcode)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.set)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type productRequest struct {
	Name    string `json:"name"`
	Barcode string `json:"barcode"`
	Price   string `json:"price"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	price, err := money.Parse(h.currency, req.Price)
	if err != nil {
		respond.Error(w, err)
		return
	}

	p, err := h.svc.Create(r.Context(), catalog.CreateParams{Name: req.Name, Barcode: req.Barcode, Price: price})
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, ToResponse(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponseList(products))
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	index, err := params.Int(r, "page", 0)
	if err != nil {
		respond.Error(w, err)
		return
	}

	size, err := params.Int(r, "size", 20)
	if err != nil {
		respond.Error(w, err)
		return
	}

	page, err := h.svc.Page(r.Context(), index, size, r.URL.Query().Get("q"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, pageResponse{
		Items:   ToResponseList(page.Items),
		PrevKey: page.PrevKey,
		NextKey: page.NextKey,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	h.writeProduct(w)(h.svc.Get(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) findByBarcode(w http.ResponseWriter, r *http.Request) {
	h.writeProduct(w)(h.svc.FindByBarcode(r.Context(), chi.URLParam(r, "code")))
}

func (h *Handler) writeProduct(w http.ResponseWriter) func(*catalog.Product, error) {
	return func(p *catalog.Product, err error) {
		if err != nil {
			respond.Error(w, err)
			return
		}

		if p == nil {
			respond.NotFound(w, "product")
			return
		}

		respond.JSON(w, http.StatusOK, ToResponse(p))
	}
}

// set creates or replaces the product with the path id.
func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	if err := h.svc.Set(r.Context(), p); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(p))
}

// update replaces an existing product and fails for unknown ids.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	if err := h.svc.Update(r.Context(), p); err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(p))
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (*catalog.Product, bool) {
	var req productRequest
	if !respond.Decode(w, r, &req) {
		return nil, false
	}

	price, err := money.Parse(h.currency, req.Price)
	if err != nil {
		respond.Error(w, err)
		return nil, false
	}

	p := &catalog.Product{ID: chi.URLParam(r, "id"), Name: req.Name, Price: price}
	if req.Barcode != "" {
		p.Barcode = &req.Barcode
	}

	return p, true
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
