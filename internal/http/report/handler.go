package report

import (
	"archive/zip"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/till/internal/http/params"
	"github.com/MrJamesThe3rd/till/internal/http/respond"
	"github.com/MrJamesThe3rd/till/internal/money"
	"github.com/MrJamesThe3rd/till/internal/report"
)

type Handler struct {
	svc *report.Service
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.summary)
	r.Get("/sales.csv", h.salesCSV)
	r.Get("/download", h.download)
}

type dayResponse struct {
	Date     string      `json:"date"`
	Count    int         `json:"count"`
	Quantity int         `json:"quantity"`
	Revenue  money.Money `json:"revenue"`
}

type summaryResponse struct {
	Count     int           `json:"count"`
	Quantity  int           `json:"quantity"`
	Gross     money.Money   `json:"gross"`
	Discounts money.Money   `json:"discounts"`
	Revenue   money.Money   `json:"revenue"`
	Days      []dayResponse `json:"days"`
	Text      string        `json:"text"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	filter, err := params.Filter(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	sum, err := h.svc.Summarize(r.Context(), filter)
	if err != nil {
		respond.Error(w, err)
		return
	}

	resp := summaryResponse{
		Count:     sum.Count,
		Quantity:  sum.Quantity,
		Gross:     sum.Gross,
		Discounts: sum.Discounts,
		Revenue:   sum.Revenue,
		Days:      make([]dayResponse, len(sum.Days)),
		Text:      h.svc.Text(sum),
	}

	for i, d := range sum.Days {
		resp.Days[i] = dayResponse{
			Date:     d.Date.Format(time.DateOnly),
			Count:    d.Count,
			Quantity: d.Quantity,
			Revenue:  d.Revenue,
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) salesCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := params.Filter(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	// Summarize first so a storage failure still gets a proper status code.
	if _, err := h.svc.Summarize(r.Context(), filter); err != nil {
		respond.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"sales_%s.csv\"", time.Now().Format("20060102")))

	if err := h.svc.WriteCSV(r.Context(), w, filter); err != nil {
		slog.Error("failed to write sales csv", "error", err)
	}
}

// download bundles the sales CSV and the text summary in one zip.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	filter, err := params.Filter(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	sum, err := h.svc.Summarize(r.Context(), filter)
	if err != nil {
		respond.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"report_%s.zip\"", time.Now().Format("20060102")))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	zf, err := zipWriter.Create("summary.txt")
	if err == nil {
		_, err = zf.Write([]byte(h.svc.Text(sum)))
	}

	if err == nil {
		if zf, err = zipWriter.Create("sales.csv"); err == nil {
			err = h.svc.WriteCSV(r.Context(), zf, filter)
		}
	}

	if err != nil {
		slog.Error("failed to create zip", "error", err)
	}
}
