package importcsv

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/till/internal/catalog"
	"github.com/MrJamesThe3rd/till/internal/http/product"
	"github.com/MrJamesThe3rd/till/internal/http/respond"
	"github.com/MrJamesThe3rd/till/internal/importer"
)

type Handler struct {
	importSvc  *importer.Service
	catalogSvc *catalog.Service
}

func NewHandler(importSvc *importer.Service, catalogSvc *catalog.Service) *Handler {
	return &Handler{
		importSvc:  importSvc,
		catalogSvc: catalogSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type importResponse struct {
	Created []product.Response `json:"created"`
	Updated []product.Response `json:"updated"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(importer.Format(r.FormValue("format")), file)
	if err != nil {
		respond.Error(w, err)
		return
	}

	result, err := h.catalogSvc.ImportBatch(r.Context(), params)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, importResponse{
		Created: product.ToResponseList(result.Created),
		Updated: product.ToResponseList(result.Updated),
	})
}
