package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/till/internal/http/importcsv"
	"github.com/MrJamesThe3rd/till/internal/http/product"
	"github.com/MrJamesThe3rd/till/internal/http/register"
	"github.com/MrJamesThe3rd/till/internal/http/report"
	"github.com/MrJamesThe3rd/till/internal/http/transaction"
)

type Options struct {
	AllowedOrigins []string
	// Timeout bounds every request except the ledger stream.
	Timeout time.Duration
}

func New(
	opts Options,
	productsV1 *product.Handler,
	transactionsV1 *transaction.Handler,
	registerV1 *register.Handler,
	reportsV1 *report.Handler,
	importV1 *importcsv.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/transactions/stream", transactionsV1.Stream)

		r.Group(func(r chi.Router) {
			if opts.Timeout > 0 {
				r.Use(middleware.Timeout(opts.Timeout))
			}

			r.Route("/import", importV1.Routes)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))

				r.Route("/products", productsV1.Routes)
				r.Route("/transactions", transactionsV1.Routes)
				r.Route("/register", registerV1.Routes)
				r.Route("/reports", reportsV1.Routes)
			})
		})
	})

	return router
}
