package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"foodviz/internal/http/handlers"
	"foodviz/internal/middleware"
	"foodviz/internal/session"
)

// Options wires the cross-cutting pieces of the dashboard API.
type Options struct {
	Sessions      session.Store
	AllowedOrigin []string
	LoginLimit    int
	DefaultLocale string
	CountryLookup middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigin),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.With(middleware.RateLimit(opts.LoginLimit, time.Minute)).Post("/v1/login", app.Login)
	r.Post("/v1/logout", app.Logout)

	r.Route("/v1/settings", func(r chi.Router) {
		r.Get("/", app.GetSettings)
		r.Put("/", app.UpdateSettings)
		r.Delete("/", app.ResetSettings)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(opts.Sessions))

		r.Get("/v1/me", app.Me)
		r.Put("/v1/me", app.UpdateProfile)

		r.Route("/v1/products", func(r chi.Router) {
			r.Get("/", app.ListProducts)
			r.Post("/", app.CreateProduct)
			r.Get("/export.xlsx", app.ExportProducts)
			r.Post("/import", app.ImportProducts)
			r.Get("/{id}", app.GetProduct)
			r.Delete("/{id}", app.DeleteProduct)
			r.Get("/{id}/qr.png", app.ProductQR)
			r.Get("/{id}/bundle.zip", app.ProductBundle)
		})

		r.Route("/v1/categories", func(r chi.Router) {
			r.Get("/", app.ListCategories)
			r.Post("/", app.CreateCategory)
			r.Delete("/{id}", app.DeleteCategory)
		})

		r.Route("/v1/conversions", func(r chi.Router) {
			r.Get("/", app.ListConversions)
			r.Post("/", app.StartConversion)
			r.Get("/{productId}", app.GetConversion)
			r.Post("/{productId}/retry", app.RetryConversion)
		})

		r.Get("/v1/analytics", app.Analytics)
	})

	return r
}
