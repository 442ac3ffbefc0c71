// Package httpapi assembles the chi router for the API binary.
package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	StaticDir      string
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	if opts.StaticDir != "" {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Get("/brands", app.ListBrands)

		r.Route("/jobs", func(r chi.Router) {
			r.With(middleware.RateLimit(10, time.Minute)).Post("/", app.CreateJob)
			r.Get("/{id}", app.GetJob)
			r.Get("/{id}/archive", app.DownloadArchive)
			r.Post("/{id}/cancel", app.CancelJob)
		})

		r.Get("/slots/next", app.NextSlot)

		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", app.CreateSchedule)
			r.Get("/{id}", app.GetSchedule)
			r.Post("/{id}/retry", app.RetrySchedule)
			r.Post("/{id}/reschedule", app.Reschedule)
			r.Post("/{id}/publish", app.PublishNow)
		})

		r.Post("/assets", app.UploadAsset)

		r.Route("/integrations", func(r chi.Router) {
			r.Put("/gemini", app.SetGeminiKey)
			r.Put("/meta", app.SetMetaCredentials)
			r.Put("/youtube", app.SetYouTubeToken)
		})
	})

	return r
}
