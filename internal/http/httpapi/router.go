package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"receptionist/internal/http/handlers"
	"receptionist/internal/infra"
	"receptionist/internal/middleware"
)

// Options carries the cross-cutting settings of the router.
type Options struct {
	Logger          infra.Logger
	CORSOrigins     []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	StaticPath      string
	StaticDir       string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Logger(opts.Logger),
	)

	r.Get("/v1/healthz", app.Health)

	// Every generation call spends provider quota.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Post("/v1/chat", app.Chat)
		r.Post("/v1/analysis", app.AnalyzeMedia)
		r.Post("/v1/images", app.GenerateImage)
		r.Post("/v1/videos", app.GenerateVideo)
	})

	if prefix := staticPrefix(opts.StaticPath); prefix != "" && opts.StaticDir != "" {
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(opts.StaticDir)))
		r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
			if strings.HasSuffix(req.URL.Path, "/") {
				http.NotFound(w, req)
				return
			}
			files.ServeHTTP(w, req)
		})
	}

	return r
}

// staticPrefix returns the mount path for stored artifacts, or "" when the
// base URL points at another host.
func staticPrefix(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !strings.HasPrefix(base, "/") {
		return ""
	}
	return base
}
