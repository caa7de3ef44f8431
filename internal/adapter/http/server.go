package adapthttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"tourbook/internal/app"
)

// Services bundles the application services the HTTP adapter drives.
type Services struct {
	Auth    *app.AuthService
	Listing *app.ListingService
	Tours   *app.TourService
	Stats   *app.StatsService
}

// Options tunes the HTTP adapter.
type Options struct {
	CORSOrigins   []string
	SessionTTL    time.Duration
	MaxUploadSize int64

	// When ServeUploads is set, stored files are served from these
	// directories under /uploads/avatars/ and /uploads/tours/.
	ServeUploads bool
	AvatarDir    string
	TourImageDir string
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth    *app.AuthService
	listing *app.ListingService
	tours   *app.TourService
	stats   *app.StatsService
	sso     *SSO
	opts    Options
	log     *zap.Logger
}

// New creates a Server wired to the given application services. sso may
// be nil when single sign-on is not configured.
func New(svc Services, sso *SSO, opts Options, log *zap.Logger) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 10 << 20
	}
	return &Server{
		auth:    svc.Auth,
		listing: svc.Listing,
		tours:   svc.Tours,
		stats:   svc.Stats,
		sso:     sso,
		opts:    opts,
		log:     log,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(withNoCache, s.visitorMiddleware)

	api.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	api.HandleFunc("/experiences", s.handleExperiences).Methods(http.MethodGet)

	api.HandleFunc("/tours", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/tours/1", http.StatusFound)
	}).Methods(http.MethodGet)
	api.HandleFunc("/tours/{page:[0-9]+}", s.handleListing).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/tours/view/{id:[0-9]+}", s.handleTourView).Methods(http.MethodGet)
	api.Handle("/tours/{id:[0-9]+}/apply", s.authMiddleware(http.HandlerFunc(s.handleApply))).Methods(http.MethodPost)

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	auth.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	auth.HandleFunc("/sso/login", s.handleSSOLogin).Methods(http.MethodGet)
	auth.HandleFunc("/sso/callback", s.handleSSOCallback).Methods(http.MethodGet)

	api.Handle("/settings", s.authMiddleware(http.HandlerFunc(s.handleSettings))).Methods(http.MethodGet, http.MethodPost)
	api.Handle("/username-available/{username}", s.authMiddleware(http.HandlerFunc(s.handleUsernameAvailable))).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.authMiddleware, adminMiddleware)
	admin.HandleFunc("/tours", s.handleCreateTour).Methods(http.MethodPost)
	admin.HandleFunc("/tours/{id:[0-9]+}", s.handleEditTour).Methods(http.MethodPut)
	admin.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)

	if s.opts.ServeUploads {
		r.PathPrefix("/uploads/avatars/").Handler(serveFiles("/uploads/avatars/", s.opts.AvatarDir))
		r.PathPrefix("/uploads/tours/").Handler(serveFiles("/uploads/tours/", s.opts.TourImageDir))
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return s.loggingMiddleware(c.Handler(r))
}

// serveFiles serves the files of dir under prefix without directory listings.
func serveFiles(prefix, dir string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
