// Package httpapi exposes the HTTP surface and the request pipeline that
// guards it: setup gate, rate limiting, authentication, and path sandboxing,
// applied in that order.
package httpapi

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"shareview/internal/db"
	"shareview/internal/i18n"
	"shareview/internal/webui"
)

type Server struct {
	DB      *db.DB
	Logger  *slog.Logger
	Catalog *i18n.Catalog
	Limits  *Limiters

	// ShareRoot is the served tree; ExcludedDir is the installation/data
	// directory that stays hidden even when nested under ShareRoot.
	ShareRoot   string
	ExcludedDir string

	SessionTTL time.Duration

	BindAddr string
	Port     int
	CertPath string
	KeyPath  string

	httpServer *http.Server
}

// Handler builds the routing tree. Middleware ordering is load-bearing:
// recovery and request logging wrap everything, the setup gate runs before
// any limiter, limiters run before identity work, and path validation
// happens inside handlers once identity is established.
func (s *Server) Handler() (http.Handler, error) {
	if s.DB == nil {
		return nil, errors.New("db is required")
	}
	if s.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if s.Catalog == nil {
		return nil, errors.New("message catalog is required")
	}
	if s.Limits == nil {
		return nil, errors.New("limiters are required")
	}
	if s.ShareRoot == "" {
		return nil, errors.New("share root is required")
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = 24 * time.Hour
	}

	staticFS, err := fs.Sub(webui.StaticFS, "static")
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(s.withRecover, s.withRequestLog, withSecurityHeaders, s.setupGate)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Get("/", s.servePage("index.html", true))
	r.Get("/login", s.servePage("login.html", false))
	r.Get("/setup", s.servePage("setup.html", false))

	r.With(s.limit(ClassAuth)).Post("/api/setup", s.handleSetup)
	r.With(s.limit(ClassAuth)).Post("/api/auth/login", s.handleLogin)
	r.With(s.requireUser).Post("/api/auth/logout", s.handleLogout)
	r.Get("/api/auth/status", s.handleAuthStatus)
	r.Put("/api/language", s.handleLanguage)
	r.Get("/api/i18n", s.handleI18n)

	r.With(s.limit(ClassAPI), s.requireUser).Get("/api/browse", s.handleBrowse)
	r.With(s.limit(ClassDownload), s.requireUser).Get("/download/*", s.handleDownload)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.limit(ClassAPI), s.requireAdmin)
		r.Get("/users", s.handleAdminListUsers)
		r.Post("/users", s.handleAdminCreateUser)
		r.Put("/users/{id}", s.handleAdminUpdateUser)
		r.Delete("/users/{id}", s.handleAdminDeleteUser)
		r.Post("/users/{id}/password", s.handleAdminSetPassword)
		r.Get("/settings", s.handleAdminGetSettings)
		r.Put("/settings", s.handleAdminPutSetting)
	})

	return r, nil
}

// servePage renders an embedded page. Pages behind requireSession redirect
// anonymous visitors to /login before any content is sent.
func (s *Server) servePage(name string, requireSession bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireSession {
			if _, ok := readSessionCookie(r); !ok {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
		}
		b, err := webui.StaticFS.ReadFile("static/" + name)
		if err != nil {
			s.Logger.Error("embedded page missing", "page", name, "err", err)
			writeInternalError(w)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	}
}

// ListenAndServe starts the HTTP (or HTTPS, when a cert pair is configured)
// listener and blocks until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	h, err := s.Handler()
	if err != nil {
		return err
	}
	addr := s.BindAddr + ":" + strconv.Itoa(s.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if s.CertPath != "" && s.KeyPath != "" {
		return s.httpServer.ListenAndServeTLS(s.CertPath, s.KeyPath)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
