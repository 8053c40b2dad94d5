// Package webapp serves the Telegram mini-app forms: the profile editor and
// the bid form. Forms submit through Telegram.WebApp.sendData, so the server
// only renders pages; submissions arrive at the bot as web-app data.
package webapp

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server hosts the mini-app pages.
type Server struct {
	srv       *http.Server
	templates *template.Template
	logger    *slog.Logger
}

// NewServer parses the embedded templates and prepares an HTTP server on addr.
func NewServer(addr string, logger *slog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse webapp templates: %w", err)
	}

	s := &Server{templates: tmpl, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/webapp", s.handleProfileForm).Methods(http.MethodGet)
	r.HandleFunc("/bid-form", s.handleBidForm).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start serves until the listener is closed.
func (s *Server) Start() error {
	s.logger.Info("webapp listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webapp server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// profileOptions are the choice lists rendered into the profile form.
var profileOptions = map[string][]string{
	"positions": {
		"front developer",
		"back developer",
		"fullstack developer",
		"data scientist",
		"devops engineer",
		"mobile developer",
	},
	"availability": {"part-time", "full-time", "hourly"},
	"location":     {"remote", "on-site", "hybrid"},
	"languages":    {"English", "Spanish", "French", "German", "Chinese"},
	"currency":     {"USD", "EUR", "GBP"},
}

func (s *Server) handleProfileForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "profile_form.html", map[string]any{"Options": profileOptions})
}

func (s *Server) handleBidForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobID, err := strconv.ParseInt(q.Get("job_id"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid job_id", http.StatusBadRequest)
		return
	}
	currency := q.Get("currency")
	if currency == "" {
		currency = "USD"
	}
	s.render(w, "bid_form.html", map[string]any{
		"JobID":    jobID,
		"Title":    q.Get("title"),
		"Currency": currency,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("rendering template failed", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
