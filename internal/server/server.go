package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/reviewdash/internal/collect"
	"github.com/TobiSchelling/reviewdash/internal/compose"
	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/leaderboard"
	"github.com/TobiSchelling/reviewdash/internal/state"
	"github.com/TobiSchelling/reviewdash/internal/stats"
	"github.com/TobiSchelling/reviewdash/internal/triage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Options configure the server.
type Options struct {
	Leaderboard leaderboard.Options
	// Now is the clock used for week and month windows. Defaults to the
	// store's clock.
	Now func() time.Time
}

// Server is the HTTP server for the dashboard API and the TV digest.
type Server struct {
	store     *state.Store
	triager   *triage.Triager
	collector *collect.Collector
	opts      Options
	pages     map[string]*template.Template
	mux       *http.ServeMux
}

// New creates a new Server.
func New(store *state.Store, collector *collect.Collector, opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = store.Now
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"inc":      func(i int) int { return i + 1 },
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "digest.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		store:     store,
		triager:   triage.NewTriager(store),
		collector: collector,
		opts:      opts,
		pages:     pages,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /digest", s.handleDigest)

	// Read API
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("GET /api/queue", s.handleQueue)
	s.mux.HandleFunc("GET /api/overview", s.handleOverview)

	// Mutations
	s.mux.HandleFunc("POST /api/items/{id}/status", s.handleSetStatus)
	s.mux.HandleFunc("POST /api/items/{id}/assign", s.handleAssign)
	s.mux.HandleFunc("POST /api/items/{id}/manager-rating", s.handleManagerRating)
	s.mux.HandleFunc("PATCH /api/items/{id}", s.handlePatchItem)
	s.mux.HandleFunc("POST /api/brand", s.handleBrand)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/ingest", s.handleIngest)
}

func (s *Server) board(snap feedback.Snapshot) leaderboard.Board {
	return leaderboard.Aggregate(snap.Items, s.opts.Now(), s.opts.Leaderboard)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		log.Printf("Error loading state: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	board := s.board(snap)
	s.render(w, "index.html", map[string]any{
		"Brand":     snap.Brand,
		"Summary":   stats.Summarize(snap.Items),
		"Board":     board,
		"WeekRange": compose.WeekRange(board.WeekStart),
		"TopThemes": stats.TopThemes(board, 6),
		"Teams":     stats.TeamBreakdown(snap.Items),
		"Negative":  stats.NegativeThemes(snap.Items),
	})
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		log.Printf("Error loading state: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "digest.html", map[string]any{
		"Brand":    snap.Brand,
		"Markdown": compose.Digest(snap, s.board(snap), s.opts.Now()),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(store *state.Store, collector *collect.Collector, opts Options, port int) error {
	srv, err := New(store, collector, opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
