package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"faulttree/internal/fragment"
	"faulttree/internal/model"
	"faulttree/internal/navigator"
	"faulttree/internal/render"

	"github.com/sirupsen/logrus"
)

//go:embed static/index.html
var staticFS embed.FS

//go:embed help.md
var helpMD string

var indexTmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"trail": FormatTrail,
}).ParseFS(staticFS, "static/index.html"))

// Options configures a Server.
type Options struct {
	Cache    *fragment.Cache
	Resolver fragment.Resolver
	Root     model.FragmentPath
	DataDir  string // Served under /data/ when set
	Policy   navigator.MatchPolicy
	Log      *logrus.Entry
}

// Server answers browser requests from the shared fragment cache. Every
// request builds its own controller, so handlers never share tree state.
type Server struct {
	opts Options
	html *render.HTML
	log  *logrus.Entry
	mux  *http.ServeMux
}

func NewServer(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		opts: opts,
		html: render.NewHTML(),
		log:  log.WithField("component", "web"),
		mux:  http.NewServeMux(),
	}

	s.mux.HandleFunc("/", s.withRecovery(s.handleIndex))
	s.mux.HandleFunc("/api/page", s.withRecovery(s.handlePage))
	s.mux.HandleFunc("/api/search", s.withRecovery(s.handleSearch))
	s.mux.HandleFunc("/api/help", s.withRecovery(handleHelp))
	s.mux.HandleFunc("/healthz", s.withRecovery(s.handleHealth))
	if opts.DataDir != "" {
		// Fragment paths carry their own data/ prefix, so the directory is served as is.
		s.mux.Handle("/data/", http.FileServer(http.Dir(opts.DataDir)))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// StartServer serves until ctx is cancelled.
func StartServer(ctx context.Context, addr string, s *Server) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("Starting faulttree web server at http://%s\n", addr)
	fmt.Printf("Go to http://%s in your browser.\n", addr)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) withRecovery(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.WithField("panic", err).Errorf("handler panic\n%s", debug.Stack())
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// controller returns a fresh controller seeded with the root fragment.
func (s *Server) controller(ctx context.Context) (*navigator.Controller, error) {
	c := navigator.New(s.opts.Cache,
		navigator.WithLogger(s.log),
		navigator.WithResolver(s.opts.Resolver),
		navigator.WithMatchPolicy(s.opts.Policy),
	)
	return c, c.LoadRoot(ctx, s.opts.Root)
}

// expanded returns a controller with every reachable folder open. Folder
// failures stay on their handles; only a missing root is an error.
func (s *Server) expanded(ctx context.Context) (*navigator.Controller, error) {
	if _, err := fragment.Prefetch(ctx, s.opts.Cache, s.opts.Resolver, s.opts.Root); err != nil {
		s.log.WithError(err).Debug("prefetch incomplete")
	}
	c, err := s.controller(ctx)
	if err != nil {
		return c, err
	}
	if err := c.ExpandAll(ctx); err != nil {
		s.log.WithError(err).Debug("some folders could not be expanded")
	}
	return c, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	c, err := s.expanded(r.Context())
	data := struct {
		Version string
		Error   string
		Nodes   []navigator.ExportNode
	}{
		Version: model.Version,
		Nodes:   navigator.Export(c),
	}
	if err != nil {
		data.Error = err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.log.WithError(err).Warn("index template failed")
	}
}

// PageResponse is the JSON body of /api/page.
type PageResponse struct {
	Title      string   `json:"title"`
	Trail      []int    `json:"trail"`
	Breadcrumb string   `json:"breadcrumb"`
	Notes      []string `json:"notes"`
	HTML       string   `json:"html"`
	Images     []string `json:"images,omitempty"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	trail, err := ParseTrail(r.URL.Query().Get("trail"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := s.controller(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h, err := c.Find(r.Context(), trail)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if !h.IsPage() {
		http.Error(w, fmt.Sprintf("%q is a folder", h.Title()), http.StatusBadRequest)
		return
	}

	sel := c.Select(h)
	body, err := s.html.Render(*sel.Page)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, PageResponse{
		Title:      h.Title(),
		Trail:      h.Trail(),
		Breadcrumb: c.Breadcrumb(),
		Notes:      c.Notes(),
		HTML:       body,
		Images:     navigator.ImageRefs(*sel.Page),
	})
}

// SearchMatch is one hit of /api/search.
type SearchMatch struct {
	Title      string     `json:"title"`
	Type       model.Kind `json:"type"`
	Trail      []int      `json:"trail"`
	Breadcrumb string     `json:"breadcrumb"`
}

// SearchResponse is the JSON body of /api/search.
type SearchResponse struct {
	Keyword   string        `json:"keyword"`
	Matches   []SearchMatch `json:"matches"`
	NoResults bool          `json:"noResults"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	c, err := s.expanded(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	res := c.ApplyFilter(r.URL.Query().Get("q"))
	out := SearchResponse{Keyword: res.Keyword, Matches: []SearchMatch{}, NoResults: res.NoResults}
	for _, h := range res.Matches {
		out.Matches = append(out.Matches, SearchMatch{
			Title:      h.Title(),
			Type:       h.Node.Type,
			Trail:      h.Trail(),
			Breadcrumb: navigator.Breadcrumb(h.Lineage()),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"version":   model.Version,
		"fragments": s.opts.Cache.Len(),
		"fetches":   s.opts.Cache.Fetches(),
		"source":    s.opts.Cache.Fetcher().Name(),
	})
}

func handleHelp(w http.ResponseWriter, r *http.Request) {
	text := strings.ReplaceAll(helpMD, "{{VERSION}}", model.Version)

	w.Header().Set("Content-Type", "text/markdown")
	w.Write([]byte(text))
}

// ParseTrail parses a dotted trail such as "0.2.1".
func ParseTrail(s string) ([]int, error) {
	if s == "" {
		return nil, errors.New("trail is required")
	}
	parts := strings.Split(s, ".")
	trail := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid trail %q", s)
		}
		trail[i] = n
	}
	return trail, nil
}

// FormatTrail is the inverse of ParseTrail.
func FormatTrail(trail []int) string {
	parts := make([]string, len(trail))
	for i, n := range trail {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

func statusFor(err error) int {
	var fe *model.FetchError
	var pe *model.ParseError
	var re *model.ResolutionError
	switch {
	case errors.As(err, &fe), errors.As(err, &pe):
		return http.StatusBadGateway
	case errors.As(err, &re):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusNotFound
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
