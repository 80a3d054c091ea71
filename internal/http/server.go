package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/sheets"
	"fintrack/internal/validation"
	appweb "fintrack/web"

	"github.com/shopspring/decimal"
)

// Ledger is the part of the ledger service the web layer needs.
type Ledger interface {
	Append(ctx context.Context, e core.Entry) (core.Ledger, error)
	Report(goal decimal.Decimal) core.Report
	Ready() bool
}

// Deps groups the collaborators of a Server. Only Ledger is required.
type Deps struct {
	Ledger     Ledger
	Categories sheets.CategoryReader
	Metrics    *metrics.Recorder
	Logger     *log.Logger
	RateLimit  ratelimit.Config
	Validator  *validation.Validator
}

type Server struct {
	http.Server
	templates  *template.Template
	ledger     Ledger
	categories sheets.CategoryReader
	validator  *validation.Validator
	metrics    *metrics.Recorder
	limiter    *ratelimit.Limiter
	logger     *log.Logger
	startedAt  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Ledger == nil {
		return nil, errors.New("http server: ledger is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:  t,
		ledger:     deps.Ledger,
		categories: deps.Categories,
		validator:  v,
		metrics:    deps.Metrics,
		limiter:    ratelimit.NewLimiter(deps.RateLimit),
		logger:     logger.WithComponent(log.ComponentHTTP),
		startedAt:  time.Now(),
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/entries", s.handleAppendEntry)
	mux.HandleFunc("/ui/table", s.handleTable)
	mux.HandleFunc("/ui/trend", s.handleTrend)
	mux.HandleFunc("/ui/categories", s.handleCategories)
	mux.HandleFunc("/ui/savings", s.handleSavings)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// A nil *metrics.Recorder must not reach trace as a non-nil interface.
	var recorder trace.Recorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	tracer := trace.NewMiddleware(logger, extractClientIP, recorder)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, extractClientIP(r),
			log.FieldPath, r.URL.Path)
		TooManyRequestsError("Too many requests, slow down.").Write(w)
	}, http.MethodPost)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(headers.Middleware(limit(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
