package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"workdash/internal/cache"
	"workdash/internal/core"
	applog "workdash/internal/log"
	"workdash/internal/middleware/ratelimit"
	"workdash/internal/middleware/security"
	"workdash/internal/middleware/trace"
	"workdash/internal/services"
	"workdash/internal/session"
	"workdash/internal/sheets"
	appweb "workdash/web"
)

// Dependencies are the collaborators of the dashboard server. Sample and
// Sheets are optional table sources.
type Dependencies struct {
	Imports   *services.ImportService
	Dashboard *services.DashboardService
	Sessions  session.Store
	Sample    sheets.TableReader
	Sheets    sheets.TableReader
	Logger    *applog.Logger

	// Cleaners are swept every CleanupInterval alongside the report cache.
	Cleaners        []cache.Cleaner
	CleanupInterval time.Duration

	SessionTTL         time.Duration
	MaxUploadBytes     int64
	RateLimitPerMinute int
}

type appMetrics struct {
	uptime        time.Time
	imports       int64
	failedImports int64
	downloads     int64
}

type Server struct {
	http.Server
	templates *template.Template
	imports   *services.ImportService
	dashboard *services.DashboardService
	sessions  session.Store
	sample    sheets.TableReader
	sheets    sheets.TableReader
	logger    *applog.Logger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware
	caches           *cache.Manager
	appMetrics       appMetrics

	sessionTTL     time.Duration
	maxUploadBytes int64
	now            func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		imports:          deps.Imports,
		dashboard:        deps.Dashboard,
		sessions:         deps.Sessions,
		sample:           deps.Sample,
		sheets:           deps.Sheets,
		logger:           logger,
		securityDetector: security.NewDetector(),
		caches:           cache.NewManager(logger.Logger),
		appMetrics:       appMetrics{uptime: time.Now()},
		sessionTTL:       deps.SessionTTL,
		maxUploadBytes:   deps.MaxUploadBytes,
		now:              time.Now,
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 2 * time.Hour
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = 32 << 20
	}

	limits := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limits.RequestsPerMinute = deps.RateLimitPerMinute
	}
	s.rateLimiter = ratelimit.NewLimiter(limits)
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	if s.dashboard != nil {
		s.caches.Register(s.dashboard.Cache())
	}
	for _, c := range deps.Cleaners {
		s.caches.Register(c)
	}
	interval := deps.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	s.caches.StartCleanup(interval)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err, applog.FieldComponent, applog.ComponentTemplate)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Imports
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/import/sample", s.handleImportSample)
	mux.HandleFunc("/import/sheets", s.handleImportSheets)
	mux.Handle("/download.csv", noStore(s.handleDownload))

	// Session view state
	mux.HandleFunc("/session/window", s.handleSessionWindow)
	mux.HandleFunc("/session/theme", s.handleSessionTheme)
	mux.HandleFunc("/session/reset", s.handleSessionReset)

	// UI partials
	mux.Handle("/ui/{view}", noStore(s.handlePartial))

	// Chart JSON
	mux.Handle("/api/calendar", noStore(s.handleAPICalendar))
	mux.Handle("/api/presets", noStore(s.handleAPIPresets))
	mux.Handle("/api/range", noStore(s.handleAPIRange))
	mux.Handle("/api/{view}", noStore(s.handleAPIView))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(handler)
	handler = s.securityDetector.Middleware(false)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again in a minute.").Write(w)
}

// render executes a named template. Failures are logged and answered with
// an error fragment.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", "template", name)
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, "template", name, applog.FieldOperation, applog.OpRender)
	}
}

var templateFuncs = template.FuncMap{
	"money":   core.FormatMoney,
	"hours":   core.FormatHours,
	"percent": core.FormatPercent,
	"duration": func(seconds int64) string {
		return core.FormatDuration(seconds)
	},
	"rate": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return core.FormatMoney(*v)
	},
	"trendClass": func(v float64) string {
		switch {
		case v > 0:
			return "up"
		case v < 0:
			return "down"
		default:
			return "flat"
		}
	},
	"trendArrow": func(v float64) string {
		switch {
		case v > 0:
			return "▲"
		case v < 0:
			return "▼"
		default:
			return "■"
		}
	},
	// link appends an already encoded query to path.
	"link": func(path, query string) string {
		if query == "" {
			return path
		}
		return path + "?" + query
	},
	"gridMax": func(grid [][]float64) float64 {
		var m float64
		for _, row := range grid {
			for _, v := range row {
				if v > m {
					m = v
				}
			}
		}
		return m
	},
	"heat": func(v, max float64) int {
		if max <= 0 || v <= 0 {
			return 0
		}
		level := int(v / max * 4)
		if level < 1 {
			level = 1
		}
		if level > 4 {
			level = 4
		}
		return level
	},
}

func (s *Server) countImport(ok bool) {
	if ok {
		atomic.AddInt64(&s.appMetrics.imports, 1)
	} else {
		atomic.AddInt64(&s.appMetrics.failedImports, 1)
	}
}

// noStore wraps a session-scoped handler so browsers never cache its output.
func noStore(h http.HandlerFunc) http.Handler {
	return security.NoStoreMiddleware(h)
}
