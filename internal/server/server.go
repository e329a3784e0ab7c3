package server

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
)

// sensitive query parameters masked in request logs
var maskedParams = []string{"key", "apikey", "apiKey"}

func NewRouter(server *Server, metrics http.Handler, corsOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(gzipMiddleware)
	r.Use(corsMiddleware(corsOrigins))
	r.Use(zapLoggerMiddleware(logger))

	r.Get("/health", server.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/snapshot/{symbol}", server.GetSnapshot)
		api.Get("/summary/{symbol}", server.GetSummary)
		api.Get("/frame/{symbol}", server.GetFrame)
		api.Get("/options/{symbol}", server.GetOptions)
		api.Get("/chart/{symbol}", server.GetChart)
		api.Post("/cache/reset", server.ResetCache)
	})

	return r
}

func gzipMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", maskQuery(r.URL.RawQuery)),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// maskQuery masks credential parameters in a query string
func maskQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "<unparseable>"
	}
	for _, name := range maskedParams {
		vs, ok := values[name]
		if !ok {
			continue
		}
		for i, v := range vs {
			if len(v) > 4 {
				vs[i] = v[:4] + "****"
			} else {
				vs[i] = "****"
			}
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		for _, v := range values[k] {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, "&")
}
