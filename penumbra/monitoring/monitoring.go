package monitoring

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestSummary = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "http_requests",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
)

func HandlerMetrics(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// This is so that GET /api/v1/pubmed/paper/123 is formatted as GET /api/v1/pubmed/paper/{pmid}
		rctx := chi.RouteContext(r.Context())
		routePattern := strings.Replace(strings.Join(rctx.RoutePatterns, ""), "/*/", "/", -1)

		requestSummary.WithLabelValues(r.Method, routePattern, strconv.Itoa(ww.Status())).Observe(float64(time.Since(start).Milliseconds()))
	}
	return http.HandlerFunc(fn)
}

var (
	EntrezCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entrez_calls",
		Help: "Total calls made to the NCBI Entrez E-utilities",
	}, []string{"status"})

	SemanticScholarCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "semantic_scholar_calls",
		Help: "Total calls made to the Semantic Scholar graph api",
	}, []string{"status"})

	SerpapiCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "serpapi_calls",
		Help: "Total calls made to serpapi",
	}, []string{"status"})

	SearchesRun = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "searches_run",
		Help: "Total number of literature searches run",
	}, []string{"outcome"})

	PdfDownloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pdf_downloads",
		Help: "Total number of pdf download attempts",
	}, []string{"outcome"})
)

func ExposeBackendMetrics(port int) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestSummary,
		EntrezCalls,
		SemanticScholarCalls,
		SerpapiCalls,
		SearchesRun,
		PdfDownloads,
	)

	slog.Info("exposing backend metrics", "port", port)

	go func() {
		handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), handler); err != nil {
			log.Fatalf("error starting metrics server: %v", err)
		}
	}()
}
