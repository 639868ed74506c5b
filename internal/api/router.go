package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/concord/internal/api/handlers"
	mw "github.com/Harshitk-cp/concord/internal/api/middleware"
	"github.com/Harshitk-cp/concord/internal/buildconfig"
	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/llm"
	"github.com/Harshitk-cp/concord/internal/metrics"
	"github.com/Harshitk-cp/concord/internal/persona"
	"github.com/Harshitk-cp/concord/internal/service"
	"github.com/Harshitk-cp/concord/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the external pieces NewApp wires services from.
type Deps struct {
	KV        domain.KeyValueStore
	Generator domain.OpinionGenerator
	Analyzer  domain.OpinionAnalyzer
	Merger    domain.OpinionMerger
	Catalogue *persona.Catalogue
	Personas  domain.PersonaPair
	// Archive is optional.
	Archive domain.FingerprintArchive

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	RateLimitRPS   float64
	RateLimitBurst int
}

// App holds the router and the services behind it.
type App struct {
	Router      *chi.Mux
	Knowledge   *service.KnowledgeService
	Aggregation *service.AggregationService
	Reports     *service.ReportService
	Limiter     *mw.RateLimiter
	startTime   time.Time
}

func NewApp(deps Deps, logger *zap.Logger) (*App, error) {
	// Services
	knowledgeSvc := service.NewKnowledgeService(deps.KV, logger)
	knowledgeSvc.SetMetrics(deps.Metrics)

	aggregationSvc := service.NewAggregationService(deps.Analyzer, deps.Merger, logger)

	reportSvc, err := service.NewReportService(deps.Generator, aggregationSvc, knowledgeSvc, deps.Personas, logger)
	if err != nil {
		return nil, err
	}
	reportSvc.SetMetrics(deps.Metrics)
	if deps.Archive != nil {
		reportSvc.SetArchive(deps.Archive)
	}

	// Handlers
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeSvc)
	reportHandler := handlers.NewReportHandler(reportSvc, logger)
	fingerprintHandler := handlers.NewFingerprintHandler(deps.Archive)
	personaHandler := handlers.NewPersonaHandler(deps.Catalogue, deps.Personas)

	r := chi.NewRouter()
	app := &App{
		Router:      r,
		Knowledge:   knowledgeSvc,
		Aggregation: aggregationSvc,
		Reports:     reportSvc,
		Limiter:     mw.NewRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst),
		startTime:   time.Now(),
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics(deps.Metrics))
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(app.Limiter.Middleware)

	r.Get("/health", app.healthHandler(deps.KV))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.Identity)

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", knowledgeHandler.Get)
			r.Put("/", knowledgeHandler.Import)
			r.Post("/signals", knowledgeHandler.AddSignals)
			r.Get("/timeline", knowledgeHandler.Timeline)
		})

		r.Post("/reports", reportHandler.Create)

		r.Route("/fingerprints", func(r chi.Router) {
			r.Post("/", fingerprintHandler.Build)
			r.Post("/compare", fingerprintHandler.Compare)
			r.Post("/similar", fingerprintHandler.Similar)
		})

		r.Get("/personas", personaHandler.List)
	})

	return app, nil
}

type healthResponse struct {
	Status        string           `json:"status"`
	Error         string           `json:"error,omitempty"`
	UptimeSeconds float64          `json:"uptimeSeconds"`
	Build         buildconfig.Info `json:"build"`
}

func (app *App) healthHandler(kv domain.KeyValueStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(app.startTime).Seconds(),
			Build:         buildconfig.Current(),
		}
		status := http.StatusOK

		if p, ok := kv.(domain.Pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				resp.Status = "error"
				resp.Error = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.KeyValueStore      = (*store.MemoryKV)(nil)
	_ domain.KeyValueStore      = (*store.RedisKV)(nil)
	_ domain.KeyValueStore      = (*store.PostgresKV)(nil)
	_ domain.Pinger             = (*store.MemoryKV)(nil)
	_ domain.Pinger             = (*store.RedisKV)(nil)
	_ domain.Pinger             = (*store.PostgresKV)(nil)
	_ domain.FingerprintArchive = (*store.FingerprintStore)(nil)
	_ domain.OpinionGenerator   = (*llm.OpinionClient)(nil)
	_ domain.OpinionAnalyzer    = (*llm.OpinionClient)(nil)
	_ domain.OpinionMerger      = (*llm.OpinionClient)(nil)
	_ llm.Completer             = (*llm.OpenAIClient)(nil)
	_ llm.Completer             = (*llm.AnthropicClient)(nil)
	_ llm.Completer             = (*llm.GeminiClient)(nil)
	_ llm.Completer             = (*llm.MockClient)(nil)
)
