package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	httpadapter "github.com/patentscout/patent-discovery/internal/adapters/http"
	"github.com/patentscout/patent-discovery/internal/config"
	"github.com/patentscout/patent-discovery/internal/core/domain"
	"github.com/patentscout/patent-discovery/internal/core/ports"
	"github.com/patentscout/patent-discovery/internal/core/usecase"
	"github.com/patentscout/patent-discovery/internal/infrastructure/docstore/postgres"
	"github.com/patentscout/patent-discovery/internal/infrastructure/events/nats"
	"github.com/patentscout/patent-discovery/internal/infrastructure/lexical/elastic"
	"github.com/patentscout/patent-discovery/internal/infrastructure/llm/openai"
	"github.com/patentscout/patent-discovery/internal/infrastructure/resilience"
	"github.com/patentscout/patent-discovery/internal/infrastructure/vector/qdrant"
	"github.com/patentscout/patent-discovery/internal/observability/metrics"
)

const serviceName = "patent-discovery-api"

type App struct {
	Config  config.Config
	QueryUC ports.PatentQueryService
	Metrics *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	chunks := postgres.NewChunkStore(db)
	if err := chunks.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event publisher: %w", err)
	}

	llmClient := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIGenModel, cfg.OpenAIEmbedModel, executor)
	embedder := openai.NewEmbedder(llmClient)
	generator := openai.NewGenerator(llmClient)

	dense := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	sparse := elastic.New(cfg.ElasticURL, cfg.ElasticIndex, cfg.ElasticAPIKey)

	retriever := usecase.NewHierarchicalRetriever(dense, sparse, domain.HierarchicalConfig{
		PatentTopK: cfg.RetrievalPatentTopK,
		ClaimTopK:  cfg.RetrievalClaimTopK,
		RRFK:       cfg.RetrievalRRFK,
		DenseTopK:  cfg.RetrievalDenseTopK,
		SparseTopK: cfg.RetrievalSparseTopK,
		FusionMode: cfg.RetrievalFusionMode,
	})
	reranker := usecase.NewReranker(generator, domain.RerankConfig{
		MaxCandidates: cfg.RerankMaxCandidates,
		TopN:          cfg.RerankTopN,
		SnippetChars:  cfg.RerankSnippetChars,
	})

	pipelineMetrics := metrics.NewPipelineMetrics(serviceName)
	reranker.SetFallbackHook(func() {
		pipelineMetrics.RecordRerankFallback(serviceName)
	})

	queryUC := usecase.NewQueryUseCase(
		embedder,
		retriever,
		dense,
		chunks,
		reranker,
		generator,
		publisher,
		domain.RagPolicy{FinalTopN: cfg.FinalTopN},
	)
	queryUC.SetObserver(func(mode string, evidenceCount int, duration time.Duration) {
		pipelineMetrics.RecordQuery(serviceName, mode, evidenceCount, duration)
	})

	return &App{
		Config:  cfg,
		QueryUC: queryUC,
		Metrics: pipelineMetrics,

		closeFn: func() {
			publisher.Close()
			_ = db.Close()
		},
	}, nil
}

// Handler assembles the full middleware chain around the API routes and
// mounts the metrics endpoint outside rate limiting.
func (a *App) Handler() http.Handler {
	router := httpadapter.NewRouter(a.QueryUC)

	api := router.Handler()
	api = httpadapter.BackpressureMiddleware(a.Config.APIMaxInFlight, 100*time.Millisecond, api)
	api = httpadapter.RateLimitMiddleware(a.Config.APIRateLimitRPS, a.Config.APIRateLimitBurst, api)
	api = a.Metrics.Middleware(serviceName, api)

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	mux.Handle("/", api)
	return mux
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
