package di

import (
	"log/slog"

	"chatqna-orchestrator/internal/adapter/chat_http"
	"chatqna-orchestrator/internal/adapter/stagehttp"
	"chatqna-orchestrator/internal/infra/config"
	"chatqna-orchestrator/internal/infra/httpclient"
	"chatqna-orchestrator/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Stage clients
	EmbeddingClient *stagehttp.EmbeddingClient
	RetrieverClient *stagehttp.RetrieverClient
	RerankerClient  *stagehttp.RerankerClient
	LLMClient       *stagehttp.LLMClient

	// Pipeline
	Scheduler *usecase.Scheduler
	Relay     *usecase.StreamRelay

	// Usecases
	ChatUsecase *usecase.ChatCompletionUsecase

	// Readiness
	Prober *chat_http.StageProber
}

// NewApplicationComponents wires all dependencies from config.
func NewApplicationComponents(cfg *config.Config, log *slog.Logger) *ApplicationComponents {
	// Shared HTTP clients with connection pooling
	embeddingHTTP := httpclient.NewPooledClient(cfg.EmbeddingTimeout)
	retrieverHTTP := httpclient.NewPooledClient(cfg.RetrieverTimeout)
	rerankerHTTP := httpclient.NewPooledClient(cfg.RerankerTimeout)
	// The LLM client streams; cancellation comes from the request context,
	// not a client-level timeout.
	llmHTTP := httpclient.NewPooledClient(0)
	probeHTTP := httpclient.NewPooledClient(cfg.ProbeTimeout)

	// Stage clients
	embeddingClient := stagehttp.NewEmbeddingClient(cfg.EmbeddingURL(), cfg.EmbeddingTimeout, log, embeddingHTTP)
	retrieverClient := stagehttp.NewRetrieverClient(cfg.RetrieverURL(), cfg.RetrieverTimeout, log, retrieverHTTP)
	rerankerClient := stagehttp.NewRerankerClient(cfg.RerankerURL(), cfg.RerankerTimeout, log, rerankerHTTP)
	llmClient := stagehttp.NewLLMClient(cfg.LLMURL(), 0, log, llmHTTP)

	// Pipeline
	scheduler := usecase.NewScheduler(
		embeddingClient,
		retrieverClient,
		rerankerClient,
		llmClient,
		cfg.EmbedDimension,
		usecase.StageTimeouts{
			Embedding: cfg.EmbeddingTimeout,
			Retriever: cfg.RetrieverTimeout,
			Rerank:    cfg.RerankerTimeout,
			LLM:       cfg.LLMTimeout,
		},
		log,
	)
	relay := usecase.NewStreamRelay(log)

	// Chat usecase
	chatUsecase := usecase.NewChatCompletionUsecase(
		scheduler, relay, cfg.LLMModel, cfg.CacheSize, cfg.CacheTTL, log)
	if cfg.CacheTTL > 0 && cfg.CacheSize > 0 {
		log.Info("completion_cache_enabled",
			slog.Int("size", cfg.CacheSize),
			slog.Duration("ttl", cfg.CacheTTL))
	}

	// Readiness prober over the four stage services
	prober := chat_http.NewStageProber(map[string]string{
		usecase.NodeEmbedding: cfg.EmbeddingURL(),
		usecase.NodeRetriever: cfg.RetrieverURL(),
		usecase.NodeRerank:    cfg.RerankerURL(),
		usecase.NodeLLM:       cfg.LLMURL(),
	}, probeHTTP, cfg.ProbeTimeout, log)

	return &ApplicationComponents{
		EmbeddingClient: embeddingClient,
		RetrieverClient: retrieverClient,
		RerankerClient:  rerankerClient,
		LLMClient:       llmClient,
		Scheduler:       scheduler,
		Relay:           relay,
		ChatUsecase:     chatUsecase,
		Prober:          prober,
	}
}
