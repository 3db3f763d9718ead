package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"chatqna-orchestrator/internal/domain"
	"chatqna-orchestrator/internal/infra/logger"
)

// llmFallbackText is returned as the completion body when the LLM stage
// itself fails. Stage failures degrade to a best-effort answer instead of an
// HTTP error; only request validation is fatal.
const llmFallbackText = "I'm unable to generate an answer right now. Please try again later."

// StageTimeouts bounds each remote call. A timeout surfaces as a
// StageCallError and follows the same degradation rules as an explicit
// error payload.
type StageTimeouts struct {
	Embedding time.Duration
	Retriever time.Duration
	Rerank    time.Duration
	LLM       time.Duration
}

// ScheduleResult carries the per-stage results and the execution graph of
// one pipeline run. Exactly one of Text and Stream is set: Text for buffered
// completions, Stream for the raw LLM byte stream the relay consumes.
type ScheduleResult struct {
	Graph    *Graph
	Results  map[string]any
	Prompt   domain.PromptPayload
	Text     string
	Stream   io.ReadCloser
	Degraded bool
}

// Scheduler executes the stage graph in dependency order, invoking the
// stage adapter transforms between remote calls. The topology is fixed at
// construction; each run prunes a private clone when a stage degrades.
type Scheduler struct {
	graph     *Graph
	embedding domain.EmbeddingClient
	retriever domain.RetrieverClient
	reranker  domain.RerankerClient
	llm       domain.LLMClient
	embedDim  int
	timeouts  StageTimeouts
	logger    *slog.Logger
}

// NewScheduler wires the four stage clients into the fixed chat pipeline.
func NewScheduler(
	embedding domain.EmbeddingClient,
	retriever domain.RetrieverClient,
	reranker domain.RerankerClient,
	llm domain.LLMClient,
	embedDim int,
	timeouts StageTimeouts,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		graph:     NewChatPipelineGraph(),
		embedding: embedding,
		retriever: retriever,
		reranker:  reranker,
		llm:       llm,
		embedDim:  embedDim,
		timeouts:  timeouts,
		logger:    logger,
	}
}

// Schedule runs the pipeline for one query. Stage N's output is fully
// materialized before stage N+1's input transform runs; there is no fan-out
// in this topology.
func (s *Scheduler) Schedule(ctx context.Context, query string, llmParams domain.LLMParams, retrieverParams domain.RetrieverParams, rerankerParams domain.RerankerParams) (*ScheduleResult, error) {
	g := s.graph.Clone()
	result := &ScheduleResult{
		Graph:   g,
		Results: make(map[string]any),
	}

	start := time.Now()
	s.logger.Info("pipeline_started",
		slog.String("query", truncate(query, 100)),
		slog.Bool("stream", llmParams.Stream))

	embedded := s.runEmbedding(ctx, query)
	result.Results[NodeEmbedding] = embedded

	retrieved, fallback := s.runRetrieval(ctx, embedded, retrieverParams)
	result.Results[NodeRetriever] = retrieved

	var prompt domain.PromptPayload
	if fallback != nil {
		// Rerank has nothing to score; route retrieval straight to the LLM.
		g.Splice(NodeRerank)
		prompt = *fallback
	} else {
		prompt = s.runRerank(ctx, retrieved, rerankerParams, llmParams)
		result.Results[NodeRerank] = prompt
	}
	result.Prompt = prompt
	result.Degraded = prompt.Degraded

	llmReq := BuildLLMRequest(prompt, llmParams)
	llmStageCtx := logger.WithPipelineStage(ctx, NodeLLM)
	if llmParams.Stream {
		stream, err := s.llm.ChatStream(llmStageCtx, llmReq)
		if err != nil {
			s.logger.Error("llm_stream_setup_failed", slog.String("error", err.Error()))
			result.Text = llmFallbackText
			result.Degraded = true
		} else {
			result.Stream = stream
			result.Results[NodeLLM] = domain.LLMStream{Body: stream}
		}
	} else {
		llmCtx, cancel := context.WithTimeout(llmStageCtx, s.timeouts.LLM)
		text, err := s.llm.Chat(llmCtx, llmReq)
		cancel()
		if err != nil {
			s.logger.Error("llm_call_failed", slog.String("error", err.Error()))
			result.Text = llmFallbackText
			result.Degraded = true
		} else {
			result.Text = text
			result.Results[NodeLLM] = domain.LLMText{Text: text}
		}
	}

	s.logger.Info("pipeline_completed",
		slog.Bool("degraded", result.Degraded),
		slog.Int("stages_run", len(result.Results)),
		slog.Duration("elapsed", time.Since(start)))

	return result, nil
}

func (s *Scheduler) runEmbedding(ctx context.Context, query string) domain.EmbeddedQuery {
	ctx = logger.WithPipelineStage(ctx, NodeEmbedding)
	embedCtx, cancel := context.WithTimeout(ctx, s.timeouts.Embedding)
	defer cancel()
	vector, err := s.embedding.Embed(embedCtx, query)
	return TransformEmbeddingOutput(query, vector, err, s.embedDim, s.logger)
}

func (s *Scheduler) runRetrieval(ctx context.Context, embedded domain.EmbeddedQuery, params domain.RetrieverParams) (domain.RetrievedDocs, *domain.PromptPayload) {
	ctx = logger.WithPipelineStage(ctx, NodeRetriever)
	retrieveCtx, cancel := context.WithTimeout(ctx, s.timeouts.Retriever)
	defer cancel()
	docs, err := s.retriever.Retrieve(retrieveCtx, embedded.Text, embedded.Vector, params)
	return TransformRetrieverOutput(embedded.Text, docs, err, s.logger)
}

func (s *Scheduler) runRerank(ctx context.Context, retrieved domain.RetrievedDocs, params domain.RerankerParams, llmParams domain.LLMParams) domain.PromptPayload {
	ctx = logger.WithPipelineStage(ctx, NodeRerank)
	rerankCtx, cancel := context.WithTimeout(ctx, s.timeouts.Rerank)
	defer cancel()
	scores, err := s.reranker.Rerank(rerankCtx, retrieved.Query, retrieved.Docs)
	return TransformRerankOutput(retrieved, scores, err, params, llmParams, s.logger)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
