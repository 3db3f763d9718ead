package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ChatCompletionUsecase glues the mapper, the scheduler, and the stream
// relay into the two caller-facing operations: a buffered completion and a
// streamed one. Non-streaming answers are cached per prompt+parameters.
type ChatCompletionUsecase struct {
	scheduler *Scheduler
	relay     *StreamRelay
	model     string
	cache     *expirable.LRU[string, *ChatCompletionResponse]
	logger    *slog.Logger
}

// NewChatCompletionUsecase wires the pipeline behind the chat endpoint.
// cacheTTL of zero disables the completion cache.
func NewChatCompletionUsecase(scheduler *Scheduler, relay *StreamRelay, model string, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *ChatCompletionUsecase {
	var cache *expirable.LRU[string, *ChatCompletionResponse]
	if cacheTTL > 0 && cacheSize > 0 {
		cache = expirable.NewLRU[string, *ChatCompletionResponse](cacheSize, nil, cacheTTL)
	}
	return &ChatCompletionUsecase{
		scheduler: scheduler,
		relay:     relay,
		model:     model,
		cache:     cache,
		logger:    logger,
	}
}

// Execute runs a buffered chat completion. Validation failures return
// before any stage is invoked; everything else degrades to a best-effort
// answer.
func (u *ChatCompletionUsecase) Execute(ctx context.Context, req *ChatRequest) (*ChatCompletionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prompt := req.Prompt()
	llmParams := req.BuildLLMParams(u.model)
	llmParams.Stream = false
	retrieverParams := req.BuildRetrieverParams()
	rerankerParams := req.BuildRerankerParams()

	key := completionCacheKey(prompt, llmParams.ChatTemplate, llmParams.MaxTokens, retrieverParams.K, rerankerParams.TopN)
	if u.cache != nil {
		if cached, ok := u.cache.Get(key); ok {
			u.logger.Info("completion_cache_hit", slog.String("key", key[:12]))
			return cached, nil
		}
	}

	result, err := u.scheduler.Schedule(ctx, prompt, llmParams, retrieverParams, rerankerParams)
	if err != nil {
		return nil, err
	}

	resp := NewChatCompletionResponse(result.Text)
	if u.cache != nil && !result.Degraded {
		u.cache.Add(key, resp)
	}
	return resp, nil
}

// Stream runs the pipeline in streaming mode and returns the schedule
// result. When LLM stream setup failed, Result.Stream is nil and Result.Text
// carries the fallback answer; RelayTo handles both shapes.
func (u *ChatCompletionUsecase) Stream(ctx context.Context, req *ChatRequest) (*ScheduleResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prompt := req.Prompt()
	llmParams := req.BuildLLMParams(u.model)
	llmParams.Stream = true
	return u.scheduler.Schedule(ctx, prompt, llmParams, req.BuildRetrieverParams(), req.BuildRerankerParams())
}

// RelayTo pipes the schedule result to the caller as SSE frames. Fallback
// answers are emitted as a single content frame followed by the terminal
// frame so the stream contract holds even when the LLM stage failed.
func (u *ChatCompletionUsecase) RelayTo(ctx context.Context, result *ScheduleResult, emit func(frame string) error) error {
	if result.Stream == nil {
		if err := emit(StreamFrame{Content: result.Text}.SSE()); err != nil {
			return err
		}
		return emit(DoneFrame)
	}
	defer func() { _ = result.Stream.Close() }()
	return u.relay.Relay(ctx, result.Stream, emit)
}

func completionCacheKey(prompt, template string, maxTokens, k, topN int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%d|%d", prompt, template, maxTokens, k, topN))
	return hex.EncodeToString(sum[:])
}
