package stagehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chatqna-orchestrator/internal/domain"
	"chatqna-orchestrator/internal/infra/logger"
)

type llmChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type llmCompletionResponse struct {
	Choices []llmChoice `json:"choices"`
	Error   string      `json:"error,omitempty"`
}

// LLMClient calls the model server's OpenAI-style /v1/chat/completions
// endpoint, buffered or streaming.
type LLMClient struct {
	BaseURL string
	Client  *http.Client
	logger  *slog.Logger
}

// NewLLMClient constructs an LLM client. The http.Client for streaming
// calls must not carry an overall timeout, so the streaming path relies on
// the request context instead; pass a client without Timeout when streaming
// responses can outlive it.
func NewLLMClient(baseURL string, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *LLMClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	return &LLMClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  c,
		logger:  logger,
	}
}

// Chat sends a buffered completion request and extracts
// choices[0].message.content.
func (c *LLMClient) Chat(ctx context.Context, llmReq domain.LLMRequest) (string, error) {
	llmReq.Stream = false
	start := time.Now()
	log := logger.FromContext(ctx, c.logger)
	log.Info("llm_call_started",
		slog.String("model", llmReq.Model),
		slog.Int("max_tokens", llmReq.MaxTokens))

	resp, err := c.post(ctx, llmReq)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var completion llmCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &domain.ShapeError{Stage: string(domain.StageLLM), Detail: err.Error()}
	}
	if completion.Error != "" {
		return "", &domain.StageCallError{Stage: string(domain.StageLLM), Reason: completion.Error}
	}
	if len(completion.Choices) == 0 {
		return "", &domain.ShapeError{Stage: string(domain.StageLLM), Detail: "response carries no choices"}
	}

	log.Info("llm_call_completed",
		slog.Int("content_len", len(completion.Choices[0].Message.Content)),
		slog.Duration("elapsed", time.Since(start)))

	return completion.Choices[0].Message.Content, nil
}

// ChatStream sends a streaming completion request and returns the raw byte
// stream untouched for the stream relay. The caller owns closing it.
func (c *LLMClient) ChatStream(ctx context.Context, llmReq domain.LLMRequest) (io.ReadCloser, error) {
	llmReq.Stream = true
	logger.FromContext(ctx, c.logger).Info("llm_stream_started",
		slog.String("model", llmReq.Model),
		slog.Int("max_tokens", llmReq.MaxTokens))

	resp, err := c.post(ctx, llmReq)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *LLMClient) post(ctx context.Context, llmReq domain.LLMRequest) (*http.Response, error) {
	jsonPayload, err := json.Marshal(llmReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal llm request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		logger.FromContext(ctx, c.logger).Warn("llm_call_failed", slog.String("error", err.Error()))
		return nil, &domain.StageCallError{Stage: string(domain.StageLLM), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		logger.FromContext(ctx, c.logger).Warn("llm_bad_status", slog.Int("status", resp.StatusCode))
		return nil, &domain.StageCallError{
			Stage:  string(domain.StageLLM),
			Status: resp.StatusCode,
			Reason: truncateBody(body),
		}
	}
	return resp, nil
}

var _ domain.LLMClient = (*LLMClient)(nil)
