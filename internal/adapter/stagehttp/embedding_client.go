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

type embeddingRequest struct {
	Input string `json:"input"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error string          `json:"error,omitempty"`
}

// EmbeddingClient calls the embedding service's /v1/embeddings endpoint.
type EmbeddingClient struct {
	BaseURL string
	Client  *http.Client
	logger  *slog.Logger
}

// NewEmbeddingClient constructs an embedding client. If client is nil, a
// default http.Client with the given timeout is used.
func NewEmbeddingClient(baseURL string, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *EmbeddingClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	return &EmbeddingClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  c,
		logger:  logger,
	}
}

// Embed sends the raw text and returns the first embedding vector of the
// response's data list.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	log := logger.FromContext(ctx, c.logger)
	log.Info("embedding_started", slog.Int("text_len", len(text)))

	jsonPayload, err := json.Marshal(embeddingRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		log.Warn("embedding_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &domain.StageCallError{Stage: string(domain.StageEmbedding), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Warn("embedding_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &domain.StageCallError{
			Stage:  string(domain.StageEmbedding),
			Status: resp.StatusCode,
			Reason: truncateBody(body),
		}
	}

	var embedResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, &domain.ShapeError{Stage: string(domain.StageEmbedding), Detail: err.Error()}
	}
	if embedResp.Error != "" {
		return nil, &domain.StageCallError{Stage: string(domain.StageEmbedding), Reason: embedResp.Error}
	}
	if len(embedResp.Data) == 0 || len(embedResp.Data[0].Embedding) == 0 {
		return nil, &domain.ShapeError{Stage: string(domain.StageEmbedding), Detail: "response carries no embedding data"}
	}

	log.Info("embedding_completed",
		slog.Int("dim", len(embedResp.Data[0].Embedding)),
		slog.Duration("elapsed", time.Since(start)))

	return embedResp.Data[0].Embedding, nil
}

func truncateBody(body []byte) string {
	const max = 500
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}

var _ domain.EmbeddingClient = (*EmbeddingClient)(nil)
