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

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// RerankerClient calls the rerank service's /v1/reranking endpoint.
type RerankerClient struct {
	BaseURL string
	Client  *http.Client
	logger  *slog.Logger
}

// NewRerankerClient constructs a reranker client. If client is nil, a
// default http.Client with the given timeout is used.
func NewRerankerClient(baseURL string, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *RerankerClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	return &RerankerClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  c,
		logger:  logger,
	}
}

// Rerank scores texts against the query. The service answers with a list of
// {index, score} sorted by relevance.
func (c *RerankerClient) Rerank(ctx context.Context, query string, texts []string) ([]domain.RerankScore, error) {
	if len(texts) == 0 {
		return []domain.RerankScore{}, nil
	}

	start := time.Now()
	log := logger.FromContext(ctx, c.logger)
	log.Info("reranking_started",
		slog.String("query", truncateBody([]byte(query))),
		slog.Int("candidate_count", len(texts)))

	jsonPayload, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/reranking", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		log.Warn("reranking_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &domain.StageCallError{Stage: string(domain.StageRerank), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Warn("reranking_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &domain.StageCallError{
			Stage:  string(domain.StageRerank),
			Status: resp.StatusCode,
			Reason: truncateBody(body),
		}
	}

	var scores []domain.RerankScore
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, &domain.ShapeError{Stage: string(domain.StageRerank), Detail: err.Error()}
	}
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(texts) {
			return nil, &domain.ShapeError{
				Stage:  string(domain.StageRerank),
				Detail: fmt.Sprintf("result index %d out of range for %d texts", s.Index, len(texts)),
			}
		}
	}

	log.Info("reranking_completed",
		slog.Int("result_count", len(scores)),
		slog.Duration("elapsed", time.Since(start)))

	return scores, nil
}

var _ domain.RerankerClient = (*RerankerClient)(nil)
