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

type retrievalRequest struct {
	Text              string    `json:"text"`
	Embedding         []float32 `json:"embedding"`
	SearchType        string    `json:"search_type"`
	K                 int       `json:"k"`
	FetchK            int       `json:"fetch_k"`
	LambdaMult        float64   `json:"lambda_mult"`
	ScoreThreshold    float64   `json:"score_threshold"`
	DistanceThreshold *float64  `json:"distance_threshold,omitempty"`
}

type retrievalResponse struct {
	RetrievedDocs []json.RawMessage `json:"retrieved_docs"`
	InitialQuery  string            `json:"initial_query"`
	Error         string            `json:"error,omitempty"`
}

// RetrieverClient calls the retrieval service's /v1/retrieval endpoint and
// normalizes the document container shapes different retriever builds use.
type RetrieverClient struct {
	BaseURL string
	Client  *http.Client
	logger  *slog.Logger
}

// NewRetrieverClient constructs a retriever client. If client is nil, a
// default http.Client with the given timeout is used.
func NewRetrieverClient(baseURL string, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *RetrieverClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	return &RetrieverClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  c,
		logger:  logger,
	}
}

// Retrieve sends the query embedding plus tuning parameters and extracts
// plain document texts from the response. Zero documents with a nil error
// means the store holds nothing relevant to the query.
func (c *RetrieverClient) Retrieve(ctx context.Context, query string, embedding []float32, params domain.RetrieverParams) ([]string, error) {
	start := time.Now()
	log := logger.FromContext(ctx, c.logger)
	log.Info("retrieval_started",
		slog.String("search_type", params.SearchType),
		slog.Int("k", params.K),
		slog.Int("fetch_k", params.FetchK))

	reqBody := retrievalRequest{
		Text:              query,
		Embedding:         embedding,
		SearchType:        params.SearchType,
		K:                 params.K,
		FetchK:            params.FetchK,
		LambdaMult:        params.LambdaMult,
		ScoreThreshold:    params.ScoreThreshold,
		DistanceThreshold: params.DistanceThreshold,
	}
	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal retrieval request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/retrieval", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		log.Warn("retrieval_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &domain.StageCallError{Stage: string(domain.StageRetriever), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Warn("retrieval_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &domain.StageCallError{
			Stage:  string(domain.StageRetriever),
			Status: resp.StatusCode,
			Reason: truncateBody(body),
		}
	}

	var retResp retrievalResponse
	if err := json.NewDecoder(resp.Body).Decode(&retResp); err != nil {
		return nil, &domain.ShapeError{Stage: string(domain.StageRetriever), Detail: err.Error()}
	}
	if retResp.Error != "" {
		return nil, &domain.StageCallError{Stage: string(domain.StageRetriever), Reason: retResp.Error}
	}

	docs := make([]string, 0, len(retResp.RetrievedDocs))
	for _, raw := range retResp.RetrievedDocs {
		if text, ok := extractDocText(raw); ok {
			docs = append(docs, text)
		}
	}

	log.Info("retrieval_completed",
		slog.Int("doc_count", len(docs)),
		slog.Duration("elapsed", time.Since(start)))

	return docs, nil
}

// extractDocText recovers the text from any of the document shapes seen in
// the wild: a plain string, an object with a "text" field, or an object
// with a "page_content" field. Anything else is dropped.
func extractDocText(raw json.RawMessage) (string, bool) {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, true
	}

	var obj struct {
		Text        string `json:"text"`
		PageContent string `json:"page_content"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	if obj.Text != "" {
		return obj.Text, true
	}
	if obj.PageContent != "" {
		return obj.PageContent, true
	}
	return "", false
}

var _ domain.RetrieverClient = (*RetrieverClient)(nil)
