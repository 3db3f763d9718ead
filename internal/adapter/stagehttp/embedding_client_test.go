package stagehttp_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatqna-orchestrator/internal/adapter/stagehttp"
	"chatqna-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmbeddingClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello world", body["input"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer srv.Close()

	client := stagehttp.NewEmbeddingClient(srv.URL, 5*time.Second, discardLogger())
	vector, err := client.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestEmbeddingClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := stagehttp.NewEmbeddingClient(srv.URL, 5*time.Second, discardLogger())
	_, err := client.Embed(context.Background(), "text")

	var callErr *domain.StageCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusServiceUnavailable, callErr.Status)
	assert.Contains(t, callErr.Reason, "model not loaded")
}

func TestEmbeddingClient_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "tokenizer failure"})
	}))
	defer srv.Close()

	client := stagehttp.NewEmbeddingClient(srv.URL, 5*time.Second, discardLogger())
	_, err := client.Embed(context.Background(), "text")

	var callErr *domain.StageCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "tokenizer failure", callErr.Reason)
}

func TestEmbeddingClient_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	client := stagehttp.NewEmbeddingClient(srv.URL, 5*time.Second, discardLogger())
	_, err := client.Embed(context.Background(), "text")

	var shapeErr *domain.ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestEmbeddingClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := stagehttp.NewEmbeddingClient(srv.URL, time.Second, discardLogger())
	_, err := client.Embed(context.Background(), "text")

	var callErr *domain.StageCallError
	require.ErrorAs(t, err, &callErr)
	assert.NotNil(t, callErr.Err)
}
