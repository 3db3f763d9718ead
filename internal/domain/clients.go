package domain

import (
	"context"
	"io"
)

// EmbeddingClient calls the embedding service. Implementations decode the
// response once at the boundary and return the first embedding vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RetrieverClient calls the retrieval service and normalizes whatever
// document container shape it returns into plain texts. An empty slice with
// a nil error means the store holds nothing relevant.
type RetrieverClient interface {
	Retrieve(ctx context.Context, query string, embedding []float32, params RetrieverParams) ([]string, error)
}

// RerankerClient scores candidate texts against the query. Results are
// sorted by relevance descending, indices referring back to the input texts.
type RerankerClient interface {
	Rerank(ctx context.Context, query string, texts []string) ([]RerankScore, error)
}

// LLMRequest is the OpenAI-style chat body sent to the backing model server.
// Pointer fields are omitted from the wire unless the caller supplied them.
type LLMRequest struct {
	Model             string       `json:"model"`
	Messages          []LLMMessage `json:"messages"`
	MaxTokens         int          `json:"max_tokens"`
	TopP              float64      `json:"top_p"`
	Stream            bool         `json:"stream"`
	Temperature       *float64     `json:"temperature,omitempty"`
	FrequencyPenalty  *float64     `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64     `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float64     `json:"repetition_penalty,omitempty"`
}

// LLMMessage is one role/content pair in an LLM chat request.
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient calls the LLM service. Chat buffers a single completion and
// extracts the assistant content; ChatStream returns the raw byte stream for
// the stream relay, which the caller must close.
type LLMClient interface {
	Chat(ctx context.Context, req LLMRequest) (string, error)
	ChatStream(ctx context.Context, req LLMRequest) (io.ReadCloser, error)
}
