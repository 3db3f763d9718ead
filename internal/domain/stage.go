package domain

import "io"

// StageKind identifies one of the four remote service kinds in the pipeline.
type StageKind string

const (
	StageEmbedding StageKind = "embedding"
	StageRetriever StageKind = "retriever"
	StageRerank    StageKind = "rerank"
	StageLLM       StageKind = "llm"
)

// EmbeddedQuery pairs the original query text with its embedding vector.
// When the embedding stage fails, Degraded is set and Vector holds a zero
// placeholder of the configured dimensionality so retrieval can still run.
type EmbeddedQuery struct {
	Text     string
	Vector   []float32
	Degraded bool
	Reason   string
}

// RetrievedDocs is the normalized output of the retrieval stage: plain
// document texts, whatever container shape the retriever used on the wire.
type RetrievedDocs struct {
	Query string
	Docs  []string
}

// RerankScore is one entry of the reranker's relevance-sorted result list.
type RerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// PromptPayload is the final string handed to the LLM stage after folding
// context and question into a prompt. Degraded marks fallback prompts built
// from failed or empty retrieval.
type PromptPayload struct {
	Prompt   string
	Degraded bool
}

// LLMText is the buffered, non-streaming LLM stage result.
type LLMText struct {
	Text string
}

// LLMStream is the raw byte stream of a streaming LLM response, handed
// untouched to the stream relay. The owner must close Body.
type LLMStream struct {
	Body io.ReadCloser
}
