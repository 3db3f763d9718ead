package usecase

import (
	"errors"
	"log/slog"
	"sort"

	"chatqna-orchestrator/internal/domain"
)

// Fallback prompt wording for degraded retrieval, shared with the other
// deployments of this pipeline.
const (
	retrievalErrorPromptPrefix = "The system encountered an error retrieving relevant information. Here's the original question: "
	noInformationPromptPrefix  = "I don't have specific information about that in my knowledge base. Here's what I know about: "
)

// TransformEmbeddingOutput turns the embedding stage result into the
// retrieval stage input. A failed call degrades to a zero placeholder vector
// of the configured dimensionality instead of aborting the pipeline.
func TransformEmbeddingOutput(text string, vector []float32, err error, dim int, logger *slog.Logger) domain.EmbeddedQuery {
	if err != nil {
		logger.Warn("embedding_degraded",
			slog.String("error", err.Error()),
			slog.Int("placeholder_dim", dim))
		return domain.EmbeddedQuery{
			Text:     text,
			Vector:   make([]float32, dim),
			Degraded: true,
			Reason:   err.Error(),
		}
	}
	return domain.EmbeddedQuery{Text: text, Vector: vector}
}

// TransformRetrieverOutput inspects the retrieval stage result. When the
// call failed or recovered zero documents, it returns a fallback prompt that
// bypasses rerank; otherwise it returns the documents for reranking. A
// ShapeError means the service answered but in no recognized shape, which
// counts as an empty result rather than a failed call.
func TransformRetrieverOutput(query string, docs []string, err error, logger *slog.Logger) (domain.RetrievedDocs, *domain.PromptPayload) {
	var shapeErr *domain.ShapeError
	if errors.As(err, &shapeErr) {
		logger.Warn("retrieval_unrecognized_shape", slog.String("detail", shapeErr.Detail))
		docs = nil
		err = nil
	}
	if err != nil {
		logger.Warn("retrieval_degraded", slog.String("error", err.Error()))
		return domain.RetrievedDocs{Query: query}, &domain.PromptPayload{
			Prompt:   retrievalErrorPromptPrefix + query,
			Degraded: true,
		}
	}
	if len(docs) == 0 {
		logger.Info("retrieval_empty", slog.String("query", query))
		return domain.RetrievedDocs{Query: query}, &domain.PromptPayload{
			Prompt:   noInformationPromptPrefix + query,
			Degraded: true,
		}
	}
	return domain.RetrievedDocs{Query: query, Docs: docs}, nil
}

// SelectTopN picks the topN highest scoring documents, descending by score
// regardless of the order the reranker returned them in. Out-of-range
// indices are dropped.
func SelectTopN(docs []string, scores []domain.RerankScore, topN int) []string {
	valid := make([]domain.RerankScore, 0, len(scores))
	for _, s := range scores {
		if s.Index >= 0 && s.Index < len(docs) {
			valid = append(valid, s)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Score > valid[j].Score
	})
	if topN > len(valid) {
		topN = len(valid)
	}
	selected := make([]string, 0, topN)
	for _, s := range valid[:topN] {
		selected = append(selected, docs[s.Index])
	}
	return selected
}

// TransformRerankOutput renders the final LLM prompt from the reranked
// documents. A failed rerank call degrades to the full retrieved document
// set under the built-in template.
func TransformRerankOutput(retrieved domain.RetrievedDocs, scores []domain.RerankScore, err error, params domain.RerankerParams, llmParams domain.LLMParams, logger *slog.Logger) domain.PromptPayload {
	docs := retrieved.Docs
	degraded := false
	if err != nil {
		logger.Warn("rerank_degraded", slog.String("error", err.Error()))
		degraded = true
	} else {
		docs = SelectTopN(retrieved.Docs, scores, params.TopN)
	}
	return domain.PromptPayload{
		Prompt:   RenderPrompt(llmParams.ChatTemplate, retrieved.Query, docs, logger),
		Degraded: degraded,
	}
}

// BuildLLMRequest converts the final prompt plus generation settings into
// the shape the backing model server expects. Penalty and temperature
// fields ride along only when the caller explicitly supplied them.
func BuildLLMRequest(prompt domain.PromptPayload, params domain.LLMParams) domain.LLMRequest {
	req := domain.LLMRequest{
		Model:     params.Model,
		Messages:  []domain.LLMMessage{{Role: "user", Content: prompt.Prompt}},
		MaxTokens: params.MaxTokens,
		TopP:      params.TopP,
		Stream:    params.Stream,
	}
	if params.TemperatureSet {
		t := params.Temperature
		req.Temperature = &t
	}
	if params.FrequencyPenaltySet {
		f := params.FrequencyPenalty
		req.FrequencyPenalty = &f
	}
	if params.PresencePenaltySet {
		p := params.PresencePenalty
		req.PresencePenalty = &p
	}
	if params.RepetitionPenaltySet {
		r := params.RepetitionPenalty
		req.RepetitionPenalty = &r
	}
	return req
}
