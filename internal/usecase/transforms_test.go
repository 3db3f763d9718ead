package usecase_test

import (
	"testing"

	"chatqna-orchestrator/internal/domain"
	"chatqna-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformEmbeddingOutput_Success(t *testing.T) {
	out := usecase.TransformEmbeddingOutput("q", []float32{0.1, 0.2}, nil, 1024, discardLogger())

	assert.Equal(t, "q", out.Text)
	assert.Equal(t, []float32{0.1, 0.2}, out.Vector)
	assert.False(t, out.Degraded)
}

func TestTransformEmbeddingOutput_ErrorYieldsPlaceholderVector(t *testing.T) {
	callErr := &domain.StageCallError{Stage: "embedding", Reason: "model not loaded"}

	out := usecase.TransformEmbeddingOutput("q", nil, callErr, 1024, discardLogger())

	assert.True(t, out.Degraded)
	require.Len(t, out.Vector, 1024)
	for _, v := range out.Vector {
		assert.Zero(t, v)
	}
	assert.Contains(t, out.Reason, "model not loaded")
}

func TestTransformRetrieverOutput_Documents(t *testing.T) {
	docs, fallback := usecase.TransformRetrieverOutput("q", []string{"a", "b"}, nil, discardLogger())

	assert.Nil(t, fallback)
	assert.Equal(t, []string{"a", "b"}, docs.Docs)
	assert.Equal(t, "q", docs.Query)
}

func TestTransformRetrieverOutput_EmptyBuildsNoInformationPrompt(t *testing.T) {
	_, fallback := usecase.TransformRetrieverOutput("what is X?", nil, nil, discardLogger())

	require.NotNil(t, fallback)
	assert.True(t, fallback.Degraded)
	assert.Equal(t, "I don't have specific information about that in my knowledge base. Here's what I know about: what is X?", fallback.Prompt)
}

func TestTransformRetrieverOutput_ErrorBuildsErrorPrompt(t *testing.T) {
	callErr := &domain.StageCallError{Stage: "retriever", Status: 500, Reason: "index down"}

	_, fallback := usecase.TransformRetrieverOutput("what is X?", nil, callErr, discardLogger())

	require.NotNil(t, fallback)
	assert.True(t, fallback.Degraded)
	assert.Equal(t, "The system encountered an error retrieving relevant information. Here's the original question: what is X?", fallback.Prompt)
}

func TestTransformRetrieverOutput_ShapeErrorCountsAsEmpty(t *testing.T) {
	// An unrecognized response body means the service answered with nothing
	// usable, not that the call failed; the empty-result wording applies.
	shapeErr := &domain.ShapeError{Stage: "retriever", Detail: "invalid character 'x'"}

	_, fallback := usecase.TransformRetrieverOutput("what is X?", nil, shapeErr, discardLogger())

	require.NotNil(t, fallback)
	assert.True(t, fallback.Degraded)
	assert.Equal(t, "I don't have specific information about that in my knowledge base. Here's what I know about: what is X?", fallback.Prompt)
}

func TestSelectTopN_OrdersByScoreDescending(t *testing.T) {
	docs := []string{"d0", "d1", "d2", "d3", "d4"}
	// Scores arrive in arbitrary order.
	scores := []domain.RerankScore{
		{Index: 0, Score: 0.30},
		{Index: 3, Score: 0.90},
		{Index: 1, Score: 0.10},
		{Index: 4, Score: 0.70},
		{Index: 2, Score: 0.50},
	}

	selected := usecase.SelectTopN(docs, scores, 2)

	assert.Equal(t, []string{"d3", "d4"}, selected)
}

func TestSelectTopN_DropsOutOfRangeIndices(t *testing.T) {
	docs := []string{"d0", "d1"}
	scores := []domain.RerankScore{
		{Index: 7, Score: 0.99},
		{Index: 1, Score: 0.50},
	}

	selected := usecase.SelectTopN(docs, scores, 2)

	assert.Equal(t, []string{"d1"}, selected)
}

func TestTransformRerankOutput_TopNWithBuiltinTemplate(t *testing.T) {
	retrieved := domain.RetrievedDocs{Query: "q?", Docs: []string{"first", "second", "third"}}
	scores := []domain.RerankScore{
		{Index: 2, Score: 0.9},
		{Index: 0, Score: 0.8},
		{Index: 1, Score: 0.1},
	}

	out := usecase.TransformRerankOutput(retrieved, scores, nil,
		domain.RerankerParams{TopN: 1}, domain.NewLLMParams("m"), discardLogger())

	assert.False(t, out.Degraded)
	assert.Contains(t, out.Prompt, "### Search results: third")
	assert.NotContains(t, out.Prompt, "first")
	assert.Contains(t, out.Prompt, "### Question: q?")
}

func TestTransformRerankOutput_ErrorFallsBackToAllDocs(t *testing.T) {
	retrieved := domain.RetrievedDocs{Query: "q?", Docs: []string{"first", "second"}}
	callErr := &domain.StageCallError{Stage: "rerank", Reason: "unreachable"}

	out := usecase.TransformRerankOutput(retrieved, nil, callErr,
		domain.RerankerParams{TopN: 1}, domain.NewLLMParams("m"), discardLogger())

	assert.True(t, out.Degraded)
	assert.Contains(t, out.Prompt, "first\nsecond")
}

func TestBuildLLMRequest_OnlyExplicitFieldsForwarded(t *testing.T) {
	params := domain.NewLLMParams("llama3")
	params.Stream = true

	req := usecase.BuildLLMRequest(domain.PromptPayload{Prompt: "final"}, params)

	assert.Equal(t, "llama3", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "final", req.Messages[0].Content)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.Equal(t, 0.95, req.TopP)
	assert.True(t, req.Stream)
	assert.Nil(t, req.Temperature)
	assert.Nil(t, req.FrequencyPenalty)
	assert.Nil(t, req.PresencePenalty)
	assert.Nil(t, req.RepetitionPenalty)
}

func TestBuildLLMRequest_ExplicitPenaltiesForwarded(t *testing.T) {
	params := domain.NewLLMParams("llama3")
	params.Temperature = 0.7
	params.TemperatureSet = true
	params.RepetitionPenalty = 1.1
	params.RepetitionPenaltySet = true

	req := usecase.BuildLLMRequest(domain.PromptPayload{Prompt: "final"}, params)

	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.7, *req.Temperature)
	require.NotNil(t, req.RepetitionPenalty)
	assert.Equal(t, 1.1, *req.RepetitionPenalty)
	assert.Nil(t, req.FrequencyPenalty)
}
