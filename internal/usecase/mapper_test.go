package usecase_test

import (
	"encoding/json"
	"testing"

	"chatqna-orchestrator/internal/domain"
	"chatqna-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequest_StringMessagesCoercion(t *testing.T) {
	var req usecase.ChatRequest
	err := json.Unmarshal([]byte(`{"messages": "What is RAG?"}`), &req)
	require.NoError(t, err)

	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "What is RAG?", req.Messages[0].Content)
	assert.Equal(t, "What is RAG?", req.Prompt())
}

func TestChatRequest_MessageArray(t *testing.T) {
	var req usecase.ChatRequest
	err := json.Unmarshal([]byte(`{"messages": [{"role":"system","content":"be brief"},{"role":"user","content":"hi"}]}`), &req)
	require.NoError(t, err)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system: be brief\nuser: hi", req.Prompt())
}

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"empty array", `{"messages": []}`, true},
		{"missing field", `{}`, true},
		{"string message", `{"messages": "hello"}`, false},
		{"one message", `{"messages": [{"role":"user","content":"hello"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req usecase.ChatRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			err := req.Validate()
			if tt.wantErr {
				var validationErr *domain.ValidationError
				require.ErrorAs(t, err, &validationErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildLLMParams_Defaults(t *testing.T) {
	var req usecase.ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messages": "q"}`), &req))

	p := req.BuildLLMParams("llama3")

	assert.Equal(t, "llama3", p.Model)
	assert.Equal(t, 1024, p.MaxTokens)
	assert.Equal(t, 10, p.TopK)
	assert.Equal(t, 0.95, p.TopP)
	assert.Equal(t, 0.01, p.Temperature)
	assert.Equal(t, 0.0, p.FrequencyPenalty)
	assert.Equal(t, 0.0, p.PresencePenalty)
	assert.Equal(t, 1.03, p.RepetitionPenalty)
	assert.False(t, p.Stream)
	assert.Empty(t, p.ChatTemplate)
	assert.False(t, p.TemperatureSet)
	assert.False(t, p.FrequencyPenaltySet)
	assert.False(t, p.PresencePenaltySet)
	assert.False(t, p.RepetitionPenaltySet)
}

func TestBuildLLMParams_ExplicitFieldsTracked(t *testing.T) {
	var req usecase.ChatRequest
	body := `{"messages": "q", "temperature": 0.7, "frequency_penalty": 0.5, "max_tokens": 256, "stream": true}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	p := req.BuildLLMParams("llama3")

	assert.Equal(t, 0.7, p.Temperature)
	assert.True(t, p.TemperatureSet)
	assert.Equal(t, 0.5, p.FrequencyPenalty)
	assert.True(t, p.FrequencyPenaltySet)
	assert.Equal(t, 256, p.MaxTokens)
	assert.True(t, p.Stream)
	assert.False(t, p.PresencePenaltySet)
	assert.False(t, p.RepetitionPenaltySet)
}

func TestBuildRetrieverParams_Defaults(t *testing.T) {
	var req usecase.ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messages": "q"}`), &req))

	p := req.BuildRetrieverParams()

	assert.Equal(t, "similarity", p.SearchType)
	assert.Equal(t, 4, p.K)
	assert.Equal(t, 20, p.FetchK)
	assert.Equal(t, 0.5, p.LambdaMult)
	assert.Equal(t, 0.2, p.ScoreThreshold)
	assert.Nil(t, p.DistanceThreshold)
}

func TestBuildRerankerParams(t *testing.T) {
	var req usecase.ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messages": "q"}`), &req))
	assert.Equal(t, 1, req.BuildRerankerParams().TopN)

	require.NoError(t, json.Unmarshal([]byte(`{"messages": "q", "top_n": 3}`), &req))
	assert.Equal(t, 3, req.BuildRerankerParams().TopN)
}

func TestNewChatCompletionResponse(t *testing.T) {
	resp := usecase.NewChatCompletionResponse("Ciao")

	assert.Equal(t, "chatqna", resp.Model)
	assert.Equal(t, "chat.completion", resp.Object)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, 0, resp.Choices[0].Index)
	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
	assert.Equal(t, "Ciao", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	// Token counts are never fabricated.
	assert.Zero(t, resp.Usage.TotalTokens)
}
