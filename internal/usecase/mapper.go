package usecase

import (
	"encoding/json"
	"strings"
	"time"

	"chatqna-orchestrator/internal/domain"

	"github.com/google/uuid"
)

// ResponseModel is the model identifier reported in assembled completions.
const ResponseModel = "chatqna"

// Message is one role/content pair of the inbound conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages accepts either a JSON array of role/content pairs or a bare
// string, which is coerced into a single user message.
type Messages []Message

func (m *Messages) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Messages{{Role: "user", Content: s}}
		return nil
	}
	var list []Message
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*m = list
	return nil
}

// ChatRequest is the inbound chat completion body. Optional knobs are
// pointers so the mapper can tell supplied values from omissions.
type ChatRequest struct {
	Messages Messages `json:"messages"`

	MaxTokens         *int     `json:"max_tokens,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	Stream            *bool    `json:"stream,omitempty"`
	ChatTemplate      *string  `json:"chat_template,omitempty"`

	SearchType        *string  `json:"search_type,omitempty"`
	K                 *int     `json:"k,omitempty"`
	FetchK            *int     `json:"fetch_k,omitempty"`
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`
	LambdaMult        *float64 `json:"lambda_mult,omitempty"`
	ScoreThreshold    *float64 `json:"score_threshold,omitempty"`
	TopN              *int     `json:"top_n,omitempty"`
}

// Validate checks that the request carries at least one message.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return domain.NewValidationError("no messages provided in request")
	}
	return nil
}

// Prompt folds the conversation into a single string. A lone user message
// passes through as-is; multi-turn conversations become "role: content"
// lines in order.
func (r *ChatRequest) Prompt() string {
	if len(r.Messages) == 1 && r.Messages[0].Role == "user" {
		return r.Messages[0].Content
	}
	var b strings.Builder
	for i, msg := range r.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		role := msg.Role
		if role == "" {
			role = "user"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}

// BuildLLMParams materializes generation settings, applying documented
// defaults for every omitted field and recording which optional fields the
// caller supplied.
func (r *ChatRequest) BuildLLMParams(model string) domain.LLMParams {
	p := domain.NewLLMParams(model)
	if r.MaxTokens != nil && *r.MaxTokens > 0 {
		p.MaxTokens = *r.MaxTokens
	}
	if r.TopK != nil && *r.TopK > 0 {
		p.TopK = *r.TopK
	}
	if r.TopP != nil && *r.TopP > 0 {
		p.TopP = *r.TopP
	}
	if r.Temperature != nil && *r.Temperature > 0 {
		p.Temperature = *r.Temperature
		p.TemperatureSet = true
	}
	if r.FrequencyPenalty != nil {
		p.FrequencyPenalty = *r.FrequencyPenalty
		p.FrequencyPenaltySet = true
	}
	if r.PresencePenalty != nil {
		p.PresencePenalty = *r.PresencePenalty
		p.PresencePenaltySet = true
	}
	if r.RepetitionPenalty != nil && *r.RepetitionPenalty > 0 {
		p.RepetitionPenalty = *r.RepetitionPenalty
		p.RepetitionPenaltySet = true
	}
	// Absent stream means buffered, per the OpenAI convention.
	if r.Stream != nil {
		p.Stream = *r.Stream
	}
	if r.ChatTemplate != nil {
		p.ChatTemplate = *r.ChatTemplate
	}
	return p
}

// BuildRetrieverParams materializes retrieval settings with defaults.
func (r *ChatRequest) BuildRetrieverParams() domain.RetrieverParams {
	p := domain.NewRetrieverParams()
	if r.SearchType != nil && *r.SearchType != "" {
		p.SearchType = *r.SearchType
	}
	if r.K != nil && *r.K > 0 {
		p.K = *r.K
	}
	if r.FetchK != nil && *r.FetchK > 0 {
		p.FetchK = *r.FetchK
	}
	if r.LambdaMult != nil && *r.LambdaMult > 0 {
		p.LambdaMult = *r.LambdaMult
	}
	if r.ScoreThreshold != nil && *r.ScoreThreshold > 0 {
		p.ScoreThreshold = *r.ScoreThreshold
	}
	if r.DistanceThreshold != nil {
		p.DistanceThreshold = r.DistanceThreshold
	}
	return p
}

// BuildRerankerParams materializes rerank settings with defaults.
func (r *ChatRequest) BuildRerankerParams() domain.RerankerParams {
	p := domain.NewRerankerParams()
	if r.TopN != nil && *r.TopN > 0 {
		p.TopN = *r.TopN
	}
	return p
}

// ChatCompletionChoice is one choice of an assembled completion.
type ChatCompletionChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// UsageInfo carries token counts. Counts stay zero when the upstream does
// not report them; they are never fabricated.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the buffered completion returned to the caller.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   UsageInfo              `json:"usage"`
}

// NewChatCompletionResponse assembles a single-choice completion from the
// final answer text.
func NewChatCompletionResponse(text string) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   ResponseModel,
		Choices: []ChatCompletionChoice{
			{
				Index:        0,
				Message:      Message{Role: "assistant", Content: text},
				FinishReason: "stop",
			},
		},
		Usage: UsageInfo{},
	}
}
