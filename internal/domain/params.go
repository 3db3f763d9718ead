package domain

// Documented generation and retrieval defaults. These are policy constants
// shared with the other services in the deployment, not tuning suggestions.
const (
	DefaultMaxTokens         = 1024
	DefaultTopK              = 10
	DefaultTopP              = 0.95
	DefaultTemperature       = 0.01
	DefaultFrequencyPenalty  = 0.0
	DefaultPresencePenalty   = 0.0
	DefaultRepetitionPenalty = 1.03

	DefaultSearchType     = "similarity"
	DefaultRetrievalK     = 4
	DefaultFetchK         = 20
	DefaultLambdaMult     = 0.5
	DefaultScoreThreshold = 0.2

	DefaultRerankTopN = 1
)

// LLMParams is the fully-defaulted view of generation settings for one
// request. Built once by the mapper and immutable afterward. The *Set flags
// record which optional fields the caller actually supplied; only those are
// forwarded to the LLM service.
type LLMParams struct {
	Model             string
	MaxTokens         int
	TopK              int
	TopP              float64
	Temperature       float64
	FrequencyPenalty  float64
	PresencePenalty   float64
	RepetitionPenalty float64
	Stream            bool
	ChatTemplate      string

	TemperatureSet       bool
	FrequencyPenaltySet  bool
	PresencePenaltySet   bool
	RepetitionPenaltySet bool
}

// RetrieverParams carries the retrieval tuning knobs for one request.
type RetrieverParams struct {
	SearchType        string
	K                 int
	FetchK            int
	LambdaMult        float64
	ScoreThreshold    float64
	DistanceThreshold *float64
}

// RerankerParams carries the rerank tuning knobs for one request.
type RerankerParams struct {
	TopN int
}

// NewLLMParams materializes generation defaults for a model identifier.
func NewLLMParams(model string) LLMParams {
	return LLMParams{
		Model:             model,
		MaxTokens:         DefaultMaxTokens,
		TopK:              DefaultTopK,
		TopP:              DefaultTopP,
		Temperature:       DefaultTemperature,
		FrequencyPenalty:  DefaultFrequencyPenalty,
		PresencePenalty:   DefaultPresencePenalty,
		RepetitionPenalty: DefaultRepetitionPenalty,
	}
}

// NewRetrieverParams materializes retrieval defaults.
func NewRetrieverParams() RetrieverParams {
	return RetrieverParams{
		SearchType:     DefaultSearchType,
		K:              DefaultRetrievalK,
		FetchK:         DefaultFetchK,
		LambdaMult:     DefaultLambdaMult,
		ScoreThreshold: DefaultScoreThreshold,
	}
}

// NewRerankerParams materializes rerank defaults.
func NewRerankerParams() RerankerParams {
	return RerankerParams{TopN: DefaultRerankTopN}
}
