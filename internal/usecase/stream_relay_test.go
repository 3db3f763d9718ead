package usecase_test

import (
	"context"
	"strings"
	"testing"

	"chatqna-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStreamLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantContent string
		wantSkip    bool
	}{
		{
			name:        "content delta",
			line:        `data: {"choices":[{"delta":{"content":"Hello"},"finish_reason":null}]}`,
			wantContent: "Hello",
		},
		{
			name:        "content with framing noise after object",
			line:        `data: {"choices":[{"delta":{"content":"Hi"},"finish_reason":null}]} trailing`,
			wantContent: "Hi",
		},
		{
			name:     "eos_token sentinel suppressed",
			line:     `data: {"choices":[{"delta":{"content":""},"finish_reason":"eos_token"}]}`,
			wantSkip: true,
		},
		{
			name:     "delta without content suppressed",
			line:     `data: {"choices":[{"delta":{"role":"assistant"},"finish_reason":null}]}`,
			wantSkip: true,
		},
		{
			name:     "no json object",
			line:     "data: [DONE]",
			wantSkip: true,
		},
		{
			name:     "empty line",
			line:     "",
			wantSkip: true,
		},
		{
			name:        "malformed json forwarded verbatim",
			line:        `data: {"choices":[{"delta"`,
			wantContent: "",
			wantSkip:    true,
		},
		{
			name:        "unparseable object forwarded",
			line:        `data: {not json}`,
			wantContent: "{not json}",
		},
		{
			name:        "object without choices forwarded",
			line:        `data: {"unexpected":"shape"}`,
			wantContent: `{"unexpected":"shape"}`,
		},
		{
			name:        "choice without delta or finish_reason forwarded",
			line:        `data: {"choices":[{"index":0}]}`,
			wantContent: `{"choices":[{"index":0}]}`,
		},
		{
			name:        "choice missing finish_reason forwarded",
			line:        `data: {"choices":[{"delta":{"content":"x"}}]}`,
			wantContent: `{"choices":[{"delta":{"content":"x"}}]}`,
		},
		{
			name:        "empty content delta kept",
			line:        `data: {"choices":[{"delta":{"content":""},"finish_reason":null}]}`,
			wantContent: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := usecase.DecodeStreamLine(tt.line)
			assert.Equal(t, tt.wantSkip, frame.Skip)
			if !tt.wantSkip {
				assert.Equal(t, tt.wantContent, frame.Content)
			}
		})
	}
}

func TestStreamFrame_SSE(t *testing.T) {
	frame := usecase.StreamFrame{Content: "Hello"}
	assert.Equal(t, "data: {\"content\": \"Hello\"}\n\n", frame.SSE())

	quoted := usecase.StreamFrame{Content: `say "hi"`}
	assert.Equal(t, "data: {\"content\": \"say \\\"hi\\\"\"}\n\n", quoted.SSE())
}

func TestStreamRelay_Relay(t *testing.T) {
	src := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hi"},"finish_reason":null}]}`,
		`data: {"choices":[{"delta":{"content":" there"},"finish_reason":null}]}`,
		`data: {"choices":[{"delta":{"content":""},"finish_reason":"eos_token"}]}`,
	}, "\n")

	relay := usecase.NewStreamRelay(discardLogger())
	var frames []string
	err := relay.Relay(context.Background(), strings.NewReader(src), func(frame string) error {
		frames = append(frames, frame)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, frames, 3)
	assert.Equal(t, "data: {\"content\": \"Hi\"}\n\n", frames[0])
	assert.Equal(t, "data: {\"content\": \" there\"}\n\n", frames[1])
	assert.Equal(t, usecase.DoneFrame, frames[2])
}

func TestStreamRelay_NoiseAndBlankLines(t *testing.T) {
	src := strings.Join([]string{
		"",
		": keep-alive",
		`data: {"choices":[{"delta":{"content":"only"},"finish_reason":null}]}`,
		"",
	}, "\n")

	relay := usecase.NewStreamRelay(discardLogger())
	var frames []string
	err := relay.Relay(context.Background(), strings.NewReader(src), func(frame string) error {
		frames = append(frames, frame)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, frames, 2)
	assert.Equal(t, "data: {\"content\": \"only\"}\n\n", frames[0])
	assert.Equal(t, usecase.DoneFrame, frames[1])
}

func TestStreamRelay_EmptySourceStillEmitsDone(t *testing.T) {
	relay := usecase.NewStreamRelay(discardLogger())
	var frames []string
	err := relay.Relay(context.Background(), strings.NewReader(""), func(frame string) error {
		frames = append(frames, frame)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{usecase.DoneFrame}, frames)
}

func TestStreamRelay_CancelledContextStopsDraining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := `data: {"choices":[{"delta":{"content":"never"},"finish_reason":null}]}`
	relay := usecase.NewStreamRelay(discardLogger())
	var frames []string
	err := relay.Relay(ctx, strings.NewReader(src), func(frame string) error {
		frames = append(frames, frame)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, frames)
}
