package usecase

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

// streamEndSentinel is the finish_reason value the LLM service emits on its
// terminal delta. Frames carrying it are suppressed.
const streamEndSentinel = "eos_token"

// DoneFrame is the terminal SSE frame emitted after the source stream ends.
const DoneFrame = "data: [DONE]\n\n"

// StreamFrame is one normalized SSE frame extracted from the LLM byte
// stream. Skip marks lines that produce no frame (framing noise, terminal
// sentinel, empty deltas).
type StreamFrame struct {
	Content string
	Skip    bool
}

// SSE renders the frame in the relay's wire format. The space after the
// colon matches the frame dialect the pipeline's other deployments emit.
func (f StreamFrame) SSE() string {
	payload, _ := json.Marshal(f.Content)
	return `data: {"content": ` + string(payload) + "}\n\n"
}

type streamDelta struct {
	Content *string `json:"content"`
}

// streamChoice keeps delta and finish_reason raw so key absence is
// distinguishable from a null value.
type streamChoice struct {
	Delta        json.RawMessage `json:"delta"`
	FinishReason json.RawMessage `json:"finish_reason"`
}

type streamEnvelope struct {
	Choices []streamChoice `json:"choices"`
}

// DecodeStreamLine isolates the JSON object in one source line and extracts
// the content delta. The upstream's SSE dialect is not strict, so the
// decoder tolerates framing noise before the first "{" and after the last
// "}". Lines without a JSON object at all produce a skipped frame; objects
// that cannot be parsed, carry no choices, or lack the finish_reason or
// delta keys entirely are forwarded verbatim so the caller never sees a
// truncated stream.
func DecodeStreamLine(line string) StreamFrame {
	start := strings.Index(line, "{")
	end := strings.LastIndex(line, "}")
	if start == -1 || end == -1 || end < start {
		return StreamFrame{Skip: true}
	}

	jsonStr := line[start : end+1]
	var envelope streamEnvelope
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil || len(envelope.Choices) == 0 {
		return StreamFrame{Content: jsonStr}
	}

	choice := envelope.Choices[0]
	if choice.FinishReason == nil {
		return StreamFrame{Content: jsonStr}
	}
	var finishReason *string
	if err := json.Unmarshal(choice.FinishReason, &finishReason); err == nil &&
		finishReason != nil && *finishReason == streamEndSentinel {
		return StreamFrame{Skip: true}
	}
	if choice.Delta == nil {
		return StreamFrame{Content: jsonStr}
	}

	var delta streamDelta
	if err := json.Unmarshal(choice.Delta, &delta); err != nil {
		return StreamFrame{Content: jsonStr}
	}
	if delta.Content == nil {
		return StreamFrame{Skip: true}
	}
	return StreamFrame{Content: *delta.Content}
}

// StreamRelay consumes a line-oriented byte stream from the LLM stage and
// re-emits normalized SSE frames. Single pass, not restartable.
type StreamRelay struct {
	logger *slog.Logger
}

// NewStreamRelay constructs a relay.
func NewStreamRelay(logger *slog.Logger) *StreamRelay {
	return &StreamRelay{logger: logger}
}

// Relay reads src line by line and hands each normalized frame to emit.
// After the source ends, one terminal [DONE] frame is emitted. Cancellation
// of ctx or an emit error stops draining immediately; closing src is the
// caller's responsibility.
func (r *StreamRelay) Relay(ctx context.Context, src io.Reader, emit func(frame string) error) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	frames := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			r.logger.Info("stream_relay_cancelled", slog.Int("frames", frames))
			return ctx.Err()
		default:
		}

		frame := DecodeStreamLine(scanner.Text())
		if frame.Skip {
			continue
		}
		if err := emit(frame.SSE()); err != nil {
			return err
		}
		frames++
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("stream_relay_source_error",
			slog.String("error", err.Error()),
			slog.Int("frames", frames))
	}

	r.logger.Info("stream_relay_completed", slog.Int("frames", frames))
	return emit(DoneFrame)
}
