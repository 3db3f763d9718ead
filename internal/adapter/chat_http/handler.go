package chat_http

import (
	"errors"
	"log/slog"
	"net/http"

	"chatqna-orchestrator/internal/domain"
	"chatqna-orchestrator/internal/infra/logger"
	"chatqna-orchestrator/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Handler exposes the orchestrator over HTTP: the OpenAI-compatible chat
// endpoint plus health and readiness checks.
type Handler struct {
	chat   *usecase.ChatCompletionUsecase
	prober *StageProber
	logger *slog.Logger
}

// NewHandler constructs the HTTP handler.
func NewHandler(chat *usecase.ChatCompletionUsecase, prober *StageProber, logger *slog.Logger) *Handler {
	return &Handler{chat: chat, prober: prober, logger: logger}
}

// Register wires the routes onto the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/chat/completions", h.ChatCompletions)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}

// ChatCompletions handles one chat completion request, buffered or
// streamed. Request validation failures are the only hard errors; every
// stage-level failure degrades to a best-effort answer.
func (h *Handler) ChatCompletions(c echo.Context) error {
	var req usecase.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	if requestID := c.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
		ctx = logger.WithRequestID(ctx, requestID)
	}
	llmParams := req.BuildLLMParams("")
	if !llmParams.Stream {
		resp, err := h.chat.Execute(ctx, &req)
		if err != nil {
			return h.mapError(c, err)
		}
		return c.JSON(http.StatusOK, resp)
	}

	result, err := h.chat.Stream(ctx, &req)
	if err != nil {
		return h.mapError(c, err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	err = h.chat.RelayTo(ctx, result, func(frame string) error {
		if _, werr := resp.Write([]byte(frame)); werr != nil {
			return werr
		}
		resp.Flush()
		return nil
	})
	if err != nil {
		// Headers are already out; all we can do is stop and log.
		logger.FromContext(ctx, h.logger).Warn("stream_aborted", slog.String("error", err.Error()))
	}
	return nil
}

func (h *Handler) mapError(c echo.Context, err error) error {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": validationErr.Reason})
	}
	logger.FromContext(c.Request().Context(), h.logger).Error("chat_completion_failed", slog.String("error", err.Error()))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// Healthz reports liveness.
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz probes the four stage services concurrently and reports per-stage
// reachability. Any unreachable stage turns the response into a 503.
func (h *Handler) Readyz(c echo.Context) error {
	statuses := h.prober.Probe(c.Request().Context())
	ready := true
	for _, status := range statuses {
		if status != "ok" {
			ready = false
			break
		}
	}
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{"ready": ready, "stages": statuses})
}
