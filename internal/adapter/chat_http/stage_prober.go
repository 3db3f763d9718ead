package chat_http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// StageProber checks reachability of the stage services for the readiness
// endpoint. Probes are diagnostic connection checks, not full stage calls,
// so they run with a short timeout.
type StageProber struct {
	targets map[string]string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewStageProber constructs a prober over stage-name → base-URL targets.
func NewStageProber(targets map[string]string, client *http.Client, timeout time.Duration, logger *slog.Logger) *StageProber {
	if client == nil {
		client = &http.Client{}
	}
	return &StageProber{
		targets: targets,
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Probe checks every stage concurrently and returns stage → "ok" or the
// failure description. Any HTTP response counts as reachable; only
// connection-level failures mark a stage down.
func (p *StageProber) Probe(ctx context.Context) map[string]string {
	statuses := make(map[string]string, len(p.targets))
	var mu sync.Mutex

	g, probeCtx := errgroup.WithContext(ctx)
	for name, baseURL := range p.targets {
		g.Go(func() error {
			status := p.probeOne(probeCtx, baseURL)
			mu.Lock()
			statuses[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

func (p *StageProber) probeOne(ctx context.Context, baseURL string) string {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return err.Error()
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("stage_probe_failed",
			slog.String("url", baseURL),
			slog.String("error", err.Error()))
		return "unreachable"
	}
	defer func() { _ = resp.Body.Close() }()
	return "ok"
}
