package workers

import (
	"context"
	"log/slog"
	"time"

	"folio-chat/contract"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const DefaultHealthProbeInterval = 5 * time.Second

// HealthProbeWorker reports SERVING only while the shared registry answers.
// Without it an instance can neither register connections nor rate limit.
type HealthProbeWorker struct {
	log      *slog.Logger
	registry contract.SharedRegistry
	health   *health.Server
	service  string
	interval time.Duration
}

func NewHealthProbeWorker(log *slog.Logger, registry contract.SharedRegistry, health *health.Server,
	service string, interval time.Duration) *HealthProbeWorker {
	if interval <= 0 {
		interval = DefaultHealthProbeInterval
	}
	return &HealthProbeWorker{log: log, registry: registry, health: health, service: service, interval: interval}
}

func (w *HealthProbeWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.probe(ctx)
		}
	}
}

func (w *HealthProbeWorker) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := w.registry.Ping(ctx); err != nil {
		w.log.Warn("Shared registry unreachable", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	w.health.SetServingStatus(w.service, status)
	w.health.SetServingStatus("", status)
}
