package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"folio-chat/errors"
	"folio-chat/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthProbeWorker_Follows_Registry(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockSharedRegistry(ctrl)
	server := health.NewServer()
	worker := NewHealthProbeWorker(slog.Default(), registry, server, "chat", time.Hour)
	ctx := context.Background()

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := server.Check(ctx, &healthpb.HealthCheckRequest{Service: "chat"})
		req.NoError(err)
		return resp.Status
	}

	// Given a reachable registry
	registry.EXPECT().Ping(gomock.Any()).Return(nil)
	worker.probe(ctx)
	req.Equal(healthpb.HealthCheckResponse_SERVING, check())

	// When it goes away
	registry.EXPECT().Ping(gomock.Any()).Return(errors.ErrRegistryUnavailable)
	worker.probe(ctx)

	// Then the instance stops serving
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check())
}

func TestHeartbeatWorker_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.NoError(NewHeartbeatWorker(slog.Default(), nil, time.Millisecond).Run(ctx))
}
