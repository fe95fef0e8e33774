package main

import (
	"context"

	"github.com/turtacn/nlp-inference-service/internal/domain/history"
	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/nlp-inference-service/internal/interfaces/http/handlers"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

// storePinger pings the request log for the readiness endpoint and the gRPC
// health service, and keeps the backend gauge current.
type storePinger struct {
	store   *history.Store
	metrics *prometheus.HistoryMetrics
}

// Ping satisfies the gRPC server's Pinger.
func (p *storePinger) Ping(ctx context.Context) bool {
	up := p.store.Ping(ctx)
	p.metrics.SetBackendUp(up)
	return up
}

func (p *storePinger) checker() handlers.HealthChecker {
	return handlers.CheckerFunc{
		ComponentName: "redis",
		Fn: func(ctx context.Context) error {
			if !p.Ping(ctx) {
				return errors.Unavailable("history store unavailable")
			}
			return nil
		},
	}
}

//Personal.AI order the ending
