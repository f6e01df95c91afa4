// Package sweep drives the expiry sweeper on a fixed cadence. It is the only
// caller of the service's EndCycle; expiry is a background concern, not an
// API operation.
package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bazaar/service"
)

type Job struct {
	svc      *service.Service
	interval time.Duration
	log      *zap.Logger
}

func New(svc *service.Service, interval time.Duration, log *zap.Logger) *Job {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Job{svc: svc, interval: interval, log: log}
}

func (j *Job) Start(ctx context.Context) {
	j.log.Info("sweep job started", zap.Duration("interval", j.interval))

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				record, err := j.svc.EndCycle(ctx)
				if err != nil {
					j.log.Error("sweep cycle failed", zap.Error(err))
					continue
				}
				if record.Removed > 0 {
					j.log.Info("sweep cycle", zap.Int("removed", record.Removed))
				}
			}
		}
	}()
}
