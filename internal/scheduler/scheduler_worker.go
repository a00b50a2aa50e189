package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run ticks periodically and fires the batches whose period marker is
// still free. Catch-up is implicit: if the process was down on the
// first of the month, the first tick after restart runs the batch.
func Run(ctx context.Context, svc Service, logger *zap.Logger, tickInterval time.Duration) {
	if tickInterval <= 0 {
		tickInterval = time.Hour
	}

	log := logger.Named("scheduler.worker")
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	log.Info("scheduler worker started", zap.Duration("tick_interval", tickInterval))

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler worker stopped")
			return
		case <-ticker.C:
			tick(ctx, svc, log, time.Now().UTC())
		}
	}
}

func tick(ctx context.Context, svc Service, log *zap.Logger, now time.Time) {
	result, ran, err := svc.RunMonthlyAccrual(ctx, now)
	if err != nil {
		log.Error("monthly accrual run failed", zap.Error(err))
	} else if ran {
		log.Info("monthly accrual ran",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
		)
	}

	if now.Month() != time.January {
		return
	}

	fromYear := now.Year() - 1
	result, ran, err = svc.RunYearEndCarryOver(ctx, fromYear)
	if err != nil {
		log.Error("year-end carry over run failed", zap.Error(err))
	} else if ran {
		log.Info("year-end carry over ran",
			zap.Int("from_year", fromYear),
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
		)
	}
}
