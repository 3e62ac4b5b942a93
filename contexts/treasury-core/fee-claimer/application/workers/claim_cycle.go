package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "midas/contexts/treasury-core/fee-claimer/application"
	domainerrors "midas/contexts/treasury-core/fee-claimer/domain/errors"
)

// ClaimCycleJob adapts the claim cycle to a cron entry. Each run gets a
// fresh bounded context; an already-running cycle is skipped, not queued.
type ClaimCycleJob struct {
	Service *application.Service
	Timeout time.Duration
	Logger  *slog.Logger
}

func (j ClaimCycleJob) Run() {
	logger := application.ResolveLogger(j.Logger)
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	summary, err := j.Service.RunClaimCycle(ctx)
	if err != nil {
		if errors.Is(err, domainerrors.ErrCycleAlreadyRunning) {
			logger.Warn("claim cycle tick skipped",
				"event", "claim_cycle_tick_skipped",
				"module", "treasury-core/fee-claimer",
				"layer", "worker",
			)
			return
		}
		logger.Error("scheduled claim cycle failed",
			"event", "claim_cycle_tick_failed",
			"module", "treasury-core/fee-claimer",
			"layer", "worker",
			"error", err.Error(),
		)
		return
	}
	logger.Info("scheduled claim cycle completed",
		"event", "claim_cycle_tick_completed",
		"module", "treasury-core/fee-claimer",
		"layer", "worker",
		"processed", summary.Processed,
		"claimed", summary.Claimed,
		"failed", summary.Failed,
		"net_revenue", summary.NetRevenue,
	)
}
