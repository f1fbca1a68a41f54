package app

import (
	"context"
	"time"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/bus"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/config"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/exporter"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/state"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/transmission"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run launches the measurement pipeline and blocks until ctx is cancelled.
// One collector goroutine drives reconciliation cycles; completed batches fan
// out over the bus to the transmitter. The single collector loop guarantees
// at most one reconciliation per vehicle at a time, which the carry-forward
// logic depends on.
func Run(
	parentCtx context.Context,
	cfg *config.Config,
	exp *exporter.Exporter,
	store state.Store,
	tx transmission.Transmitter,
	logger *logrus.Logger,
) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	messageBus := bus.New()
	grp, ctx := errgroup.WithContext(ctx)

	// Collector -----------------------------------------------------------
	grp.Go(func() error {
		ticker := time.NewTicker(cfg.MeasureInterval)
		defer ticker.Stop()

		// First cycle runs immediately rather than one interval in.
		runCycle(ctx, cfg, exp, store, messageBus, logger)

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				runCycle(ctx, cfg, exp, store, messageBus, logger)
			}
		}
	})

	// Transmitter ---------------------------------------------------------
	if tx != nil {
		sub := messageBus.Subscribe()
		grp.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case batch, ok := <-sub:
					if !ok {
						return nil
					}
					if err := tx.Transmit(batch); err != nil {
						logger.WithError(err).Warn("Transmit failed")
					}
				}
			}
		})
	}

	if err := grp.Wait(); err != nil && err != context.Canceled {
		logger.WithError(err).Warn("app: background group exited")
	}
}

// runCycle executes one reconciliation cycle: load the previous measurements,
// reconcile every vehicle, persist the result and publish it. A failed cycle
// is logged and skipped; the scheduler simply tries again next interval.
func runCycle(
	ctx context.Context,
	cfg *config.Config,
	exp *exporter.Exporter,
	store state.Store,
	messageBus *bus.Bus,
	logger *logrus.Logger,
) {
	lastMeasurements, err := store.Last(ctx)
	if err != nil {
		logger.WithError(err).Warn("collector: failed reading last measurements, starting from scratch")
	}

	started := time.Now()
	measurements, err := exp.GetMeasurements(ctx, *cfg, lastMeasurements)
	if err != nil {
		logger.WithError(err).Warn("collector: cycle failed")
		return
	}

	if err := store.Save(ctx, measurements); err != nil {
		logger.WithError(err).Warn("collector: failed saving measurements")
	}

	logger.WithFields(logrus.Fields{
		"measurements": len(measurements),
		"took":         time.Since(started).Round(time.Millisecond),
	}).Info("Cycle completed")

	messageBus.Publish(measurements)
}
