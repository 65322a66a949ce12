package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"social-video-orchestrator/internal/domain"
	"social-video-orchestrator/internal/usecase"
)

// RecoveryWorker periodically sweeps jobs stuck in processing. Its main job
// is picking up work orphaned by a process restart; during normal operation
// the per-job poll loops win the race and the sweep finds nothing to do.
type RecoveryWorker struct {
	interval time.Duration
	videoUC  usecase.VideoUseCase
	log      *zerolog.Logger
}

func NewRecoveryWorker(interval time.Duration, videoUC usecase.VideoUseCase, logger *zerolog.Logger) *RecoveryWorker {
	recLog := logger.With().Str("component", "RecoveryWorker").Logger()
	return &RecoveryWorker{
		interval: interval,
		videoUC:  videoUC,
		log:      &recLog,
	}
}

func (w *RecoveryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting recovery worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping recovery worker")
			return ctx.Err()
		case <-ticker.C:
			reconciled, total, err := w.videoUC.SweepStuckJobs(ctx)
			if err != nil {
				if errors.Is(err, domain.ErrSweepInProgress) {
					w.log.Debug().Msg("sweep already running, skipping tick")
					continue
				}
				w.log.Error().Err(err).Msg("recovery sweep error")
				continue
			}
			if reconciled > 0 {
				w.log.Info().Int("reconciled", reconciled).Int("total", total).Msg("recovered stuck jobs")
			}
		}
	}
}
