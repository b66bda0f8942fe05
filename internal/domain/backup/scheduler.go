package backup

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs automatic backups on a cron expression. Each run creates a
// passphrase-keyed backup (fresh salt every time) and saves the store state
// durably. A run that collides with a manual operation is skipped and
// logged, never queued.
type Scheduler struct {
	cron       *cron.Cron
	orch       *Orchestrator
	passphrase string
	logger     zerolog.Logger
}

// NewScheduler builds a scheduler around the orchestrator.
func NewScheduler(orch *Orchestrator, passphrase string, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		orch:       orch,
		passphrase: passphrase,
		logger:     logger,
	}
}

// Start registers the auto-backup job under spec (standard cron syntax) and
// starts the clock.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("spec", spec).Msg("auto-backup scheduler started")
	return nil
}

// Stop stops the clock and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("auto-backup scheduler stopped")
}

func (s *Scheduler) run() {
	ctx := context.Background()

	if _, err := s.orch.CreateWithPassphrase(ctx, s.passphrase, true); err != nil {
		if errors.Is(err, ErrBusy) {
			s.logger.Warn().Msg("auto backup skipped: another backup operation is running")
			return
		}
		s.logger.Error().Err(err).Msg("auto backup failed")
		return
	}

	if err := s.orch.store.Save(ctx, s.orch.dev); err != nil {
		s.logger.Error().Err(err).Msg("auto backup: persist state failed")
	}
}
