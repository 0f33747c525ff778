package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Refresher reloads cached reference data. Failures are handled inside.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	log       zerolog.Logger
}

func NewScheduler(refresher Refresher, interval time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log: log})))
	return &Scheduler{
		cron:      c,
		refresher: refresher,
		interval:  interval,
		timeout:   time.Minute,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Warn().Msg("catalog refresh disabled")
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.refreshCatalog); err != nil {
		return fmt.Errorf("schedule catalog refresh: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop returns a context that is done once running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) refreshCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.refresher.RefreshAll(ctx)
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
