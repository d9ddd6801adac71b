package processor

import (
	"context"

	"facetsearch/pkg/logger"
	"facetsearch/search-service/internal/app/search/service"

	"github.com/robfig/cron/v3"
)

// SweepScheduler периодически удаляет привязки к исчезнувшим товарам и значениям
// Подстраховывает consumer: события удаления могли быть потеряны
type SweepScheduler struct {
	cron       *cron.Cron
	maintainer service.AttributionMaintainer
}

func NewSweepScheduler(maintainer service.AttributionMaintainer) *SweepScheduler {
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(logger.PrintfLogger{})),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &SweepScheduler{
		cron:       c,
		maintainer: maintainer,
	}
}

// Start регистрирует задачу по расписанию (стандартный cron из 5 полей или @every)
func (s *SweepScheduler) Start(ctx context.Context, schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.sweep(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Str("schedule", schedule).Msg("Orphan sweep scheduler started")

	return nil
}

func (s *SweepScheduler) sweep(ctx context.Context) {
	removed, err := s.maintainer.SweepOrphans(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Orphan attribution sweep failed")
		return
	}

	logger.Info().Int64("removed", removed).Msg("Orphan attribution sweep completed")
}

// Stop ждет окончания запущенной очистки
func (s *SweepScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Orphan sweep scheduler stopped")
}

func (s *SweepScheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
