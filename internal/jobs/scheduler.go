// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: рассылку объявлений
// и чистку устаревших записей защиты от мести.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/serotonyl/karmabot/internal/config"
	"github.com/serotonyl/karmabot/internal/features/karma"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron         *cron.Cron
	announcer    *Announcer
	karmaService *karma.Service
	cfg          *config.Config
}

// NewScheduler создаёт планировщик задач.
func NewScheduler(announcer *Announcer, karmaService *karma.Service, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		announcer:    announcer,
		karmaService: karmaService,
		cfg:          cfg,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Рассылка объявлений
	s.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.AnnounceInterval), func() {
		log.Debug("[CRON] Рассылка объявлений")
		if err := s.announcer.Dispatch(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка рассылки объявлений")
		}
	})

	// Чистка памяти защиты от мести
	s.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.KarmaRevengeWindow), func() {
		s.karmaService.PruneGuards()
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
