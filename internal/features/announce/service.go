// Package announce — service.go содержит бизнес-логику объявлений.
// Добавлять объявления можно только в ЛС бота, зная пароль:
// пароль сверяется с bcrypt-хешем из конфигурации.
package announce

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/serotonyl/karmabot/internal/common"
	"github.com/serotonyl/karmabot/internal/config"
)

// Service управляет очередью объявлений.
type Service struct {
	repo *Repository
	cfg  *config.Config
}

// NewService создаёт сервис объявлений.
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// Submit проверяет пароль и ставит объявление в очередь.
func (s *Service) Submit(ctx context.Context, userID int64, password, text string) error {
	err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AnnouncePasswordHash), []byte(password))
	if err != nil {
		log.WithField("user_id", userID).Warn("Неверный пароль объявлений")
		return common.ErrWrongPassword
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return common.ErrEmptyAnnouncement
	}

	if err := s.repo.Add(ctx, text); err != nil {
		return err
	}

	log.WithField("user_id", userID).Info("Объявление добавлено в очередь")
	return nil
}

// Pending возвращает неразосланные объявления.
func (s *Service) Pending(ctx context.Context) ([]Announcement, error) {
	return s.repo.All(ctx)
}

// MarkSent удаляет разосланное объявление.
func (s *Service) MarkSent(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
