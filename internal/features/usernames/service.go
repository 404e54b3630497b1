// Package usernames — service.go.
package usernames

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/serotonyl/karmabot/internal/common"
)

// Service управляет кэшем имён.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис имён.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Remember сохраняет имя пользователя. Ошибка не фатальна для вызывающего,
// поэтому логируется здесь.
func (s *Service) Remember(ctx context.Context, userID int64, name string) {
	if name == "" {
		return
	}
	if err := s.repo.Set(ctx, userID, name); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось сохранить имя")
	}
}

// DisplayName возвращает имя пользователя,
// либо "#<id>", если имя неизвестно.
func (s *Service) DisplayName(ctx context.Context, userID int64) string {
	name, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrUserNotFound) {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка чтения имени")
		}
		return fmt.Sprintf("#%d", userID)
	}
	return name
}
