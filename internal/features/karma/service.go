// Package karma — service.go содержит бизнес-логику:
// проверку допуска, применение изменения и отмену последнего действия.
package karma

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/serotonyl/karmabot/internal/common"
	"github.com/serotonyl/karmabot/internal/config"
)

// Store — долговременное состояние кармы. Реализуется *Repository,
// в тестах подменяется фейком.
type Store interface {
	GetScore(ctx context.Context, chatID, userID int64) (int, error)
	ApplyDelta(ctx context.Context, chatID, userID int64, delta int) error
	Top(ctx context.Context, chatID int64, n int, highest bool) ([]TopEntry, error)

	RecordChange(ctx context.Context, chatID, actorID int64, now time.Time) error
	ChangesToday(ctx context.Context, chatID, actorID int64, now time.Time) (int, error)
	GetActivity(ctx context.Context, chatID, actorID int64) (*Activity, error)
	ResetLastChange(ctx context.Context, chatID, actorID int64) error

	HasScored(ctx context.Context, chatID, actorID int64, messageID int) (bool, error)
	MarkScored(ctx context.Context, chatID, actorID int64, messageID int) error
}

// Service управляет системой кармы.
type Service struct {
	store       Store
	revenge     *RevengeGuard
	lastActions *LastActionStore
	cfg         *config.Config
	clock       clockwork.Clock
}

// NewService создаёт сервис кармы. Все зависимости передаются явно.
func NewService(store Store, cfg *config.Config, clock clockwork.Clock) *Service {
	return &Service{
		store:       store,
		revenge:     NewRevengeGuard(cfg.KarmaRevengeWindow, clock),
		lastActions: NewLastActionStore(clock),
		cfg:         cfg,
		clock:       clock,
	}
}

// CheckAdmission решает, разрешено ли изменение кармы.
// Чистая проверка без побочных эффектов.
func (s *Service) CheckAdmission(ctx context.Context, chatID, actorID, targetID int64, targetIsBot bool) (Verdict, error) {
	if actorID == targetID {
		return VerdictChangeDenied, nil
	}
	if targetIsBot {
		return VerdictChangeDenied, nil
	}

	count, err := s.store.ChangesToday(ctx, chatID, actorID, s.clock.Now())
	if err != nil {
		return VerdictChangeDenied, err
	}
	if count >= s.cfg.KarmaDailyLimit {
		return VerdictDayMaxExceed, nil
	}

	return VerdictOK, nil
}

// ChangeKarma применяет одно изменение кармы.
// Порядок проверок фиксирован, каждая падает со своей ошибкой:
//  1. защита от мести
//  2. повторная оценка того же сообщения
//  3. допуск (своя карма, бот, дневной лимит)
//
// Возвращает новую карму цели.
func (s *Service) ChangeKarma(ctx context.Context, chatID, actorID, targetID int64, messageID int, targetIsBot bool, dir Direction) (int, error) {
	// Текущий автор недавно получил понижение от цели? Тогда это месть.
	if s.revenge.WasRecentlyLoweredBy(chatID, actorID, targetID) {
		return 0, common.ErrRevenge
	}

	scored, err := s.store.HasScored(ctx, chatID, actorID, messageID)
	if err != nil {
		return 0, err
	}
	if scored {
		return 0, common.ErrAlreadyScored
	}

	verdict, err := s.CheckAdmission(ctx, chatID, actorID, targetID, targetIsBot)
	if err != nil {
		return 0, err
	}
	switch verdict {
	case VerdictChangeDenied:
		if actorID == targetID {
			return 0, common.ErrSelfChange
		}
		return 0, common.ErrBotTarget
	case VerdictDayMaxExceed:
		return 0, common.ErrDailyLimit
	}

	delta := s.cfg.KarmaUpChange
	if dir == Lower {
		delta = -s.cfg.KarmaDownChange
	}
	now := s.clock.Now()

	if err := s.store.ApplyDelta(ctx, chatID, targetID, delta); err != nil {
		return 0, err
	}
	if err := s.store.RecordChange(ctx, chatID, actorID, now); err != nil {
		return 0, err
	}
	if err := s.store.MarkScored(ctx, chatID, actorID, messageID); err != nil {
		return 0, err
	}
	if dir == Lower {
		s.revenge.RecordLowering(chatID, targetID, actorID)
	}
	s.lastActions.Put(chatID, actorID, targetID, delta)

	log.WithFields(log.Fields{
		"chat_id":   chatID,
		"actor_id":  actorID,
		"target_id": targetID,
		"delta":     delta,
	}).Debug("Карма изменена")

	return s.store.GetScore(ctx, chatID, targetID)
}

// UndoResult — итог успешной отмены.
type UndoResult struct {
	TargetID int64
	NewScore int
}

// Undo отменяет последнее действие автора, если с него прошло не больше
// защитного окна. Отменённое действие удаляется: второй раз не отменить.
func (s *Service) Undo(ctx context.Context, chatID, actorID int64) (UndoResult, error) {
	action, ok := s.lastActions.Get(chatID, actorID)
	if !ok {
		return UndoResult{}, common.ErrNothingToUndo
	}
	if s.clock.Now().Sub(action.At) > s.cfg.KarmaUndoGrace {
		return UndoResult{}, common.ErrUndoTooLate
	}

	if err := s.store.ApplyDelta(ctx, chatID, action.TargetID, -action.Delta); err != nil {
		return UndoResult{}, err
	}
	if err := s.store.ResetLastChange(ctx, chatID, actorID); err != nil {
		return UndoResult{}, err
	}
	s.lastActions.Delete(chatID, actorID)

	score, err := s.store.GetScore(ctx, chatID, action.TargetID)
	if err != nil {
		return UndoResult{}, err
	}

	log.WithFields(log.Fields{
		"chat_id":   chatID,
		"actor_id":  actorID,
		"target_id": action.TargetID,
	}).Debug("Действие отменено")

	return UndoResult{TargetID: action.TargetID, NewScore: score}, nil
}

// GetKarma возвращает карму пользователя в чате.
func (s *Service) GetKarma(ctx context.Context, chatID, userID int64) (int, error) {
	return s.store.GetScore(ctx, chatID, userID)
}

// Activity возвращает статистику изменений автора (nil — ещё не менял).
func (s *Service) Activity(ctx context.Context, chatID, actorID int64) (*Activity, error) {
	return s.store.GetActivity(ctx, chatID, actorID)
}

// Top возвращает топ чата: highest=true — лучшие, false — худшие.
func (s *Service) Top(ctx context.Context, chatID int64, n int, highest bool) ([]TopEntry, error) {
	return s.store.Top(ctx, chatID, n, highest)
}

// PruneGuards выбрасывает устаревшие записи защиты от мести.
// Вызывается планировщиком.
func (s *Service) PruneGuards() {
	s.revenge.Prune()
}
