// Package jobs — announcer.go рассылает объявления по всем известным чатам.
// Логика повторяет осторожную рассылку вручную: до 10 попыток на чат,
// пауза между чатами, удаление чатов, где бота заблокировали.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/serotonyl/karmabot/internal/features/announce"
	"github.com/serotonyl/karmabot/internal/features/chats"
)

const (
	maxSendAttempts   = 10
	betweenChatsPause = 2 * time.Second
)

// SendFunc отправляет сообщение в чат.
type SendFunc func(chatID int64, text string) error

// Announcer раздаёт объявления из очереди по всем чатам.
// Список чатов кэшируется и перечитывается не чаще reloadEvery.
type Announcer struct {
	chats         *chats.Service
	announcements *announce.Service
	send          SendFunc
	clock         clockwork.Clock
	reloadEvery   time.Duration

	// mu сериализует запуски Dispatch: рассылка с паузами между чатами
	// может не уложиться в интервал cron, и тики начнут перекрываться.
	mu          sync.Mutex
	cachedChats []int64
	lastReload  time.Time
}

// NewAnnouncer создаёт рассыльщик объявлений.
func NewAnnouncer(chatService *chats.Service, announceService *announce.Service, send SendFunc, reloadEvery time.Duration, clock clockwork.Clock) *Announcer {
	return &Announcer{
		chats:         chatService,
		announcements: announceService,
		send:          send,
		clock:         clock,
		reloadEvery:   reloadEvery,
	}
}

// Dispatch рассылает все ожидающие объявления.
// Если предыдущая рассылка ещё идёт, запуск пропускается: параллельные
// рассылки доставили бы одно объявление дважды.
func (a *Announcer) Dispatch(ctx context.Context) error {
	if !a.mu.TryLock() {
		log.Debug("Предыдущая рассылка ещё идёт, пропускаю запуск")
		return nil
	}
	defer a.mu.Unlock()

	a.reloadChatsIfNeeded(ctx)

	pending, err := a.announcements.Pending(ctx)
	if err != nil {
		return err
	}

	for _, ann := range pending {
		log.WithField("announcement_id", ann.ID).Info("Рассылаю объявление")

		for _, chatID := range a.cachedChats {
			a.deliverToChat(ctx, chatID, ann.Text)
			a.clock.Sleep(betweenChatsPause)
		}

		if err := a.announcements.MarkSent(ctx, ann.ID); err != nil {
			return err
		}
	}
	return nil
}

// reloadChatsIfNeeded перечитывает список чатов из БД,
// если с прошлого чтения прошло достаточно времени.
func (a *Announcer) reloadChatsIfNeeded(ctx context.Context) bool {
	now := a.clock.Now()
	if !a.lastReload.IsZero() && now.Sub(a.lastReload) < a.reloadEvery {
		return false
	}

	ids, err := a.chats.All(ctx)
	if err != nil {
		log.WithError(err).Error("Не удалось перечитать список чатов")
		return false
	}

	a.cachedChats = ids
	a.lastReload = now
	log.WithField("chats", len(ids)).Debug("Список чатов обновлён")
	return true
}

// deliverToChat отправляет текст в один чат с повторами.
// Заблокировавшие бота чаты удаляются из реестра.
func (a *Announcer) deliverToChat(ctx context.Context, chatID int64, text string) {
	logger := log.WithField("chat_id", chatID)

	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		err := a.send(chatID, text)
		if err == nil {
			return
		}

		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) {
			// Бот удалён из чата или заблокирован — чат больше не наш
			if tgErr.Code == 403 {
				logger.Info("Бот заблокирован, удаляю чат из реестра")
				if err := a.chats.Forget(ctx, chatID); err != nil {
					logger.WithError(err).Error("Не удалось удалить чат")
				}
				return
			}
			if retry := tgErr.RetryAfter; retry > 0 {
				logger.WithField("retry_after", retry).Warn("Telegram просит подождать")
				a.clock.Sleep(time.Duration(retry) * time.Second)
				continue
			}
		}

		logger.WithError(err).WithField("attempt", attempt).Warn("Ошибка отправки объявления")
	}

	logger.Error("Объявление не доставлено после всех попыток")
}
