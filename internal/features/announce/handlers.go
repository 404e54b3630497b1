// Package announce — handlers.go обрабатывает команду /announce в ЛС.
package announce

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/serotonyl/karmabot/internal/common"
)

// Handler обрабатывает команды объявлений.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик объявлений.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleAnnounce — команда /announce <пароль> <текст>.
// Работает только в личных сообщениях.
func (h *Handler) HandleAnnounce(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "Использование: /announce <пароль> <текст объявления>")
		return
	}

	password := args[0]
	text := strings.Join(args[1:], " ")

	err := h.service.Submit(ctx, userID, password, text)
	switch {
	case errors.Is(err, common.ErrWrongPassword):
		h.sendMessage(chatID, "Неверный пароль")
		return
	case errors.Is(err, common.ErrEmptyAnnouncement):
		h.sendMessage(chatID, "Текст объявления пуст")
		return
	case err != nil:
		log.WithError(err).Error("Ошибка добавления объявления")
		h.sendMessage(chatID, "❌ Не получилось добавить объявление")
		return
	}

	h.sendMessage(chatID, "📣 Объявление добавлено, разошлю при следующей рассылке")
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
