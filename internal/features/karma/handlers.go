// Package karma — handlers.go превращает результаты сервиса
// в сообщения пользователям.
package karma

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/serotonyl/karmabot/internal/common"
	"github.com/serotonyl/karmabot/internal/features/usernames"
)

// Handler обрабатывает события кармы.
type Handler struct {
	service *Service
	names   *usernames.Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик кармы.
func NewHandler(service *Service, names *usernames.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, names: names, bot: bot}
}

// HandleChange обрабатывает реплай с фразой изменения кармы.
// target — автор оцениваемого сообщения, messageID — его id.
func (h *Handler) HandleChange(ctx context.Context, chatID, actorID int64, target *tgbotapi.User, messageID int, dir Direction) {
	targetName := target.FirstName
	if target.UserName != "" {
		targetName = "@" + target.UserName
	}
	h.names.Remember(ctx, target.ID, targetName)

	newScore, err := h.service.ChangeKarma(ctx, chatID, actorID, target.ID, messageID, target.IsBot, dir)
	if err != nil {
		h.sendMessage(chatID, h.denialMessage(err, dir))
		return
	}

	sign := "+"
	amount := h.service.cfg.KarmaUpChange
	if dir == Lower {
		sign = "-"
		amount = h.service.cfg.KarmaDownChange
	}
	h.sendMessage(chatID, fmt.Sprintf(
		"%s%d к карме %s\nТеперь карма %s составляет %d",
		sign, amount, targetName, targetName, newScore,
	))
}

// denialMessage подбирает текст отказа. Отказы — нормальный исход,
// в лог ошибок они не попадают.
func (h *Handler) denialMessage(err error, dir Direction) string {
	switch {
	case errors.Is(err, common.ErrSelfChange):
		return "Хитрюга!"
	case errors.Is(err, common.ErrBotTarget):
		return "У роботов нет кармы"
	case errors.Is(err, common.ErrRevenge):
		return "Ух, какой вы мстительный!!!"
	case errors.Is(err, common.ErrAlreadyScored):
		return "Вы уже оценили данное сообщение"
	case errors.Is(err, common.ErrDailyLimit):
		return "Вы исчерпали дневной лимит на изменения кармы"
	default:
		log.WithError(err).Error("Ошибка изменения кармы")
		return "❌ Не получилось изменить карму, попробуйте позже"
	}
}

// HandleMyKarma — команда /mykarma. Показывает ТОЛЬКО свою карму.
func (h *Handler) HandleMyKarma(ctx context.Context, chatID, userID int64) {
	score, err := h.service.GetKarma(ctx, chatID, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения кармы")
		h.sendMessage(chatID, "❌ Ошибка получения кармы")
		return
	}

	text := fmt.Sprintf("⭐ Твоя карма: %s", common.FormatKarma(score))

	activity, err := h.service.Activity(ctx, chatID, userID)
	if err != nil {
		log.WithError(err).Warn("Ошибка чтения статистики автора")
	} else if activity != nil && activity.LastChangeAt != nil {
		text += fmt.Sprintf("\nПоследний раз ты менял карму %s",
			activity.LastChangeAt.UTC().Format("02.01.2006 15:04"))
	}

	h.sendMessage(chatID, text)
}

// HandleTop — команды /top и /antitop: пять лучших или пять худших.
func (h *Handler) HandleTop(ctx context.Context, chatID int64, highest bool) {
	top, err := h.service.Top(ctx, chatID, 5, highest)
	if err != nil {
		log.WithError(err).Error("Ошибка получения топа")
		h.sendMessage(chatID, "❌ Ошибка получения топа")
		return
	}

	if len(top) == 0 {
		if highest {
			h.sendMessage(chatID, "Пока ни у кого нет положительной кармы")
		} else {
			h.sendMessage(chatID, "Пока ни у кого нет отрицательной кармы")
		}
		return
	}

	var sb strings.Builder
	if highest {
		sb.WriteString("🏆 Топ кармы:\n")
	} else {
		sb.WriteString("😈 Антитоп кармы:\n")
	}
	for i, e := range top {
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, h.names.DisplayName(ctx, e.UserID), e.Karma)
	}
	h.sendMessage(chatID, strings.TrimRight(sb.String(), "\n"))
}

// HandleCancel — команда /cancel: отмена последнего действия.
func (h *Handler) HandleCancel(ctx context.Context, chatID, userID int64) {
	res, err := h.service.Undo(ctx, chatID, userID)
	switch {
	case errors.Is(err, common.ErrNothingToUndo):
		h.sendMessage(chatID, "Нечего отменять :/")
		return
	case errors.Is(err, common.ErrUndoTooLate):
		h.sendMessage(chatID, "Слишком поздно, отменять действия можно только в течение двух минут!")
		return
	case err != nil:
		log.WithError(err).Error("Ошибка отмены действия")
		h.sendMessage(chatID, "❌ Не получилось отменить действие")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"Ваше последнее действие отменено, карма %s снова составляет %d",
		h.names.DisplayName(ctx, res.TargetID), res.NewScore,
	))
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
