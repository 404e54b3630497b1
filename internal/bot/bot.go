// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go подключает обработчики и запускает polling.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/serotonyl/karmabot/internal/bot/middleware"
	"github.com/serotonyl/karmabot/internal/config"
	"github.com/serotonyl/karmabot/internal/features/announce"
	"github.com/serotonyl/karmabot/internal/features/chats"
	"github.com/serotonyl/karmabot/internal/features/karma"
)

const helpText = `Я считаю карму в групповых чатах.

Ответьте на сообщение фразой «спасибо» или «+», чтобы поднять карму автора,
«минус» или «-» — чтобы опустить.

Команды:
/mykarma — моя карма
/top — топ кармы чата
/antitop — антитоп кармы чата
/cancel — отменить своё последнее действие (в течение двух минут)`

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	rateLimiter *middleware.RateLimiter
	detector    *karma.Detector

	karmaHandler    *karma.Handler
	announceHandler *announce.Handler
	chatService     *chats.Service

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	detector *karma.Detector,
	karmaHandler *karma.Handler,
	announceHandler *announce.Handler,
	chatService *chats.Service,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:             api,
		cfg:             cfg,
		rateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		detector:        detector,
		karmaHandler:    karmaHandler,
		announceHandler: announceHandler,
		chatService:     chatService,
		parser:          NewCommandParser(),
		inflight:        make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	message := update.Message
	if message == nil || message.Chat == nil {
		return
	}

	// Бота добавили в группу — регистрируем чат
	if message.NewChatMembers != nil {
		b.handleNewMembers(ctx, message.Chat.ID, message.NewChatMembers)
		return
	}

	// Группа стала супергруппой — переносим все данные на новый chat_id
	if message.MigrateToChatID != 0 {
		if err := b.chatService.Migrate(ctx, message.Chat.ID, message.MigrateToChatID); err != nil {
			log.WithError(err).Error("Ошибка миграции чата")
		}
		return
	}

	if message.From == nil {
		return
	}

	middleware.LogMessage(message)

	// Rate limiting
	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// Реплай с фразой изменения кармы
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		if b.handleKarmaReply(ctx, message) {
			return
		}
	}

	// Парсим команду
	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if isCommand {
		b.routeCommand(ctx, chatID, userID, message.Chat.IsPrivate(), cmd, args)
	}
}

// handleKarmaReply классифицирует текст реплая и меняет карму.
// Возвращает true, если сообщение было командой кармы.
func (b *Bot) handleKarmaReply(ctx context.Context, message *tgbotapi.Message) bool {
	// У стикера текста нет, но есть эмодзи — оцениваем по нему
	text := message.Text
	if text == "" && message.Sticker != nil {
		text = message.Sticker.Emoji
	}
	if text == "" {
		return false
	}

	var dir karma.Direction
	switch b.detector.Parse(text) {
	case karma.RaiseCommand:
		dir = karma.Raise
	case karma.LowerCommand:
		dir = karma.Lower
	default:
		return false
	}

	reply := message.ReplyToMessage
	b.karmaHandler.HandleChange(ctx, message.Chat.ID, message.From.ID, reply.From, reply.MessageID, dir)
	return true
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, isPrivate bool, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": len(args),
	}).Debug("routing command")

	switch cmd {
	case "start", "help":
		b.sendMessage(chatID, helpText)

	case "mykarma", "карма":
		b.karmaHandler.HandleMyKarma(ctx, chatID, userID)

	case "top", "топ":
		b.karmaHandler.HandleTop(ctx, chatID, true)

	case "antitop", "антитоп":
		b.karmaHandler.HandleTop(ctx, chatID, false)

	case "cancel", "отмена":
		b.karmaHandler.HandleCancel(ctx, chatID, userID)

	case "announce":
		// объявления добавляются только в ЛС
		if isPrivate {
			b.announceHandler.HandleAnnounce(ctx, chatID, userID, args)
		}
	}
}

// handleNewMembers регистрирует чат, когда в группу добавили самого бота.
func (b *Bot) handleNewMembers(ctx context.Context, chatID int64, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.ID != b.api.Self.ID {
			continue
		}
		if err := b.chatService.Register(ctx, chatID); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Ошибка регистрации чата")
			continue
		}
		log.WithField("chat_id", chatID).Info("Бот добавлен в новый чат")
		b.sendMessage(chatID, "Добро пожаловать!\n\n"+helpText)
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendTo отправляет сообщение в чат и возвращает ошибку вызывающему.
// Используется рассыльщиком объявлений, которому важно отличать
// «бот заблокирован» от временного сбоя.
func (b *Bot) SendTo(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// CommandParser парсит команды с префиксами /, ! и .
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!", "."},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	text = strings.TrimSpace(text)
	parts := strings.Fields(text)

	if len(parts) == 0 {
		return "", nil, false
	}

	// /top@karmabot → top
	command := strings.ToLower(parts[0])
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
