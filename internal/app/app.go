// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики
// и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/serotonyl/karmabot/internal/bot"
	"github.com/serotonyl/karmabot/internal/config"
	"github.com/serotonyl/karmabot/internal/db/postgres"
	"github.com/serotonyl/karmabot/internal/features/announce"
	"github.com/serotonyl/karmabot/internal/features/chats"
	"github.com/serotonyl/karmabot/internal/features/karma"
	"github.com/serotonyl/karmabot/internal/features/usernames"
	"github.com/serotonyl/karmabot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	karmaRepo := karma.NewRepository(pool)
	namesRepo := usernames.NewRepository(pool)
	chatsRepo := chats.NewRepository(pool)
	announceRepo := announce.NewRepository(pool)

	// === 4. Сервисы ===
	clock := clockwork.NewRealClock()
	karmaService := karma.NewService(karmaRepo, cfg, clock)
	namesService := usernames.NewService(namesRepo)
	chatsService := chats.NewService(chatsRepo)
	announceService := announce.NewService(announceRepo, cfg)

	// === 5. Обработчики ===
	karmaHandler := karma.NewHandler(karmaService, namesService, botAPI)
	announceHandler := announce.NewHandler(announceService, botAPI)

	// === 6. Собираем бота ===
	detector := karma.NewDetector(cfg.KarmaRaisePhrases, cfg.KarmaLowerPhrases)
	b := bot.New(botAPI, cfg, detector, karmaHandler, announceHandler, chatsService)

	// === 7. Планировщик задач ===
	announcer := jobs.NewAnnouncer(chatsService, announceService, b.SendTo, cfg.ChatReloadInterval, clock)
	scheduler := jobs.NewScheduler(announcer, karmaService, cfg)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Chats},
		{2, migration002Usernames},
		{3, migration003Karma},
		{4, migration004Stats},
		{5, migration005KarmaMessages},
		{6, migration006Announcements},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Chats = `
CREATE TABLE IF NOT EXISTS chats (
    chat_id BIGINT PRIMARY KEY,
    added_at TIMESTAMP DEFAULT NOW()
);
`

var migration002Usernames = `
CREATE TABLE IF NOT EXISTS usernames (
    user_id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL
);
`

var migration003Karma = `
CREATE TABLE IF NOT EXISTS karma (
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    karma INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT NOW(),
    PRIMARY KEY (chat_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_karma_chat_karma ON karma(chat_id, karma DESC);
`

var migration004Stats = `
CREATE TABLE IF NOT EXISTS stats (
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    last_karma_change TIMESTAMP,
    today DATE NOT NULL,
    today_karma_changes INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (chat_id, user_id)
);
`

var migration005KarmaMessages = `
CREATE TABLE IF NOT EXISTS karma_messages (
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    message_id INTEGER NOT NULL,
    PRIMARY KEY (chat_id, user_id, message_id)
);
`

var migration006Announcements = `
CREATE TABLE IF NOT EXISTS announcements (
    id BIGSERIAL PRIMARY KEY,
    text TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
`
