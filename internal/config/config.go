// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"karmabot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Karma ---
	// Фразы-триггеры. Сообщение-реплай, начинающееся с одной из них,
	// меняет карму автора исходного сообщения.
	KarmaRaisePhrasesRaw string   `envconfig:"KARMA_RAISE_PHRASES" default:"+,спасибо,спс,благодарю,👍"`
	KarmaLowerPhrasesRaw string   `envconfig:"KARMA_LOWER_PHRASES" default:"-,минус,👎"`
	KarmaRaisePhrases    []string `envconfig:"-"` // заполним вручную
	KarmaLowerPhrases    []string `envconfig:"-"`

	// На сколько меняется карма за одно действие
	KarmaUpChange   int `envconfig:"KARMA_UP_CHANGE" default:"1"`
	KarmaDownChange int `envconfig:"KARMA_DOWN_CHANGE" default:"1"`

	// Сколько изменений кармы один человек может сделать за день (в одном чате)
	KarmaDailyLimit int `envconfig:"KARMA_DAILY_LIMIT" default:"10"`
	// Окно «мести»: нельзя понижать карму тому, кто недавно понизил твою
	KarmaRevengeWindow time.Duration `envconfig:"KARMA_REVENGE_WINDOW" default:"2m"`
	// Окно отмены последнего действия
	KarmaUndoGrace time.Duration `envconfig:"KARMA_UNDO_GRACE" default:"2m"`

	// --- Announcements ---
	// bcrypt-хеш пароля для добавления анонсов через ЛС
	AnnouncePasswordHash string        `envconfig:"ANNOUNCE_PASSWORD_HASH" required:"true"`
	AnnounceInterval     time.Duration `envconfig:"ANNOUNCE_INTERVAL" default:"10m"`
	// Как часто перечитывать список чатов из БД
	ChatReloadInterval time.Duration `envconfig:"CHAT_RELOAD_INTERVAL" default:"5m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.KarmaUpChange <= 0 || c.KarmaDownChange <= 0 {
		return fmt.Errorf("KARMA_UP_CHANGE/KARMA_DOWN_CHANGE должны быть > 0")
	}
	if c.KarmaDailyLimit <= 0 {
		return fmt.Errorf("KARMA_DAILY_LIMIT должен быть > 0")
	}
	if c.KarmaRevengeWindow <= 0 || c.KarmaUndoGrace <= 0 {
		return fmt.Errorf("KARMA_REVENGE_WINDOW/KARMA_UNDO_GRACE должны быть > 0")
	}
	if len(c.KarmaRaisePhrases) == 0 && len(c.KarmaLowerPhrases) == 0 {
		return fmt.Errorf("не задано ни одной фразы-триггера")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.KarmaRaisePhrases = parseCSV(cfg.KarmaRaisePhrasesRaw)
	cfg.KarmaLowerPhrases = parseCSV(cfg.KarmaLowerPhrasesRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
