// Package karma — repository.go выполняет операции с таблицами
// karma, stats и karma_messages.
package karma

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serotonyl/karmabot/internal/common"
)

// Repository работает с долговременным состоянием кармы.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий кармы.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// --- Таблица karma: счёт (chat_id, user_id) → karma ---

// GetScore возвращает карму пользователя в чате. Нет строки — карма 0.
func (r *Repository) GetScore(ctx context.Context, chatID, userID int64) (int, error) {
	query := `SELECT karma FROM karma WHERE chat_id = $1 AND user_id = $2`
	var karma int
	err := r.db.QueryRow(ctx, query, chatID, userID).Scan(&karma)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("чтение кармы: %w", err)
	}
	return karma, nil
}

// ApplyDelta атомарно меняет карму на delta, создавая строку при необходимости.
// Одним запросом, чтобы параллельные изменения одного счёта не теряли апдейты.
func (r *Repository) ApplyDelta(ctx context.Context, chatID, userID int64, delta int) error {
	query := `
		INSERT INTO karma (chat_id, user_id, karma, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (chat_id, user_id)
		DO UPDATE SET karma = karma.karma + EXCLUDED.karma, updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, chatID, userID, delta); err != nil {
		return fmt.Errorf("изменение кармы: %w", err)
	}
	return nil
}

// Top возвращает до n пользователей чата с наибольшей (highest=true, karma > 0)
// или наименьшей (highest=false, karma < 0) кармой.
// При равной карме порядок фиксируется по user_id.
func (r *Repository) Top(ctx context.Context, chatID int64, n int, highest bool) ([]TopEntry, error) {
	query := `
		SELECT user_id, karma FROM karma
		WHERE chat_id = $1 AND karma > 0
		ORDER BY karma DESC, user_id ASC
		LIMIT $2
	`
	if !highest {
		query = `
			SELECT user_id, karma FROM karma
			WHERE chat_id = $1 AND karma < 0
			ORDER BY karma ASC, user_id ASC
			LIMIT $2
		`
	}

	rows, err := r.db.Query(ctx, query, chatID, n)
	if err != nil {
		return nil, fmt.Errorf("чтение топа кармы: %w", err)
	}
	defer rows.Close()

	var top []TopEntry
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&e.UserID, &e.Karma); err != nil {
			return nil, fmt.Errorf("чтение строки топа: %w", err)
		}
		top = append(top, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("чтение топа кармы: %w", err)
	}
	return top, nil
}

// --- Таблица stats: дневной счётчик изменений автора ---

// RecordChange фиксирует одно изменение кармы автором.
// Новая строка начинается с 1; в тот же день счётчик растёт,
// при смене дня сбрасывается обратно в 1. Всё одним upsert-ом.
func (r *Repository) RecordChange(ctx context.Context, chatID, actorID int64, now time.Time) error {
	query := `
		INSERT INTO stats (chat_id, user_id, last_karma_change, today, today_karma_changes)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (chat_id, user_id) DO UPDATE SET
			today_karma_changes = CASE
				WHEN stats.today = EXCLUDED.today THEN stats.today_karma_changes + 1
				ELSE 1
			END,
			today = EXCLUDED.today,
			last_karma_change = EXCLUDED.last_karma_change
	`
	_, err := r.db.Exec(ctx, query, chatID, actorID, now.UTC(), common.UTCDate(now))
	if err != nil {
		return fmt.Errorf("обновление статистики: %w", err)
	}
	return nil
}

// ChangesToday возвращает, сколько изменений автор сделал сегодня.
// Нет строки или строка от другого дня — 0.
func (r *Repository) ChangesToday(ctx context.Context, chatID, actorID int64, now time.Time) (int, error) {
	query := `
		SELECT today_karma_changes FROM stats
		WHERE chat_id = $1 AND user_id = $2 AND today = $3
	`
	var count int
	err := r.db.QueryRow(ctx, query, chatID, actorID, common.UTCDate(now)).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("чтение статистики: %w", err)
	}
	return count, nil
}

// GetActivity возвращает статистику автора, или nil, если он ещё
// ничего не менял.
func (r *Repository) GetActivity(ctx context.Context, chatID, actorID int64) (*Activity, error) {
	query := `
		SELECT chat_id, user_id, last_karma_change, today, today_karma_changes
		FROM stats WHERE chat_id = $1 AND user_id = $2
	`
	var a Activity
	err := r.db.QueryRow(ctx, query, chatID, actorID).Scan(
		&a.ChatID, &a.UserID, &a.LastChangeAt, &a.Today, &a.ChangesToday,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение статистики автора: %w", err)
	}
	return &a, nil
}

// ResetLastChange откатывает учёт одного изменения после отмены:
// дневной счётчик уменьшается (не ниже нуля), отметка времени снимается.
func (r *Repository) ResetLastChange(ctx context.Context, chatID, actorID int64) error {
	query := `
		UPDATE stats
		SET today_karma_changes = GREATEST(today_karma_changes - 1, 0),
		    last_karma_change = NULL
		WHERE chat_id = $1 AND user_id = $2
	`
	if _, err := r.db.Exec(ctx, query, chatID, actorID); err != nil {
		return fmt.Errorf("сброс статистики: %w", err)
	}
	return nil
}

// --- Таблица karma_messages: какие сообщения кем уже оценены ---

// HasScored проверяет, оценивал ли автор это сообщение в этом чате.
func (r *Repository) HasScored(ctx context.Context, chatID, actorID int64, messageID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM karma_messages
			WHERE chat_id = $1 AND user_id = $2 AND message_id = $3
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, chatID, actorID, messageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("проверка оценённого сообщения: %w", err)
	}
	return exists, nil
}

// MarkScored помечает сообщение как оценённое автором. Повторная пометка — no-op.
func (r *Repository) MarkScored(ctx context.Context, chatID, actorID int64, messageID int) error {
	query := `
		INSERT INTO karma_messages (chat_id, user_id, message_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, user_id, message_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, chatID, actorID, messageID); err != nil {
		return fmt.Errorf("пометка оценённого сообщения: %w", err)
	}
	return nil
}
