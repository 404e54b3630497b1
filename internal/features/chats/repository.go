// Package chats ведёт реестр групповых чатов, в которых работает бот.
// Список нужен рассыльщику анонсов; при апгрейде группы до супергруппы
// Telegram меняет chat_id, и его надо переписать во всех таблицах.
package chats

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей chats.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий чатов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Add регистрирует чат. Повторная регистрация — no-op.
func (r *Repository) Add(ctx context.Context, chatID int64) error {
	query := `INSERT INTO chats (chat_id) VALUES ($1) ON CONFLICT (chat_id) DO NOTHING`
	if _, err := r.db.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("регистрация чата: %w", err)
	}
	return nil
}

// Remove удаляет чат из реестра (бот удалён или заблокирован).
func (r *Repository) Remove(ctx context.Context, chatID int64) error {
	query := `DELETE FROM chats WHERE chat_id = $1`
	if _, err := r.db.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("удаление чата: %w", err)
	}
	return nil
}

// All возвращает все известные чаты.
func (r *Repository) All(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT chat_id FROM chats ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("чтение списка чатов: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("чтение чата: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("чтение списка чатов: %w", err)
	}
	return ids, nil
}

// Migrate переписывает chat_id во всех таблицах с привязкой к чату.
// Выполняется в одной транзакции: либо чат переехал целиком, либо никак.
func (r *Repository) Migrate(ctx context.Context, oldChatID, newChatID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("миграция чата: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"chats", "karma", "stats", "karma_messages"} {
		query := fmt.Sprintf("UPDATE %s SET chat_id = $1 WHERE chat_id = $2", table)
		if _, err := tx.Exec(ctx, query, newChatID, oldChatID); err != nil {
			return fmt.Errorf("миграция таблицы %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}
