// Package usernames кэширует отображаемые имена пользователей.
// Telegram не даёт узнать имя по id задним числом, поэтому имя
// запоминается в момент, когда чью-то карму оценивают.
package usernames

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serotonyl/karmabot/internal/common"
)

// Repository работает с таблицей usernames.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий имён.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Set запоминает имя пользователя, перезаписывая старое.
func (r *Repository) Set(ctx context.Context, userID int64, name string) error {
	query := `
		INSERT INTO usernames (user_id, name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := r.db.Exec(ctx, query, userID, name); err != nil {
		return fmt.Errorf("сохранение имени: %w", err)
	}
	return nil
}

// Get возвращает имя пользователя.
// Если имя ещё не запоминалось — common.ErrUserNotFound.
func (r *Repository) Get(ctx context.Context, userID int64) (string, error) {
	query := `SELECT name FROM usernames WHERE user_id = $1`
	var name string
	err := r.db.QueryRow(ctx, query, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", common.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("чтение имени: %w", err)
	}
	return name, nil
}
