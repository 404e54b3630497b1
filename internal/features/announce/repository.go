// Package announce — repository.go выполняет операции с таблицей announcements.
package announce

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей announcements.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий объявлений.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Add ставит объявление в очередь рассылки.
func (r *Repository) Add(ctx context.Context, text string) error {
	query := `INSERT INTO announcements (text) VALUES ($1)`
	if _, err := r.db.Exec(ctx, query, text); err != nil {
		return fmt.Errorf("добавление объявления: %w", err)
	}
	return nil
}

// All возвращает объявления в порядке добавления.
func (r *Repository) All(ctx context.Context) ([]Announcement, error) {
	query := `SELECT id, text, created_at FROM announcements ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("чтение объявлений: %w", err)
	}
	defer rows.Close()

	var out []Announcement
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Text, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("чтение объявления: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("чтение объявлений: %w", err)
	}
	return out, nil
}

// Delete удаляет разосланное объявление.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM announcements WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("удаление объявления: %w", err)
	}
	return nil
}
