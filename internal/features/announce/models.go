// Package announce реализует рассылку объявлений по всем известным чатам.
// models.go описывает структуру объявления.
package announce

import "time"

// Announcement — объявление, ожидающее рассылки.
// После успешной рассылки по всем чатам строка удаляется.
type Announcement struct {
	ID        int64     `db:"id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}
