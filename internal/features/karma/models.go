// Package karma реализует систему репутации (кармы).
// models.go описывает структуры хранения и вердикты проверки допуска.
package karma

import "time"

// Direction — направление изменения кармы.
type Direction int

const (
	// Raise — повышение кармы
	Raise Direction = iota + 1
	// Lower — понижение кармы
	Lower
)

// Verdict — результат проверки допуска изменения кармы.
type Verdict int

const (
	// VerdictOK — изменение разрешено
	VerdictOK Verdict = iota
	// VerdictTimeout — слишком частые изменения.
	// Зарезервирован под отдельный кулдаун между действиями,
	// сейчас не выдаётся: частоту ограничивает только дневной лимит.
	VerdictTimeout
	// VerdictChangeDenied — у пользователя нет права на это изменение
	// (своя карма, карма бота)
	VerdictChangeDenied
	// VerdictDayMaxExceed — дневной лимит изменений исчерпан
	VerdictDayMaxExceed
)

// TopEntry — строка топа кармы чата.
type TopEntry struct {
	UserID int64
	Karma  int
}

// Activity — дневная статистика изменений кармы одним пользователем
// в одном чате. Счётчик относится к АВТОРУ изменений, не к цели.
type Activity struct {
	ChatID       int64      `db:"chat_id"`
	UserID       int64      `db:"user_id"`
	LastChangeAt *time.Time `db:"last_karma_change"`
	Today        time.Time  `db:"today"`
	ChangesToday int        `db:"today_karma_changes"`
}

// LastAction — последнее применённое действие пользователя в чате.
// Хранится только в памяти процесса: при рестарте отмена «забывается».
type LastAction struct {
	TargetID int64
	Delta    int // со знаком: +N повышение, -N понижение
	At       time.Time
}
