// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация и работа с временем.
package common

import (
	"fmt"
	"time"
)

// PluralizeKarmaPoints возвращает правильную форму слова «очко» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "очко" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "очка" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "очков" (0, 5-20, 25-30, 100, ...)
func PluralizeKarmaPoints(n int) string {
	absN := n
	if absN < 0 {
		absN = -absN
	}
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "очко"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "очка"
	}
	return "очков"
}

// FormatKarma форматирует карму в читабельную строку.
// Пример: FormatKarma(5) → "5 очков"
func FormatKarma(n int) string {
	return fmt.Sprintf("%d %s", n, PluralizeKarmaPoints(n))
}

// UTCDate возвращает только дату (без времени) момента t в UTC.
// Дневные счётчики кармы сбрасываются по календарному дню UTC.
func UTCDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameUTCDay сообщает, приходятся ли два момента на один календарный день UTC.
func SameUTCDay(a, b time.Time) bool {
	return UTCDate(a).Equal(UTCDate(b))
}
