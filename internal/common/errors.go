// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки изменения кармы. Всё это — ожидаемые исходы, а не сбои:
// обработчик превращает их в сообщения пользователю и не логирует как ошибки.
var (
	// ErrSelfChange — попытка изменить собственную карму
	ErrSelfChange = errors.New("нельзя менять собственную карму")
	// ErrBotTarget — попытка изменить карму бота
	ErrBotTarget = errors.New("у ботов нет кармы")
	// ErrDailyLimit — дневной лимит изменений кармы исчерпан
	ErrDailyLimit = errors.New("дневной лимит изменений кармы исчерпан")
	// ErrRevenge — попытка «отомстить» тому, кто недавно понизил карму
	ErrRevenge = errors.New("месть в течение защитного окна запрещена")
	// ErrAlreadyScored — это сообщение уже было оценено этим пользователем
	ErrAlreadyScored = errors.New("сообщение уже оценено")
)

// Ошибки отмены последнего действия
var (
	// ErrNothingToUndo — нет действия, которое можно отменить
	ErrNothingToUndo = errors.New("нет действия для отмены")
	// ErrUndoTooLate — окно отмены (2 минуты) истекло
	ErrUndoTooLate = errors.New("время отмены истекло")
)

// Прочие ошибки
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrWrongPassword — неверный пароль анонсов
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrEmptyAnnouncement — пустой текст объявления
	ErrEmptyAnnouncement = errors.New("пустой текст объявления")
)
