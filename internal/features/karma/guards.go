// Package karma — guards.go содержит состояние, живущее только в памяти
// процесса: защиту от мести и запись последнего действия для отмены.
// При рестарте бота это состояние теряется — так и задумано.
package karma

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type chatUserKey struct {
	chatID int64
	userID int64
}

type negativeEntry struct {
	actorID int64
	at      time.Time
}

// RevengeGuard помнит недавние понижения кармы: кто кому понизил и когда.
// Ключ — (чат, жертва понижения). Используется, чтобы жертва не могла
// сразу «отомстить» обидчику.
type RevengeGuard struct {
	mu      sync.Mutex
	entries map[chatUserKey][]negativeEntry
	window  time.Duration
	clock   clockwork.Clock
}

// NewRevengeGuard создаёт защиту от мести с заданным окном.
func NewRevengeGuard(window time.Duration, clock clockwork.Clock) *RevengeGuard {
	return &RevengeGuard{
		entries: make(map[chatUserKey][]negativeEntry),
		window:  window,
		clock:   clock,
	}
}

// RecordLowering фиксирует: actorID понизил карму targetID.
// Заодно вычищает устаревшие записи этого ключа, чтобы память не росла.
func (g *RevengeGuard) RecordLowering(chatID, targetID, actorID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := chatUserKey{chatID: chatID, userID: targetID}
	now := g.clock.Now()
	cutoff := now.Add(-g.window)

	var recent []negativeEntry
	for _, e := range g.entries[key] {
		if !e.at.Before(cutoff) {
			recent = append(recent, e)
		}
	}
	g.entries[key] = append(recent, negativeEntry{actorID: actorID, at: now})
}

// WasRecentlyLoweredBy сообщает, понижал ли actorID карму targetID
// в пределах окна. Граница включительно: ровно window назад — ещё блок.
// Проверка идёт с точки зрения ТЕКУЩЕГО автора:
// targetID здесь — тот, чью карму понижали (текущий автор),
// actorID — тот, кому он теперь собирается ответить.
func (g *RevengeGuard) WasRecentlyLoweredBy(chatID, targetID, actorID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.clock.Now().Add(-g.window)
	for _, e := range g.entries[chatUserKey{chatID: chatID, userID: targetID}] {
		if e.actorID == actorID && !e.at.Before(cutoff) {
			return true
		}
	}
	return false
}

// Prune удаляет все записи старше окна. Вызывается фоновым заданием.
func (g *RevengeGuard) Prune() {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.clock.Now().Add(-g.window)
	for key, entries := range g.entries {
		var recent []negativeEntry
		for _, e := range entries {
			if !e.at.Before(cutoff) {
				recent = append(recent, e)
			}
		}
		if len(recent) == 0 {
			delete(g.entries, key)
		} else {
			g.entries[key] = recent
		}
	}
}

// LastActionStore хранит последнее действие каждого автора в каждом чате.
// Каждое новое действие затирает предыдущее: отменить можно только одно,
// самое свежее.
type LastActionStore struct {
	mu      sync.Mutex
	actions map[chatUserKey]LastAction
	clock   clockwork.Clock
}

// NewLastActionStore создаёт хранилище последних действий.
func NewLastActionStore(clock clockwork.Clock) *LastActionStore {
	return &LastActionStore{
		actions: make(map[chatUserKey]LastAction),
		clock:   clock,
	}
}

// Put записывает последнее действие автора, затирая предыдущее.
func (s *LastActionStore) Put(chatID, actorID, targetID int64, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[chatUserKey{chatID: chatID, userID: actorID}] = LastAction{
		TargetID: targetID,
		Delta:    delta,
		At:       s.clock.Now(),
	}
}

// Get возвращает последнее действие автора, если оно есть.
func (s *LastActionStore) Get(chatID, actorID int64) (LastAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[chatUserKey{chatID: chatID, userID: actorID}]
	return a, ok
}

// Delete удаляет запись, чтобы действие нельзя было отменить дважды.
func (s *LastActionStore) Delete(chatID, actorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actions, chatUserKey{chatID: chatID, userID: actorID})
}
