package middleware

import (
	"sync"
	"time"
)

// RateLimiter ограничивает частоту сообщений одного пользователя.
// Скользящее окно по отметкам времени: защищает обработчики кармы
// от флуда триггер-фразами и командами.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[int64][]time.Time
	limit  int
	window time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[int64][]time.Time),
		limit:  limit,
		window: window,
		stopCh: make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Close останавливает фоновую горутину очистки.
// Бот вызывает его при остановке polling-цикла.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow сообщает, можно ли обработать очередное сообщение пользователя.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := pruneBefore(rl.seen[userID], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.seen[userID] = recent
		return false
	}

	rl.seen[userID] = append(recent, now)
	return true
}

// sweepLoop периодически выбрасывает пользователей без свежих отметок,
// иначе карта растёт на каждого, кто хоть раз написал в чат.
func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.sweep(time.Now().Add(-rl.window))
		}
	}
}

func (rl *RateLimiter) sweep(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, stamps := range rl.seen {
		recent := pruneBefore(stamps, cutoff)
		if len(recent) == 0 {
			delete(rl.seen, userID)
		} else {
			rl.seen[userID] = recent
		}
	}
}

// pruneBefore оставляет только отметки позже cutoff.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range stamps {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}
