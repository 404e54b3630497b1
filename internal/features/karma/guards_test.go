package karma

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestRevengeGuard_WindowBoundaries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	guard := NewRevengeGuard(2*time.Minute, clock)

	// Пользователь 10 понизил карму пользователю 20
	guard.RecordLowering(testChat, 20, 10)

	assert.True(t, guard.WasRecentlyLoweredBy(testChat, 20, 10))

	clock.Advance(60 * time.Second)
	assert.True(t, guard.WasRecentlyLoweredBy(testChat, 20, 10), "через минуту окно ещё открыто")

	clock.Advance(90 * time.Second)
	assert.False(t, guard.WasRecentlyLoweredBy(testChat, 20, 10), "через 150 секунд окно закрыто")
}

func TestRevengeGuard_InclusiveAtExactWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	guard := NewRevengeGuard(2*time.Minute, clock)

	guard.RecordLowering(testChat, 20, 10)

	// Ровно window секунд спустя пара ещё заблокирована
	clock.Advance(2 * time.Minute)
	assert.True(t, guard.WasRecentlyLoweredBy(testChat, 20, 10))

	// Секундой позже — уже нет
	clock.Advance(time.Second)
	assert.False(t, guard.WasRecentlyLoweredBy(testChat, 20, 10))
}

func TestRevengeGuard_MatchesExactPair(t *testing.T) {
	clock := clockwork.NewFakeClock()
	guard := NewRevengeGuard(2*time.Minute, clock)

	guard.RecordLowering(testChat, 20, 10)

	// Другой обидчик, другая жертва, другой чат — не совпадает
	assert.False(t, guard.WasRecentlyLoweredBy(testChat, 20, 11))
	assert.False(t, guard.WasRecentlyLoweredBy(testChat, 21, 10))
	assert.False(t, guard.WasRecentlyLoweredBy(testChat+1, 20, 10))
}

func TestRevengeGuard_Prune(t *testing.T) {
	clock := clockwork.NewFakeClock()
	guard := NewRevengeGuard(2*time.Minute, clock)

	guard.RecordLowering(testChat, 20, 10)
	guard.RecordLowering(testChat, 21, 10)

	clock.Advance(3 * time.Minute)
	guard.RecordLowering(testChat, 20, 11)

	guard.Prune()

	assert.Empty(t, guard.entries[chatUserKey{chatID: testChat, userID: 21}])
	assert.Len(t, guard.entries[chatUserKey{chatID: testChat, userID: 20}], 1)
	assert.True(t, guard.WasRecentlyLoweredBy(testChat, 20, 11))
}

func TestLastActionStore_OverwritesPrevious(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewLastActionStore(clock)

	store.Put(testChat, 1, 2, 1)
	store.Put(testChat, 1, 3, -1)

	a, ok := store.Get(testChat, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(3), a.TargetID)
	assert.Equal(t, -1, a.Delta)
}

func TestLastActionStore_Delete(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewLastActionStore(clock)

	store.Put(testChat, 1, 2, 1)
	store.Delete(testChat, 1)

	_, ok := store.Get(testChat, 1)
	assert.False(t, ok)
}

func TestLastActionStore_PerChatPerActor(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewLastActionStore(clock)

	store.Put(testChat, 1, 2, 1)

	_, ok := store.Get(testChat, 2)
	assert.False(t, ok, "чужие действия не видны")
	_, ok = store.Get(testChat+1, 1)
	assert.False(t, ok, "другой чат — другая запись")
}
