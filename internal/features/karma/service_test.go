package karma

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serotonyl/karmabot/internal/common"
	"github.com/serotonyl/karmabot/internal/config"
)

// fakeStore — Store в памяти с той же семантикой, что у Repository.
type fakeStore struct {
	scores   map[[2]int64]int
	activity map[[2]int64]*fakeActivity
	marks    map[[3]int64]bool
}

type fakeActivity struct {
	day   time.Time
	count int
	last  *time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		scores:   make(map[[2]int64]int),
		activity: make(map[[2]int64]*fakeActivity),
		marks:    make(map[[3]int64]bool),
	}
}

func (f *fakeStore) GetScore(_ context.Context, chatID, userID int64) (int, error) {
	return f.scores[[2]int64{chatID, userID}], nil
}

func (f *fakeStore) ApplyDelta(_ context.Context, chatID, userID int64, delta int) error {
	f.scores[[2]int64{chatID, userID}] += delta
	return nil
}

func (f *fakeStore) Top(_ context.Context, chatID int64, n int, highest bool) ([]TopEntry, error) {
	var top []TopEntry
	for key, karma := range f.scores {
		if key[0] != chatID {
			continue
		}
		if highest && karma > 0 || !highest && karma < 0 {
			top = append(top, TopEntry{UserID: key[1], Karma: karma})
		}
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Karma != top[j].Karma {
			if highest {
				return top[i].Karma > top[j].Karma
			}
			return top[i].Karma < top[j].Karma
		}
		return top[i].UserID < top[j].UserID
	})
	if len(top) > n {
		top = top[:n]
	}
	return top, nil
}

func (f *fakeStore) RecordChange(_ context.Context, chatID, actorID int64, now time.Time) error {
	key := [2]int64{chatID, actorID}
	a, ok := f.activity[key]
	if !ok || !common.SameUTCDay(a.day, now) {
		f.activity[key] = &fakeActivity{day: common.UTCDate(now), count: 1, last: &now}
		return nil
	}
	a.count++
	a.last = &now
	return nil
}

func (f *fakeStore) ChangesToday(_ context.Context, chatID, actorID int64, now time.Time) (int, error) {
	a, ok := f.activity[[2]int64{chatID, actorID}]
	if !ok || !common.SameUTCDay(a.day, now) {
		return 0, nil
	}
	return a.count, nil
}

func (f *fakeStore) GetActivity(_ context.Context, chatID, actorID int64) (*Activity, error) {
	a, ok := f.activity[[2]int64{chatID, actorID}]
	if !ok {
		return nil, nil
	}
	return &Activity{
		ChatID: chatID, UserID: actorID,
		LastChangeAt: a.last, Today: a.day, ChangesToday: a.count,
	}, nil
}

func (f *fakeStore) ResetLastChange(_ context.Context, chatID, actorID int64) error {
	a, ok := f.activity[[2]int64{chatID, actorID}]
	if !ok {
		return nil
	}
	if a.count > 0 {
		a.count--
	}
	a.last = nil
	return nil
}

func (f *fakeStore) HasScored(_ context.Context, chatID, actorID int64, messageID int) (bool, error) {
	return f.marks[[3]int64{chatID, actorID, int64(messageID)}], nil
}

func (f *fakeStore) MarkScored(_ context.Context, chatID, actorID int64, messageID int) error {
	f.marks[[3]int64{chatID, actorID, int64(messageID)}] = true
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		KarmaUpChange:      1,
		KarmaDownChange:    1,
		KarmaDailyLimit:    10,
		KarmaRevengeWindow: 2 * time.Minute,
		KarmaUndoGrace:     2 * time.Minute,
	}
}

func newTestService() (*Service, *fakeStore, clockwork.FakeClock) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	return NewService(store, testConfig(), clock), store, clock
}

const testChat = int64(-100500)

func TestCheckAdmission_SelfTarget(t *testing.T) {
	svc, _, _ := newTestService()

	verdict, err := svc.CheckAdmission(context.Background(), testChat, 42, 42, false)
	require.NoError(t, err)
	assert.Equal(t, VerdictChangeDenied, verdict)
}

func TestCheckAdmission_BotTarget(t *testing.T) {
	svc, _, _ := newTestService()

	verdict, err := svc.CheckAdmission(context.Background(), testChat, 1, 2, true)
	require.NoError(t, err)
	assert.Equal(t, VerdictChangeDenied, verdict)
}

func TestCheckAdmission_HasNoSideEffects(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		verdict, err := svc.CheckAdmission(ctx, testChat, 1, 2, false)
		require.NoError(t, err)
		assert.Equal(t, VerdictOK, verdict)
	}

	count, err := store.ChangesToday(ctx, testChat, 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestChangeKarma_AccumulatesDeltas(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	// +3, -1, +2 на свежем счёте → 4
	require.NoError(t, store.ApplyDelta(ctx, testChat, 2, 3))
	require.NoError(t, store.ApplyDelta(ctx, testChat, 2, -1))
	require.NoError(t, store.ApplyDelta(ctx, testChat, 2, 2))

	score, err := svc.GetKarma(ctx, testChat, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, score)
}

func TestChangeKarma_RaiseAndLower(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	score, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Raise)
	require.NoError(t, err)
	assert.Equal(t, 1, score)

	score, err = svc.ChangeKarma(ctx, testChat, 3, 2, 101, false, Lower)
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestChangeKarma_SelfDenied(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ChangeKarma(context.Background(), testChat, 42, 42, 100, false, Raise)
	assert.ErrorIs(t, err, common.ErrSelfChange)
}

func TestChangeKarma_BotDenied(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ChangeKarma(context.Background(), testChat, 1, 2, 100, true, Raise)
	assert.ErrorIs(t, err, common.ErrBotTarget)
}

func TestChangeKarma_DuplicateMessage(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Raise)
	require.NoError(t, err)

	// То же сообщение второй раз — отказ, карма не меняется
	_, err = svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Raise)
	assert.ErrorIs(t, err, common.ErrAlreadyScored)

	score, err := svc.GetKarma(ctx, testChat, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, score)

	// Другое сообщение — можно
	_, err = svc.ChangeKarma(ctx, testChat, 1, 2, 101, false, Raise)
	assert.NoError(t, err)
}

func TestChangeKarma_DailyLimit(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100+i, false, Raise)
		require.NoError(t, err, "изменение %d должно пройти", i+1)
	}

	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 200, false, Raise)
	assert.ErrorIs(t, err, common.ErrDailyLimit)

	// На следующий день счётчик сбрасывается
	clock.Advance(24 * time.Hour)
	_, err = svc.ChangeKarma(ctx, testChat, 1, 2, 201, false, Raise)
	assert.NoError(t, err)
}

func TestChangeKarma_RevengeBlocked(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()

	// A(=1) понижает карму B(=2)
	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Lower)
	require.NoError(t, err)

	// Через минуту B пытается ответить тем же — месть, блок
	clock.Advance(time.Minute)
	_, err = svc.ChangeKarma(ctx, testChat, 2, 1, 101, false, Lower)
	assert.ErrorIs(t, err, common.ErrRevenge)

	// Повышение тоже блокируется: проверка не различает направление
	_, err = svc.ChangeKarma(ctx, testChat, 2, 1, 102, false, Raise)
	assert.ErrorIs(t, err, common.ErrRevenge)

	// Спустя 150 секунд от понижения окно закрылось
	clock.Advance(90 * time.Second)
	_, err = svc.ChangeKarma(ctx, testChat, 2, 1, 103, false, Lower)
	assert.NoError(t, err)
}

func TestChangeKarma_RevengeOnlyBlocksThePairInvolved(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Lower)
	require.NoError(t, err)

	// B может менять карму третьим лицам
	_, err = svc.ChangeKarma(ctx, testChat, 2, 3, 101, false, Lower)
	assert.NoError(t, err)

	// И A может продолжать менять карму B: защита односторонняя
	_, err = svc.ChangeKarma(ctx, testChat, 1, 2, 102, false, Lower)
	assert.NoError(t, err)
}

func TestUndo_RestoresScore(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cfgUp5 := testConfig()
	cfgUp5.KarmaUpChange = 5
	svc = NewService(svc.store, cfgUp5, svc.clock)

	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Raise)
	require.NoError(t, err)

	res, err := svc.Undo(ctx, testChat, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TargetID)
	assert.Equal(t, 0, res.NewScore)

	// Второй раз то же действие не отменить
	_, err = svc.Undo(ctx, testChat, 1)
	assert.ErrorIs(t, err, common.ErrNothingToUndo)
}

func TestUndo_GraceExpired(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()

	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Raise)
	require.NoError(t, err)

	clock.Advance(2*time.Minute + time.Second)
	_, err = svc.Undo(ctx, testChat, 1)
	assert.ErrorIs(t, err, common.ErrUndoTooLate)
}

func TestUndo_NothingToUndo(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Undo(context.Background(), testChat, 1)
	assert.ErrorIs(t, err, common.ErrNothingToUndo)
}

func TestUndo_OnlyMostRecentAction(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Raise)
	require.NoError(t, err)
	_, err = svc.ChangeKarma(ctx, testChat, 1, 3, 101, false, Lower)
	require.NoError(t, err)

	// Отменяется только последнее действие: понижение пользователю 3
	res, err := svc.Undo(ctx, testChat, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TargetID)
	assert.Equal(t, 0, res.NewScore)

	score, err := svc.GetKarma(ctx, testChat, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, score)
}

func TestUndo_ReleasesDailyBudget(t *testing.T) {
	svc, store, clock := newTestService()
	ctx := context.Background()

	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Raise)
	require.NoError(t, err)

	count, err := store.ChangesToday(ctx, testChat, 1, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.Undo(ctx, testChat, 1)
	require.NoError(t, err)

	count, err = store.ChangesToday(ctx, testChat, 1, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTop_FiltersBySign(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, store.ApplyDelta(ctx, testChat, 1, 5))
	require.NoError(t, store.ApplyDelta(ctx, testChat, 2, 3))
	require.NoError(t, store.ApplyDelta(ctx, testChat, 3, -2))
	require.NoError(t, store.ApplyDelta(ctx, testChat, 4, 0))

	top, err := svc.Top(ctx, testChat, 5, true)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, TopEntry{UserID: 1, Karma: 5}, top[0])
	assert.Equal(t, TopEntry{UserID: 2, Karma: 3}, top[1])
	for _, e := range top {
		assert.Positive(t, e.Karma)
	}

	bottom, err := svc.Top(ctx, testChat, 5, false)
	require.NoError(t, err)
	require.Len(t, bottom, 1)
	assert.Equal(t, TopEntry{UserID: 3, Karma: -2}, bottom[0])
}

func TestEndToEnd_RaiseThenDuplicate(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	// Свежий чат: пользователь 1 поднимает карму пользователю 2 на сообщении M
	const messageM = 777
	score, err := svc.ChangeKarma(ctx, testChat, 1, 2, messageM, false, Raise)
	require.NoError(t, err)
	assert.Equal(t, 1, score)

	scored, err := store.HasScored(ctx, testChat, 1, messageM)
	require.NoError(t, err)
	assert.True(t, scored)

	// Повтор на том же сообщении — отказ, карма не изменилась
	_, err = svc.ChangeKarma(ctx, testChat, 1, 2, messageM, false, Raise)
	assert.ErrorIs(t, err, common.ErrAlreadyScored)

	score, err = svc.GetKarma(ctx, testChat, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, score)
}

func TestChangeKarma_ChatsAreIsolated(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ChangeKarma(ctx, testChat, 1, 2, 100, false, Raise)
	require.NoError(t, err)

	otherChat := testChat - 1
	score, err := svc.GetKarma(ctx, otherChat, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	// То же message_id в другом чате — другое сообщение
	_, err = svc.ChangeKarma(ctx, otherChat, 1, 2, 100, false, Raise)
	assert.NoError(t, err)
}
