package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/adapter"
	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/lzhahn/CountMe-sub003/models"
	"github.com/stretchr/testify/require"
)

// fakeRemote — потокобезопасное in-memory удалённое хранилище для тестов движка
type fakeRemote struct {
	mu   sync.Mutex
	docs map[string]map[string]models.Document

	putErr    error
	getErr    error
	deleteErr error
	queryErr  error

	putCalls    int
	deleteCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: map[string]map[string]models.Document{}}
}

func (f *fakeRemote) PutDocument(_ context.Context, collection, id string, doc models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.putCalls++
	if f.putErr != nil {
		return f.putErr
	}
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]models.Document{}
	}
	f.docs[collection][id] = doc.Clone()
	return nil
}

func (f *fakeRemote) GetDocument(_ context.Context, collection, id string) (models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", adapter.ErrNotFound, collection, id)
	}
	return doc.Clone(), nil
}

func (f *fakeRemote) DeleteDocument(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs[collection], id)
	return nil
}

func (f *fakeRemote) QueryByOwner(_ context.Context, collection, ownerID string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []models.Document
	for _, doc := range f.docs[collection] {
		if owner, _ := doc.OptionalString(models.FieldOwnerID); owner == ownerID {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// Subscribe отдаёт канал, который закрывается вместе с ctx
func (f *fakeRemote) Subscribe(ctx context.Context, _, _ string) (<-chan models.DocumentChange, error) {
	ch := make(chan models.DocumentChange)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeRemote) seed(collection string, rec models.SyncableRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.docs[collection] == nil {
		f.docs[collection] = map[string]models.Document{}
	}
	f.docs[collection][rec.Meta().ID] = uploadDocument(rec.ToRemoteDocument())
}

func (f *fakeRemote) doc(collection, id string) (models.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[collection][id]
	return doc, ok
}

func (f *fakeRemote) setPutErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putErr = err
}

func (f *fakeRemote) puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putCalls
}

// ── Engine fixtures ─────────────────────────────────────────────────────────

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testSyncConfig() config.ClientSync {
	return config.ClientSync{
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    4 * time.Millisecond,
		RetryMaxAttempts: 3,
		RetentionDays:    90,
	}
}

func testWorkersConfig() config.ClientWorkers {
	return config.ClientWorkers{DrainInterval: time.Hour, SweepInterval: time.Hour}
}

func newTestEngine(t *testing.T) (*syncEngine, store.RecordStore, *fakeRemote) {
	t.Helper()

	remote := newFakeRemote()
	e, records := newEngineOn(t, remote)
	return e, records, remote
}

// newEngineOn собирает движок поверх заданного удалённого хранилища
func newEngineOn(t *testing.T, remote adapter.RemoteStore) (*syncEngine, store.RecordStore) {
	t.Helper()

	records, err := store.NewMemoryRecordStore(":memory:")
	require.NoError(t, err)

	queue := NewOperationQueue(records, 0, logger.Nop())
	e := NewSyncEngine(records, queue, remote, testSyncConfig(), testWorkersConfig(), logger.Nop()).(*syncEngine)
	e.now = func() time.Time { return testNow }
	t.Cleanup(e.StopSync)

	return e, records
}

// ── Shared backend for several devices ──────────────────────────────────────

// changeFeed копит изменения сервера, тест сам раздаёт их устройствам
type changeFeed struct {
	mu      sync.Mutex
	changes []models.DocumentChange
}

func (f *changeFeed) publish(c models.DocumentChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, c)
}

func (f *changeFeed) take() []models.DocumentChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.changes
	f.changes = nil
	return out
}

// deviceRemote — вид общего fakeRemote с одного устройства; запись попадает в ленту
type deviceRemote struct {
	*fakeRemote
	feed *changeFeed
}

func (d *deviceRemote) PutDocument(ctx context.Context, collection, id string, doc models.Document) error {
	if err := d.fakeRemote.PutDocument(ctx, collection, id, doc); err != nil {
		return err
	}
	d.feed.publish(models.DocumentChange{Type: models.ChangeModified, Collection: collection, ID: id, Document: doc.Clone()})
	return nil
}

func (d *deviceRemote) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := d.fakeRemote.DeleteDocument(ctx, collection, id); err != nil {
		return err
	}
	d.feed.publish(models.DocumentChange{Type: models.ChangeRemoved, Collection: collection, ID: id})
	return nil
}

// relay раздаёт ленту всем устройствам и даёт им выгрузить очередь, пока
// изменения не кончатся. Возвращает число раундов.
func relay(t *testing.T, feed *changeFeed, devices ...*syncEngine) int {
	t.Helper()
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		changes := feed.take()
		if len(changes) == 0 {
			return round
		}
		for _, c := range changes {
			for _, d := range devices {
				d.HandleRemoteChange(ctx, c)
			}
		}
		for _, d := range devices {
			d.drain(ctx)
		}
	}
	t.Fatalf("devices still exchanging changes after 10 rounds")
	return 0
}

// activate включает сессию без фоновых горутин, чтобы тесты были детерминированы
func activate(e *syncEngine, ownerID string) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	close(done)

	e.stateMu.Lock()
	e.ownerID = ownerID
	e.running = true
	e.sessionCtx = ctx
	e.stop = cancel
	e.done = done
	e.stateMu.Unlock()

	return cancel
}

// ── Record builders ─────────────────────────────────────────────────────────

func newFood(id, name string, calories float64) *models.FoodEntry {
	return &models.FoodEntry{
		SyncMetadata: models.SyncMetadata{ID: id},
		Macros:       models.Macros{Protein: models.Float(5)},
		Name:         name,
		Calories:     calories,
		ServingSize:  1,
		ServingUnit:  "portion",
		Meal:         models.MealLunch,
		ConsumedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newWorkout(id string, burned float64) *models.WorkoutEntry {
	return &models.WorkoutEntry{
		SyncMetadata:    models.SyncMetadata{ID: id},
		Exercise:        models.ExerciseRunning,
		Intensity:       models.IntensityModerate,
		DurationMinutes: 30,
		CaloriesBurned:  burned,
		PerformedAt:     time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC),
	}
}

// owned заполняет метаданные так, будто запись уже синхронизирована
func owned[T models.SyncableRecord](rec T, ownerID string, modified time.Time, status models.SyncStatus) T {
	meta := rec.Meta()
	meta.OwnerID = ownerID
	meta.LastModified = modified
	meta.Status = status
	return rec
}

func dailyLog(id string, date time.Time, foods ...*models.FoodEntry) *models.DailyLog {
	l := models.NewDailyLog(id, date)
	for _, f := range foods {
		l.FoodEntries = append(l.FoodEntries, *f)
	}
	l.Recalculate()
	return l
}
