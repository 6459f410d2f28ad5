package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/app"
	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

type memoryStore struct {
	mu    sync.Mutex
	saves []domain.Snapshot
	err   error
}

func (m *memoryStore) Save(_ context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, snap)
	return nil
}

func (m *memoryStore) Load(_ context.Context) (domain.Snapshot, error) {
	return domain.EmptySnapshot(), nil
}

func (m *memoryStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *memoryStore) lastSave() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[len(m.saves)-1]
}

func TestFlusherWritesSnapshot(t *testing.T) {
	store := &memoryStore{}
	flusher := app.NewFlusher(store, zap.NewNop())

	snap := domain.EmptySnapshot()
	snap.Students["Ana"] = domain.StudentSnapshot{AccumulatedPercentage: 20}
	flusher.Flush(snap)
	flusher.Close()

	if store.saveCount() == 0 {
		t.Fatalf("expected at least one save")
	}
	if got := store.lastSave().Students["Ana"].AccumulatedPercentage; got != 20 {
		t.Fatalf("expected persisted percentage 20, got %v", got)
	}
}

func TestFlusherSwallowsSaveErrors(t *testing.T) {
	store := &memoryStore{err: errors.New("disk full")}
	flusher := app.NewFlusher(store, zap.NewNop())

	flusher.Flush(domain.EmptySnapshot())
	flusher.Close() // must not panic or hang
}

func TestFlushAfterCloseIsDropped(t *testing.T) {
	store := &memoryStore{}
	flusher := app.NewFlusher(store, zap.NewNop())

	flusher.Flush(domain.EmptySnapshot())
	flusher.Close()

	// A read loop still winding down during shutdown may flush late;
	// those writes are dropped, not a crash.
	flusher.Flush(domain.EmptySnapshot())
	flusher.Close()

	if got := store.saveCount(); got != 1 {
		t.Fatalf("expected exactly one save, got %d", got)
	}
}

func TestFlushThroughServiceAfterAnswer(t *testing.T) {
	store := &memoryStore{}
	flusher := app.NewFlusher(store, zap.NewNop())
	session := app.NewClassSession()
	service := app.NewClassService(session, flusher, zap.NewNop())

	teacher := &fakeTransport{}
	teacherConn := service.Connect(app.RoleTeacher, teacher)
	student := &fakeTransport{}
	studentConn := service.Connect(app.RoleStudent, student)

	service.HandleMessage(studentConn, frame(app.ActionRegister, map[string]any{"name": "Ana"}))
	service.HandleMessage(teacherConn, registerActivityFrame("A1", 1, 20))
	service.HandleMessage(teacherConn, frame(app.ActionUnlockActivity, map[string]any{"activityId": "A1"}))
	service.HandleMessage(studentConn, frame(app.ActionSubmitAnswer, map[string]any{
		"activityId": "A1",
		"answer":     1,
	}))

	deadline := time.Now().Add(2 * time.Second)
	for store.saveCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	flusher.Close()

	if store.saveCount() == 0 {
		t.Fatalf("expected snapshot flush after scored answer")
	}
	last := store.lastSave()
	if last.Students["Ana"].AccumulatedPercentage != 20 {
		t.Fatalf("expected Ana at 20 in snapshot, got %+v", last.Students["Ana"])
	}
}
