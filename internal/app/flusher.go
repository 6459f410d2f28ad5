package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

// SnapshotStore is the persistence gateway contract: whole-snapshot save and
// load. Implementations live under internal/infra.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	Load(ctx context.Context) (domain.Snapshot, error)
}

const flushTimeout = 5 * time.Second

// Flusher serializes snapshot writes on a background goroutine so that
// connection handling never waits on disk or network. Writes coalesce
// latest-wins: a pending stale snapshot is replaced rather than queued.
// Save failures are logged and swallowed.
type Flusher struct {
	store SnapshotStore
	log   *zap.Logger
	ch    chan domain.Snapshot
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewFlusher(store SnapshotStore, log *zap.Logger) *Flusher {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Flusher{
		store: store,
		log:   log,
		ch:    make(chan domain.Snapshot, 1),
		done:  make(chan struct{}),
	}
	go f.run()
	return f
}

// Flush hands the snapshot to the writer without blocking. If an older
// snapshot is still pending it is dropped in favor of this one. Flushes
// after Close are dropped: a WebSocket read loop can still be winding down
// while the server shuts the flusher.
func (f *Flusher) Flush(snap domain.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for {
		select {
		case f.ch <- snap:
			return
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}

// Close drains pending work and stops the writer. Safe to call more than
// once; later Flush calls become no-ops.
func (f *Flusher) Close() {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	f.mu.Unlock()
	<-f.done
}

func (f *Flusher) run() {
	defer close(f.done)
	for snap := range f.ch {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := f.store.Save(ctx, snap); err != nil {
			f.log.Warn("snapshot save failed",
				zap.Int("students", len(snap.Students)),
				zap.Error(err))
		}
		cancel()
	}
}
