package file

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	store := NewSnapshotStore(path)

	snap := domain.EmptySnapshot()
	snap.LastUpdated = time.Now().UTC()
	snap.Students["Ana"] = domain.StudentSnapshot{
		AccumulatedPercentage: 20,
		Responses: map[string]domain.Response{
			"A1": {Answer: 1, Correct: true, AwardedPercentage: 20},
		},
		Reflections: []domain.Reflection{
			{ID: "r1", Topic: "Proverbios", Content: "nota"},
		},
	}

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ana, ok := loaded.Students["Ana"]
	if !ok {
		t.Fatalf("expected Ana in loaded snapshot")
	}
	if ana.AccumulatedPercentage != 20 || len(ana.Responses) != 1 || len(ana.Reflections) != 1 {
		t.Fatalf("unexpected loaded student: %+v", ana)
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "absent.json"))

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Students == nil || len(snap.Students) != 0 {
		t.Fatalf("expected empty initialized snapshot, got %+v", snap)
	}
}

func TestSaveOverwritesWholesale(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "snapshot.json"))

	first := domain.EmptySnapshot()
	first.Students["Ana"] = domain.StudentSnapshot{AccumulatedPercentage: 20}
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := domain.EmptySnapshot()
	second.Students["Juan"] = domain.StudentSnapshot{AccumulatedPercentage: 40}
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, stale := loaded.Students["Ana"]; stale {
		t.Fatalf("expected wholesale rewrite, Ana still present")
	}
	if loaded.Students["Juan"].AccumulatedPercentage != 40 {
		t.Fatalf("unexpected loaded snapshot: %+v", loaded)
	}
}
