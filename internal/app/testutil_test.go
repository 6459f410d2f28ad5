package app_test

import (
	"errors"
	"sync"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/app"
)

// fakeTransport records delivered events and can be flipped to failing to
// simulate a dead connection.
type fakeTransport struct {
	mu      sync.Mutex
	events  []app.Event
	failing bool
	closed  bool
}

func (f *fakeTransport) Send(ev app.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing || f.closed {
		return errors.New("transport dead")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) fail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = true
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) eventsOfType(typ string) []app.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []app.Event
	for _, ev := range f.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeTransport) lastOfType(typ string) (app.Event, bool) {
	evs := f.eventsOfType(typ)
	if len(evs) == 0 {
		return app.Event{}, false
	}
	return evs[len(evs)-1], true
}

// dataMap extracts the event payload as a generic map for assertions on
// events built with map data.
func dataMap(ev app.Event) map[string]any {
	if m, ok := ev.Data.(map[string]any); ok {
		return m
	}
	return nil
}
