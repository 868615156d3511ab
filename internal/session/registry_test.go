package session_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"vidrelay/internal/entity"
	"vidrelay/internal/observability"
	"vidrelay/internal/session"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeChannel struct {
	mu       sync.Mutex
	events   []entity.ProgressEvent
	closed   bool
	fail     bool
	deadline time.Time

	// block, when set, parks WriteJSON until release is closed. entered is
	// closed once the write has started.
	block   bool
	entered chan struct{}
	release chan struct{}
}

func (f *fakeChannel) WriteJSON(v any) error {
	if f.block {
		close(f.entered)
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("broken pipe")
	}

	ev, ok := v.(entity.ProgressEvent)
	if !ok {
		return errors.New("unexpected payload type")
	}

	f.events = append(f.events, ev)

	return nil
}

func (f *fakeChannel) SetWriteDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deadline = t

	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeChannel) received() []entity.ProgressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]entity.ProgressEvent(nil), f.events...)
}

func newRegistry() *session.Registry {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return session.NewRegistry(log, nil)
}

func TestSendDelivers(t *testing.T) {
	reg := newRegistry()
	ch := &fakeChannel{}

	reg.Register("abc", ch)
	reg.Send("abc", entity.ProgressEvent{Type: "video", Progress: 42})

	got := ch.received()
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}

	if got[0].Progress != 42 {
		t.Errorf("got progress %v, want 42", got[0].Progress)
	}
}

func TestSendAfterRemoveIsNoOp(t *testing.T) {
	reg := newRegistry()
	ch := &fakeChannel{}

	reg.Register("abc", ch)
	reg.Remove("abc", ch)

	reg.Send("abc", entity.ProgressEvent{Type: "video", Progress: 10})

	if len(ch.received()) != 0 {
		t.Error("event delivered after remove")
	}

	if reg.Len() != 0 {
		t.Errorf("registry len = %d, want 0", reg.Len())
	}
}

func TestRegisterReplacesPreviousChannel(t *testing.T) {
	reg := newRegistry()
	first := &fakeChannel{}
	second := &fakeChannel{}

	reg.Register("abc", first)
	reg.Register("abc", second)

	reg.Send("abc", entity.ProgressEvent{Type: "audio", Progress: 5})

	if len(first.received()) != 0 {
		t.Error("replaced channel still receives events")
	}

	if !first.closed {
		t.Error("replaced channel was not closed")
	}

	if len(second.received()) != 1 {
		t.Errorf("got %d events on new channel, want 1", len(second.received()))
	}

	if reg.Len() != 1 {
		t.Errorf("registry len = %d, want 1", reg.Len())
	}
}

func TestRemoveOfReplacedChannelKeepsNewOne(t *testing.T) {
	reg := newRegistry()
	first := &fakeChannel{}
	second := &fakeChannel{}

	reg.Register("abc", first)
	reg.Register("abc", second)

	// The old connection's teardown fires after the reconnect.
	reg.Remove("abc", first)

	reg.Send("abc", entity.ProgressEvent{Type: "video", Progress: 77})

	if len(second.received()) != 1 {
		t.Error("stale remove dropped the replacement channel")
	}
}

func TestSendToUnknownIDDoesNotPanic(t *testing.T) {
	reg := newRegistry()

	reg.Send("nobody", entity.ProgressEvent{Type: "video", Progress: 1})
	reg.Send("", entity.ProgressEvent{Type: "video", Progress: 1})
}

func TestSendWriteFailureDropsEvent(t *testing.T) {
	reg := newRegistry()
	ch := &fakeChannel{fail: true}

	reg.Register("abc", ch)

	// Must not panic or block; the event is dropped.
	reg.Send("abc", entity.ProgressEvent{Type: "video", Progress: 50})

	if len(ch.received()) != 0 {
		t.Error("failed write still recorded an event")
	}
}

func TestSendSetsWriteDeadline(t *testing.T) {
	reg := newRegistry()
	ch := &fakeChannel{}

	reg.Register("abc", ch)
	reg.Send("abc", entity.ProgressEvent{Type: "video", Progress: 50})

	ch.mu.Lock()
	deadline := ch.deadline
	ch.mu.Unlock()

	if deadline.IsZero() {
		t.Error("no write deadline set before push write")
	}

	if !deadline.After(time.Now()) {
		t.Errorf("write deadline %v is not in the future", deadline)
	}
}

func TestSendStalledPeerDoesNotBlockOthers(t *testing.T) {
	reg := newRegistry()

	stuck := &fakeChannel{
		block:   true,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	live := &fakeChannel{}

	reg.Register("stuck", stuck)
	reg.Register("live", live)

	go reg.Send("stuck", entity.ProgressEvent{Type: "video", Progress: 10})
	<-stuck.entered

	// With the stalled write still in flight, every other registry
	// operation must complete.
	done := make(chan struct{})

	go func() {
		reg.Send("live", entity.ProgressEvent{Type: "video", Progress: 20})
		reg.Register("third", &fakeChannel{})
		reg.Remove("third", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("registry operations blocked behind a stalled peer")
	}

	close(stuck.release)

	if len(live.received()) != 1 {
		t.Errorf("live client got %d events, want 1", len(live.received()))
	}
}

func TestRegistryMaintainsSessionsGauge(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.New()
	reg := session.NewRegistry(log, metrics)

	gauge := func() float64 { return testutil.ToFloat64(metrics.SessionsConnected) }

	first := &fakeChannel{}
	reg.Register("a", first)
	reg.Register("b", &fakeChannel{})

	if got := gauge(); got != 2 {
		t.Errorf("gauge = %v after two connects, want 2", got)
	}

	// Reconnect under an existing id replaces, not adds.
	reg.Register("b", &fakeChannel{})

	if got := gauge(); got != 2 {
		t.Errorf("gauge = %v after reconnect, want 2", got)
	}

	reg.Remove("a", first)

	if got := gauge(); got != 1 {
		t.Errorf("gauge = %v after disconnect, want 1", got)
	}
}
