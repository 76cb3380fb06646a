package crosstab

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingHandler struct {
	mu        sync.Mutex
	refreshes int
	logouts   int
	loggedIn  bool
	refresher error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{loggedIn: true}
}

func (h *recordingHandler) RefreshUser(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refreshes++
	return h.refresher
}

func (h *recordingHandler) LogOut(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logouts++
	h.loggedIn = false
	return nil
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshes, h.logouts
}

func TestHandleDispatchesRefresh(t *testing.T) {
	handler := newRecordingHandler()
	c := NewChannel(NewBus(), handler, testLogger())

	msg := Message{Type: MessageCreditsUpdate, Timestamp: time.Now().UnixMilli(), Origin: "other-tab"}
	c.handle(context.Background(), msg)

	refreshes, logouts := handler.counts()
	if refreshes != 1 || logouts != 0 {
		t.Fatalf("refreshes = %d logouts = %d, want 1 and 0", refreshes, logouts)
	}
}

func TestHandleRejectsStaleMessage(t *testing.T) {
	handler := newRecordingHandler()
	c := NewChannel(NewBus(), handler, testLogger())

	msg := Message{
		Type:      MessageAuthUpdate,
		Timestamp: time.Now().Add(-10 * time.Second).UnixMilli(),
		Origin:    "other-tab",
	}
	c.handle(context.Background(), msg)

	refreshes, logouts := handler.counts()
	if refreshes != 0 || logouts != 0 {
		t.Fatalf("stale message dispatched: refreshes = %d logouts = %d", refreshes, logouts)
	}
}

func TestHandleRejectsOwnEcho(t *testing.T) {
	handler := newRecordingHandler()
	c := NewChannel(NewBus(), handler, testLogger())

	msg := Message{Type: MessageAuthUpdate, Timestamp: time.Now().UnixMilli(), Origin: c.ID()}
	c.handle(context.Background(), msg)

	if refreshes, _ := handler.counts(); refreshes != 0 {
		t.Fatalf("own echo dispatched: refreshes = %d", refreshes)
	}
}

func TestHandleReplayIsIdempotent(t *testing.T) {
	handler := newRecordingHandler()
	c := NewChannel(NewBus(), handler, testLogger())

	msg := Message{Type: MessageUserLogout, Timestamp: time.Now().UnixMilli(), Origin: "other-tab"}
	c.handle(context.Background(), msg)
	loggedInAfterOnce := handler.loggedIn
	c.handle(context.Background(), msg)

	if handler.loggedIn != loggedInAfterOnce {
		t.Fatalf("replay changed end state: %v then %v", loggedInAfterOnce, handler.loggedIn)
	}
	if handler.loggedIn {
		t.Fatalf("handler still logged in after logout message")
	}
}

func TestHandleToleratesRefreshFailure(t *testing.T) {
	handler := newRecordingHandler()
	handler.refresher = errors.New("backend unavailable")
	c := NewChannel(NewBus(), handler, testLogger())

	msg := Message{Type: MessageAuthUpdate, Timestamp: time.Now().UnixMilli(), Origin: "other-tab"}
	c.handle(context.Background(), msg)
	c.handle(context.Background(), msg)

	if refreshes, _ := handler.counts(); refreshes != 2 {
		t.Fatalf("refreshes = %d, want listener to keep dispatching after failures", refreshes)
	}
}

func TestSendWithoutTransportIsNoOp(t *testing.T) {
	c := NewChannel(nil, newRecordingHandler(), testLogger())
	// Must not panic.
	c.NotifyAuthUpdate("u1", 42)
	c.NotifyUserLogout()
}

func TestLogoutIsNotRebroadcast(t *testing.T) {
	bus := NewBus()
	handler := newRecordingHandler()
	receiver := NewChannel(bus, handler, testLogger())
	if err := receiver.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer receiver.Close()

	// A second subscription observes everything published on the bus.
	spy := make(chan Message, 8)
	if err := bus.Subscribe("spy", spy); err != nil {
		t.Fatalf("subscribe spy: %v", err)
	}

	sender := NewChannel(bus, newRecordingHandler(), testLogger())
	sender.NotifyUserLogout()

	waitFor(t, func() bool {
		_, logouts := handler.counts()
		return logouts == 1
	})

	// Exactly one message crossed the bus: the original logout.
	if got := len(spy); got != 1 {
		t.Fatalf("bus saw %d messages, want 1 (no re-broadcast)", got)
	}
}

func TestTwoChannelsConvergeOverBus(t *testing.T) {
	bus := NewBus()
	handlerA := newRecordingHandler()
	handlerB := newRecordingHandler()

	a := NewChannel(bus, handlerA, testLogger())
	b := NewChannel(bus, handlerB, testLogger())
	for _, c := range []*Channel{a, b} {
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
		defer c.Close()
	}

	a.NotifyCreditsUpdate(7)

	waitFor(t, func() bool {
		refreshes, _ := handlerB.counts()
		return refreshes == 1
	})

	// The sender must not refresh from its own echo.
	refreshes, _ := handlerA.counts()
	if refreshes != 0 {
		t.Fatalf("sender refreshed %d times from its own message", refreshes)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
