package live_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"dialer/internal/api"
	"dialer/internal/directory"
	"dialer/internal/live"
	"dialer/internal/metrics"
)

const waitTimeout = 2 * time.Second

type manualTimer struct {
	d  time.Duration
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (t *manualTimer) C() <-chan time.Time { return t.ch }

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (t *manualTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *manualTimer) fire() { t.ch <- time.Now() }

type manualClock struct {
	timers chan *manualTimer
}

func newManualClock() *manualClock {
	return &manualClock{timers: make(chan *manualTimer, 8)}
}

func (c *manualClock) NewTimer(d time.Duration) live.Timer {
	t := &manualTimer{d: d, ch: make(chan time.Time, 1)}
	c.timers <- t
	return t
}

// pipeSubscriber hands out one pipe per connection attempt.
type pipeSubscriber struct {
	conns chan *io.PipeWriter

	mu       sync.Mutex
	failures int
}

func newPipeSubscriber() *pipeSubscriber {
	return &pipeSubscriber{conns: make(chan *io.PipeWriter, 8)}
}

func (s *pipeSubscriber) SubscribeUpdates(context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		s.conns <- nil
		return nil, errors.New("connection refused")
	}
	s.mu.Unlock()
	r, w := io.Pipe()
	s.conns <- w
	return r, nil
}

type staticBackend struct{ records []api.Business }

func (b staticBackend) ListBusinesses(context.Context) ([]api.Business, error) {
	return b.records, nil
}

func (staticBackend) ClearDatabase(context.Context) error { return nil }

type harness struct {
	store   *directory.Store
	updates chan directory.Snapshot
	clock   *manualClock
	sub     *pipeSubscriber
	states  chan live.State
	metrics *metrics.Metrics
	channel *live.Channel
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := directory.New(staticBackend{records: []api.Business{
		{ID: "7", Name: "Alpha", CallStatus: api.CallPending},
		{ID: "42", Name: "Bravo", CallStatus: api.CallPending},
	}})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	h := &harness{
		store:   store,
		updates: make(chan directory.Snapshot, 8),
		clock:   newManualClock(),
		sub:     newPipeSubscriber(),
		states:  make(chan live.State, 32),
		metrics: metrics.New("test"),
	}
	t.Cleanup(store.Subscribe(func(s directory.Snapshot) { h.updates <- s }))
	h.channel = live.New(h.sub, store, live.Options{
		Clock:         h.clock,
		Metrics:       h.metrics,
		OnStateChange: func(s live.State) { h.states <- s },
	})
	return h
}

func (h *harness) nextConn(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-h.sub.conns:
		return w
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for connection attempt")
		return nil
	}
}

func (h *harness) nextTimer(t *testing.T) *manualTimer {
	t.Helper()
	select {
	case timer := <-h.clock.timers:
		return timer
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for reconnect timer")
		return nil
	}
}

func (h *harness) waitState(t *testing.T, want live.State) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case s := <-h.states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func (h *harness) waitUpdate(t *testing.T) directory.Snapshot {
	t.Helper()
	select {
	case s := <-h.updates:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for directory update")
		return directory.Snapshot{}
	}
}

func send(t *testing.T, w *io.PipeWriter, payload string) {
	t.Helper()
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

func TestReconnectAfterDropKeepsSingleRecord(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	if err := h.channel.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.channel.Close()

	first := h.nextConn(t)
	h.waitState(t, live.Connected)
	send(t, first, `{"id":"42","name":"Bravo","callStatus":"completed"}`)
	h.waitUpdate(t)

	_ = first.CloseWithError(errors.New("network drop"))
	timer := h.nextTimer(t)
	if timer.d != 5*time.Second {
		t.Fatalf("expected 5s reconnect delay, got %s", timer.d)
	}
	if got := h.channel.State(); got != live.Disconnected {
		t.Fatalf("expected disconnected while waiting, got %s", got)
	}
	select {
	case <-h.sub.conns:
		t.Fatal("reconnected before the delay elapsed")
	default:
	}

	timer.fire()
	h.nextConn(t)
	h.waitState(t, live.Connected)

	snap := h.store.Snapshot()
	count := 0
	for _, b := range snap.Businesses {
		if b.ID == "42" {
			count++
			if b.CallStatus != api.CallCompleted {
				t.Fatalf("expected completed status, got %s", b.CallStatus)
			}
		}
	}
	if count != 1 || snap.Len() != 2 {
		t.Fatalf("expected one record for id 42 in 2 records, got %d in %d", count, snap.Len())
	}
	if got := testutil.ToFloat64(h.metrics.LiveReconnects); got != 1 {
		t.Fatalf("expected one reconnect, got %v", got)
	}
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	if err := h.channel.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.channel.Close()

	w := h.nextConn(t)
	h.waitState(t, live.Connected)
	send(t, w, `not json`)
	send(t, w, `{"id":""}`)
	send(t, w, `{"id":"7","name":"`+strings.Repeat("x", 2<<20)+`"}`)
	if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
		t.Fatalf("write comment: %v", err)
	}
	send(t, w, `{"id":"7","name":"Alpha","callStatus":"calling"}`)

	snap := h.waitUpdate(t)
	if got, _ := snap.Find("7"); got.CallStatus != api.CallCalling {
		t.Fatalf("expected calling status, got %s", got.CallStatus)
	}
	if h.channel.State() != live.Connected {
		t.Fatalf("connection dropped after malformed message: %s", h.channel.State())
	}
	select {
	case <-h.clock.timers:
		t.Fatal("malformed message triggered a reconnect")
	default:
	}
	if got := testutil.ToFloat64(h.metrics.LiveUpdates.WithLabelValues("malformed")); got != 3 {
		t.Fatalf("expected 3 malformed updates counted, got %v", got)
	}
}

func TestUnknownIDDoesNotInsert(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	if err := h.channel.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w := h.nextConn(t)
	h.waitState(t, live.Connected)
	send(t, w, `{"id":"999","name":"Ghost"}`)
	send(t, w, `{"id":"7","name":"Alpha"}`)
	h.waitUpdate(t)
	h.channel.Close()

	if h.store.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", h.store.Len())
	}
	if _, ok := h.store.Snapshot().Find("999"); ok {
		t.Fatal("unknown record was inserted")
	}
}

func TestCloseCancelsPendingReconnect(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	h.sub.failures = 1
	if err := h.channel.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h.nextConn(t)
	timer := h.nextTimer(t)
	h.channel.Close()

	if !timer.isStopped() {
		t.Fatal("pending reconnect timer was not stopped")
	}
	select {
	case <-h.sub.conns:
		t.Fatal("connection attempted after Close")
	default:
	}
	if h.channel.State() != live.Disconnected {
		t.Fatalf("expected disconnected after Close, got %s", h.channel.State())
	}
}

func TestCloseWhileConnected(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	if err := h.channel.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.nextConn(t)
	h.waitState(t, live.Connected)

	h.channel.Close()
	h.channel.Close()
	select {
	case <-h.clock.timers:
		t.Fatal("reconnect scheduled during teardown")
	default:
	}
	select {
	case <-h.channel.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
}

func TestStartLifecycleErrors(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	if err := h.channel.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.channel.Start(context.Background()); !errors.Is(err, live.ErrStarted) {
		t.Fatalf("expected ErrStarted, got %v", err)
	}
	h.channel.Close()
	if err := h.channel.Start(context.Background()); !errors.Is(err, live.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	idle := live.New(h.sub, h.store, live.Options{})
	idle.Close()
	if idle.Done() != nil {
		t.Fatal("expected nil Done for a channel that never started")
	}
}

func TestParentContextCancelStopsChannel(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	if err := h.channel.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.nextConn(t)
	h.waitState(t, live.Connected)
	cancel()

	select {
	case <-h.channel.Done():
	case <-time.After(waitTimeout):
		t.Fatal("channel did not stop after context cancel")
	}
	h.channel.Close()
}
