package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dialer/internal/api"
	"dialer/internal/logging"
	"dialer/internal/metrics"
)

// DefaultReconnectDelay is the fixed pause between a failed stream and the
// next connection attempt.
const DefaultReconnectDelay = 5 * time.Second

var (
	// ErrStarted is returned by Start on a channel that is already running.
	ErrStarted = errors.New("live channel already started")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("live channel closed")

	errStreamEnded = errors.New("update stream ended")
)

// Subscriber opens the server push stream.
type Subscriber interface {
	SubscribeUpdates(ctx context.Context) (io.ReadCloser, error)
}

// Applier receives decoded records.
type Applier interface {
	ApplyUpdate(record api.Business) bool
}

// Options configures a Channel.
type Options struct {
	ReconnectDelay time.Duration
	Clock          Clock
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	// OnStateChange runs on the channel goroutine after every transition.
	OnStateChange func(State)
}

// Channel maintains the push subscription.
type Channel struct {
	sub     Subscriber
	dir     Applier
	delay   time.Duration
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	onState func(State)

	mu      sync.Mutex
	state   State
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a stopped Channel.
func New(sub Subscriber, dir Applier, opts Options) *Channel {
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Channel{
		sub:     sub,
		dir:     dir,
		delay:   delay,
		clock:   clock,
		logger:  logging.NewComponentLogger(opts.Logger, "live"),
		metrics: opts.Metrics,
		onState: opts.OnStateChange,
		state:   Disconnected,
	}
}

// Start begins connecting immediately and keeps the subscription alive until
// ctx is cancelled or Close is called.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrStarted
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, c.done)
	return nil
}

// Close tears the channel down and waits for the connection goroutine to
// exit. It is safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the connection goroutine has exited. It returns nil
// before Start.
func (c *Channel) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.setState(Disconnected)

	for {
		c.setState(Connecting)
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		c.setState(Disconnected)
		c.metrics.Reconnect()
		c.logger.Debug("update stream lost, reconnect scheduled",
			logging.Error(err),
			logging.Duration("delay", c.delay),
		)

		timer := c.clock.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
	}
}

// stream holds one connection open until it fails or ctx is cancelled.
func (c *Channel) stream(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := c.sub.SubscribeUpdates(streamCtx)
	if err != nil {
		return err
	}
	defer body.Close()
	// Unblock a pending read when the channel is torn down.
	stop := context.AfterFunc(streamCtx, func() { _ = body.Close() })
	defer stop()

	c.setState(Connected)
	c.logger.Info("update stream connected")

	err = readEvents(body, c.handle)
	if err == nil {
		err = errStreamEnded
	}
	return err
}

func (c *Channel) handle(ev event) {
	if ev.Type != "" && ev.Type != "message" {
		return
	}
	if ev.Oversized {
		c.metrics.LiveUpdate("malformed")
		c.logger.Debug("dropped oversized update",
			logging.String(logging.FieldEventType, "live_update_oversized"),
		)
		return
	}
	var record api.Business
	if err := json.Unmarshal([]byte(ev.Data), &record); err != nil || strings.TrimSpace(record.ID) == "" {
		c.metrics.LiveUpdate("malformed")
		c.logger.Debug("dropped malformed update",
			logging.String(logging.FieldEventType, "live_update_malformed"),
			logging.Int("bytes", len(ev.Data)),
		)
		return
	}
	if c.dir.ApplyUpdate(record) {
		c.metrics.LiveUpdate("applied")
		c.logger.Debug("applied update",
			logging.BusinessID(record.ID),
			logging.String("call_status", string(record.CallStatus)),
		)
		return
	}
	c.metrics.LiveUpdate("unknown")
	c.logger.Debug("update for unknown business ignored",
		logging.BusinessID(record.ID),
	)
}

func (c *Channel) setState(next State) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()

	c.metrics.SetLiveState(int(next))
	if c.onState != nil {
		c.onState(next)
	}
}
