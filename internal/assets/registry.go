package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"dialer/internal/api"
	"dialer/internal/backend"
	"dialer/internal/logging"
	"dialer/internal/status"
	"dialer/internal/textutil"
)

// ErrEmptyRecording is returned when there is no audio to upload.
var ErrEmptyRecording = fmt.Errorf("%w: no recording to save", backend.ErrValidation)

// DefaultRecordingName is used when a recording has no file name.
const DefaultRecordingName = "recording.wav"

// Backend is the recording surface of the backend client.
type Backend interface {
	ListAssets(ctx context.Context) ([]api.Asset, error)
	SetActiveAsset(ctx context.Context, key string) error
	DeleteAsset(ctx context.Context, key string) error
	GenerateRecordings(ctx context.Context) error
	UploadRecording(ctx context.Context, filename string, content io.Reader) error
}

// Entry is an asset with its derived active flag.
type Entry struct {
	api.Asset
	IsActive bool `json:"isActive"`
}

// Recording is captured audio waiting to be stored.
type Recording struct {
	Name    string
	Content io.Reader
	Size    int64
}

// Option customizes a Registry.
type Option func(*Registry)

// WithLogger sets the Registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logging.NewComponentLogger(logger, "assets")
	}
}

// WithBus sets the bus used to announce recording changes.
func WithBus(bus Bus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}

// WithConfirmer sets the approval prompt for deletions.
func WithConfirmer(c Confirmer) Option {
	return func(r *Registry) {
		r.confirm = c
	}
}

// WithActiveKey seeds the active selection, typically from a saved snapshot.
func WithActiveKey(key string) Option {
	return func(r *Registry) {
		r.activeKey = strings.TrimSpace(key)
	}
}

// OnActiveChange registers fn for every change of the active key. An empty
// key means no recording is active.
func OnActiveChange(fn func(key string)) Option {
	return func(r *Registry) {
		r.onActive = fn
	}
}

// Registry holds the recording list and the active selection.
type Registry struct {
	backend  Backend
	bus      Bus
	confirm  Confirmer
	logger   *slog.Logger
	onActive func(string)

	mu        sync.Mutex
	assets    []api.Asset
	activeKey string
	// Activation tickets: a confirmation only lands if no later
	// activation has landed first.
	issued    uint64
	committed uint64
}

// New constructs a Registry. Without WithConfirmer every deletion is refused.
func New(b Backend, opts ...Option) *Registry {
	r := &Registry{
		backend: b,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List fetches all recordings and replaces the local list. The active key
// is kept even when the recording is not listed.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	assets, err := r.backend.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	r.mu.Lock()
	r.assets = append([]api.Asset(nil), assets...)
	entries := r.entriesLocked()
	r.mu.Unlock()
	return entries, nil
}

// Assets returns the last fetched list with active flags.
func (r *Registry) Assets() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entriesLocked()
}

// ActiveKey returns the active recording key.
func (r *Registry) ActiveKey() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeKey, r.activeKey != ""
}

// SetActive asks the backend to activate key. The local selection changes
// only after the backend confirmed, and a confirmation that arrives after a
// later activation has been applied is discarded.
func (r *Registry) SetActive(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: recording key is empty", backend.ErrValidation)
	}
	r.mu.Lock()
	r.issued++
	ticket := r.issued
	r.mu.Unlock()

	if err := r.backend.SetActiveAsset(ctx, key); err != nil {
		logging.WarnWithContext(r.logger, "set active recording failed", "asset_activate_failed",
			logging.AssetKey(key),
			logging.Error(err),
		)
		return fmt.Errorf("set active recording: %w", err)
	}
	if !r.commitActivation(ticket, key) {
		r.logger.Debug("discarded superseded activation",
			logging.AssetKey(key),
			logging.Uint64("ticket", ticket),
		)
		return nil
	}
	r.logger.Info("active recording updated", logging.AssetKey(key))
	r.publish(ctx, Signal{Key: key, Reason: ReasonActivated})
	return nil
}

// Remove deletes key after the operator confirmed. Removing the active
// recording leaves no recording active.
func (r *Registry) Remove(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: recording key is empty", backend.ErrValidation)
	}
	if r.confirm == nil {
		return ErrCancelled
	}
	ok, err := r.confirm.Confirm(ctx, status.ConfirmDelete)
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return ErrCancelled
	}
	if err := r.backend.DeleteAsset(ctx, key); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}

	r.mu.Lock()
	kept := make([]api.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	r.assets = kept
	wasActive := r.activeKey == key
	if wasActive {
		r.activeKey = ""
	}
	r.mu.Unlock()
	if wasActive && r.onActive != nil {
		r.onActive("")
	}

	r.logger.Info("recording deleted",
		logging.AssetKey(key),
		logging.Bool("was_active", wasActive),
	)
	r.publish(ctx, Signal{Key: key, Reason: ReasonDeleted})
	return nil
}

// GenerateStandardSet asks the backend to synthesize the default recordings
// and reloads the list.
func (r *Registry) GenerateStandardSet(ctx context.Context) error {
	if err := r.backend.GenerateRecordings(ctx); err != nil {
		return fmt.Errorf("generate recordings: %w", err)
	}
	if _, err := r.List(ctx); err != nil {
		return err
	}
	r.publish(ctx, Signal{Reason: ReasonGenerated})
	return nil
}

// UploadRecording stores rec on the backend and announces the change.
func (r *Registry) UploadRecording(ctx context.Context, rec Recording) error {
	if rec.Content == nil || rec.Size == 0 {
		return &emptyRecordingError{}
	}
	name := textutil.SanitizeFileName(rec.Name, DefaultRecordingName)
	if err := r.backend.UploadRecording(ctx, name, rec.Content); err != nil {
		return fmt.Errorf("upload recording: %w", err)
	}
	r.logger.Info("recording saved", logging.String("file", name))
	if r.bus == nil {
		_, err := r.List(ctx)
		return err
	}
	r.publish(ctx, Signal{Key: name, Reason: ReasonUploaded})
	return nil
}

// Watch applies bus signals until the returned function is called:
// activations and deletions from other components update the selection and
// every other change reloads the list.
func (r *Registry) Watch(ctx context.Context) (func(), error) {
	if r.bus == nil {
		return func() {}, nil
	}
	return r.bus.Subscribe(func(sig Signal) {
		switch sig.Reason {
		case ReasonActivated:
			// Already confirmed by the backend for the publisher.
			r.setActive(sig.Key)
			return
		case ReasonDeleted:
			r.mu.Lock()
			active := r.activeKey
			r.mu.Unlock()
			if sig.Key != "" && sig.Key == active {
				r.setActive("")
			}
		}
		if _, err := r.List(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(r.logger, "recording refresh after change failed", "asset_refresh_failed",
				logging.String("reason", sig.Reason),
				logging.Error(err),
			)
		}
	})
}

func (r *Registry) publish(ctx context.Context, sig Signal) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, sig); err != nil {
		logging.WarnWithContext(r.logger, "asset change signal not delivered", "asset_signal_failed",
			logging.String("reason", sig.Reason),
			logging.Error(err),
			logging.Impact("other views refresh on their next list"),
		)
	}
}

func (r *Registry) setActive(key string) {
	r.mu.Lock()
	changed := r.activeKey != key
	r.activeKey = key
	r.mu.Unlock()
	if changed && r.onActive != nil {
		r.onActive(key)
	}
}

func (r *Registry) commitActivation(ticket uint64, key string) bool {
	r.mu.Lock()
	if ticket <= r.committed {
		r.mu.Unlock()
		return false
	}
	r.committed = ticket
	changed := r.activeKey != key
	r.activeKey = key
	r.mu.Unlock()
	if changed && r.onActive != nil {
		r.onActive(key)
	}
	return true
}

func (r *Registry) entriesLocked() []Entry {
	entries := make([]Entry, len(r.assets))
	for i, a := range r.assets {
		entries[i] = Entry{Asset: a, IsActive: r.activeKey != "" && a.Key == r.activeKey}
	}
	return entries
}

type emptyRecordingError struct{}

func (*emptyRecordingError) Error() string { return ErrEmptyRecording.Error() }

func (*emptyRecordingError) Unwrap() error { return ErrEmptyRecording }

func (*emptyRecordingError) UserMessage() string { return status.NoRecording }
