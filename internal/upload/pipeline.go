package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"dialer/internal/backend"
	"dialer/internal/logging"
	"dialer/internal/metrics"
	"dialer/internal/status"
)

// DefaultMaxBytes is the size ceiling for directory files.
const DefaultMaxBytes int64 = 5 << 20

// Backend is the ingest endpoint used by the Pipeline.
type Backend interface {
	UploadCSV(ctx context.Context, filename string, content io.Reader) error
}

// Refresher reloads the directory after a successful upload.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMaxBytes overrides the size ceiling. Values <= 0 are ignored.
func WithMaxBytes(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithLogger sets the Pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logging.NewComponentLogger(logger, "upload")
	}
}

// WithMetrics counts upload outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline validates and submits directory files.
type Pipeline struct {
	backend  Backend
	dir      Refresher
	maxBytes int64
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	inFlight bool
}

// New constructs a Pipeline.
func New(b Backend, dir Refresher, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend:  b,
		dir:      dir,
		maxBytes: DefaultMaxBytes,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate checks the file name and size. It never touches the network.
func (p *Pipeline) Validate(f File) error {
	if !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
		return &validationError{
			kind:    ErrInvalidFormat,
			detail:  fmt.Sprintf("%q is not a .csv file", f.Name),
			message: status.InvalidCSV,
		}
	}
	if f.Size > p.maxBytes {
		return &validationError{
			kind:    ErrTooLarge,
			detail:  fmt.Sprintf("%s is %s, limit %s", f.Name, humanize.IBytes(uint64(f.Size)), humanize.IBytes(uint64(p.maxBytes))),
			message: p.tooLargeMessage(),
		}
	}
	return nil
}

// InFlight reports whether an upload is running.
func (p *Pipeline) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Submit validates f, uploads it and refreshes the directory. The returned
// status is always set unless err is ErrBusy.
func (p *Pipeline) Submit(ctx context.Context, f File) (status.Status, error) {
	if !p.begin() {
		return status.None, ErrBusy
	}
	defer p.end()

	st, err := p.submit(ctx, f)
	p.metrics.Operation("upload", string(st.Kind))
	return st, err
}

func (p *Pipeline) submit(ctx context.Context, f File) (status.Status, error) {
	if err := p.Validate(f); err != nil {
		return status.Failure(backend.UserMessage(err, status.UploadFailed)), err
	}
	if f.Open == nil {
		err := fmt.Errorf("%w: %s has no content", backend.ErrValidation, f.Name)
		return status.Failure(status.UploadFailed), err
	}
	content, err := f.Open()
	if err != nil {
		return status.Failure(status.UploadFailed), fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer content.Close()

	if err := p.backend.UploadCSV(ctx, f.Name, content); err != nil {
		logging.WarnWithContext(p.logger, "upload failed", "upload_failed",
			logging.String("file", f.Name),
			logging.Error(err),
			logging.Hint("check the file columns and backend logs"),
		)
		return status.Failure(backend.UserMessage(err, status.UploadFailed)), err
	}
	p.logger.Info("upload accepted",
		logging.String("file", f.Name),
		logging.String("size", humanize.IBytes(uint64(f.Size))),
	)

	if p.dir != nil {
		if err := p.dir.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(p.logger, "directory refresh after upload failed", "upload_refresh_failed",
				logging.Error(err),
				logging.Impact("directory may be stale until the next refresh"),
			)
		}
	}
	return status.Success(status.UploadSucceeded), nil
}

func (p *Pipeline) tooLargeMessage() string {
	if p.maxBytes == DefaultMaxBytes {
		return status.CSVTooLarge
	}
	return "File size must be less than " + humanize.IBytes(uint64(p.maxBytes))
}

func (p *Pipeline) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight {
		return false
	}
	p.inFlight = true
	return true
}

func (p *Pipeline) end() {
	p.mu.Lock()
	p.inFlight = false
	p.mu.Unlock()
}
