package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dialer/internal/assets"
	"dialer/internal/backend"
	"dialer/internal/logging"
	"dialer/internal/metrics"
	"dialer/internal/status"
)

var (
	// ErrBusy is returned while another bulk operation is loading.
	ErrBusy = errors.New("another bulk operation is in progress")
	// ErrLocked is returned when a different process holds the campaign lock.
	ErrLocked = fmt.Errorf("%w in another process", ErrBusy)
)

// Backend is the bulk surface of the backend client.
type Backend interface {
	ExportCSV(ctx context.Context) (io.ReadCloser, error)
	CallAll(ctx context.Context) (string, error)
}

// Directory empties the local directory after a confirmed backend clear.
type Directory interface {
	Clear(ctx context.Context) error
}

// Options wires the collaborators of an Orchestrator.
type Options struct {
	Backend   Backend
	Directory Directory
	Saver     FileSaver
	// Confirmer approves clear and call-all. Without one both are refused.
	Confirmer assets.Confirmer
	// Lock, when set, serializes bulk operations across processes.
	Lock    *Lock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Orchestrator runs bulk operations one at a time.
type Orchestrator struct {
	backend Backend
	dir     Directory
	saver   FileSaver
	confirm assets.Confirmer
	lock    *Lock
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	loading bool
	last    status.Status
}

// New constructs an idle Orchestrator.
func New(opts Options) *Orchestrator {
	saver := opts.Saver
	if saver == nil {
		saver = DirSaver{Dir: "."}
	}
	return &Orchestrator{
		backend: opts.Backend,
		dir:     opts.Directory,
		saver:   saver,
		confirm: opts.Confirmer,
		lock:    opts.Lock,
		logger:  logging.NewComponentLogger(opts.Logger, "campaign"),
		metrics: opts.Metrics,
		last:    status.None,
	}
}

// Loading reports whether an operation is running.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// LastStatus returns the outcome of the most recent completed operation.
func (o *Orchestrator) LastStatus() status.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// ClearDatabase deletes every business after confirmation. The local
// directory is emptied only after the backend succeeded.
func (o *Orchestrator) ClearDatabase(ctx context.Context) (status.Status, error) {
	return o.run(ctx, "clear", status.ConfirmClear, func(ctx context.Context) (status.Status, error) {
		if err := o.dir.Clear(ctx); err != nil {
			return status.Failure(status.ClearFailed), err
		}
		return status.Success(status.DatabaseCleared), nil
	})
}

// ExportCSV streams the backend export into the file saver. It never
// changes the directory.
func (o *Orchestrator) ExportCSV(ctx context.Context) (status.Status, error) {
	return o.run(ctx, "export", "", func(ctx context.Context) (status.Status, error) {
		body, err := o.backend.ExportCSV(ctx)
		if err != nil {
			return status.Failure(status.ExportFailed), err
		}
		defer body.Close()

		path, err := o.saver.Save(ctx, ExportFileName, body)
		if err != nil {
			return status.Failure(status.ExportFailed), fmt.Errorf("save export: %w", err)
		}
		return status.Success(status.ExportSucceeded + " " + path), nil
	})
}

// CallAll asks the backend to start calling every business. The backend's
// message is reported verbatim. Individual outcomes arrive later through the
// live update stream.
func (o *Orchestrator) CallAll(ctx context.Context) (status.Status, error) {
	return o.run(ctx, "call_all", status.ConfirmCallAll, func(ctx context.Context) (status.Status, error) {
		msg, err := o.backend.CallAll(ctx)
		if err != nil {
			return status.Failure(status.CallsFailed), err
		}
		if strings.TrimSpace(msg) == "" {
			msg = status.CallsStarted
		}
		return status.Success(msg), nil
	})
}

// run holds the loading gate, asks for confirmation when prompt is set and
// records the single status produced by fn.
func (o *Orchestrator) run(ctx context.Context, name, prompt string, fn func(context.Context) (status.Status, error)) (status.Status, error) {
	if !o.begin() {
		return status.None, ErrBusy
	}
	defer o.end()

	if prompt != "" {
		if o.confirm == nil {
			return status.None, assets.ErrCancelled
		}
		ok, err := o.confirm.Confirm(ctx, prompt)
		if err != nil {
			return status.None, fmt.Errorf("confirm %s: %w", name, err)
		}
		if !ok {
			return status.None, assets.ErrCancelled
		}
	}

	if o.lock != nil {
		ok, err := o.lock.TryLock()
		if err != nil {
			return status.None, err
		}
		if !ok {
			return status.None, ErrLocked
		}
		defer func() {
			if err := o.lock.Unlock(); err != nil {
				o.logger.Warn("failed to release campaign lock", logging.Error(err))
			}
		}()
	}

	if _, ok := logging.RequestIDFromContext(ctx); !ok {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}
	st, err := fn(ctx)
	o.mu.Lock()
	o.last = st
	o.mu.Unlock()
	o.metrics.Operation(name, string(st.Kind))

	if err != nil {
		attrs := []logging.Attr{
			logging.Operation(name),
			logging.Error(err),
			logging.Impact(st.Message),
		}
		if backend.IsServerError(err) {
			logging.ErrorWithContext(o.logger, name+" failed", "campaign_"+name+"_server_error", attrs...)
		} else {
			logging.WarnWithContext(o.logger, name+" failed", "campaign_"+name+"_failed", attrs...)
		}
		return st, err
	}
	o.logger.Info(name+" completed",
		logging.Operation(name),
		logging.String("status", st.Message),
	)
	return st, nil
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loading {
		return false
	}
	o.loading = true
	return true
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.loading = false
	o.mu.Unlock()
}
