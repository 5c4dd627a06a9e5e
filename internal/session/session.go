package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"dialer/internal/api"
	"dialer/internal/assets"
	"dialer/internal/backend"
	"dialer/internal/campaign"
	"dialer/internal/config"
	"dialer/internal/directory"
	"dialer/internal/logging"
	"dialer/internal/metrics"
	"dialer/internal/snapshot"
	"dialer/internal/status"
	"dialer/internal/upload"
)

var (
	// ErrEmptyDirectory is returned when a bulk operation needs businesses.
	ErrEmptyDirectory = errors.New("directory is empty")
	// ErrNoActiveRecording is returned when call-all has no recording to use.
	ErrNoActiveRecording = errors.New("no active recording selected")
)

// Options customizes a Session.
type Options struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Confirmer assets.Confirmer
	Saver     campaign.FileSaver
	// HTTP overrides the REST transport, mainly for tests.
	HTTP backend.HTTPDoer
	// SkipSnapshot disables the SQLite snapshot.
	SkipSnapshot bool
	// SkipBus uses an in-process bus even when Redis is configured.
	SkipBus bool
}

// Session owns the components of one dialer process.
type Session struct {
	ID        string
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Client    *backend.Client
	Directory *directory.Store
	Upload    *upload.Pipeline
	Assets    *assets.Registry
	Campaign  *campaign.Orchestrator
	Snapshot  *snapshot.Store
	Bus       assets.Bus

	unsubscribe []func()
}

// New builds a Session from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	id := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldSessionID, id))

	client, err := backend.New(backend.Options{
		BaseURL:  cfg.Backend.BaseURL,
		APIToken: cfg.Backend.APIToken,
		Timeout:  cfg.RequestTimeout(),
		HTTP:     opts.HTTP,
		Logger:   logger,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      id,
		Config:  cfg,
		Logger:  logger,
		Metrics: opts.Metrics,
		Client:  client,
	}

	if !opts.SkipSnapshot {
		store, err := snapshot.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "snapshot unavailable", "snapshot_open_failed",
				logging.Error(err),
				logging.Impact("cached directory and active recording marker disabled"),
			)
		} else {
			s.Snapshot = store
		}
	}

	if opts.SkipBus {
		s.Bus = assets.NewLocalBus()
	} else {
		bus, err := assets.NewBusFromConfig(ctx, cfg, logger)
		if err != nil {
			logging.WarnWithContext(logger, "asset bus unavailable, using in-process bus", "asset_bus_fallback",
				logging.Error(err),
				logging.Impact("other processes will not see recording changes"),
			)
			bus = assets.NewLocalBus()
		}
		s.Bus = bus
	}

	s.Directory = directory.New(client,
		directory.WithLogger(logger),
		directory.WithMetrics(opts.Metrics),
	)
	s.Upload = upload.New(client, s.Directory,
		upload.WithMaxBytes(cfg.Upload.MaxCSVBytes),
		upload.WithLogger(logger),
		upload.WithMetrics(opts.Metrics),
	)

	registryOpts := []assets.Option{
		assets.WithLogger(logger),
		assets.WithBus(s.Bus),
		assets.OnActiveChange(s.persistActiveKey),
	}
	if opts.Confirmer != nil {
		registryOpts = append(registryOpts, assets.WithConfirmer(opts.Confirmer))
	}
	if key := s.cachedActiveKey(ctx); key != "" {
		registryOpts = append(registryOpts, assets.WithActiveKey(key))
	}
	s.Assets = assets.New(client, registryOpts...)

	saver := opts.Saver
	if saver == nil {
		saver = campaign.DirSaver{Dir: cfg.Paths.ExportDir}
	}
	s.Campaign = campaign.New(campaign.Options{
		Backend:   client,
		Directory: s.Directory,
		Saver:     saver,
		Confirmer: opts.Confirmer,
		Lock:      campaign.NewLock(cfg.LockPath()),
		Logger:    logger,
		Metrics:   opts.Metrics,
	})

	if s.Snapshot != nil {
		s.unsubscribe = append(s.unsubscribe, s.Directory.Subscribe(s.persistDirectory))
	}
	return s, nil
}

// Close releases the snapshot and bus.
func (s *Session) Close() error {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
	var errs []error
	if s.Bus != nil {
		errs = append(errs, s.Bus.Close())
	}
	if s.Snapshot != nil {
		errs = append(errs, s.Snapshot.Close())
	}
	return errors.Join(errs...)
}

// CachedDirectory returns the directory saved by an earlier session.
func (s *Session) CachedDirectory(ctx context.Context) ([]api.Business, error) {
	if s.Snapshot == nil {
		return nil, errors.New("snapshot unavailable")
	}
	return s.Snapshot.LoadDirectory(ctx)
}

// ExportCSV exports the directory after checking it is not empty.
func (s *Session) ExportCSV(ctx context.Context) (status.Status, error) {
	if err := s.requireDirectory(ctx); err != nil {
		return status.None, err
	}
	return s.Campaign.ExportCSV(ctx)
}

// CallAll starts the bulk call run after checking that there is something to
// call and a recording to play.
func (s *Session) CallAll(ctx context.Context) (status.Status, error) {
	if err := s.requireDirectory(ctx); err != nil {
		return status.None, err
	}
	if _, ok := s.Assets.ActiveKey(); !ok {
		return status.None, ErrNoActiveRecording
	}
	return s.Campaign.CallAll(ctx)
}

func (s *Session) requireDirectory(ctx context.Context) error {
	if s.Directory.Len() == 0 {
		if err := s.Directory.Refresh(ctx); err != nil {
			return err
		}
	}
	if s.Directory.Len() == 0 {
		return ErrEmptyDirectory
	}
	return nil
}

func (s *Session) cachedActiveKey(ctx context.Context) string {
	if s.Snapshot == nil {
		return ""
	}
	key, ok, err := s.Snapshot.ActiveKey(ctx)
	if err != nil {
		s.Logger.Debug("read cached active key failed", logging.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return key
}

func (s *Session) persistDirectory(snap directory.Snapshot) {
	if err := s.Snapshot.SaveDirectory(context.Background(), snap.Businesses); err != nil {
		logging.WarnWithContext(s.Logger, "snapshot write failed", "snapshot_write_failed",
			logging.Error(err),
			logging.Int("records", snap.Len()),
			logging.Impact("cached directory may be stale"),
		)
	}
}

func (s *Session) persistActiveKey(key string) {
	if s.Snapshot == nil {
		return
	}
	if err := s.Snapshot.SaveActiveKey(context.Background(), key); err != nil {
		logging.WarnWithContext(s.Logger, "active recording not persisted", "snapshot_active_failed",
			logging.AssetKey(key),
			logging.Error(err),
		)
	}
}
