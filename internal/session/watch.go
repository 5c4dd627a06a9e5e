package session

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"dialer/internal/directory"
	"dialer/internal/live"
	"dialer/internal/logging"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	// MetricsBind serves /metrics on this address when set.
	MetricsBind string
	// Clock overrides the reconnect timer source.
	Clock live.Clock
	// OnState receives live channel transitions.
	OnState func(live.State)
	// OnDirectory receives every committed directory snapshot.
	OnDirectory func(directory.Snapshot)
	// Ready, when set, is closed once the listeners are running.
	Ready chan<- struct{}
}

// Watch loads the directory and recordings, then keeps the live update
// channel and the asset bus subscription running until ctx ends.
func (s *Session) Watch(ctx context.Context, opts WatchOptions) error {
	ctx = logging.WithSessionID(ctx, s.ID)

	if opts.OnDirectory != nil {
		cancel := s.Directory.Subscribe(opts.OnDirectory)
		defer cancel()
	}
	if err := s.Directory.Refresh(ctx); err != nil {
		logging.WarnWithContext(s.Logger, "initial directory load failed", "watch_initial_load_failed",
			logging.Error(err),
			logging.Impact("updates apply once a refresh succeeds"),
		)
	}
	if _, err := s.Assets.List(ctx); err != nil {
		s.Logger.Debug("initial recording list failed", logging.Error(err))
	}

	var listener net.Listener
	if opts.MetricsBind != "" {
		l, err := net.Listen("tcp", opts.MetricsBind)
		if err != nil {
			return err
		}
		listener = l
		defer listener.Close()
	}

	stopAssets, err := s.Assets.Watch(ctx)
	if err != nil {
		return err
	}
	defer stopAssets()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(watchCtx)
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})

	if s.Config.Live.Enabled {
		channel := live.New(s.Client, s.Directory, live.Options{
			ReconnectDelay: s.Config.ReconnectDelay(),
			Clock:          opts.Clock,
			Logger:         s.Logger,
			Metrics:        s.Metrics,
			OnStateChange:  opts.OnState,
		})
		defer channel.Close()
		if err := channel.Start(groupCtx); err != nil {
			return err
		}
		group.Go(func() error {
			<-groupCtx.Done()
			channel.Close()
			return nil
		})
	}

	if listener != nil {
		server := &http.Server{Handler: s.metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		s.Logger.Info("metrics listening", logging.String("addr", listener.Addr().String()))
		group.Go(func() error {
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if opts.Ready != nil {
		close(opts.Ready)
	}
	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Session) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
