package campaign_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dialer/internal/api"
	"dialer/internal/assets"
	"dialer/internal/backend"
	"dialer/internal/campaign"
	"dialer/internal/directory"
	"dialer/internal/status"
)

type fakeBackend struct {
	mu         sync.Mutex
	businesses []api.Business
	clearErr   error
	exportErr  error
	callErr    error
	callMsg    string
	clears     int
	calls      int
	exports    int
	block      chan struct{}
	started    chan struct{}
}

func (f *fakeBackend) ListBusinesses(context.Context) ([]api.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Business(nil), f.businesses...), nil
}

func (f *fakeBackend) ClearDatabase(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.clears++
	f.businesses = nil
	return nil
}

func (f *fakeBackend) ExportCSV(context.Context) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	f.exports++
	return io.NopCloser(strings.NewReader("id,name\n1,Alpha\n")), nil
}

func (f *fakeBackend) CallAll(context.Context) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return "", f.callErr
	}
	f.calls++
	return f.callMsg, nil
}

type fixture struct {
	backend *fakeBackend
	store   *directory.Store
	orch    *campaign.Orchestrator
	prompts []string
	exports string
}

func newFixture(t *testing.T, approve bool) *fixture {
	t.Helper()
	f := &fixture{
		backend: &fakeBackend{
			businesses: []api.Business{{ID: "1", Name: "Alpha"}, {ID: "2", Name: "Bravo"}},
			callMsg:    "Started calling 2 businesses",
		},
		exports: t.TempDir(),
	}
	f.store = directory.New(f.backend)
	if err := f.store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	f.orch = campaign.New(campaign.Options{
		Backend:   f.backend,
		Directory: f.store,
		Saver:     campaign.DirSaver{Dir: f.exports},
		Confirmer: assets.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
			f.prompts = append(f.prompts, prompt)
			return approve, nil
		}),
		Lock: campaign.NewLock(filepath.Join(t.TempDir(), "campaign.lock")),
	})
	return f
}

func TestClearDatabaseSuccess(t *testing.T) {
	f := newFixture(t, true)
	st, err := f.orch.ClearDatabase(context.Background())
	if err != nil {
		t.Fatalf("ClearDatabase: %v", err)
	}
	if st != status.Success("Database cleared successfully!") {
		t.Fatalf("unexpected status %+v", st)
	}
	if f.store.Len() != 0 || f.backend.clears != 1 {
		t.Fatalf("expected cleared directory, got %d records", f.store.Len())
	}
	if len(f.prompts) != 1 || f.prompts[0] != status.ConfirmClear {
		t.Fatalf("unexpected prompts %q", f.prompts)
	}
	if f.orch.LastStatus() != st || f.orch.Loading() {
		t.Fatalf("unexpected orchestrator state: last=%+v loading=%v", f.orch.LastStatus(), f.orch.Loading())
	}
}

func TestClearDatabaseFailureKeepsDirectory(t *testing.T) {
	f := newFixture(t, true)
	f.backend.clearErr = &backend.ServerError{Endpoint: "clear-database", Status: 500}

	st, err := f.orch.ClearDatabase(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if st != status.Failure("Failed to clear database") {
		t.Fatalf("unexpected status %+v", st)
	}
	if f.store.Len() != 2 {
		t.Fatalf("directory changed on failure: %d records", f.store.Len())
	}
}

func TestDeclinedConfirmationSkipsBackend(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.orch.ClearDatabase(context.Background()); !errors.Is(err, assets.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if _, err := f.orch.CallAll(context.Background()); !errors.Is(err, assets.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if f.backend.clears != 0 || f.backend.calls != 0 {
		t.Fatal("backend called without approval")
	}
	if !f.orch.LastStatus().IsZero() {
		t.Fatalf("declined operation produced a status: %+v", f.orch.LastStatus())
	}
}

func TestExportWritesFileWithoutTouchingDirectory(t *testing.T) {
	f := newFixture(t, true)
	st, err := f.orch.ExportCSV(context.Background())
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	path := filepath.Join(f.exports, "businesses.csv")
	if st.Kind != status.KindSuccess || !strings.Contains(st.Message, path) {
		t.Fatalf("unexpected status %+v", st)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "id,name\n1,Alpha\n" {
		t.Fatalf("unexpected export %q %v", data, err)
	}
	if f.store.Len() != 2 || len(f.prompts) != 0 {
		t.Fatalf("export changed directory or prompted: len=%d prompts=%q", f.store.Len(), f.prompts)
	}
}

func TestExportFailure(t *testing.T) {
	f := newFixture(t, true)
	f.backend.exportErr = errors.Join(backend.ErrTransport, errors.New("refused"))
	st, err := f.orch.ExportCSV(context.Background())
	if err == nil || st != status.Failure("Export failed") {
		t.Fatalf("unexpected result %+v %v", st, err)
	}
}

func TestExportUnwritableDirectory(t *testing.T) {
	f := newFixture(t, true)
	orch := campaign.New(campaign.Options{
		Backend: f.backend,
		Saver:   campaign.DirSaver{Dir: filepath.Join(f.exports, "missing")},
	})
	st, err := orch.ExportCSV(context.Background())
	if err == nil || st != status.Failure(status.ExportFailed) {
		t.Fatalf("unexpected result %+v %v", st, err)
	}
}

func TestCallAllSurfacesBackendMessage(t *testing.T) {
	f := newFixture(t, true)
	st, err := f.orch.CallAll(context.Background())
	if err != nil {
		t.Fatalf("CallAll: %v", err)
	}
	if st != status.Success("Started calling 2 businesses") {
		t.Fatalf("unexpected status %+v", st)
	}
	if f.prompts[0] != status.ConfirmCallAll {
		t.Fatalf("unexpected prompt %q", f.prompts[0])
	}
}

func TestCallAllFailureUsesGenericMessage(t *testing.T) {
	f := newFixture(t, true)
	f.backend.callErr = &backend.ServerError{Endpoint: "call-all", Status: 500, Message: "twilio exploded"}
	st, err := f.orch.CallAll(context.Background())
	if err == nil || st != status.Failure("Failed to initiate calls") {
		t.Fatalf("unexpected result %+v %v", st, err)
	}
}

func TestStatusIsReplacedNotMerged(t *testing.T) {
	f := newFixture(t, true)
	if _, err := f.orch.CallAll(context.Background()); err != nil {
		t.Fatalf("CallAll: %v", err)
	}
	f.backend.exportErr = errors.New("boom")
	_, _ = f.orch.ExportCSV(context.Background())
	if got := f.orch.LastStatus(); got != status.Failure(status.ExportFailed) {
		t.Fatalf("unexpected last status %+v", got)
	}
}

func TestConcurrentOperationIsBusy(t *testing.T) {
	f := newFixture(t, true)
	f.backend.block = make(chan struct{})
	f.backend.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.CallAll(context.Background())
		done <- err
	}()
	<-f.backend.started

	if !f.orch.Loading() {
		t.Fatal("expected loading during call-all")
	}
	st, err := f.orch.ClearDatabase(context.Background())
	if !errors.Is(err, campaign.ErrBusy) || !st.IsZero() {
		t.Fatalf("expected ErrBusy, got %+v %v", st, err)
	}
	close(f.backend.block)
	if err := <-done; err != nil {
		t.Fatalf("CallAll: %v", err)
	}
	if f.backend.clears != 0 {
		t.Fatal("clear ran while call-all was loading")
	}
	if f.orch.LastStatus().Message != "Started calling 2 businesses" {
		t.Fatalf("busy attempt replaced status: %+v", f.orch.LastStatus())
	}
}

func TestLockHeldByAnotherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.lock")
	holder := campaign.NewLock(path)
	ok, err := holder.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer holder.Unlock()

	f := newFixture(t, true)
	orch := campaign.New(campaign.Options{
		Backend:   f.backend,
		Directory: f.store,
		Confirmer: assets.AlwaysConfirm,
		Lock:      campaign.NewLock(path),
	})
	if _, err := orch.CallAll(context.Background()); !errors.Is(err, campaign.ErrLocked) || !errors.Is(err, campaign.ErrBusy) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if f.backend.calls != 0 {
		t.Fatal("call-all ran without the lock")
	}
}
