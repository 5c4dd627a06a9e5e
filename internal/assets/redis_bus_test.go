package assets_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"dialer/internal/assets"
	"dialer/internal/config"
)

func newRedisBus(t *testing.T) *assets.RedisBus {
	t.Helper()
	server := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Bus.RedisAddr = server.Addr()
	bus, err := assets.NewBusFromConfig(context.Background(), &cfg, nil)
	if err != nil {
		t.Fatalf("NewBusFromConfig: %v", err)
	}
	redisBus, ok := bus.(*assets.RedisBus)
	if !ok {
		t.Fatalf("expected RedisBus, got %T", bus)
	}
	t.Cleanup(func() { _ = redisBus.Close() })
	return redisBus
}

func TestRedisBusRoundTrip(t *testing.T) {
	bus := newRedisBus(t)
	got := make(chan assets.Signal, 4)
	cancel, err := bus.Subscribe(func(s assets.Signal) { got <- s })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	sent := assets.Signal{Key: "promo.wav", Reason: assets.ReasonActivated, Origin: "cli"}
	if err := bus.Publish(context.Background(), sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case sig := <-got:
		if sig.Key != sent.Key || sig.Reason != sent.Reason || sig.Origin != sent.Origin {
			t.Fatalf("unexpected signal %+v", sig)
		}
		if sig.At.IsZero() {
			t.Fatal("expected publish time to be stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal never delivered")
	}
}

func TestRedisBusCancelStopsDelivery(t *testing.T) {
	bus := newRedisBus(t)
	got := make(chan assets.Signal, 4)
	cancel, err := bus.Subscribe(func(s assets.Signal) { got <- s })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()
	cancel()

	if err := bus.Publish(context.Background(), assets.Signal{Reason: assets.ReasonUploaded}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case sig := <-got:
		t.Fatalf("signal delivered after cancel: %+v", sig)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRedisBusSubscribeAfterClose(t *testing.T) {
	bus := newRedisBus(t)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := bus.Subscribe(func(assets.Signal) {}); err == nil {
		t.Fatal("expected error subscribing to a closed bus")
	}
}

func TestRegistryWatchOverRedis(t *testing.T) {
	bus := newRedisBus(t)
	fb := newFakeBackend("a", "b")
	writer := assets.New(fb, assets.WithBus(bus))
	viewer := assets.New(fb, assets.WithBus(bus))
	for _, r := range []*assets.Registry{writer, viewer} {
		stop, err := r.Watch(context.Background())
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
		defer stop()
	}

	if err := writer.SetActive(context.Background(), "b"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if key, _ := viewer.ActiveKey(); key == "b" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("viewer never followed the activation")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if key, _ := writer.ActiveKey(); key != "b" {
		t.Fatalf("writer active key = %q, want b", key)
	}
}
