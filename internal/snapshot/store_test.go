package snapshot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dialer/internal/api"
	"dialer/internal/snapshot"
	"dialer/internal/testsupport"
)

func TestDirectoryRoundTripKeepsOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSnapshot(t, cfg)
	ctx := context.Background()

	called := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	input := []api.Business{
		{ID: "9", Name: "Zulu", Phone: "999"},
		{ID: "1", Name: "Alpha", Phone: "111", HasDiscount: true, DiscountAmount: "10%", DiscountDetails: "first order", LastCalled: &called, CallStatus: api.CallCompleted},
	}
	if err := store.SaveDirectory(ctx, input); err != nil {
		t.Fatalf("SaveDirectory: %v", err)
	}
	got, err := store.LoadDirectory(ctx)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if len(got) != 2 || got[0].ID != "9" || got[1].ID != "1" {
		t.Fatalf("unexpected order %+v", got)
	}
	b := got[1]
	if !b.HasDiscount || b.DiscountAmount != "10%" || b.CallStatus != api.CallCompleted {
		t.Fatalf("fields lost: %+v", b)
	}
	if b.LastCalled == nil || !b.LastCalled.Equal(called) {
		t.Fatalf("last called lost: %v", b.LastCalled)
	}
	if got[0].LastCalled != nil || got[0].CallStatus != "" {
		t.Fatalf("empty fields not preserved: %+v", got[0])
	}
}

func TestSaveDirectoryReplaces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSnapshot(t, cfg)
	ctx := context.Background()

	if err := store.SaveDirectory(ctx, []api.Business{{ID: "1"}, {ID: "2"}}); err != nil {
		t.Fatalf("SaveDirectory: %v", err)
	}
	if err := store.SaveDirectory(ctx, nil); err != nil {
		t.Fatalf("SaveDirectory(nil): %v", err)
	}
	got, err := store.LoadDirectory(ctx)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil directory, got %#v", got)
	}
}

func TestActiveKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSnapshot(t, cfg)
	ctx := context.Background()

	if _, ok, err := store.ActiveKey(ctx); err != nil || ok {
		t.Fatalf("expected no key, got ok=%v err=%v", ok, err)
	}
	for _, key := range []string{"a.wav", "b.wav"} {
		if err := store.SaveActiveKey(ctx, key); err != nil {
			t.Fatalf("SaveActiveKey(%s): %v", key, err)
		}
	}
	if key, ok, _ := store.ActiveKey(ctx); !ok || key != "b.wav" {
		t.Fatalf("expected b.wav, got %q", key)
	}
	if err := store.SaveActiveKey(ctx, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.ActiveKey(ctx); ok {
		t.Fatal("expected active key cleared")
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := snapshot.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.SaveActiveKey(context.Background(), "keep.wav"); err != nil {
		t.Fatalf("SaveActiveKey: %v", err)
	}
	store.Close()

	reopened := testsupport.MustOpenSnapshot(t, cfg)
	if key, ok, _ := reopened.ActiveKey(context.Background()); !ok || key != "keep.wav" {
		t.Fatalf("expected keep.wav after reopen, got %q", key)
	}
}

func TestSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSnapshot(t, cfg)
	if _, err := store.DB().Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	store.Close()

	if _, err := snapshot.Open(cfg); !errors.Is(err, snapshot.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
