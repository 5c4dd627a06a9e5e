package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"dialer/internal/api"
	"dialer/internal/testsupport"
)

var (
	acmeBakery = api.Business{
		ID:             "1",
		Name:           "Acme Bakery",
		Phone:          "+15550100",
		HasDiscount:    true,
		DiscountAmount: "10%",
		CallStatus:     api.CallCompleted,
	}
	boltHardware = api.Business{ID: "2", Name: "Bolt Hardware", Phone: "+15550101"}
)

func TestBusinessesListRendersTable(t *testing.T) {
	env := setupCLITestEnv(t, acmeBakery, boltHardware)

	out, err := env.run(t, "", "businesses", "list")
	if err != nil {
		t.Fatalf("businesses list: %v", err)
	}
	requireContains(t, out, "Acme Bakery")
	requireContains(t, out, "Bolt Hardware")
	requireContains(t, out, "Completed")
	requireContains(t, out, "10%")
	requireContains(t, out, "never")
}

func TestBusinessesListJSON(t *testing.T) {
	env := setupCLITestEnv(t, acmeBakery, boltHardware)

	out, err := env.run(t, "", "businesses", "list", "--json")
	if err != nil {
		t.Fatalf("businesses list --json: %v", err)
	}
	var got []api.Business
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Fatalf("unexpected businesses %+v", got)
	}
}

func TestBusinessesListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "businesses", "list")
	if err != nil {
		t.Fatalf("businesses list: %v", err)
	}
	requireContains(t, out, "No businesses loaded")

	out, err = env.run(t, "", "businesses", "list", "--json")
	if err != nil {
		t.Fatalf("businesses list --json: %v", err)
	}
	requireContains(t, out, "[]")
}

func TestBusinessesListFallsBackToCache(t *testing.T) {
	env := setupCLITestEnv(t, acmeBakery)

	if _, err := env.run(t, "", "businesses", "list"); err != nil {
		t.Fatalf("businesses list: %v", err)
	}
	env.backend.Fail("/api/businesses", http.StatusInternalServerError, "")

	_, err := env.run(t, "", "businesses", "list")
	if err == nil || err.Error() != "Failed to load businesses" {
		t.Fatalf("expected fetch failure, got %v", err)
	}

	out, err := env.run(t, "", "businesses", "list", "--cached")
	if err != nil {
		t.Fatalf("businesses list --cached: %v", err)
	}
	requireContains(t, out, "Acme Bakery")
}

func TestBaseURLFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t, acmeBakery)
	other := testsupport.NewFakeBackend(t, boltHardware)

	out, err := env.run(t, "", "--base-url", other.URL()+"/", "businesses", "list")
	if err != nil {
		t.Fatalf("businesses list: %v", err)
	}
	requireContains(t, out, "Bolt Hardware")
	requireNotContains(t, out, "Acme Bakery")
}
