package main

import (
	"net/http"
	"testing"
)

func TestStatusReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "== Dialer ==")
	requireContains(t, out, env.backend.URL())
	requireContains(t, out, "Live updates:")
	requireContains(t, out, "Disabled")
	requireContains(t, out, "Backend:")
	requireNotContains(t, out, "[ERROR]")
}

func TestStatusFailsWhenBackendRejectsToken(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Fail("/api/businesses", http.StatusUnauthorized, "")

	out, err := env.run(t, "", "status")
	if err == nil {
		t.Fatal("expected status to fail")
	}
	requireContains(t, out, "[ERROR]")
}
