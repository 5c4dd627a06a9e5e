package api_test

import (
	"encoding/json"
	"testing"
	"time"

	"dialer/internal/api"
)

func TestCallStatusLabel(t *testing.T) {
	tests := map[api.CallStatus]string{
		api.CallPending:   "Pending",
		api.CallCompleted: "Completed",
		"":                "-",
	}
	for status, want := range tests {
		if got := status.Label(); got != want {
			t.Errorf("Label(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestCallStatusValid(t *testing.T) {
	for _, s := range []api.CallStatus{"", api.CallPending, api.CallCalling, api.CallCompleted, api.CallFailed} {
		if !s.Valid() {
			t.Errorf("expected %q valid", s)
		}
	}
	if api.CallStatus("ringing").Valid() {
		t.Error("expected unknown status invalid")
	}
}

func TestBusinessDecodesOptionalFields(t *testing.T) {
	payload := `{"id":"42","name":"Acme","phone":"555","hasDiscount":true,"discountAmount":"10%","lastCalled":"2024-05-01T10:00:00Z","callStatus":"completed"}`
	var b api.Business
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.ID != "42" || b.CallStatus != api.CallCompleted || b.DiscountAmount != "10%" {
		t.Fatalf("unexpected business: %+v", b)
	}
	if b.LastCalled == nil || !b.LastCalled.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected lastCalled: %v", b.LastCalled)
	}
}

func TestAssetCreatedFallsBackToLastModified(t *testing.T) {
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := api.Asset{Key: "k", LastModified: modified}
	if !a.Created().Equal(modified) {
		t.Fatalf("Created() = %v, want %v", a.Created(), modified)
	}
	created := modified.Add(time.Hour)
	a.CreatedAt = created
	if !a.Created().Equal(created) {
		t.Fatalf("Created() = %v, want %v", a.Created(), created)
	}
}
