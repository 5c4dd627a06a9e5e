package live

import (
	"strings"
	"testing"
)

func TestReadEvents(t *testing.T) {
	input := strings.Join([]string{
		": comment",
		"data: one",
		"",
		"event: message",
		"data: line1",
		"data:line2",
		"",
		"event: ping",
		"data: {}",
		"",
		"id: 3",
		"retry: 1000",
		"",
		"data: trailing without blank line",
	}, "\r\n")

	var got []event
	if err := readEvents(strings.NewReader(input), func(ev event) { got = append(got, ev) }); err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	want := []event{
		{Data: "one"},
		{Type: "message", Data: "line1\nline2"},
		{Type: "ping", Data: "{}"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadEventsSkipsOversizedEvent(t *testing.T) {
	huge := strings.Repeat("x", maxEventBytes+10)
	split := strings.Repeat("y", maxEventBytes/2+10)
	input := strings.Join([]string{
		"data: " + huge,
		"",
		"data: " + split,
		"data: " + split,
		"",
		`data: {"id":"42"}`,
		"",
	}, "\n")

	var got []event
	if err := readEvents(strings.NewReader(input), func(ev event) { got = append(got, ev) }); err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if !got[0].Oversized || !got[1].Oversized {
		t.Fatalf("expected the first two events to be oversized: %v %v", got[0].Oversized, got[1].Oversized)
	}
	if got[2] != (event{Data: `{"id":"42"}`}) {
		t.Fatalf("event after oversized = %+v", got[2])
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		State(9):     "unknown",
	}
	for state, want := range cases {
		if state.String() != want {
			t.Fatalf("%d.String() = %q, want %q", state, state.String(), want)
		}
	}
}
