package learning

import (
	"testing"
	"time"
)

func TestParseEarnedTimes(t *testing.T) {
	raw := []byte(`["2025-01-15T12:34:00Z", "2025-01-15T12:35:30.5Z"]`)

	got, err := parseEarnedTimes(raw)
	if err != nil {
		t.Fatalf("parseEarnedTimes() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	want := time.Date(2025, 1, 15, 12, 35, 30, 500_000_000, time.UTC)
	if !got[1].Equal(want) {
		t.Errorf("got[1] = %v, want %v", got[1], want)
	}
}

func TestParseEarnedTimesInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not an array", `{"a": 1}`},
		{"bad stamp", `["yesterday"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseEarnedTimes([]byte(tt.raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
