package lifecycle

import (
	"errors"
	"testing"
	"time"
)

func TestComputeDeadlinePresets(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		mode DeadlineMode
		want time.Duration
	}{
		{Deadline24h, 24 * time.Hour},
		{Deadline48h, 48 * time.Hour},
		{Deadline1w, 168 * time.Hour},
	}

	for _, tt := range tests {
		got, err := ComputeDeadline(tt.mode, "", now)
		if err != nil {
			t.Fatalf("ComputeDeadline(%s) failed: %v", tt.mode, err)
		}
		if got.Sub(now) != tt.want {
			t.Errorf("ComputeDeadline(%s) = now+%v, want now+%v", tt.mode, got.Sub(now), tt.want)
		}
	}
}

func TestComputeDeadlineCustom(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	for _, input := range []string{"2026-03-20 12:00", "2026-03-20T12:00", "2026-03-20T12:00:00Z"} {
		got, err := ComputeDeadline(DeadlineCustom, input, now)
		if err != nil {
			t.Fatalf("ComputeDeadline(custom, %q) failed: %v", input, err)
		}
		want := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("ComputeDeadline(custom, %q) = %v, want %v", input, got, want)
		}
	}
}

func TestComputeDeadlineRejectsPastAndNow(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	for _, input := range []string{"2026-03-14 18:30", "2026-03-14 18:29", "2025-01-01 00:00"} {
		if _, err := ComputeDeadline(DeadlineCustom, input, now); !errors.Is(err, ErrDeadlineInPast) {
			t.Errorf("ComputeDeadline(custom, %q) = %v, want ErrDeadlineInPast", input, err)
		}
	}
}

func TestComputeDeadlineRejectsMalformed(t *testing.T) {
	now := time.Now()

	for _, input := range []string{"", "tomorrow", "2026-13-45 99:99", "20/03/2026"} {
		if _, err := ComputeDeadline(DeadlineCustom, input, now); !errors.Is(err, ErrInvalidDeadline) {
			t.Errorf("ComputeDeadline(custom, %q) = %v, want ErrInvalidDeadline", input, err)
		}
	}

	if _, err := ComputeDeadline("2d", "", now); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}
