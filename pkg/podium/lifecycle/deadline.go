package lifecycle

import (
	"errors"
	"strings"
	"time"
)

// DeadlineMode selects how the end of a voting window is computed
type DeadlineMode string

const (
	Deadline24h    DeadlineMode = "24h"
	Deadline48h    DeadlineMode = "48h"
	Deadline1w     DeadlineMode = "1w"
	DeadlineCustom DeadlineMode = "custom"
)

var (
	ErrInvalidDeadline = errors.New("invalid date format, use YYYY-MM-DD HH:MM")
	ErrDeadlineInPast  = errors.New("voting deadline must be in the future")
	ErrUnknownMode     = errors.New("unknown deadline mode")
)

var presetDurations = map[DeadlineMode]time.Duration{
	Deadline24h: 24 * time.Hour,
	Deadline48h: 48 * time.Hour,
	Deadline1w:  7 * 24 * time.Hour,
}

var customLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ComputeDeadline returns the end of a voting window starting at now.
// Custom deadlines without a zone are read in now's location.
func ComputeDeadline(mode DeadlineMode, custom string, now time.Time) (time.Time, error) {
	if d, ok := presetDurations[mode]; ok {
		return now.Add(d), nil
	}
	if mode != DeadlineCustom {
		return time.Time{}, ErrUnknownMode
	}

	deadline, err := parseCustom(strings.TrimSpace(custom), now.Location())
	if err != nil {
		return time.Time{}, err
	}
	if !deadline.After(now) {
		return time.Time{}, ErrDeadlineInPast
	}
	return deadline, nil
}

func parseCustom(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrInvalidDeadline
	}
	for _, layout := range customLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDeadline
}
