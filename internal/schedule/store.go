package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMalformedWindow marks an internal-consistency fault: a stored or
	// submitted window with start >= end. Upstream validation should make
	// this unreachable.
	ErrMalformedWindow = errors.New("availability window has start >= end")

	// ErrOverlappingWindows is a validation error: two submitted windows
	// for the same doctor and date overlap.
	ErrOverlappingWindows = errors.New("availability windows overlap")

	// ErrOutsideHorizon is a validation error: a submitted window falls
	// outside the horizon being replaced.
	ErrOutsideHorizon = errors.New("availability window outside the managed horizon")
)

// Store persists availability windows. ReplaceHorizon is a full
// replacement: every stored window for the doctor inside
// [from, from+days) is deleted and the given set inserted, in one
// transaction.
type Store interface {
	ReplaceHorizon(ctx context.Context, doctorID uuid.UUID, from time.Time, days int, windows []Window) error
	WindowsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Window, error)
	WindowsInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Window, error)
}

// ValidateWindows is the write-time rejection rule at the store boundary:
// each window must have start < end, lie on a date inside [from, from+days),
// and windows on the same date must not overlap.
func ValidateWindows(from time.Time, days int, windows []Window) error {
	horizonStart := Day(from)
	horizonEnd := horizonStart.AddDate(0, 0, days)

	byDate := make(map[time.Time][]Window)
	for _, w := range windows {
		if !w.Start.Before(w.End) {
			return ErrMalformedWindow
		}
		d := Day(w.Date)
		if d.Before(horizonStart) || !d.Before(horizonEnd) {
			return ErrOutsideHorizon
		}
		byDate[d] = append(byDate[d], w)
	}

	for _, same := range byDate {
		for i := range same {
			for j := i + 1; j < len(same); j++ {
				if same[i].Start.Before(same[j].End) && same[j].Start.Before(same[i].End) {
					return ErrOverlappingWindows
				}
			}
		}
	}

	return nil
}
