package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/23f3000163/healnest/internal/clock"
)

// BookedLookup reports the instants of a doctor's BOOKED appointments
// inside [from, to). Satisfied by the appointment repository.
type BookedLookup interface {
	BookedInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error)
}

// Service owns availability management and slot resolution. Resolution is
// recomputed on every call; there is no slot cache to drift from the
// appointment table.
type Service struct {
	store        Store
	booked       BookedLookup
	clock        clock.Clock
	slotDuration time.Duration
	horizonDays  int
}

func NewService(store Store, booked BookedLookup, clk clock.Clock, slotDuration time.Duration, horizonDays int) *Service {
	return &Service{
		store:        store,
		booked:       booked,
		clock:        clk,
		slotDuration: slotDuration,
		horizonDays:  horizonDays,
	}
}

// SetAvailability replaces the doctor's windows for the managed horizon
// starting at from, or today when from is zero. Overlapping or
// out-of-horizon windows are rejected before anything is written.
func (s *Service) SetAvailability(ctx context.Context, doctorID uuid.UUID, from time.Time, windows []Window) error {
	if from.IsZero() {
		from = s.clock.Now()
	}
	if err := ValidateWindows(from, s.horizonDays, windows); err != nil {
		return err
	}
	if err := s.store.ReplaceHorizon(ctx, doctorID, Day(from), s.horizonDays, windows); err != nil {
		return fmt.Errorf("replace availability horizon: %w", err)
	}
	return nil
}

// Availability returns the doctor's stored windows for the managed horizon
// starting today.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	from := Day(s.clock.Now())
	to := from.AddDate(0, 0, s.horizonDays)
	windows, err := s.store.WindowsInRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	return windows, nil
}

// OpenSlots resolves the bookable slot list for (doctor, date): generated
// slots annotated with a booked flag, with instants not strictly in the
// future dropped. A date with no windows yields an empty list, not an error.
func (s *Service) OpenSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	day := Day(date)

	windows, err := s.store.WindowsForDate(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	if len(windows) == 0 {
		return []Slot{}, nil
	}

	instants, err := GenerateSlots(windows, s.slotDuration)
	if err != nil {
		return nil, err
	}

	bookedAt, err := s.booked.BookedInstants(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load booked instants: %w", err)
	}
	taken := make(map[time.Time]bool, len(bookedAt))
	for _, t := range bookedAt {
		taken[t.UTC()] = true
	}

	now := s.clock.Now()
	slots := make([]Slot, 0, len(instants))
	for _, t := range instants {
		if !t.After(now) {
			continue
		}
		slots = append(slots, Slot{
			At:     t,
			Label:  SlotLabel(t),
			Booked: taken[t.UTC()],
		})
	}

	return slots, nil
}

// CoversInstant reports whether at lies on the doctor's generated slot grid
// for its date, i.e. some stored window covers [at, at+duration) and at is
// aligned to the grid. Used by the booking write path.
func (s *Service) CoversInstant(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	windows, err := s.store.WindowsForDate(ctx, doctorID, Day(at))
	if err != nil {
		return false, fmt.Errorf("load windows: %w", err)
	}
	if len(windows) == 0 {
		return false, nil
	}

	instants, err := GenerateSlots(windows, s.slotDuration)
	if err != nil {
		return false, err
	}
	for _, t := range instants {
		if t.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

// SlotDuration exposes the configured slot length.
func (s *Service) SlotDuration() time.Duration { return s.slotDuration }
