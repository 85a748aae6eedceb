package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/23f3000163/healnest/internal/clock"
)

type fakeStore struct {
	windows  []Window
	replaced []Window
	err      error
}

func (f *fakeStore) ReplaceHorizon(ctx context.Context, doctorID uuid.UUID, from time.Time, days int, windows []Window) error {
	if f.err != nil {
		return f.err
	}
	f.replaced = windows
	return nil
}

func (f *fakeStore) WindowsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Window, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Window
	for _, w := range f.windows {
		if Day(w.Date).Equal(Day(date)) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) WindowsInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Window, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.windows, nil
}

type fakeBooked struct {
	instants []time.Time
	err      error
}

func (f *fakeBooked) BookedInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	return f.instants, f.err
}

func newTestService(store *fakeStore, booked *fakeBooked, now time.Time) *Service {
	return NewService(store, booked, clock.Fixed{T: now}, 30*time.Minute, 7)
}

func TestOpenSlotsMarksBookedInstants(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	booked := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

	store := &fakeStore{windows: []Window{window("2025-06-01", "08:00", "09:30")}}
	svc := newTestService(store, &fakeBooked{instants: []time.Time{booked}}, now)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}

	for _, s := range slots {
		wantBooked := s.At.Equal(booked)
		if s.Booked != wantBooked {
			t.Fatalf("slot %s: booked=%v, want %v", s.At, s.Booked, wantBooked)
		}
	}
	if slots[1].Label != "08:30 AM" {
		t.Fatalf("expected label 08:30 AM, got %s", slots[1].Label)
	}
}

func TestOpenSlotsDropsPastInstants(t *testing.T) {
	// Midway through the morning window: 08:00 and 08:30 are gone.
	now := time.Date(2025, 6, 1, 8, 45, 0, 0, time.UTC)

	store := &fakeStore{windows: []Window{window("2025-06-01", "08:00", "10:00")}}
	svc := newTestService(store, &fakeBooked{}, now)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 future slots, got %d", len(slots))
	}
	if !slots[0].At.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].At)
	}
}

func TestOpenSlotsNoWindowsYieldsEmptyList(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	svc := newTestService(&fakeStore{}, &fakeBooked{}, now)

	slots, err := svc.OpenSlots(context.Background(), uuid.New(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil slot list, got %#v", slots)
	}
}

func TestOpenSlotsIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	store := &fakeStore{windows: []Window{window("2025-06-01", "08:00", "12:00")}}
	svc := newTestService(store, &fakeBooked{}, now)

	first, err := svc.OpenSlots(context.Background(), uuid.New(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.OpenSlots(context.Background(), uuid.New(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("slot count changed between reads: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].At.Equal(second[i].At) || first[i].Booked != second[i].Booked {
			t.Fatalf("slot %d changed between reads", i)
		}
	}
}

func TestCoversInstant(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	store := &fakeStore{windows: []Window{window("2025-06-01", "08:00", "09:00")}}
	svc := newTestService(store, &fakeBooked{}, now)

	onGrid := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	ok, err := svc.CoversInstant(context.Background(), uuid.New(), onGrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected %s to be on the grid", onGrid)
	}

	offGrid := time.Date(2025, 6, 1, 8, 15, 0, 0, time.UTC)
	ok, err = svc.CoversInstant(context.Background(), uuid.New(), offGrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected %s to be off the grid", offGrid)
	}

	// Last slot would overrun the window end.
	overrun := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ok, err = svc.CoversInstant(context.Background(), uuid.New(), overrun)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected %s to be off the grid", overrun)
	}
}

func TestSetAvailabilityRejectsBeforeWriting(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	svc := newTestService(store, &fakeBooked{}, now)

	err := svc.SetAvailability(context.Background(), uuid.New(), now, []Window{
		window("2025-06-02", "08:00", "12:00"),
		window("2025-06-02", "10:00", "14:00"),
	})
	if !errors.Is(err, ErrOverlappingWindows) {
		t.Fatalf("expected ErrOverlappingWindows, got %v", err)
	}
	if store.replaced != nil {
		t.Fatalf("store must not be written on validation failure")
	}
}

func TestSetAvailabilityZeroFromStartsToday(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	svc := newTestService(store, &fakeBooked{}, now)

	err := svc.SetAvailability(context.Background(), uuid.New(), time.Time{}, []Window{
		window("2025-06-07", "08:00", "12:00"),
	})
	if err != nil {
		t.Fatalf("window inside the clock-based horizon rejected: %v", err)
	}

	err = svc.SetAvailability(context.Background(), uuid.New(), time.Time{}, []Window{
		window("2025-06-08", "08:00", "12:00"),
	})
	if !errors.Is(err, ErrOutsideHorizon) {
		t.Fatalf("expected ErrOutsideHorizon past the clock-based horizon, got %v", err)
	}
}

func TestSetAvailabilityWritesValidSet(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	svc := newTestService(store, &fakeBooked{}, now)

	windows := []Window{
		window("2025-06-02", "08:00", "12:00"),
		window("2025-06-02", "16:00", "21:00"),
	}
	if err := svc.SetAvailability(context.Background(), uuid.New(), now, windows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.replaced) != 2 {
		t.Fatalf("expected 2 windows written, got %d", len(store.replaced))
	}
}
