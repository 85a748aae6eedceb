package schedule

import (
	"fmt"
	"sort"
	"time"
)

// GenerateSlots turns a doctor's windows for one date into the ordered set
// of bookable instants: starting at window start, stepping by d, keeping
// every t with t+d <= window end. Windows are processed independently and
// the result sorted ascending with duplicates removed.
func GenerateSlots(windows []Window, d time.Duration) ([]time.Time, error) {
	if d <= 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %s", d)
	}

	var out []time.Time
	for _, w := range windows {
		if !w.Start.Before(w.End) {
			return nil, fmt.Errorf("%w: doctor=%s date=%s", ErrMalformedWindow, w.DoctorID, w.Date.Format("2006-01-02"))
		}
		for t := w.Start; !t.Add(d).After(w.End); t = t.Add(d) {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	deduped := out[:0]
	for i, t := range out {
		if i == 0 || !t.Equal(out[i-1]) {
			deduped = append(deduped, t)
		}
	}

	return deduped, nil
}

// SlotLabel renders an instant the way the booking page shows it.
func SlotLabel(t time.Time) string {
	return t.Format("03:04 PM")
}
