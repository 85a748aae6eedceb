package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(date string, start, end string) Window {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	s, err := time.Parse("2006-01-02 15:04", date+" "+start)
	if err != nil {
		panic(err)
	}
	e, err := time.Parse("2006-01-02 15:04", date+" "+end)
	if err != nil {
		panic(err)
	}
	return Window{ID: uuid.New(), DoctorID: uuid.New(), Date: d, Start: s, End: e}
}

func TestGenerateSlots(t *testing.T) {
	tests := []struct {
		name    string
		windows []Window
		d       time.Duration
		want    []string
	}{
		{
			name:    "one hour window with half hour slots",
			windows: []Window{window("2025-06-01", "08:00", "09:00")},
			d:       30 * time.Minute,
			want:    []string{"08:00", "08:30"},
		},
		{
			name:    "exact fit keeps last start",
			windows: []Window{window("2025-06-01", "08:00", "08:30")},
			d:       30 * time.Minute,
			want:    []string{"08:00"},
		},
		{
			name:    "trailing sliver shorter than a slot dropped",
			windows: []Window{window("2025-06-01", "08:00", "08:50")},
			d:       30 * time.Minute,
			want:    []string{"08:00"},
		},
		{
			name:    "window shorter than a slot yields nothing",
			windows: []Window{window("2025-06-01", "08:00", "08:20")},
			d:       30 * time.Minute,
			want:    nil,
		},
		{
			name: "windows sorted and merged",
			windows: []Window{
				window("2025-06-01", "16:00", "17:00"),
				window("2025-06-01", "08:00", "09:00"),
			},
			d:    30 * time.Minute,
			want: []string{"08:00", "08:30", "16:00", "16:30"},
		},
		{
			name: "duplicate instants collapse",
			windows: []Window{
				window("2025-06-01", "08:00", "09:00"),
				window("2025-06-01", "08:00", "08:30"),
			},
			d:    30 * time.Minute,
			want: []string{"08:00", "08:30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSlots(tt.windows, tt.d)
			require.NoError(t, err)

			var labels []string
			for _, s := range got {
				labels = append(labels, s.Format("15:04"))
			}
			assert.Equal(t, tt.want, labels)
		})
	}
}

func TestGenerateSlotsRejectsBadInput(t *testing.T) {
	_, err := GenerateSlots([]Window{window("2025-06-01", "08:00", "09:00")}, 0)
	assert.Error(t, err)

	_, err = GenerateSlots([]Window{window("2025-06-01", "09:00", "08:00")}, 30*time.Minute)
	assert.ErrorIs(t, err, ErrMalformedWindow)
}

func TestSlotLabel(t *testing.T) {
	at := time.Date(2025, 6, 1, 16, 30, 0, 0, time.UTC)
	assert.Equal(t, "04:30 PM", SlotLabel(at))

	at = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "08:00 AM", SlotLabel(at))
}

func TestValidateWindows(t *testing.T) {
	from := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("clean set accepted", func(t *testing.T) {
		err := ValidateWindows(from, 7, []Window{
			window("2025-06-01", "08:00", "12:00"),
			window("2025-06-01", "16:00", "21:00"),
			window("2025-06-07", "08:00", "12:00"),
		})
		assert.NoError(t, err)
	})

	t.Run("start not before end rejected", func(t *testing.T) {
		err := ValidateWindows(from, 7, []Window{window("2025-06-02", "12:00", "12:00")})
		assert.ErrorIs(t, err, ErrMalformedWindow)
	})

	t.Run("overlap on same date rejected", func(t *testing.T) {
		err := ValidateWindows(from, 7, []Window{
			window("2025-06-02", "08:00", "12:00"),
			window("2025-06-02", "11:30", "14:00"),
		})
		assert.ErrorIs(t, err, ErrOverlappingWindows)
	})

	t.Run("touching windows are not an overlap", func(t *testing.T) {
		err := ValidateWindows(from, 7, []Window{
			window("2025-06-02", "08:00", "12:00"),
			window("2025-06-02", "12:00", "14:00"),
		})
		assert.NoError(t, err)
	})

	t.Run("date past the horizon rejected", func(t *testing.T) {
		err := ValidateWindows(from, 7, []Window{window("2025-06-08", "08:00", "12:00")})
		assert.ErrorIs(t, err, ErrOutsideHorizon)
	})

	t.Run("date before the horizon rejected", func(t *testing.T) {
		err := ValidateWindows(from, 7, []Window{window("2025-05-31", "08:00", "12:00")})
		assert.ErrorIs(t, err, ErrOutsideHorizon)
	})
}

func TestDay(t *testing.T) {
	at := time.Date(2025, 6, 1, 23, 45, 12, 999, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Day(at))
}
