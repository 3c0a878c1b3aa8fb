package timewindow

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)

func TestResolveAt_BothAbsent(t *testing.T) {
	w, err := resolveAt(testNow, time.Time{}, time.Time{}, 3)
	if err != nil {
		t.Fatalf("resolveAt() error = %v", err)
	}

	if !w.Start.Equal(testNow) {
		t.Errorf("Start = %v, want %v", w.Start, testNow)
	}
	if want := testNow.Add(3 * 24 * time.Hour); !w.End.Equal(want) {
		t.Errorf("End = %v, want %v", w.End, want)
	}
}

func TestResolveAt_StartOnly(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	w, err := resolveAt(testNow, start, time.Time{}, 5)
	if err != nil {
		t.Fatalf("resolveAt() error = %v", err)
	}

	if !w.Start.Equal(start) {
		t.Errorf("Start = %v, want %v", w.Start, start)
	}
	if want := start.Add(5 * 24 * time.Hour); !w.End.Equal(want) {
		t.Errorf("End = %v, want %v", w.End, want)
	}
}

func TestResolveAt_BothPresent(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)

	w, err := resolveAt(testNow, start, end, 99)
	if err != nil {
		t.Fatalf("resolveAt() error = %v", err)
	}

	// intervalDays is ignored when both boundaries are explicit
	if !w.Start.Equal(start) || !w.End.Equal(end) {
		t.Errorf("Window = (%v, %v), want (%v, %v)", w.Start, w.End, start, end)
	}
}

func TestResolveAt_InvalidWindow(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{
			name:  "start after end",
			start: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "start equals end",
			start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveAt(testNow, tt.start, tt.end, 1)
			if !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("Expected ErrInvalidWindow, got %v", err)
			}
		})
	}
}

func TestResolve_UsesCurrentTime(t *testing.T) {
	before := time.Now()
	w, err := Resolve(time.Time{}, time.Time{}, 1)
	after := time.Now()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if w.Start.Before(before) || w.Start.After(after) {
		t.Errorf("Start = %v, want between %v and %v", w.Start, before, after)
	}
	if got := w.Duration(); got != 24*time.Hour {
		t.Errorf("Duration = %v, want 24h", got)
	}
}

func TestWindow_Params(t *testing.T) {
	w := Window{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	params := w.Params()

	if got := params.Get("start_date"); got != "2023-01-01T00:00:00Z" {
		t.Errorf("start_date = %q", got)
	}
	if got := params.Get("end_date"); got != "2023-01-02T00:00:00Z" {
		t.Errorf("end_date = %q", got)
	}
}
