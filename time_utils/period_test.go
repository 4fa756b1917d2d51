package timeutils

import (
	"testing"
	"time"
)

func TestContains(t *testing.T) {
	start := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	p := Period{Start: start, End: start.Add(time.Hour)}

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before", start.Add(-time.Second), false},
		{"start is inclusive", start, true},
		{"inside", start.Add(30 * time.Minute), true},
		{"end is exclusive", start.Add(time.Hour), false},
		{"after", start.Add(2 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Contains(tc.at); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestLastHours(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	p := LastHours(now, 24)

	if !p.End.Equal(now) {
		t.Errorf("End = %v, want %v", p.End, now)
	}
	if !p.Start.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("Start = %v", p.Start)
	}
	if p.Duration() != 24*time.Hour {
		t.Errorf("Duration = %v", p.Duration())
	}
}
