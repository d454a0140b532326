package request

import (
	"testing"

	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

func TestLimits_TopK(t *testing.T) {
	var l Limits
	tests := []struct {
		in, want int
	}{
		{0, DefaultTopK},
		{-3, DefaultTopK},
		{5, 5},
		{MaxTopK, MaxTopK},
		{MaxTopK + 1, MaxTopK},
	}
	for _, tc := range tests {
		if got := l.TopK(tc.in); got != tc.want {
			t.Errorf("TopK(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}

	custom := Limits{DefaultTopK: 3, MaxTopK: 20}
	if got := custom.TopK(0); got != 3 {
		t.Errorf("custom default = %d, want 3", got)
	}
	if got := custom.TopK(50); got != 20 {
		t.Errorf("custom cap = %d, want 20", got)
	}
}

func TestScope(t *testing.T) {
	tests := []struct {
		raw   string
		paper bool
		note  bool
	}{
		{"", true, true},
		{"all", true, true},
		{"paper", true, false},
		{"note", false, true},
		{"mentor", false, false},
	}
	for _, tc := range tests {
		s := ParseScope(tc.raw)
		if s.Includes(entity.Paper) != tc.paper || s.Includes(entity.Note) != tc.note {
			t.Errorf("scope %q: paper=%v note=%v", tc.raw, s.Includes(entity.Paper), s.Includes(entity.Note))
		}
		if s.Includes(entity.Mentor) {
			t.Errorf("scope %q must never include mentors", tc.raw)
		}
	}
}
