package scoring

import (
	"testing"
	"time"

	"github.com/opensar/rescue/core/model"
)

func victim(id string, injury model.InjuryLevel, survival float64, detected time.Time) model.Victim {
	return model.Victim{
		ID:                 id,
		InjuryLevel:        injury,
		SurvivalLikelihood: survival,
		DetectedAt:         detected,
	}
}

func TestScoreBase(t *testing.T) {
	now := time.Now()
	v := victim("v1", model.InjuryNone, 0.8, now)
	if got := Score(v, now); got != 80 {
		t.Fatalf("Score = %v, want 80", got)
	}
}

func TestScoreInjuryMultipliers(t *testing.T) {
	now := time.Now()
	cases := []struct {
		injury model.InjuryLevel
		want   float64
	}{
		{model.InjuryNone, 50},
		{model.InjuryMinor, 55},
		{model.InjurySevere, 65},
		{model.InjuryUnconscious, 75},
	}
	for _, c := range cases {
		v := victim("v", c.injury, 0.5, now)
		if got := Score(v, now); got != c.want {
			t.Errorf("injury %v: score = %v, want %v", c.injury, got, c.want)
		}
	}
}

func TestScoreMonotoneInElapsedTime(t *testing.T) {
	detected := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v := victim("v1", model.InjurySevere, 0.6, detected)
	prev := Score(v, detected)
	for h := 1; h <= 48; h++ {
		cur := Score(v, detected.Add(time.Duration(h)*time.Hour))
		if cur < prev {
			t.Fatalf("score decreased at +%dh: %v -> %v", h, prev, cur)
		}
		prev = cur
	}
}

func TestScoreUrgencyDoublesAfter24h(t *testing.T) {
	detected := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v := victim("v1", model.InjuryNone, 1, detected)
	base := Score(v, detected)
	later := Score(v, detected.Add(24*time.Hour))
	if later != 2*base {
		t.Fatalf("score after 24h = %v, want %v", later, 2*base)
	}
}

func TestRankOrderAndTieBreaks(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	older := now.Add(-2 * time.Hour)
	vs := []model.Victim{
		victim("b", model.InjuryMinor, 0.5, now),
		victim("a", model.InjuryMinor, 0.5, now),
		victim("c", model.InjuryUnconscious, 0.5, now),
		victim("d", model.InjuryMinor, 0.5, older),
	}
	Rank(vs, now)

	if vs[0].ID != "c" {
		t.Fatalf("expected unconscious victim first, got %s", vs[0].ID)
	}
	if vs[1].ID != "d" {
		// Same survival and injury as a/b, but two extra hours of urgency.
		t.Fatalf("expected oldest minor victim second, got %s", vs[1].ID)
	}
	if vs[2].ID != "a" || vs[3].ID != "b" {
		t.Fatalf("id tie-break broken: got %s, %s", vs[2].ID, vs[3].ID)
	}
	for _, v := range vs {
		if v.PriorityScore == 0 {
			t.Fatalf("Rank did not populate PriorityScore for %s", v.ID)
		}
	}
}
