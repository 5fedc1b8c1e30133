// Package scoring computes dispatch priorities for victims. The score fuses
// the external survival estimate with injury severity and elapsed time since
// detection, so that delay disproportionately raises the urgency of patients
// who are already critical.
package scoring

import (
	"sort"
	"time"

	"github.com/opensar/rescue/core/model"
)

// injuryMultiplier weights the base score by reported severity.
func injuryMultiplier(l model.InjuryLevel) float64 {
	switch l {
	case model.InjuryUnconscious:
		return 1.5
	case model.InjurySevere:
		return 1.3
	case model.InjuryMinor:
		return 1.1
	default:
		return 1.0
	}
}

// Score returns the priority for v at the given time. It is strictly
// non-decreasing in elapsed time for a fixed victim.
func Score(v model.Victim, now time.Time) float64 {
	base := v.SurvivalLikelihood * 100
	elapsed := now.Sub(v.DetectedAt).Hours()
	if elapsed < 0 {
		elapsed = 0
	}
	urgency := 1 + elapsed/24
	return base * injuryMultiplier(v.InjuryLevel) * urgency
}

// Rank scores every victim in place and sorts the slice by priority
// descending. Ties break by DetectedAt ascending then ID ascending so that
// planning output is deterministic for a fixed snapshot.
func Rank(victims []model.Victim, now time.Time) {
	for i := range victims {
		victims[i].PriorityScore = Score(victims[i], now)
	}
	sort.SliceStable(victims, func(i, j int) bool {
		a, b := victims[i], victims[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.DetectedAt.Equal(b.DetectedAt) {
			return a.DetectedAt.Before(b.DetectedAt)
		}
		return a.ID < b.ID
	})
}
