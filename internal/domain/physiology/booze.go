// Package physiology computes the kiosk's blood-alcohol and caffeine
// figures from a member's recent purchase timeline. Both calculators are
// pure over their inputs.
package physiology

import (
	"math"
	"time"

	"stregsystem/internal/domain/member"
)

// bacDegradationPerHour is the linear elimination rate applied between
// drinking events.
const bacDegradationPerHour = 0.15

// BACWindow is how far back the sale timeline is considered.
const BACWindow = 12 * time.Hour

// Config holds the calculator settings. The weight is a deliberate
// simplification shared by all members; PromilleOffsets carries per-member
// adjustments keyed by member id.
type Config struct {
	WeightKg        float64
	PromilleOffsets map[int64]float64
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{WeightKg: 80}
}

// DrinkEvent is one alcohol intake on the timeline.
type DrinkEvent struct {
	Timestamp time.Time
	AlcoholML float64
}

func waterRatio(g member.Gender) float64 {
	switch g {
	case member.GenderMale:
		return 0.70
	case member.GenderFemale:
		return 0.60
	default:
		return 0.65
	}
}

func alcoholMLToGram(ml float64) float64 { return ml * 0.789 }

func bacIncrease(g member.Gender, weightKg, ml float64) float64 {
	return alcoholMLToGram(ml) / (waterRatio(g) * weightKg)
}

func bacDegradation(d time.Duration) float64 {
	return bacDegradationPerHour * d.Hours()
}

// BACTimeline walks a chronological drink timeline and returns the blood
// alcohol content at now. Between events the BAC degrades linearly and is
// floored at zero before the next intake is added.
func (c Config) BACTimeline(memberID int64, g member.Gender, now time.Time, timeline []DrinkEvent) float64 {
	if len(timeline) == 0 {
		return 0
	}

	current := 0.0
	var lastTime time.Time
	for i, ev := range timeline {
		if i > 0 {
			current -= bacDegradation(ev.Timestamp.Sub(lastTime))
		}
		lastTime = ev.Timestamp
		if current < 0 {
			current = 0
		}
		current += bacIncrease(g, c.WeightKg, ev.AlcoholML)
	}

	current -= bacDegradation(now.Sub(lastTime))
	if current < 0 {
		current = 0
	}
	return current + c.PromilleOffsets[memberID]
}

// Ballmer peak: 1.337 +/- 0.05.
const (
	ballmerPeakMean  = 1.337
	ballmerPeakLower = ballmerPeakMean - 0.05
	ballmerPeakUpper = ballmerPeakMean + 0.05
)

// BallmerPeak reports whether the BAC sits inside the peak band. When
// peaking, the countdown is the time until the BAC degrades below the band;
// when above the band, it is the time until the band is entered. Below the
// band the countdown is absent and remaining is false.
func BallmerPeak(bac float64) (peaking bool, minutes, seconds int, remaining bool) {
	toTime := func(delta float64) (int, int) {
		total := delta / bacDegradationPerHour * 3600
		return int(math.Floor(total / 60)), int(math.Mod(total, 60))
	}

	switch {
	case bac > ballmerPeakLower && bac < ballmerPeakUpper:
		m, s := toTime(bac - ballmerPeakLower)
		return true, m, s, true
	case bac >= ballmerPeakUpper:
		m, s := toTime(bac - ballmerPeakUpper)
		return false, m, s, true
	default:
		return false, 0, 0, false
	}
}
