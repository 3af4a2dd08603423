package physiology

import (
	"math"
	"time"
)

const (
	// CaffeinePerCoffee is the mg content of one nominal cup.
	CaffeinePerCoffee = 70

	// caffeineDegradationPerHour approximates a five hour half-life.
	caffeineDegradationPerHour = 0.12945
)

// CaffeineWindow is how far back intakes are considered.
const CaffeineWindow = 24 * time.Hour

// Intake is one caffeine ingestion event.
type Intake struct {
	Timestamp time.Time
	MG        int
}

// CaffeineMGToCups converts a blood content to whole nominal coffees.
func CaffeineMGToCups(mg float64) int {
	return int(mg / CaffeinePerCoffee)
}

// CaffeineInBody applies compound-interest decay over a chronological
// intake list and returns the mg in blood at now. A sentinel zero intake at
// now surfaces the decay since the last real intake.
func CaffeineInBody(now time.Time, intakes []Intake) float64 {
	if len(intakes) == 0 {
		return 0
	}

	lastIntakeTime := now.Add(-CaffeineWindow - time.Minute)
	mgBlood := 0.0

	all := make([]Intake, 0, len(intakes)+1)
	all = append(all, intakes...)
	all = append(all, Intake{Timestamp: now})

	for _, in := range all {
		hours := in.Timestamp.Sub(lastIntakeTime).Hours()
		mgBlood = math.Max(mgBlood*math.Pow(1-caffeineDegradationPerHour, hours), 0)
		lastIntakeTime = in.Timestamp
		mgBlood += float64(in.MG)
	}
	return mgBlood
}
