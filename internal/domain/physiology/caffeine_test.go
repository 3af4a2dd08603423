package physiology

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCaffeineEmpty(t *testing.T) {
	assert.Equal(t, 0.0, CaffeineInBody(testNow, nil))
}

func TestCaffeineIntakeAtNow(t *testing.T) {
	got := CaffeineInBody(testNow, []Intake{{Timestamp: testNow, MG: 70}})
	assert.InDelta(t, 70.0, got, 1e-9)
}

func TestCaffeineDecaysSinceIntake(t *testing.T) {
	got := CaffeineInBody(testNow, []Intake{{Timestamp: testNow.Add(-5 * time.Hour), MG: 70}})
	want := 70.0 * math.Pow(1-0.12945, 5)
	assert.InDelta(t, want, got, 1e-6)
	// roughly a half-life
	assert.InDelta(t, 35.0, got, 1.0)
}

func TestCaffeineOldIntakeNearlyGone(t *testing.T) {
	got := CaffeineInBody(testNow, []Intake{{Timestamp: testNow.Add(-23 * time.Hour), MG: 70}})
	assert.Less(t, got, 3.0)
	assert.Greater(t, got, 0.0)
}

func TestCaffeineCompounds(t *testing.T) {
	intakes := []Intake{
		{Timestamp: testNow.Add(-2 * time.Hour), MG: 70},
		{Timestamp: testNow.Add(-1 * time.Hour), MG: 70},
	}
	got := CaffeineInBody(testNow, intakes)
	step1 := 70.0 * math.Pow(1-0.12945, 1)
	step2 := (step1 + 70.0) * math.Pow(1-0.12945, 1)
	assert.InDelta(t, step2, got, 1e-6)
}

func TestCaffeineMGToCups(t *testing.T) {
	assert.Equal(t, 0, CaffeineMGToCups(69))
	assert.Equal(t, 1, CaffeineMGToCups(70))
	assert.Equal(t, 2, CaffeineMGToCups(150))
}
