// ABOUTME: TDEE and daily target calculation from a biometric profile.
// ABOUTME: Mifflin-St Jeor BMR with activity factors and goal-based deltas.

package nutrition

import (
	"math"
	"time"
)

// Sex values accepted by the target calculator.
const (
	SexMale   = "male"
	SexFemale = "female"
)

// Goal values. Anything else is treated as maintenance.
const (
	GoalLose     = "LOSE"
	GoalMaintain = "MAINTAIN"
	GoalGain     = "GAIN"
)

// activityFactors maps an activity level to its TDEE multiplier.
// Unrecognized levels fall back to sedentary.
var activityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"very_active": 1.725,
}

// Profile is the biometric input for target calculation. All fields are
// required except CalorieDelta, which overrides the goal-based default.
type Profile struct {
	Sex           string
	BirthDate     time.Time
	HeightCm      float64
	WeightKg      float64
	ActivityLevel string
	Goal          string
	CalorieDelta  *float64
}

// Targets are the computed daily calorie and macro-gram targets.
type Targets struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Fat      int `json:"fat"`
	Carbs    int `json:"carbs"`
}

// AgeYears returns the whole calendar years between birth and now (UTC),
// decremented by one when the birthday has not yet been reached this year.
// Never negative.
func AgeYears(birth, now time.Time) int {
	birth, now = birth.UTC(), now.UTC()
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// CalculateTargets derives daily calorie and macro targets from a profile.
// Protein and fat are costed at 4 and 9 kcal/g; carbs absorb the remaining
// calories, floored at zero.
func CalculateTargets(p Profile, now time.Time) Targets {
	age := AgeYears(p.BirthDate, now)

	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(age)
	if p.Sex == SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}

	factor, ok := activityFactors[p.ActivityLevel]
	if !ok {
		factor = activityFactors["sedentary"]
	}
	tdee := bmr * factor

	var delta float64
	switch {
	case p.CalorieDelta != nil:
		delta = *p.CalorieDelta
	case p.Goal == GoalLose:
		delta = -400
	case p.Goal == GoalGain:
		delta = 250
	}

	calories := int(math.Round(tdee + delta))

	proteinPerKg := 1.6
	if p.Goal == GoalGain {
		proteinPerKg = 1.8
	}
	protein := int(math.Round(p.WeightKg * proteinPerKg))
	fat := int(math.Round(p.WeightKg * 0.8))

	carbs := int(math.Round(float64(calories-protein*4-fat*9) / 4))
	if carbs < 0 {
		carbs = 0
	}

	return Targets{Calories: calories, Protein: protein, Fat: fat, Carbs: carbs}
}
