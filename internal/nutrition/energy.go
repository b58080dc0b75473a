package nutrition

import (
	"fmt"
	"math"
	"strings"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

var activityFactors = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

type Profile struct {
	AgeYears      int
	Sex           Sex
	WeightKg      float64
	HeightCm      float64
	ActivityLevel ActivityLevel
}

// ActivityFactor returns the multiplier for level; unknown levels count as sedentary.
func ActivityFactor(level ActivityLevel) float64 {
	key := ActivityLevel(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(level))), "-", "_"))
	if f, ok := activityFactors[key]; ok {
		return f
	}
	return activityFactors[ActivitySedentary]
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(p Profile) (float64, error) {
	if err := validateProfile(p); err != nil {
		return 0, err
	}
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.AgeYears)
	if normalizeSex(p.Sex) == SexMale {
		return base + 5, nil
	}
	return base - 161, nil
}

func DailyEnergy(p Profile) (int, error) {
	bmr, err := BMR(p)
	if err != nil {
		return 0, err
	}
	return int(RoundCalories(bmr * ActivityFactor(p.ActivityLevel))), nil
}

func validateProfile(p Profile) error {
	if !isFinite(p.WeightKg) || p.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be > 0", ErrInvalidProfile)
	}
	if !isFinite(p.HeightCm) || p.HeightCm <= 0 {
		return fmt.Errorf("%w: height must be > 0", ErrInvalidProfile)
	}
	if p.AgeYears < 0 {
		return fmt.Errorf("%w: age must be >= 0", ErrInvalidProfile)
	}
	return nil
}

// normalizeSex maps anything other than male to the female formula.
func normalizeSex(s Sex) Sex {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "male", "m":
		return SexMale
	default:
		return SexFemale
	}
}

type MacroPercentages struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

var DefaultMacroPercentages = MacroPercentages{Protein: 25, Carbs: 50, Fat: 25}

func ValidateMacroPercentages(p MacroPercentages) error {
	for _, v := range []float64{p.Protein, p.Carbs, p.Fat} {
		if !isFinite(v) || v < 0 || v > 100 {
			return invalid("macro percentage", v, ErrOutOfRange)
		}
	}
	if sum := p.Protein + p.Carbs + p.Fat; math.Abs(sum-100) > 0.01 {
		return invalid("macro percentage total", sum, fmt.Errorf("%w: must equal 100", ErrOutOfRange))
	}
	return nil
}

// TargetsFromCalories splits a daily calorie target into macro grams.
func TargetsFromCalories(calories float64, p MacroPercentages) (Vector, error) {
	if !isFinite(calories) || calories < 0 {
		return Vector{}, invalid("calories", calories, ErrInvalidValue)
	}
	if err := ValidateMacroPercentages(p); err != nil {
		return Vector{}, err
	}
	return Vector{
		Calories: RoundCalories(calories),
		ProteinG: RoundGrams(calories * p.Protein / 100 / ProteinKcalPerGram),
		CarbsG:   RoundGrams(calories * p.Carbs / 100 / CarbKcalPerGram),
		FatG:     RoundGrams(calories * p.Fat / 100 / FatKcalPerGram),
		Unit:     UnitGram,
	}, nil
}
