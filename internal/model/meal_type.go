package model

import "strings"

const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"

	DefaultMealType = MealTypeBreakfast
	DefaultCuisine  = "general"
)

var mealTypeAliases = map[string]string{
	"breakfast": MealTypeBreakfast,
	"lunch":     MealTypeLunch,
	"dinner":    MealTypeDinner,
	"snack":     MealTypeSnack,
	"snacks":    MealTypeSnack,
}

// NormalizeMealType maps s to a known meal type.
func NormalizeMealType(s string) (string, bool) {
	t, ok := mealTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

var weekDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func NormalizeDay(s string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(s))
	for _, w := range weekDays {
		if d == w || (len(d) == 3 && strings.HasPrefix(w, d)) {
			return w, true
		}
	}
	return "", false
}
