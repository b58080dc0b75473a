package nutrition

import "github.com/shopspring/decimal"

// RoundHalfUp rounds x to the given number of decimal places, halves away from zero.
// Non-finite values are returned unchanged.
func RoundHalfUp(x float64, places int32) float64 {
	if !isFinite(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

func RoundCalories(x float64) float64 {
	return RoundHalfUp(x, 0)
}

func RoundGrams(x float64) float64 {
	return RoundHalfUp(x, 1)
}

// Percent returns part/whole*100 to one decimal, computed in decimal so that
// exact halves such as 8.95 round up.
func Percent(part, whole float64) float64 {
	if !isFinite(part) || !isFinite(whole) || whole == 0 {
		return 0
	}
	d := decimal.NewFromFloat(part).Mul(decimal.NewFromInt(100)).DivRound(decimal.NewFromFloat(whole), 8)
	return d.Round(1).InexactFloat64()
}
