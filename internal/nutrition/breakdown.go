package nutrition

import (
	"math"
	"strconv"
)

// Breakdown is the share of macro energy per macronutrient, in whole percents summing to 100.
type Breakdown struct {
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

func MacroBreakdown(v Vector) Breakdown {
	energies := []float64{
		math.Max(0, v.ProteinG) * ProteinKcalPerGram,
		math.Max(0, v.CarbsG) * CarbKcalPerGram,
		math.Max(0, v.FatG) * FatKcalPerGram,
	}
	total := energies[0] + energies[1] + energies[2]
	if !isFinite(total) || total <= 0 {
		return Breakdown{}
	}
	shares := make([]int, 3)
	sum := 0
	largest := 0
	for i, en := range energies {
		shares[i] = int(RoundCalories(en / total * 100))
		sum += shares[i]
		if energies[i] > energies[largest] {
			largest = i
		}
	}
	// absorb rounding remainder in the dominant macro
	shares[largest] += 100 - sum
	return Breakdown{Protein: shares[0], Carbs: shares[1], Fat: shares[2]}
}

type Balance struct {
	ProteinOK bool `json:"protein_ok"`
	CarbsOK   bool `json:"carbs_ok"`
	FatOK     bool `json:"fat_ok"`
}

func (b Balance) Balanced() bool {
	return b.ProteinOK && b.CarbsOK && b.FatOK
}

// CheckMacroBalance compares gram shares with the recommended ranges:
// protein 15-35%, carbs 35-65%, fat 10-40%.
func CheckMacroBalance(v Vector) Balance {
	total := v.ProteinG + v.CarbsG + v.FatG
	if !isFinite(total) || total <= 0 {
		return Balance{}
	}
	within := func(g, lo, hi float64) bool {
		p := g / total * 100
		return p >= lo && p <= hi
	}
	return Balance{
		ProteinOK: within(v.ProteinG, 15, 35),
		CarbsOK:   within(v.CarbsG, 35, 65),
		FatOK:     within(v.FatG, 10, 40),
	}
}

func FormatForUI(x float64, decimals int) string {
	if !isFinite(x) || x == 0 {
		return "0"
	}
	if x > 0 && x < 1 {
		return "< 1"
	}
	return strconv.FormatFloat(RoundHalfUp(x, int32(decimals)), 'f', -1, 64)
}
