package nutrition

import (
	"fmt"
	"strings"
)

type unitKind string

const (
	unitKindMass   unitKind = "mass"
	unitKindVolume unitKind = "volume"
)

type unitDef struct {
	kind       unitKind
	toBaseUnit float64
}

var unitTable = map[string]unitDef{
	// mass (base = g)
	"mg":    {kind: unitKindMass, toBaseUnit: 0.001},
	"g":     {kind: unitKindMass, toBaseUnit: 1},
	"gram":  {kind: unitKindMass, toBaseUnit: 1},
	"grams": {kind: unitKindMass, toBaseUnit: 1},
	"kg":    {kind: unitKindMass, toBaseUnit: 1000},
	"oz":    {kind: unitKindMass, toBaseUnit: 28.349523125},
	"lb":    {kind: unitKindMass, toBaseUnit: 453.59237},
	"lbs":   {kind: unitKindMass, toBaseUnit: 453.59237},

	// volume (base = ml)
	"ml":    {kind: unitKindVolume, toBaseUnit: 1},
	"l":     {kind: unitKindVolume, toBaseUnit: 1000},
	"tsp":   {kind: unitKindVolume, toBaseUnit: 4.92892159375},
	"tbsp":  {kind: unitKindVolume, toBaseUnit: 14.78676478125},
	"cup":   {kind: unitKindVolume, toBaseUnit: 236.5882365},
	"fl-oz": {kind: unitKindVolume, toBaseUnit: 29.5735295625},
}

// ToGrams converts amount in unit to grams. Volumes use densityGML; a
// non-positive density falls back to the engine default.
func (e *Engine) ToGrams(amount float64, unit string, densityGML float64) (float64, error) {
	if !isFinite(amount) || amount <= 0 {
		return 0, invalid("amount", amount, ErrInvalidValue)
	}
	def, ok := resolveUnit(unit)
	if !ok {
		return 0, fmt.Errorf("unsupported unit %q", unit)
	}
	if def.kind == unitKindMass {
		return amount * def.toBaseUnit, nil
	}
	if densityGML <= 0 {
		densityGML = e.cfg.DensityGML
	}
	return amount * def.toBaseUnit * densityGML, nil
}

func resolveUnit(unit string) (unitDef, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		u = "g"
	}
	def, ok := unitTable[u]
	return def, ok
}
