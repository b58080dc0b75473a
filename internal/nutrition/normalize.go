package nutrition

import (
	"fmt"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeAsRecorded Mode = "as_recorded"
	ModePer100G    Mode = "per_100g"
	ModePerServing Mode = "per_serving"
	ModeFull       Mode = "full"
)

const LabelInsufficientData = "insufficient data"

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "", "as_recorded", "recorded":
		return ModeAsRecorded, nil
	case "per_100g", "100g":
		return ModePer100G, nil
	case "per_serving", "serving":
		return ModePerServing, nil
	case "full", "target":
		return ModeFull, nil
	default:
		return "", fmt.Errorf("unsupported display mode %q", s)
	}
}

type NormalizeRequest struct {
	Raw          *Vector
	Weight       float64
	Mode         Mode
	ServingSize  float64
	TargetWeight float64
}

// Normalized is a vector expressed in a display frame. Weight is the frame's
// weight, so feeding Vector and Weight back with the same Mode is a no-op.
type Normalized struct {
	Vector  Vector  `json:"vector"`
	Label   string  `json:"label"`
	Factor  float64 `json:"factor"`
	Weight  float64 `json:"weight_g"`
	Mode    Mode    `json:"mode"`
	Warning string  `json:"warning,omitempty"`
}

// Normalize never fails: bad input renders as a zero vector labelled "insufficient data".
func (e *Engine) Normalize(req NormalizeRequest) Normalized {
	if req.Raw == nil || !e.IsValidWeight(req.Weight) || e.checkValues(*req.Raw) != nil {
		z := Zero()
		z.Unit = e.cfg.DefaultUnit
		return Normalized{Vector: z, Label: LabelInsufficientData, Mode: req.Mode}
	}
	raw := *req.Raw
	switch req.Mode {
	case ModePer100G:
		return e.normalizeTo(raw, req.Weight, e.cfg.ReferenceWeightG, ModePer100G, "Per "+formatGrams(e.cfg.ReferenceWeightG)+"g")
	case ModePerServing:
		if !e.IsValidWeight(req.ServingSize) {
			warning := "serving size missing or invalid, showing values as recorded"
			e.log.Warn("per-serving normalization fell back", "serving_size", req.ServingSize)
			out := e.normalizeTo(raw, req.Weight, req.Weight, ModeAsRecorded, "For "+formatGrams(req.Weight)+"g")
			out.Warning = warning
			return out
		}
		return e.normalizeTo(raw, req.Weight, req.ServingSize, ModePerServing, "Per "+formatGrams(req.ServingSize)+"g")
	case ModeFull:
		target := req.Weight
		if e.IsValidWeight(req.TargetWeight) {
			target = req.TargetWeight
		}
		return e.normalizeTo(raw, req.Weight, target, ModeFull, "For "+formatGrams(target)+"g")
	default:
		return e.normalizeTo(raw, req.Weight, req.Weight, ModeAsRecorded, "For "+formatGrams(req.Weight)+"g")
	}
}

func (e *Engine) normalizeTo(raw Vector, from, to float64, mode Mode, label string) Normalized {
	factor := 1.0
	if from != to {
		factor = to / from
	}
	v := raw.Mul(factor).Round()
	v.Unit = raw.unitOr(e.cfg.DefaultUnit)
	return Normalized{Vector: v, Label: label, Factor: factor, Weight: to, Mode: mode}
}

func (e *Engine) checkValues(v Vector) error {
	for _, x := range v.fields() {
		if !e.IsValidValue(x) {
			return invalid("value", x, ErrInvalidValue)
		}
	}
	return nil
}

func formatGrams(g float64) string {
	return strconv.FormatFloat(RoundGrams(g), 'f', -1, 64)
}
