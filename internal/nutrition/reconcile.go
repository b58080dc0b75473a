package nutrition

// Reconcile re-expresses the summed raw-ingredient macros of a dish whose final
// (cooked or plated) weight differs from the raw total. The result describes
// totalIngredientWeight grams of the finished dish.
//
// A weight below the minimum yields the zero vector. If the reconciled vector
// fails the range checks the input is returned unchanged and a warning is logged.
func (e *Engine) Reconcile(summed Vector, totalIngredientWeight, finalWeight float64) Vector {
	if !e.IsValidWeight(totalIngredientWeight) || !e.IsValidWeight(finalWeight) {
		z := Zero()
		z.Unit = summed.unitOr(e.cfg.DefaultUnit)
		return z
	}
	factor, err := ratio(totalIngredientWeight, finalWeight)
	if err != nil {
		return summed
	}
	out := summed.Mul(factor).Round()
	if err := e.checkRange(out); err != nil {
		e.log.Warn("weight reconciliation skipped",
			"total_weight_g", totalIngredientWeight,
			"final_weight_g", finalWeight,
			"err", err,
		)
		return summed
	}
	return out
}
