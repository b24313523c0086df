package strategies

// GridV1Config is a fixed 2% grid.
func GridV1Config() GridConfig {
	return GridConfig{
		Name:      "grid-v1",
		BuySizes:  []float64{0.02},
		SellSizes: []float64{0.02},
		Quantity:  QuantityBaseline,
		Fees:      DefaultGridFees(),
	}
}

// GridV2Config escalates the step after repeated moves in one direction but
// crosses at most one level per decision.
func GridV2Config() GridConfig {
	return GridConfig{
		Name:      "grid-v2",
		BuySizes:  []float64{0.02, 0.03, 0.05},
		SellSizes: []float64{0.02, 0.03, 0.05},
		Quantity:  QuantityBaseline,
		Fees:      DefaultGridFees(),
	}
}

// GridV3Config escalates and walks every level a sharp move crossed,
// carrying untraded units in the ladder caches.
func GridV3Config() GridConfig {
	return GridConfig{
		Name:       "grid-v3",
		BuySizes:   []float64{0.02, 0.03, 0.05, 0.10},
		SellSizes:  []float64{0.02, 0.03, 0.05, 0.10},
		MultiLevel: true,
		Quantity:   QuantityBaseline,
		Fees:       DefaultGridFees(),
	}
}
