package dispatch

import "math"

// Call-out baselines in whole euros. Kept deliberately coarse: the number is
// an indication for the customer, the office quotes the real price.
var categoryBasePrices = map[string]int{
	CategoryLeakRepair:    95,
	CategoryDrainUnclog:   120,
	CategoryBoilerService: 140,
	CategoryToiletRepair:  90,
	CategoryFaucetInstall: 85,
	CategoryPipeBurst:     180,
	CategoryWaterHeater:   150,
	CategoryGeneral:       75,
}

// Tier surcharges. Emergency call-outs carry a 30% premium, high urgency 15%.
var tierMultipliers = map[Tier]float64{
	TierLow:       1.0,
	TierNormal:    1.0,
	TierHigh:      1.15,
	TierEmergency: 1.30,
}

// EstimateCost computes the indicative price for a set of categories at a
// given urgency tier. The first category sets the baseline since categories
// are ordered by specificity, then the tier multiplier applies, rounded to
// a whole euro.
func EstimateCost(categories []string, tier Tier) int {
	base := categoryBasePrices[CategoryGeneral]
	if len(categories) > 0 {
		if price, ok := categoryBasePrices[categories[0]]; ok {
			base = price
		}
	}
	multiplier, ok := tierMultipliers[tier]
	if !ok {
		multiplier = 1.0
	}
	return int(math.Round(float64(base) * multiplier))
}
