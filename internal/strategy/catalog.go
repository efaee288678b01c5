package strategy

// Catalog returns a fresh instance of every built-in evaluator in
// registration order. Output order of the pipeline follows this order.
func Catalog() []Evaluator {
	return []Evaluator{
		newMACDMomentum(),
		newRSI2Oversold(),
		newRSI2Overbought(),
		newBollingerFadeLower(),
		newBollingerFadeUpper(),
		newEMATrendAlignment(),
		newGoldenCross(),
		newDeathCross(),
		newRSIBullishDivergence(),
		newRSIBearishDivergence(),
		newRangeBreakout(),
		newRangeBreakdown(),
		newHammerReversal(),
		newShootingStarReversal(),
		newBullishEngulfing(),
		newBearishEngulfing(),
		newVolumeClimaxReversal(),
		newVWAPReclaim(),
		newVWAPRejection(),
		newMTFContinuation(),
		newSqueezeBreakout(),
		newADXDirectional(),
		newYearlyHighBreakout(),
		newMACDExit(),
		newRangeHold(),
	}
}

// IDs returns the ids of the built-in catalog in registration order.
func IDs() []string {
	cat := Catalog()
	ids := make([]string, len(cat))
	for i, e := range cat {
		ids[i] = e.ID()
	}
	return ids
}
