package risk

// SevereSystolicBP is severe-range hypertension; a reading at or above it is
// always High regardless of the other readings.
const SevereSystolicBP = 160.0

// OverrideScore tallies threshold breaches in the live readings:
//
//	blood pressure  systolic >= 160 or diastolic >= 100: +2, else >= 140 or >= 90: +1
//	blood sugar     >= 140: +2, else >= 125: +1
//	hemoglobin      < 9: +2, else < 10.5: +1
func OverrideScore(p HealthParameters) int {
	score := 0
	switch {
	case p.SystolicBP >= SevereSystolicBP || p.DiastolicBP >= 100:
		score += 2
	case p.SystolicBP >= 140 || p.DiastolicBP >= 90:
		score++
	}
	switch {
	case p.BloodSugar >= 140:
		score += 2
	case p.BloodSugar >= 125:
		score++
	}
	switch {
	case p.Hemoglobin < 9:
		score += 2
	case p.Hemoglobin < 10.5:
		score++
	}
	return score
}

// ApplyOverride raises the classifier's level when the readings are
// dangerous. Severe systolic pressure or a score of 3 or more forces High, a
// score of 2 floors at Medium, and a score of 1 leaves the level untouched.
// The returned score is always the full OverrideScore.
//
// TODO: score == 1 floors at Normal, which never changes anything; confirm
// with clinical product whether it was meant to floor at Medium.
func ApplyOverride(p HealthParameters, predicted RiskLevel) (RiskLevel, int) {
	score := OverrideScore(p)
	switch {
	case score >= 3 || p.SystolicBP >= SevereSystolicBP:
		return High, score
	case score >= 2:
		return maxLevel(predicted, Medium), score
	case score >= 1:
		return maxLevel(predicted, Normal), score
	}
	return predicted, score
}
