package risk

import "math"

// Tau is the logistic scale of the threshold-crossing link: how far
// the latent mean must sit above the personal threshold before risk
// saturates.
const Tau = 0.12

// confidenceSlope controls how fast confidence decays with estimation
// variance: confidence = 1/(1 + slope*variance).
const confidenceSlope = 4.0

// Estimate is a point-in-time vulnerability projection.
type Estimate struct {
	Score      float64
	Confidence float64
}

// Project maps a latent state onto a bounded risk estimate. Score is
// the threshold-crossing probability: 0.5 exactly at the personal
// threshold, saturating toward 0 and 1 on either side. Confidence
// shrinks as estimation variance grows. Pure function.
func Project(mean, variance, threshold float64) Estimate {
	return Estimate{
		Score:      Sigmoid((mean - threshold) / Tau),
		Confidence: 1.0 / (1.0 + confidenceSlope*variance),
	}
}

// Sigmoid is the standard logistic function.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Logit is the inverse logistic, defined on (0, 1).
func Logit(p float64) float64 {
	return math.Log(p / (1.0 - p))
}
