package risk

import (
	"math"
	"testing"
)

func TestProject_HalfAtThreshold(t *testing.T) {
	est := Project(0.5, 0.1, 0.5)
	if math.Abs(est.Score-0.5) > 1e-12 {
		t.Errorf("Score at threshold should be exactly 0.5, got %v", est.Score)
	}
}

func TestProject_ScoreBoundedAndMonotone(t *testing.T) {
	threshold := 0.5
	prev := -1.0
	for mean := 0.0; mean <= 1.0; mean += 0.05 {
		est := Project(mean, 0.2, threshold)
		if est.Score < 0 || est.Score > 1 {
			t.Fatalf("Score out of [0,1] at mean %.2f: %v", mean, est.Score)
		}
		if est.Score < prev {
			t.Fatalf("Score decreased at mean %.2f: %v < %v", mean, est.Score, prev)
		}
		prev = est.Score
	}
}

func TestProject_SaturatesFarFromThreshold(t *testing.T) {
	low := Project(0.0, 0.1, 1.0)
	if low.Score > 0.01 {
		t.Errorf("Far below threshold should be near 0, got %v", low.Score)
	}
	high := Project(1.0, 0.1, 0.0)
	if high.Score < 0.99 {
		t.Errorf("Far above threshold should be near 1, got %v", high.Score)
	}
}

func TestProject_ConfidenceShrinksWithVariance(t *testing.T) {
	tight := Project(0.5, 0.01, 0.5)
	loose := Project(0.5, 0.5, 0.5)
	if tight.Confidence <= loose.Confidence {
		t.Errorf("Confidence should shrink with variance: tight %v, loose %v",
			tight.Confidence, loose.Confidence)
	}
	if loose.Confidence <= 0 || tight.Confidence > 1 {
		t.Errorf("Confidence out of (0,1]: tight %v, loose %v", tight.Confidence, loose.Confidence)
	}
}

func TestLogitInvertsSigmoid(t *testing.T) {
	for _, x := range []float64{-3, -0.5, 0, 0.5, 3} {
		back := Logit(Sigmoid(x))
		if math.Abs(back-x) > 1e-9 {
			t.Errorf("Logit(Sigmoid(%.2f)) = %.6f", x, back)
		}
	}
}
