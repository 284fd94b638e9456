package selection

import (
	"math"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/random"
)

// LogTriangular is a triangular distribution over ln(value), so that
// sampling it and exponentiating produces change-output values whose
// logarithm is triangularly distributed between ln(min) and ln(max)
// with the requested mean.
type LogTriangular struct {
	min, max float64
	a, b, m  float64 // ln(min), ln(max), mode in log space
}

// NewLogTriangular builds a log-triangular distribution over
// [min, max] with the given mean, by bisecting for the mode in log
// space that reproduces mean under exponentiation. It fails with
// impossible-mean if mean lies outside the interval [min, max] permit.
func NewLogTriangular(min, max, mean float64) (*LogTriangular, error) {
	if max < min {
		return nil, cosmoserr.New(cosmoserr.ImpossibleMean, "log-triangular distribution: max must not be less than min")
	}
	if mean > max || mean < min {
		return nil, cosmoserr.New(cosmoserr.ImpossibleMean, "log-triangular distribution: mean must lie within [min, max]")
	}

	a := math.Log(min)
	b := math.Log(max)
	ea, eb := min, max

	minMean := minLogTriMean(a, b, ea, eb)
	maxMean := maxLogTriMean(a, b, ea, eb)
	if mean < minMean {
		return nil, cosmoserr.New(cosmoserr.ImpossibleMean, "log-triangular distribution: mean is below the minimum value achievable for this range")
	}
	if mean > maxMean {
		return nil, cosmoserr.New(cosmoserr.ImpossibleMean, "log-triangular distribution: mean is above the maximum value achievable for this range")
	}

	m := findTriangleMode(a, b, mean, ea, eb)
	return &LogTriangular{min: min, max: max, a: a, b: b, m: m}, nil
}

// logTriMean computes the mean of exp(X) where X is triangular(a, m, b).
func logTriMean(a, b, m, ea, eb float64) float64 {
	em := math.Exp(m)
	left := (em*(a-m+1) - ea) / (a - m)
	right := (em*(m-b-1) + eb) / (b - m)
	return (left + right) * 2 / (b - a)
}

func minLogTriMean(a, b, ea, eb float64) float64 {
	return (ea*(a-b-1) + eb) * 2 / ((b - a) * (b - a))
}

func maxLogTriMean(a, b, ea, eb float64) float64 {
	return (eb*(a-b+1) - ea) * 2 / ((a - b) * (b - a))
}

// findTriangleMode bisects for the mode m in [a, b] whose log-triangular
// mean matches the target mean to within one unit, mirroring the
// original implementation's convergence tolerance.
func findTriangleMode(a, b, mean, ea, eb float64) float64 {
	min, max := a, b
	for iter := 0; iter < 200; iter++ {
		m := (max-min)/2 + min
		guess := logTriMean(a, b, m, ea, eb)
		if math.Max(mean-guess, guess-mean) <= 1 {
			return m
		}
		if guess > mean {
			max = m
		} else {
			min = m
		}
	}
	return (max-min)/2 + min
}

// Sample draws one value from the distribution via inverse-CDF
// sampling of the underlying log-space triangular distribution,
// clamped to [min, max] to absorb floating-point edge error.
func (d *LogTriangular) Sample(r random.Source) int64 {
	u := r.Range01()
	x := sampleTriangular(d.a, d.m, d.b, u)
	v := math.Exp(x)
	if v < d.min {
		v = d.min
	}
	if v > d.max {
		v = d.max
	}
	return int64(math.Round(v))
}

// sampleTriangular inverts the CDF of a triangular(a, c, b) distribution
// at u.
func sampleTriangular(a, c, b, u float64) float64 {
	if b == a {
		return a
	}
	fc := (c - a) / (b - a)
	if u < fc {
		return a + math.Sqrt(u*(b-a)*(c-a))
	}
	return b - math.Sqrt((1-u)*(b-a)*(b-c))
}

// ComposeChange draws successive change-output values from dist until
// the remaining budget would fall below minOutput, then merges the
// residual budget into the final output so no satoshi is lost.
// minOutput and budget are both in satoshis.
func ComposeChange(budget int64, dist *LogTriangular, minOutput int64, r random.Source) []int64 {
	if budget < minOutput {
		return nil
	}

	var outputs []int64
	remaining := budget
	for remaining >= minOutput {
		v := dist.Sample(r)
		if v > remaining {
			v = remaining
		}
		if remaining-v < minOutput && remaining-v > 0 {
			v = remaining
		}
		outputs = append(outputs, v)
		remaining -= v
	}

	if remaining > 0 && len(outputs) > 0 {
		outputs[len(outputs)-1] += remaining
	}
	return outputs
}
