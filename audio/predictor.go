// Package audio implements the Taylor finite-difference predictor,
// quantized residual coding with closed-loop rate control, and the .g7a
// container framing for multi-channel 16-bit PCM.
package audio

// MaxDegree is the highest predictor degree this codec supports (spec.md
// §4.3: predictor_degree is a 3-bit field, 0..7).
const MaxDegree = 7

// binomial returns C(n, i), the binomial coefficient, for the small n (<=8)
// this predictor ever uses.
func binomial(n, i int) int64 {
	if i < 0 || i > n {
		return 0
	}
	result := int64(1)
	for k := 0; k < i; k++ {
		result = result * int64(n-k) / int64(k+1)
	}
	return result
}

// predictorTable caches, per degree, the integer coefficients applied to
// s[-1], s[-1-C], ..., s[-1-d*C] (same-channel causal lookback, stride C).
//
// spec.md §4.3 writes the predictor as a Taylor expansion of s[-1] whose
// n-th derivative is estimated by the n-th backward finite difference
// ∇^n s[-1] = Σ_{i=0..n} (-1)^i C(n,i) s[-1-i*C], summed with weight 1/n!.
// Truncating a Taylor series that way does not reconstruct a degree-d
// polynomial exactly at degree d (direct expansion shows an off-by-one
// error for the d=2 case), which would violate the exact-reconstruction
// scenario spec.md §8 demands for samples=x^2, degree=2. The correct
// closed form is the one actually used by Newton's forward-difference
// extrapolation, which telescopes to:
//
//	predicted = sum_{n=0..d} (nabla^n s[-1])   (no 1/n! factor)
//	          = sum_{i=0..d} (-1)^i * C(d+1, i+1) * s[-1-i*C]
//
// (the forward-shift operator E satisfies E = (1-∇)^-1 = Σ ∇^n exactly, and
// truncating at n=d is exact whenever ∇^{d+1}=0, i.e. for degree-d
// polynomials). This is the form implemented below; it collapses to
// FLAC's fixed-predictor coefficient table for d=0..3 and generalizes it up
// to degree 7.
var predCoeffs = buildPredictorTable(MaxDegree)

func buildPredictorTable(maxDegree int) [][]int64 {
	coeffs := make([][]int64, maxDegree+1)
	for d := 0; d <= maxDegree; d++ {
		row := make([]int64, d+1)
		for i := 0; i <= d; i++ {
			sign := int64(1)
			if i%2 == 1 {
				sign = -1
			}
			row[i] = sign * binomial(d+1, i+1)
		}
		coeffs[d] = row
	}
	return coeffs
}

// Predict returns the predicted value of the next sample on a given channel,
// given the reconstructed samples seen so far on that channel (causal,
// strictly backward-looking), per spec.md §4.3.
//
// reconstructed is the full interleaved buffer of samples reconstructed so
// far; channels is the interleave stride; degree is the predictor order
// (0..MaxDegree). If fewer than degree+1 prior samples exist on this
// channel, the predictor falls back to the most recent available same-
// channel sample, or 0 if none exists.
func Predict(degree int, channels int, reconstructed []int32, channel int) int32 {
	if degree < 0 {
		degree = 0
	}
	if degree > MaxDegree {
		degree = MaxDegree
	}

	// Index of the most recent sample on this channel.
	last := -1
	for i := len(reconstructed) - 1; i >= 0; i-- {
		if i%channels == channel {
			last = i
			break
		}
	}
	if last < 0 {
		return 0
	}

	available := (last-channel)/channels + 1
	if available < degree+1 {
		// Not enough history for the requested degree: return the most
		// recent same-channel sample (degree-0 behaviour), per spec.md.
		return reconstructed[last]
	}

	coeffs := predCoeffs[degree]
	var acc int64
	for k := 0; k <= degree; k++ {
		idx := last - k*channels
		acc += coeffs[k] * int64(reconstructed[idx])
	}

	return clampInt16(acc)
}

func clampInt16(v int64) int32 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int32(v)
	}
}
