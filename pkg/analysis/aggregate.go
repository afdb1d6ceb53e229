// Package analysis aggregates independent counting passes into one result.
// A single stochastic model call is noisy; averaging two independent calls
// with deterministic decoding reduces variance without a third call's
// latency.
package analysis

import (
	"fmt"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/types"
)

// DefaultPasses is how many independent counting passes one analysis issues.
const DefaultPasses = 2

// Aggregate averages the per-field counts across passes, rounding half away
// from zero. Total is recomputed from the rounded parts, never copied from a
// pass, so Total == Positive + Negative always holds on the output.
func Aggregate(passes []types.RawCount) (types.CountResult, error) {
	if len(passes) == 0 {
		return types.CountResult{}, fmt.Errorf("no passes to aggregate")
	}

	var sumPos, sumNeg int
	for i, r := range passes {
		if r.Positive < 0 || r.Negative < 0 {
			return types.CountResult{}, fmt.Errorf("pass %d has a negative count", i+1)
		}
		sumPos += r.Positive
		sumNeg += r.Negative
	}

	n := len(passes)
	pos := roundedMean(sumPos, n)
	neg := roundedMean(sumNeg, n)
	return types.CountResult{
		Positive: pos,
		Negative: neg,
		Total:    pos + neg,
	}, nil
}

// roundedMean returns round(sum/n) with the half case rounded up, for
// non-negative sums.
func roundedMean(sum, n int) int {
	return (2*sum + n) / (2 * n)
}
