package analysis

import (
	"testing"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/types"
)

func TestAggregateIdenticalPasses(t *testing.T) {
	x := types.RawCount{Positive: 7, Negative: 3, Total: 10}
	got, err := Aggregate([]types.RawCount{x, x})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if got.Positive != 7 || got.Negative != 3 || got.Total != 10 {
		t.Errorf("aggregate(X,X) = %+v, want X", got)
	}
}

func TestAggregateTwoPassScenario(t *testing.T) {
	r1 := types.RawCount{Positive: 10, Negative: 5, Total: 15}
	r2 := types.RawCount{Positive: 12, Negative: 7, Total: 19}

	got, err := Aggregate([]types.RawCount{r1, r2})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if got.Positive != 11 {
		t.Errorf("positive = %d, want 11", got.Positive)
	}
	if got.Negative != 6 {
		t.Errorf("negative = %d, want 6", got.Negative)
	}
	if got.Total != 17 {
		t.Errorf("total = %d, want 17", got.Total)
	}
}

func TestAggregateRoundsHalfUp(t *testing.T) {
	// 3 and 4 average to 3.5 and must round up to 4, not down to 3.
	got, err := Aggregate([]types.RawCount{
		{Positive: 3, Negative: 2, Total: 5},
		{Positive: 4, Negative: 3, Total: 7},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if got.Positive != 4 {
		t.Errorf("positive = %d, want 4 (round half up)", got.Positive)
	}
	if got.Negative != 3 {
		t.Errorf("negative = %d, want 3 (round half up)", got.Negative)
	}
}

func TestAggregateTotalConsistency(t *testing.T) {
	// Total is recomputed from the rounded parts, so the invariant holds
	// even when per-field rounding makes it differ from the mean of the
	// raw totals.
	cases := [][2]types.RawCount{
		{{Positive: 0, Negative: 0, Total: 0}, {Positive: 0, Negative: 0, Total: 0}},
		{{Positive: 1, Negative: 0, Total: 1}, {Positive: 0, Negative: 1, Total: 1}},
		{{Positive: 3, Negative: 3, Total: 6}, {Positive: 4, Negative: 4, Total: 8}},
		{{Positive: 999, Negative: 1, Total: 1000}, {Positive: 0, Negative: 998, Total: 998}},
	}
	for i, pair := range cases {
		got, err := Aggregate(pair[:])
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if got.Total != got.Positive+got.Negative {
			t.Errorf("case %d: total %d != positive %d + negative %d", i, got.Total, got.Positive, got.Negative)
		}
	}
}

func TestAggregateRejectsEmptyAndNegative(t *testing.T) {
	if _, err := Aggregate(nil); err == nil {
		t.Error("empty pass list should fail")
	}
	if _, err := Aggregate([]types.RawCount{{Positive: -1}}); err == nil {
		t.Error("negative count should fail")
	}
}

func TestAggregateThreePasses(t *testing.T) {
	// The rounding rule generalizes to N passes: mean of 1,2,2 is 5/3,
	// rounds to 2.
	got, err := Aggregate([]types.RawCount{
		{Positive: 1, Negative: 0, Total: 1},
		{Positive: 2, Negative: 0, Total: 2},
		{Positive: 2, Negative: 0, Total: 2},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if got.Positive != 2 {
		t.Errorf("positive = %d, want 2", got.Positive)
	}
}
