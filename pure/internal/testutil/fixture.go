// Package testutil provides shared test infrastructure for the jwpure packages.
// It consolidates the scenario fixture and pool builders used across pure/
// and its sub-package tests.
package testutil

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jwpure/jwpure/pure"
)

// ScenarioSlotsFile is the fixture catalog under the repository testdata/.
const ScenarioSlotsFile = "scenario_slots.csv"

// TestdataPath resolves a file in the repository testdata/ directory.
// The path is resolved relative to this source file: pure/internal/testutil/ → testdata/.
func TestdataPath(t *testing.T, name string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", name)
}

// LoadScenario loads the fixture catalog into a fresh scenario whose printed
// output is discarded.
func LoadScenario(t *testing.T) *pure.Scenario {
	t.Helper()

	sc, err := pure.LoadScenario(TestdataPath(t, ScenarioSlotsFile))
	if err != nil {
		t.Fatalf("Failed to load fixture catalog: %v", err)
	}
	sc.Out = io.Discard
	return sc
}

// UniformPool builds a pool of visits × configs × slots, all in cycle 1 with
// the given instrument and slot duration. Ids are v<i>, v<i>c<j>, v<i>c<j>s<k>.
func UniformPool(t *testing.T, visits, configs, slots int, inst string, slotDur float64) *pure.Pool {
	t.Helper()

	var rows []pure.Slot
	for v := 1; v <= visits; v++ {
		for c := 1; c <= configs; c++ {
			for s := 1; s <= slots; s++ {
				rows = append(rows, pure.NewSlot(
					fmt.Sprintf("v%dc%ds%d", v, c, s),
					fmt.Sprintf("v%d", v),
					fmt.Sprintf("v%dc%d", v, c),
					1, inst, slotDur,
				))
			}
		}
	}
	pool, err := pure.NewPool(rows)
	if err != nil {
		t.Fatalf("Failed to build pool: %v", err)
	}
	return pool
}

// NewScenario wraps pool in a scenario whose printed output is discarded.
func NewScenario(pool *pure.Pool) *pure.Scenario {
	sc := pure.NewScenario(pool)
	sc.Out = io.Discard
	return sc
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
