// Package model defines the data structures shared by the fuzzer layers.
package model

import (
	"fmt"
	"math/rand"
	"strings"
)

// MutatorType identifies a mutation strategy.
type MutatorType int

const (
	// LoopUnrolling wraps a statement in a counted loop that executes it once.
	LoopUnrolling MutatorType = iota
	// Inline extracts a binary expression into a small helper method.
	Inline
	// RedundantStoreElimination duplicates an assignment.
	RedundantStoreElimination
	// AutoboxElimination boxes a primitive expression through valueOf.
	AutoboxElimination
	// EscapeAnalysis routes a value through a non-escaping wrapper object.
	EscapeAnalysis
	// LoopPeeling runs a statement in the first iteration of a flagged loop.
	LoopPeeling
	// LoopUnswitching runs a statement inside a nested loop with an invariant switch.
	LoopUnswitching
	// Deoptimization trains a type profile and then invalidates it.
	Deoptimization
	// LateZero guards a statement with a value only proven zero late in compilation.
	LateZero
	// SplitIfStress duplicates an if statement into both arms of itself.
	SplitIfStress
	// UnswitchScaffold splits a loop body into fast and slow copies.
	UnswitchScaffold
	// SinkableMultiply adds a multiplication that can be sunk out of a nested loop.
	SinkableMultiply
	// TemplatePredicate selects between two array stores with an opaque flag.
	TemplatePredicate
	// AlgebraicSimplification rewrites an expression into an equivalent longer form.
	AlgebraicSimplification
	// DeadCodeElimination inserts an unreachable copy of a statement.
	DeadCodeElimination
	// LockElimination wraps code in a lock on a non-escaping monitor.
	LockElimination
	// LockCoarsening splits a synchronized block into adjacent ones.
	LockCoarsening
	// IntToLongLoop widens a loop induction variable to long.
	IntToLongLoop
	// ArrayToMemorySegment replaces a local array with an off-heap memory segment.
	ArrayToMemorySegment
	// ArrayMemorySegmentShadow mirrors a local array into a heap memory segment.
	ArrayMemorySegmentShadow
	// RangeCheckPredication versions a loop on an array length check.
	RangeCheckPredication
	// ReflectionCall turns a direct call into a reflective invocation.
	ReflectionCall
	// Seed marks an unmutated seed. It is never selected for mutation.
	Seed
)

var mutatorNames = [...]string{
	LoopUnrolling:             "LOOP_UNROLLING",
	Inline:                    "INLINE",
	RedundantStoreElimination: "REDUNDANT_STORE_ELIMINATION",
	AutoboxElimination:        "AUTOBOX_ELIMINATION",
	EscapeAnalysis:            "ESCAPE_ANALYSIS",
	LoopPeeling:               "LOOP_PEELING",
	LoopUnswitching:           "LOOP_UNSWITCHING",
	Deoptimization:            "DEOPTIMIZATION",
	LateZero:                  "LATE_ZERO",
	SplitIfStress:             "SPLIT_IF_STRESS",
	UnswitchScaffold:          "UNSWITCH_SCAFFOLD",
	SinkableMultiply:          "SINKABLE_MULTIPLY",
	TemplatePredicate:         "TEMPLATE_PREDICATE",
	AlgebraicSimplification:   "ALGEBRAIC_SIMPLIFICATION",
	DeadCodeElimination:       "DEAD_CODE_ELIMINATION",
	LockElimination:           "LOCK_ELIMINATION",
	LockCoarsening:            "LOCK_COARSENING",
	IntToLongLoop:             "INT_TO_LONG_LOOP",
	ArrayToMemorySegment:      "ARRAY_TO_MEMORY_SEGMENT",
	ArrayMemorySegmentShadow:  "ARRAY_MEMORY_SEGMENT_SHADOW",
	RangeCheckPredication:     "RANGE_CHECK_PREDICATION",
	ReflectionCall:            "REFLECTION_CALL",
	Seed:                      "SEED",
}

var mutatorDescriptions = [...]string{
	LoopUnrolling:             "wraps a statement in a counted loop that executes it once",
	Inline:                    "extracts a binary expression into a small helper method",
	RedundantStoreElimination: "duplicates an idempotent assignment",
	AutoboxElimination:        "boxes a primitive expression through valueOf",
	EscapeAnalysis:            "routes a value through a non-escaping wrapper object",
	LoopPeeling:               "runs a statement in the first iteration of a flagged loop",
	LoopUnswitching:           "runs a statement inside a nested loop with an invariant switch",
	Deoptimization:            "trains a type profile and then invalidates it",
	LateZero:                  "guards a statement with a value only proven zero late in compilation",
	SplitIfStress:             "duplicates an if statement into both arms of itself",
	UnswitchScaffold:          "splits a loop body into fast and slow copies",
	SinkableMultiply:          "adds a multiplication that can be sunk out of a nested loop",
	TemplatePredicate:         "selects between two array stores with an opaque flag",
	AlgebraicSimplification:   "rewrites an expression into an equivalent longer form",
	DeadCodeElimination:       "inserts an unreachable copy of a statement",
	LockElimination:           "wraps code in a lock on a non-escaping monitor",
	LockCoarsening:            "splits a synchronized block into adjacent ones",
	IntToLongLoop:             "widens a loop induction variable to long",
	ArrayToMemorySegment:      "replaces a local array with an off-heap memory segment",
	ArrayMemorySegmentShadow:  "mirrors a local array into a heap memory segment",
	RangeCheckPredication:     "versions a loop on an array length check",
	ReflectionCall:            "turns a direct call into a reflective invocation",
	Seed:                      "unmutated seed",
}

// Description returns a one-line summary of the strategy.
func (t MutatorType) Description() string {
	if !t.Valid() {
		return ""
	}

	return mutatorDescriptions[t]
}

// MutatorTypeCount is the number of mutator types, Seed included.
const MutatorTypeCount = int(Seed) + 1

func (t MutatorType) String() string {
	if t < 0 || int(t) >= len(mutatorNames) {
		return fmt.Sprintf("MutatorType(%d)", int(t))
	}

	return mutatorNames[t]
}

// Valid reports whether t is a declared mutator type.
func (t MutatorType) Valid() bool {
	return t >= 0 && int(t) < MutatorTypeCount
}

// MutationCandidates returns every mutator type except Seed, in declaration order.
func MutationCandidates() []MutatorType {
	out := make([]MutatorType, 0, MutatorTypeCount-1)
	for t := MutatorType(0); t < Seed; t++ {
		out = append(out, t)
	}

	return out
}

// RandomMutatorType draws uniformly from the mutation candidates. Seed is
// excluded because it is the last declared value.
func RandomMutatorType(r *rand.Rand) MutatorType {
	return MutatorType(r.Intn(MutatorTypeCount - 1))
}

// ParseMutatorType accepts LOOP_UNROLLING, loop-unrolling and loop_unrolling.
func ParseMutatorType(s string) (MutatorType, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))

	for i, name := range mutatorNames {
		if name == norm {
			return MutatorType(i), nil
		}
	}

	return 0, fmt.Errorf("unknown mutator type %q", s)
}

// MutationStatus reports whether a strategy changed the tree.
type MutationStatus int

const (
	// MutationSuccess means the tree was rewritten.
	MutationSuccess MutationStatus = iota
	// MutationSkipped means no candidate was found and the tree is unchanged.
	MutationSkipped
)

func (s MutationStatus) String() string {
	if s == MutationSuccess {
		return "SUCCESS"
	}

	return "SKIPPED"
}

// MutationResult is the immutable outcome of one strategy invocation.
type MutationResult struct {
	Status   MutationStatus
	Launcher MutatorType
	Detail   string
}

// Succeeded builds a successful result.
func Succeeded(launcher MutatorType, detail string) MutationResult {
	return MutationResult{Status: MutationSuccess, Launcher: launcher, Detail: detail}
}

// Skipped builds a skipped result.
func Skipped(launcher MutatorType, detail string) MutationResult {
	return MutationResult{Status: MutationSkipped, Launcher: launcher, Detail: detail}
}

// OK reports whether the mutation succeeded.
func (r MutationResult) OK() bool { return r.Status == MutationSuccess }

// Mutation is a mutant produced from a parent test case.
type Mutation struct {
	TestCase *TestCase
	// Source is the printed mutant with its public class renamed after the
	// test case.
	Source []byte
	Result MutationResult
	// Diff is a unified diff from the parent source.
	Diff string
	// Seed is the sub-seed the strategy drew its random numbers from.
	Seed int64
}
