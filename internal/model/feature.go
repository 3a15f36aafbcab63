package model

import (
	"fmt"
	"strings"
)

// Feature is one C2 optimization event counted by the JIT trace.
type Feature int

// Optimization events in trace order.
const (
	FeatureLoopUnrolling Feature = iota
	FeatureLoopPeeling
	FeatureParallelInductionVars
	FeatureSplitIf
	FeatureLoopUnswitching
	FeatureConditionalExpressionElimination
	FeatureFunctionInlining
	FeatureDeoptimization
	FeatureEscapeAnalysis
	FeatureEliminateLocks
	FeatureLockCoarsening
	FeatureConditionalConstantPropagation
	FeatureEliminateAutobox
	FeatureBlockElimination
	FeatureNullCheckElimination
	FeatureRangeCheckElimination
	FeatureOptimizePtrCompare
	FeatureMergeStores
	FeatureLoopPredication
	FeatureAutoVectorization
	FeaturePartialPeeling
	FeatureIterGVNIteration
	FeatureLoopIterationSplit
	FeatureReassociateInvariants
	FeatureLoopIntrinsification
	FeaturePeephole
)

// FeatureCount is the length of every optimization vector.
const FeatureCount = int(FeaturePeephole) + 1

var featureNames = [FeatureCount]string{
	"Loop Unrolling",
	"Loop Peeling",
	"Parallel Induction Variables",
	"Split If",
	"Loop Unswitching",
	"Conditional Expression Elimination",
	"Function Inlining",
	"Deoptimization",
	"Escape Analysis",
	"Eliminate Locks",
	"Lock Coarsening",
	"Conditional Constant Propagation",
	"Eliminate Autobox",
	"Block Elimination",
	"Null Check Elimination",
	"Range Check Elimination",
	"Optimize Ptr Compare",
	"Merge Stores",
	"Loop Predication",
	"Auto Vectorization",
	"Partial Peeling",
	"Iterative GVN Iterations",
	"Loop Iteration Split",
	"Reassociate Invariants",
	"Loop Intrinsification",
	"Peephole",
}

var featureAliases = map[string]Feature{
	"Locks Coarsening":  FeatureLockCoarsening,
	"IterGVN Iteration": FeatureIterGVNIteration,
}

func (f Feature) String() string {
	if f < 0 || int(f) >= FeatureCount {
		return "Unknown Feature"
	}

	return featureNames[f]
}

// FeatureFromName maps a trace display name to its feature.
func FeatureFromName(name string) (Feature, error) {
	name = strings.TrimSpace(name)

	for i, n := range featureNames {
		if n == name {
			return Feature(i), nil
		}
	}

	if f, ok := featureAliases[name]; ok {
		return f, nil
	}

	return 0, fmt.Errorf("unknown optimization feature %q", name)
}

// OptimizationVector holds one count per feature.
type OptimizationVector struct {
	Counts [FeatureCount]int
}

// Inc increments the count of f.
func (v *OptimizationVector) Inc(f Feature) { v.Counts[f]++ }

// Add adds n to the count of f.
func (v *OptimizationVector) Add(f Feature, n int) { v.Counts[f] += n }

// Get returns the count of f.
func (v *OptimizationVector) Get(f Feature) int { return v.Counts[f] }

// Merge adds every count of o into v.
func (v *OptimizationVector) Merge(o *OptimizationVector) {
	for i, c := range o.Counts {
		v.Counts[i] += c
	}
}

// Total returns the sum of all counts.
func (v *OptimizationVector) Total() int {
	total := 0
	for _, c := range v.Counts {
		total += c
	}

	return total
}

// MethodOptimizationVector is the trace of one compilation.
type MethodOptimizationVector struct {
	ClassName  string
	MethodName string
	// Signature distinguishes overloads, e.g. "(II)I".
	Signature string
	OSR       bool
	// EntryBCI is -1 for standard compilations.
	EntryBCI  int
	CompileID int
	Vector    OptimizationVector
}

// OptimizationVectors is everything observed in one JIT run.
type OptimizationVectors struct {
	Vectors []MethodOptimizationVector
	Merged  OptimizationVector
}

// NewOptimizationVectors merges the per-method vectors into their sum.
func NewOptimizationVectors(vectors []MethodOptimizationVector) *OptimizationVectors {
	ov := &OptimizationVectors{Vectors: vectors}
	for i := range vectors {
		ov.Merged.Merge(&vectors[i].Vector)
	}

	return ov
}

// Empty reports whether no optimization was observed at all.
func (o *OptimizationVectors) Empty() bool {
	return o == nil || len(o.Vectors) == 0
}
