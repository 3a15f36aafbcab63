package model

import (
	"time"

	"github.com/google/uuid"
)

// TestCase is one program in the campaign: a seed or a mutant of one. It is
// not safe for concurrent use; the corpus serialises access.
type TestCase struct {
	ID   uuid.UUID
	Name string
	// HotClass and HotMethod name the code the mutators should focus on. Both
	// may be blank or unresolvable.
	HotClass   string
	HotMethod  string
	ParentName string
	SeedName   string
	Mutation   MutatorType
	// MutationDepth counts mutations applied since the seed.
	MutationDepth int

	Score          float64
	ParentScore    float64
	BucketedVector []int
	Vectors        *OptimizationVectors
	ParentMerged   OptimizationVector

	InterpreterRuntime time.Duration
	JITRuntime         time.Duration

	priority       float64
	timesSelected  int
	neutralPending bool
	champion       bool
}

// NewSeedTestCase creates a test case for an unmutated seed. Its first score
// preview uses neutral statistics.
func NewSeedTestCase(name, hotClass, hotMethod string) *TestCase {
	return &TestCase{
		ID:             uuid.New(),
		Name:           name,
		HotClass:       hotClass,
		HotMethod:      hotMethod,
		SeedName:       name,
		Mutation:       Seed,
		Score:          1.0,
		priority:       1.0,
		neutralPending: true,
	}
}

// NewChildTestCase derives a mutant of parent.
func NewChildTestCase(parent *TestCase, mutation MutatorType) *TestCase {
	id := uuid.New()

	tc := &TestCase{
		ID:            id,
		Name:          parent.SeedName + "_" + id.String()[:8],
		HotClass:      parent.HotClass,
		HotMethod:     parent.HotMethod,
		ParentName:    parent.Name,
		SeedName:      parent.SeedName,
		Mutation:      mutation,
		MutationDepth: parent.MutationDepth + 1,
		Score:         1.0,
		ParentScore:   parent.Score,
		priority:      1.0,
	}

	if parent.Vectors != nil {
		tc.ParentMerged = parent.Vectors.Merged
	}

	return tc
}

// IsSeed reports whether the test case is an unmutated seed.
func (tc *TestCase) IsSeed() bool { return tc.Mutation == Seed }

// NeutralScoreConsumed reports whether the one-time neutral scoring of a seed
// has been used. It is always true for mutants.
func (tc *TestCase) NeutralScoreConsumed() bool { return !tc.neutralPending }

// ConsumeNeutralScore marks the neutral scoring as used.
func (tc *TestCase) ConsumeNeutralScore() { tc.neutralPending = false }

// SetScore stores a new score and resets the selection priority.
func (tc *TestCase) SetScore(score float64) {
	tc.Score = score
	tc.priority = score
	tc.timesSelected = 0
}

// Priority is the score decayed by how often the test case was selected.
func (tc *TestCase) Priority() float64 { return tc.priority }

// TimesSelected returns how often the test case was picked as a parent.
func (tc *TestCase) TimesSelected() int { return tc.timesSelected }

// MarkSelected decays the priority to score/(1+timesSelected).
func (tc *TestCase) MarkSelected() {
	tc.timesSelected++
	tc.priority = tc.Score / (1.0 + float64(tc.timesSelected))
}

// IsChampion reports whether the test case currently holds a corpus slot.
func (tc *TestCase) IsChampion() bool { return tc.champion }

// ActivateChampion marks the test case as holding a corpus slot.
func (tc *TestCase) ActivateChampion() {
	tc.champion = true
	tc.priority = tc.Score
	tc.timesSelected = 0
}

// DeactivateChampion clears the corpus slot flag.
func (tc *TestCase) DeactivateChampion() { tc.champion = false }

// MaxRuntime returns the slower of the two runs.
func (tc *TestCase) MaxRuntime() time.Duration {
	return max(tc.InterpreterRuntime, tc.JITRuntime)
}
