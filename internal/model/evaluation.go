package model

import (
	"fmt"
	"strings"
	"time"
)

// ScoringMode selects the interestingness scorer.
type ScoringMode string

const (
	// ScoringPFIDF rewards feature pairs that co-occur more than expected.
	ScoringPFIDF ScoringMode = "PF_IDF"
	// ScoringUniform scores every non-empty run the same.
	ScoringUniform ScoringMode = "UNIFORM"
	// ScoringInteractionDiversity rewards counts spread over several features.
	ScoringInteractionDiversity ScoringMode = "INTERACTION_DIVERSITY"
	// ScoringInteractionPairWeighted weights feature pairs by rarity and novelty.
	ScoringInteractionPairWeighted ScoringMode = "INTERACTION_PAIR_WEIGHTED"
	// ScoringAbsoluteCount sums all counts.
	ScoringAbsoluteCount ScoringMode = "ABSOLUTE_COUNT"
	// ScoringNovelFeatureBonus adds a bonus per never-seen feature.
	ScoringNovelFeatureBonus ScoringMode = "NOVEL_FEATURE_BONUS"
	// ScoringPairCoverage counts never-seen feature pairs.
	ScoringPairCoverage ScoringMode = "PAIR_COVERAGE"
)

// ScoringModes lists every scoring mode, the default first.
func ScoringModes() []ScoringMode {
	return []ScoringMode{
		ScoringPFIDF, ScoringUniform, ScoringInteractionDiversity, ScoringInteractionPairWeighted,
		ScoringAbsoluteCount, ScoringNovelFeatureBonus, ScoringPairCoverage,
	}
}

// ParseScoringMode normalises case, blanks and dashes. "PF-IDF" and "pfidf"
// both select ScoringPFIDF.
func ParseScoringMode(raw string) (ScoringMode, error) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	if norm == "" {
		return "", fmt.Errorf("empty scoring mode")
	}

	if norm == "PFIDF" {
		return ScoringPFIDF, nil
	}

	for _, m := range ScoringModes() {
		if string(m) == norm {
			return m, nil
		}
	}

	return "", fmt.Errorf("unknown scoring mode %q", raw)
}

// EvaluationOutcome classifies an executed test case for scheduler feedback.
type EvaluationOutcome int

const (
	// OutcomeBug means the interpreted and compiled runs disagreed or the JIT crashed.
	OutcomeBug EvaluationOutcome = iota
	// OutcomeImproved means the test case entered the corpus.
	OutcomeImproved
	// OutcomeNoImprovement means the test case ran fine but was not kept.
	OutcomeNoImprovement
	// OutcomeFailure means the test case did not compile or could not run.
	OutcomeFailure
	// OutcomeTimeout means either run exceeded the time limit.
	OutcomeTimeout
)

var outcomeNames = [...]string{"BUG", "IMPROVED", "NO_IMPROVEMENT", "FAILURE", "TIMEOUT"}

func (o EvaluationOutcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("EvaluationOutcome(%d)", int(o))
	}

	return outcomeNames[o]
}

// CorpusOutcome is the corpus decision for a scored test case.
type CorpusOutcome int

const (
	// CorpusAccepted means the test case claimed a new bucket.
	CorpusAccepted CorpusOutcome = iota
	// CorpusReplaced means the test case displaced the bucket champion.
	CorpusReplaced
	// CorpusRejected means the incumbent champion was kept.
	CorpusRejected
	// CorpusDiscarded means the test case had nothing worth keeping.
	CorpusDiscarded
)

var corpusOutcomeNames = [...]string{"ACCEPTED", "REPLACED", "REJECTED", "DISCARDED"}

func (o CorpusOutcome) String() string {
	if o < 0 || int(o) >= len(corpusOutcomeNames) {
		return fmt.Sprintf("CorpusOutcome(%d)", int(o))
	}

	return corpusOutcomeNames[o]
}

// Kept reports whether the test case entered the corpus.
func (o CorpusOutcome) Kept() bool {
	return o == CorpusAccepted || o == CorpusReplaced
}

// Execution is the result of running one JVM process.
type Execution struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// CrashReport is what a HotSpot fatal error log (hs_err_pid*.log) says about
// a crash. Frames have their addresses masked.
type CrashReport struct {
	Path             string
	Signal           string
	ProblematicFrame string
	CompileTask      string
	TopFrames        []string
}

// BugSignature groups bugs that most likely share a root cause.
type BugSignature struct {
	Bucket           string   `yaml:"bucket"`
	Reason           string   `yaml:"reason"`
	Signal           string   `yaml:"signal,omitempty"`
	ProblematicFrame string   `yaml:"problematic_frame,omitempty"`
	CompileTask      string   `yaml:"compile_task,omitempty"`
	TopFrames        []string `yaml:"top_frames,omitempty"`
	InterpreterExit  int      `yaml:"interpreter_exit"`
	JITExit          int      `yaml:"jit_exit"`
	Mutator          string   `yaml:"mutator"`
	Seed             string   `yaml:"seed,omitempty"`
	ErrorFile        string   `yaml:"error_file,omitempty"`
	Canonical        string   `yaml:"canonical"`
}

// EvaluationRecord is one row of campaign history.
type EvaluationRecord struct {
	TestCase      string
	Parent        string
	Seed          string
	Mutator       string
	MutationDepth int
	Outcome       string
	Corpus        string
	Score         float64
	Reason        string
	Bucket        string
	Features      []int
	Runtime       time.Duration
	Timestamp     time.Time
}

// MutatorSummary aggregates the evaluation records of one mutator.
type MutatorSummary struct {
	Mutator   string  `yaml:"mutator"`
	Evaluated int     `yaml:"evaluated"`
	Bugs      int     `yaml:"bugs"`
	Improved  int     `yaml:"improved"`
	Failures  int     `yaml:"failures"`
	Timeouts  int     `yaml:"timeouts"`
	MeanScore float64 `yaml:"mean_score"`
	MaxScore  float64 `yaml:"max_score"`
	// FeatureIncreases and FeatureDecreases sum, per feature name, how far
	// the mutants moved the merged optimization counts away from their
	// parents. Only a live campaign fills them.
	FeatureIncreases map[string]int64 `yaml:"feature_increases,omitempty"`
	FeatureDecreases map[string]int64 `yaml:"feature_decreases,omitempty"`
}

// ChampionSummary describes one corpus entry at the end of a campaign.
type ChampionSummary struct {
	TestCase  string  `yaml:"test_case"`
	Seed      string  `yaml:"seed"`
	Mutator   string  `yaml:"mutator"`
	Depth     int     `yaml:"depth"`
	Score     float64 `yaml:"score"`
	Selected  int     `yaml:"selected"`
	HotClass  string  `yaml:"hot_class,omitempty"`
	HotMethod string  `yaml:"hot_method,omitempty"`
}

// CampaignSummary is written at the end of a campaign and shown by the UI.
type CampaignSummary struct {
	Session   string        `yaml:"session"`
	RNGSeed   int64         `yaml:"rng_seed"`
	Scheduler string        `yaml:"scheduler"`
	Scoring   ScoringMode   `yaml:"scoring"`
	Started   time.Time     `yaml:"started"`
	Elapsed   time.Duration `yaml:"elapsed"`
	Seeds     int           `yaml:"seeds"`

	Evaluated           int64 `yaml:"evaluated"`
	Bugs                int64 `yaml:"bugs"`
	UniqueBugs          int   `yaml:"unique_bugs"`
	CompileFailures     int64 `yaml:"compile_failures"`
	InterpreterTimeouts int64 `yaml:"interpreter_timeouts"`
	JITTimeouts         int64 `yaml:"jit_timeouts"`

	Accepted   int64 `yaml:"accepted"`
	Replaced   int64 `yaml:"replaced"`
	Rejected   int64 `yaml:"rejected"`
	Discarded  int64 `yaml:"discarded"`
	CorpusSize int   `yaml:"corpus_size"`

	UniqueFeatures int     `yaml:"unique_features"`
	UniquePairs    int     `yaml:"unique_pairs"`
	AvgScore       float64 `yaml:"avg_score"`
	MaxScore       float64 `yaml:"max_score"`

	Mutators  []MutatorSummary  `yaml:"mutators,omitempty"`
	Champions []ChampionSummary `yaml:"champions,omitempty"`
}
