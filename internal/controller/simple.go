package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait returns immediately; SimpleUI never blocks.
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayCampaignInfo prints the campaign parameters.
func (s *SimpleUI) DisplayCampaignInfo(ctx context.Context, info CampaignInfo) {
	if ctx.Err() != nil {
		return
	}

	budget := "unbounded"
	if info.Iterations > 0 {
		budget = fmt.Sprintf("%d iterations", info.Iterations)
	}

	s.printf("Session %s: %d seed(s), %d worker(s), %s, scheduler=%s, scoring=%s, rng seed=%d\n",
		info.Session, info.Seeds, info.Workers, budget, info.Scheduler, info.Scoring, info.RNGSeed)
}

// DisplayEvaluation prints the test cases worth attention: bugs and new champions.
func (s *SimpleUI) DisplayEvaluation(ctx context.Context, event EvaluationEvent) {
	if ctx.Err() != nil {
		return
	}

	switch event.Outcome {
	case m.OutcomeBug:
		s.printf("BUG %s (%s from %s): %s\n", event.TestCase, event.Mutator, event.Parent, event.Reason)

		if event.Artifact != "" {
			s.printf("  saved to %s\n", event.Artifact)
		}
	case m.OutcomeImproved:
		s.printf("%s %s (%s) score=%.4f\n", event.Corpus, event.TestCase, event.Mutator, event.Score)
	}
}

// DisplayProgress prints one status line.
func (s *SimpleUI) DisplayProgress(ctx context.Context, p Progress) {
	if ctx.Err() != nil {
		return
	}

	s.printf("evaluated=%d bugs=%d (unique %d) failures=%d timeouts=%d corpus=%d max score=%.4f features=%d pairs=%d\n",
		p.Evaluated, p.Bugs, p.UniqueBugs, p.Failures, p.Timeouts, p.CorpusSize, p.MaxScore, p.Features, p.Pairs)
}

// DisplaySummary prints the end-of-campaign tables.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary m.CampaignSummary) {
	if ctx.Err() != nil {
		return
	}

	s.printf("\nSession %s finished after %s\n", summary.Session, summary.Elapsed.Round(time.Millisecond))
	s.printf("\n%s", renderSummary(summary))
}

// DisplayMutators prints the mutator listing.
func (s *SimpleUI) DisplayMutators(ctx context.Context, mutators []MutatorInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderMutatorsTable(mutators))

	return nil
}

// DisplayMutation prints the unified diff of a mutation.
func (s *SimpleUI) DisplayMutation(ctx context.Context, mutation m.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if mutation.TestCase == nil {
		s.printf("Mutation skipped: %s\n", mutation.Result.Detail)
		return nil
	}

	s.printf("%s (%s, seed %d)\n", mutation.TestCase.Name, mutation.TestCase.Mutation, mutation.Seed)
	s.printf("%s", mutation.Diff)

	return nil
}

// DisplayScore prints the score of a JVM log under every mode.
func (s *SimpleUI) DisplayScore(ctx context.Context, report ScoreReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s: %d compiled method(s)\n\n", report.Source, report.Methods)
	s.printf("%s\n", renderFeatureTable(report.Counts))
	s.printf("%s", renderScoreTable(report))

	return nil
}

func newTable(buf *bytes.Buffer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	return table
}

func renderSummary(summary m.CampaignSummary) string {
	var b strings.Builder

	b.WriteString(renderCountersTable(summary))

	if len(summary.Mutators) > 0 {
		b.WriteString("\n" + renderMutatorSummaryTable(summary.Mutators))
	}

	if len(summary.Champions) > 0 {
		b.WriteString("\n" + renderChampionsTable(summary.Champions))
	}

	return b.String()
}

func renderCountersTable(summary m.CampaignSummary) string {
	var buf bytes.Buffer

	table := newTable(&buf, "Counter", "Value")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.AppendBulk([][]string{
		{"Seeds", fmt.Sprintf("%d", summary.Seeds)},
		{"Evaluated", fmt.Sprintf("%d", summary.Evaluated)},
		{"Bugs", fmt.Sprintf("%d (unique %d)", summary.Bugs, summary.UniqueBugs)},
		{"Compile failures", fmt.Sprintf("%d", summary.CompileFailures)},
		{"Timeouts", fmt.Sprintf("%d interpreter / %d JIT", summary.InterpreterTimeouts, summary.JITTimeouts)},
		{"Corpus", fmt.Sprintf("%d (+%d accepted, %d replaced, %d rejected, %d discarded)",
			summary.CorpusSize, summary.Accepted, summary.Replaced, summary.Rejected, summary.Discarded)},
		{"Features / pairs seen", fmt.Sprintf("%d / %d", summary.UniqueFeatures, summary.UniquePairs)},
		{"Score avg / max", fmt.Sprintf("%.4f / %.4f", summary.AvgScore, summary.MaxScore)},
	})
	table.Render()

	return buf.String()
}

func renderMutatorSummaryTable(mutators []m.MutatorSummary) string {
	var buf bytes.Buffer

	table := newTable(&buf, "Mutator", "Evaluated", "Bugs", "Improved", "Failures", "Timeouts", "Mean score")

	for _, s := range mutators {
		table.Append([]string{
			s.Mutator,
			fmt.Sprintf("%d", s.Evaluated),
			fmt.Sprintf("%d", s.Bugs),
			fmt.Sprintf("%d", s.Improved),
			fmt.Sprintf("%d", s.Failures),
			fmt.Sprintf("%d", s.Timeouts),
			fmt.Sprintf("%.4f", s.MeanScore),
		})
	}

	table.Render()

	return buf.String()
}

func renderChampionsTable(champions []m.ChampionSummary) string {
	var buf bytes.Buffer

	table := newTable(&buf, "Champion", "Seed", "Mutator", "Depth", "Score", "Selected")

	for _, c := range champions {
		table.Append([]string{
			c.TestCase,
			c.Seed,
			c.Mutator,
			fmt.Sprintf("%d", c.Depth),
			fmt.Sprintf("%.4f", c.Score),
			fmt.Sprintf("%d", c.Selected),
		})
	}

	table.Render()

	return buf.String()
}

func renderMutatorsTable(mutators []MutatorInfo) string {
	var buf bytes.Buffer

	withApplicability := false

	for _, info := range mutators {
		if info.Applicable != nil {
			withApplicability = true
			break
		}
	}

	header := []string{"Mutator", "Description"}
	if withApplicability {
		header = append(header, "Applicable")
	}

	table := newTable(&buf, header...)
	applicable := 0

	for _, info := range mutators {
		row := []string{info.Mutator.String(), info.Mutator.Description()}
		if info.Description != "" {
			row[1] = info.Description
		}

		if withApplicability {
			mark := "no"
			if info.Applicable != nil && *info.Applicable {
				mark = "yes"
				applicable++
			}

			row = append(row, mark)
		}

		table.Append(row)
	}

	if withApplicability {
		table.SetFooter([]string{"Total", fmt.Sprintf("%d mutators", len(mutators)), fmt.Sprintf("%d", applicable)})
	}

	table.Render()

	return buf.String()
}

func renderFeatureTable(counts []FeatureScore) string {
	var buf bytes.Buffer

	table := newTable(&buf, "Feature", "Count")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	for _, c := range counts {
		table.Append([]string{c.Feature.String(), fmt.Sprintf("%d", c.Count)})
	}

	table.Render()

	return buf.String()
}

func renderScoreTable(report ScoreReport) string {
	var buf bytes.Buffer

	table := newTable(&buf, "Scoring mode", "Score", "Note")

	modes := make([]m.ScoringMode, 0, len(report.Scores))
	for mode := range report.Scores {
		modes = append(modes, mode)
	}

	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })

	for _, mode := range modes {
		table.Append([]string{
			string(mode),
			fmt.Sprintf("%.4f", report.Scores[mode]),
			strings.TrimSpace(report.Reasons[mode]),
		})
	}

	table.Render()

	return buf.String()
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
