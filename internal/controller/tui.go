package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const recentEvents = 8

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	bugStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	keptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the live dashboard in campaign mode. Report mode renders
// on demand and needs no background program.
func (p *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if startConfig(options).mode != ModeCampaign {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.program != nil {
		return nil
	}

	p.program = tea.NewProgram(newDashboardModel(), tea.WithOutput(p.output))
	p.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		if _, err := program.Run(); err != nil {
			_, _ = fmt.Fprintf(p.output, "dashboard error: %v\n", err)
		}
	}(p.program, p.done)

	return nil
}

// Close stops the dashboard if it is still running.
func (p *TUI) Close(_ context.Context) {
	p.mu.Lock()
	program, done := p.program, p.done
	p.program, p.done = nil, nil
	p.mu.Unlock()

	if program == nil {
		return
	}

	program.Quit()
	<-done
}

// Wait blocks until the user leaves the dashboard.
func (p *TUI) Wait(ctx context.Context) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// send reports whether a dashboard received msg.
func (p *TUI) send(msg tea.Msg) bool {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()

	if program == nil {
		return false
	}

	program.Send(msg)

	return true
}

// DisplayCampaignInfo implements UI.
func (p *TUI) DisplayCampaignInfo(_ context.Context, info CampaignInfo) {
	p.send(info)
}

// DisplayEvaluation implements UI.
func (p *TUI) DisplayEvaluation(_ context.Context, event EvaluationEvent) {
	p.send(event)
}

// DisplayProgress implements UI.
func (p *TUI) DisplayProgress(_ context.Context, progress Progress) {
	p.send(progress)
}

// DisplaySummary hands the summary to the dashboard, or pages it when no
// dashboard is running.
func (p *TUI) DisplaySummary(ctx context.Context, summary m.CampaignSummary) {
	if p.send(summary) || ctx.Err() != nil {
		return
	}

	title := fmt.Sprintf("Session %s  %s", summary.Session, summary.Elapsed.Round(time.Millisecond))
	if err := p.page(title, renderSummary(summary)); err != nil {
		_, _ = fmt.Fprintf(p.output, "summary error: %v\n", err)
	}
}

// DisplayMutators shows the mutator table, paged when it does not fit.
func (p *TUI) DisplayMutators(ctx context.Context, mutators []MutatorInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.page("Mutators", renderMutatorsTable(mutators))
}

// DisplayMutation shows the diff of a mutation with colored hunks.
func (p *TUI) DisplayMutation(ctx context.Context, mutation m.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if mutation.TestCase == nil {
		return p.page("Mutation skipped", mutation.Result.Detail+"\n")
	}

	title := fmt.Sprintf("%s  %s  seed %d", mutation.TestCase.Name, mutation.TestCase.Mutation, mutation.Seed)

	return p.page(title, colorDiff(mutation.Diff))
}

// DisplayScore shows the feature counts and the score under every mode.
func (p *TUI) DisplayScore(ctx context.Context, report ScoreReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	title := fmt.Sprintf("%s  %d compiled method(s)", report.Source, report.Methods)

	return p.page(title, renderFeatureTable(report.Counts)+"\n"+renderScoreTable(report))
}

func (p *TUI) page(title, body string) error {
	model := newPagerModel(title, strings.Split(strings.TrimRight(body, "\n"), "\n"))

	if f, ok := p.output.(*os.File); ok {
		width, height, err := term.GetSize(f.Fd())
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	// If the page is small, just print and exit.
	if !model.needsPagination() {
		_, err := fmt.Fprint(p.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

func colorDiff(diff string) string {
	added := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removed := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hunk := lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = faintStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunk.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = added.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removed.Render(line)
		}
	}

	return strings.Join(lines, "\n")
}

// pagerModel shows pre-rendered lines with keyboard scrolling.
type pagerModel struct {
	title  string
	lines  []string
	height int
	width  int
	offset int
}

func newPagerModel(title string, lines []string) pagerModel {
	return pagerModel{title: title, lines: lines}
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.height = msg.Height
		pm.width = msg.Width

		return pm, nil

	case tea.KeyMsg:
		return pm.handleKeyPress(msg)
	}

	return pm, nil
}

func (pm pagerModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // We only handle specific navigation keys
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return pm, tea.Quit
	default:
		// Handle other key types in the string switch below
	}

	switch msg.String() {
	case "q":
		return pm, tea.Quit

	case "down", "j":
		pm.offset = min(pm.offset+1, pm.maxOffset())

	case "up", "k":
		pm.offset = max(pm.offset-1, 0)

	case "g", "home":
		pm.offset = 0

	case "G", "end":
		pm.offset = pm.maxOffset()

	case "d", "pgdown":
		pm.offset = min(pm.offset+pm.itemsPerPage(), pm.maxOffset())

	case "u", "pgup":
		pm.offset = max(pm.offset-pm.itemsPerPage(), 0)
	}

	return pm, nil
}

// itemsPerPage calculates how many lines fit below the title and above the footer.
func (pm pagerModel) itemsPerPage() int {
	if pm.height == 0 {
		return 10
	}

	// Title box: 4 lines. Footer: 3 lines. Top margin: 1 line.
	const reserved = 8

	return max(pm.height-reserved, 1)
}

func (pm pagerModel) maxOffset() int {
	return max(len(pm.lines)-pm.itemsPerPage(), 0)
}

func (pm pagerModel) needsPagination() bool {
	return pm.height > 0 && len(pm.lines) > pm.itemsPerPage()
}

func (pm pagerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(pm.title))
	b.WriteString("\n\n")

	if !pm.needsPagination() {
		b.WriteString(strings.Join(pm.lines, "\n"))
		b.WriteString("\n")

		return b.String()
	}

	end := min(pm.offset+pm.itemsPerPage(), len(pm.lines))
	b.WriteString(strings.Join(pm.lines[pm.offset:end], "\n"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  Showing %d-%d of %d\n", pm.offset+1, end, len(pm.lines))
	b.WriteString(faintStyle.Render("  ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit"))
	b.WriteString("\n")

	return b.String()
}

// dashboardModel renders a running campaign.
type dashboardModel struct {
	spinner  spinner.Model
	info     CampaignInfo
	progress Progress
	events   []EvaluationEvent
	summary  *m.CampaignSummary
	started  time.Time
	width    int
}

func newDashboardModel() dashboardModel {
	return dashboardModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(keptStyle)),
		started: time.Now(),
	}
}

func (dm dashboardModel) Init() tea.Cmd {
	return dm.spinner.Tick
}

func (dm dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		dm.width = msg.Width
		return dm, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return dm, tea.Quit
		}

		return dm, nil

	case CampaignInfo:
		dm.info = msg
		dm.started = time.Now()

		return dm, nil

	case Progress:
		dm.progress = msg
		return dm, nil

	case EvaluationEvent:
		if msg.Outcome == m.OutcomeBug || msg.Outcome == m.OutcomeImproved {
			dm.events = append(dm.events, msg)
			if len(dm.events) > recentEvents {
				dm.events = dm.events[len(dm.events)-recentEvents:]
			}
		}

		return dm, nil

	case m.CampaignSummary:
		dm.summary = &msg
		return dm, nil

	case spinner.TickMsg:
		if dm.summary != nil {
			return dm, nil
		}

		var cmd tea.Cmd
		dm.spinner, cmd = dm.spinner.Update(msg)

		return dm, cmd
	}

	return dm, nil
}

func (dm dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("jitfuzz  " + dm.info.Session))
	b.WriteString("\n\n")

	if dm.summary != nil {
		dm.renderSummary(&b)
		return b.String()
	}

	fmt.Fprintf(&b, "%s fuzzing for %s with %d worker(s), scheduler %s, scoring %s\n\n",
		dm.spinner.View(), time.Since(dm.started).Round(time.Second), dm.info.Workers, dm.info.Scheduler, dm.info.Scoring)

	p := dm.progress
	dm.row(&b, "evaluated", fmt.Sprintf("%d", p.Evaluated))
	dm.row(&b, "bugs", bugCount(p.Bugs, p.UniqueBugs))
	dm.row(&b, "failures", fmt.Sprintf("%d failed, %d timed out", p.Failures, p.Timeouts))
	dm.row(&b, "corpus", fmt.Sprintf("%d champions, best score %.4f", p.CorpusSize, p.MaxScore))
	dm.row(&b, "coverage", fmt.Sprintf("%d features, %d pairs", p.Features, p.Pairs))

	if len(dm.events) > 0 {
		b.WriteString("\n")

		for _, e := range dm.events {
			b.WriteString("  ")
			b.WriteString(renderEvent(e))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(faintStyle.Render("  q: stop watching"))
	b.WriteString("\n")

	return b.String()
}

func (dm dashboardModel) renderSummary(b *strings.Builder) {
	s := dm.summary

	fmt.Fprintf(b, "Finished after %s\n\n", s.Elapsed.Round(time.Second))
	b.WriteString(renderCountersTable(*s))

	if len(s.Mutators) > 0 {
		b.WriteString("\n")
		b.WriteString(renderMutatorSummaryTable(s.Mutators))
	}

	b.WriteString("\n")
	b.WriteString(faintStyle.Render("  q: quit"))
	b.WriteString("\n")
}

func (dm dashboardModel) row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label)), value)
}

func bugCount(bugs int64, unique int) string {
	text := fmt.Sprintf("%d (%d unique)", bugs, unique)
	if bugs == 0 {
		return faintStyle.Render(text)
	}

	return bugStyle.Render(text)
}

func renderEvent(e EvaluationEvent) string {
	if e.Outcome == m.OutcomeBug {
		return bugStyle.Render("BUG ") + fmt.Sprintf("%s %s: %s", e.TestCase, e.Mutator, e.Reason)
	}

	return keptStyle.Render(e.Corpus+" ") + fmt.Sprintf("%s %s score %.4f", e.TestCase, e.Mutator, e.Score)
}
