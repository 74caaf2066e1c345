package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trellisdev/trellis/internal/graph"
	"github.com/trellisdev/trellis/internal/runner"
	"github.com/trellisdev/trellis/internal/task"
)

var (
	styleDone     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	styleFailed   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	styleRunning  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	styleStranded = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	stylePending  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	styleDetail   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

type rowState int

const (
	rowPending rowState = iota
	rowRunning
	rowDone
	rowFailed
	rowStranded
)

type taskRow struct {
	id     task.ID
	state  rowState
	detail string
}

type taskStartedMsg struct {
	id task.ID
}

type taskFinishedMsg struct {
	result runner.TaskResult
}

type runFinishedMsg struct {
	report     runner.Report
	reportPath string
	saveErr    error
}

// runView drives one graph execution and renders a live task board. Runner
// events arrive on a channel owned by the view; a channelReporter bridges
// the runner's callbacks into bubbletea messages.
type runView struct {
	app      *App
	target   string
	graph    *graph.TaskGraph
	rows     []taskRow
	index    map[task.ID]int
	events   chan tea.Msg
	spinner  spinner.Model
	report   runner.Report
	path     string
	finished bool
}

// channelReporter forwards runner events to the view's message channel. The
// runner goroutine blocks on the channel, so the board never drops events.
type channelReporter struct {
	events chan<- tea.Msg
}

func (r channelReporter) TaskStarted(t task.Task) {
	r.events <- taskStartedMsg{id: t.ID}
}

func (r channelReporter) TaskFinished(result runner.TaskResult) {
	r.events <- taskFinishedMsg{result: result}
}

func (r channelReporter) RunFinished(runner.Report) {}

func newRunView(app *App, target string, g *graph.TaskGraph) *runView {
	order := g.Order()
	rows := make([]taskRow, len(order))
	index := make(map[task.ID]int, len(order))
	for i, id := range order {
		rows[i] = taskRow{id: id}
		index[id] = i
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleRunning
	return &runView{
		app:     app,
		target:  target,
		graph:   g,
		rows:    rows,
		index:   index,
		events:  make(chan tea.Msg),
		spinner: sp,
	}
}

// Init launches the run in a background goroutine and starts listening for
// its events. The goroutine owns the graph from here on.
func (v *runView) Init() tea.Cmd {
	reporter := runner.Reporter(channelReporter{events: v.events})
	if v.app.logbook != nil {
		reporter = runner.Combine(reporter, runner.LogbookReporter{Book: v.app.logbook})
	}
	r := runner.New(
		runner.WithWorkers(v.app.config.Parallel()),
		runner.WithReporter(reporter),
	)
	store := runner.NewStore(v.app.config.RunsDir())
	req := runner.Request{Graph: v.graph, Workspace: v.app.workspace.Name}

	go func() {
		report, err := r.Run(context.Background(), req)
		if err != nil {
			v.events <- runFinishedMsg{saveErr: err}
			return
		}
		path, saveErr := store.Save(report)
		v.events <- runFinishedMsg{report: report, reportPath: path, saveErr: saveErr}
	}()

	return tea.Batch(v.waitForEvent(), v.spinner.Tick)
}

func (v *runView) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-v.events
	}
}

func (v *runView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case taskStartedMsg:
		v.setRow(m.id, rowRunning, "")
		return v.waitForEvent()
	case taskFinishedMsg:
		if m.result.State == runner.StateFailed {
			v.setRow(m.result.ID, rowFailed, m.result.Error)
		} else {
			v.setRow(m.result.ID, rowDone, m.result.FinishedAt.Sub(m.result.StartedAt).String())
		}
		return v.waitForEvent()
	case runFinishedMsg:
		v.finished = true
		v.report = m.report
		v.path = m.reportPath
		for _, id := range m.report.Stranded {
			v.setRow(id, rowStranded, "blocked by a failed dependency")
		}
		if m.saveErr != nil {
			v.app.statusMsg = fmt.Sprintf("Run finished, report not saved: %v", m.saveErr)
		}
		return nil
	case spinner.TickMsg:
		if v.finished {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(m)
		return cmd
	}
	return nil
}

func (v *runView) setRow(id task.ID, state rowState, detail string) {
	i, ok := v.index[id]
	if !ok {
		return
	}
	v.rows[i].state = state
	v.rows[i].detail = detail
}

func (v *runView) View() string {
	title := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Running target %s", v.target))
	lines := []string{title, ""}
	for _, row := range v.rows {
		lines = append(lines, v.renderRow(row))
	}
	lines = append(lines, "", v.renderSummary())
	return strings.Join(lines, "\n")
}

func (v *runView) renderRow(row taskRow) string {
	var glyph, label string
	var style lipgloss.Style
	switch row.state {
	case rowRunning:
		glyph, label, style = v.spinner.View(), "running", styleRunning
	case rowDone:
		glyph, label, style = "✓", "done", styleDone
	case rowFailed:
		glyph, label, style = "✗", "failed", styleFailed
	case rowStranded:
		glyph, label, style = "⚠", "stranded", styleStranded
	default:
		glyph, label, style = "·", "pending", stylePending
	}
	line := fmt.Sprintf("%s %-28s %s", glyph, row.id, style.Render(label))
	if row.detail != "" {
		line += styleDetail.Render(fmt.Sprintf("  %s", row.detail))
	}
	return line
}

func (v *runView) renderSummary() string {
	if !v.finished {
		counts := map[rowState]int{}
		for _, row := range v.rows {
			counts[row.state]++
		}
		return styleDetail.Render(fmt.Sprintf(
			"%d running · %d done · %d failed · %d pending",
			counts[rowRunning], counts[rowDone], counts[rowFailed], counts[rowPending],
		))
	}
	failed := len(v.report.Failed())
	line := fmt.Sprintf(
		"Run %s finished: %d done, %d failed, %d stranded",
		v.report.RunID, len(v.report.Results)-failed, failed, len(v.report.Stranded),
	)
	if failed > 0 || len(v.report.Stranded) > 0 {
		line = styleFailed.Render(line)
	} else {
		line = styleDone.Render(line)
	}
	parts := []string{line}
	if v.path != "" {
		parts = append(parts, styleDetail.Render(fmt.Sprintf("Report: %s", v.path)))
	}
	parts = append(parts, styleDetail.Render("Esc → back to targets"))
	return strings.Join(parts, "\n")
}
