// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for Trellis.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trellisdev/trellis/internal/config"
	"github.com/trellisdev/trellis/internal/logbook"
	"github.com/trellisdev/trellis/internal/task"
	"github.com/trellisdev/trellis/internal/workspace"
	"github.com/trellisdev/trellis/plugins"
)

// appState represents which "screen" we're on
type appState int

const (
	stateTargetMenu appState = iota // Target picker on the main board
	stateRunning                    // Live run board while a graph executes
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithRegistry overrides the action registry used when assembling tasks.
func WithRegistry(reg *task.Registry) AppOption {
	return func(a *App) {
		if reg != nil {
			a.registry = reg
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state     appState
	config    *config.Config
	workspace workspace.Workspace
	projects  map[string]workspace.Project
	registry  *task.Registry
	logbook   *logbook.Logbook

	runView *runView

	// UI components
	targetMenu list.Model
	statusMsg  string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// NewApp loads the workspace rooted at the given directory and builds the
// target picker from the targets its projects declare.
func NewApp(root string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(root)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.LoadWorkspace(cfg.WorkspacePath())
	if err != nil {
		return nil, err
	}
	projects, err := workspace.LoadProjects(ws, filepath.Dir(cfg.WorkspacePath()))
	if err != nil {
		return nil, err
	}

	registry := task.NewRegistry()
	task.RegisterBuiltins(registry)
	plugins.Register(registry)

	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log"))
	if err == nil {
		lb.Info("Session opened · workspace %s, %d project(s)", ws.Name, len(projects))
	}

	app := &App{
		state:     stateTargetMenu,
		config:    cfg,
		workspace: ws,
		projects:  projects,
		registry:  registry,
		logbook:   lb,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	menu := list.New(buildTargetMenu(projects), list.NewDefaultDelegate(), 0, 0)
	menu.Title = fmt.Sprintf("⬡ %s", strings.ToUpper(ws.Name))
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	app.targetMenu = menu
	return app, nil
}

// buildTargetMenu lists every target declared by at least one project.
func buildTargetMenu(projects map[string]workspace.Project) []list.Item {
	counts := map[string]int{}
	for _, project := range projects {
		for target := range project.Targets {
			counts[target]++
		}
	}
	targets := make([]string, 0, len(counts))
	for target := range counts {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	items := make([]list.Item, 0, len(targets)+1)
	for _, target := range targets {
		items = append(items, menuItem{
			title: target,
			desc:  fmt.Sprintf("Run %s across %d project(s)", target, counts[target]),
		})
	}
	items = append(items, menuItem{title: "Exit", desc: "Quit Trellis"})
	return items
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.targetMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-10))
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.state == stateTargetMenu {
				return a, tea.Quit
			}
			if a.runView != nil && a.runView.finished {
				return a.returnToMenu()
			}
		case "esc":
			if a.state == stateRunning && a.runView != nil && a.runView.finished {
				return a.returnToMenu()
			}
		case "enter":
			if a.state == stateTargetMenu {
				return a.handleTargetSelection()
			}
		}
	}

	var cmds []tea.Cmd
	switch a.state {
	case stateTargetMenu:
		var menuCmd tea.Cmd
		a.targetMenu, menuCmd = a.targetMenu.Update(msg)
		if menuCmd != nil {
			cmds = append(cmds, menuCmd)
		}
	case stateRunning:
		if a.runView != nil {
			if cmd := a.runView.Update(msg); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}

	return a, tea.Batch(cmds...)
}

// handleTargetSelection assembles the graph for the chosen target and moves
// to the run board.
func (a *App) handleTargetSelection() (tea.Model, tea.Cmd) {
	item, ok := a.targetMenu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}
	if item.title == "Exit" {
		a.logInfo("Menu · Exit selected")
		return a, tea.Quit
	}

	tasks, deps, err := workspace.Tasks(a.projects, []string{item.title}, a.registry)
	if err != nil {
		a.statusMsg = fmt.Sprintf("Cannot assemble %s: %v", item.title, err)
		a.logError("Assembly failed for %s: %v", item.title, err)
		return a, nil
	}
	g, err := workspace.BuildGraph(tasks, deps)
	if err != nil {
		a.statusMsg = fmt.Sprintf("Invalid graph for %s: %v", item.title, err)
		a.logError("Graph build failed for %s: %v", item.title, err)
		return a, nil
	}

	a.logInfo("Menu · running target %s (%d task(s))", item.title, len(tasks))
	a.state = stateRunning
	a.statusMsg = ""
	a.runView = newRunView(a, item.title, g)
	return a, a.runView.Init()
}

// returnToMenu transitions back to the target picker after a run.
func (a *App) returnToMenu() (tea.Model, tea.Cmd) {
	a.state = stateTargetMenu
	a.runView = nil
	a.statusMsg = ""
	a.logInfo("Returned to target menu")
	return a, nil
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ TRELLIS")

	var content string
	switch a.state {
	case stateTargetMenu:
		content = a.targetMenu.View()
	case stateRunning:
		if a.runView != nil {
			content = a.runView.View()
		} else {
			content = "Preparing run..."
		}
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, width-2)).
		Render(content)

	sections := []string{header, box}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, _ := a.logbook.Tail(8)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
