package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/trellisdev/trellis/internal/config"
	"github.com/trellisdev/trellis/internal/logbook"
	"github.com/trellisdev/trellis/internal/logging"
	"github.com/trellisdev/trellis/internal/runner"
	"github.com/trellisdev/trellis/internal/task"
	"github.com/trellisdev/trellis/internal/workspace"
	"github.com/trellisdev/trellis/plugins"
)

func main() {
	root := flag.String("workspace", "", "workspace root (defaults to cwd)")
	targetsFlag := flag.String("targets", "", "comma-separated targets to run (defaults to config)")
	projectsFlag := flag.String("projects", "", "comma-separated project filter")
	affected := flag.String("affected", "", "run only projects affected by this project")
	parallel := flag.Int("parallel", 0, "worker count override (0 uses config)")
	orderOnly := flag.Bool("order", false, "print the working order and exit")
	validate := flag.Bool("validate", false, "validate the workspace and exit")
	listPlugins := flag.Bool("plugins", false, "list discovered script plugins and exit")
	flag.Parse()

	dir := *root
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
		dir = cwd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		die("resolve workspace root: %v", err)
	}
	if err := config.InitTrellisDir(dir); err != nil {
		die("init .trellis: %v", err)
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		die("load config: %v", err)
	}

	log, err := logging.New(dir)
	if err != nil {
		die("open log: %v", err)
	}
	defer log.Close()

	if *validate {
		os.Exit(runValidate(cfg))
	}
	if *listPlugins {
		os.Exit(runListPlugins(cfg))
	}

	ws, err := workspace.LoadWorkspace(cfg.WorkspacePath())
	if err != nil {
		die("load workspace: %v", err)
	}
	projects, err := workspace.LoadProjects(ws, filepath.Dir(cfg.WorkspacePath()))
	if err != nil {
		die("load projects: %v", err)
	}
	projects, err = filterProjects(projects, splitList(*projectsFlag), *affected)
	if err != nil {
		die("%v", err)
	}

	targets := splitList(*targetsFlag)
	if len(targets) == 0 {
		targets = cfg.DefaultTargets()
	}

	reg := task.NewRegistry()
	task.RegisterBuiltins(reg)
	plugins.Register(reg)

	log.Printf("run requested: targets=%v projects=%d parallel=%d", targets, len(projects), *parallel)

	tasks, deps, err := workspace.Tasks(projects, targets, reg)
	if err != nil {
		die("assemble tasks: %v", err)
	}
	g, err := workspace.BuildGraph(tasks, deps)
	if err != nil {
		die("build graph: %v", err)
	}

	if *orderOnly {
		for _, id := range g.Order() {
			fmt.Println(id)
		}
		return
	}

	workers := cfg.Parallel()
	if *parallel > 0 {
		workers = *parallel
	}

	reporter := runner.Reporter(consoleReporter{})
	if book, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log")); err == nil {
		reporter = runner.Combine(reporter, runner.LogbookReporter{Book: book})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(runner.WithWorkers(workers), runner.WithReporter(reporter))
	report, err := r.Run(ctx, runner.Request{Graph: g, Workspace: ws.Name})
	if err != nil {
		die("run: %v", err)
	}

	log.Printf("run %s finished: %d result(s), %d stranded", report.RunID, len(report.Results), len(report.Stranded))

	if path, err := runner.NewStore(cfg.RunsDir()).Save(report); err != nil {
		fmt.Fprintf(os.Stderr, "warning: report not saved: %v\n", err)
	} else {
		fmt.Printf("Report: %s\n", path)
	}
	if !report.Succeeded() {
		os.Exit(1)
	}
}

func runValidate(cfg *config.Config) int {
	issues := workspace.ValidateFile(cfg.WorkspacePath())
	if len(issues) == 0 {
		fmt.Println("workspace ok")
		return 0
	}
	for _, issue := range issues {
		fmt.Println(issue)
	}
	return 1
}

func runListPlugins(cfg *config.Config) int {
	scripts, err := plugins.Discover(cfg.PluginsDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover plugins: %v\n", err)
		return 1
	}
	if len(scripts) == 0 {
		fmt.Println("no script plugins found")
		return 0
	}
	for _, script := range scripts {
		fmt.Println(script)
	}
	return 0
}

// filterProjects narrows the project set to an explicit list, an affected
// closure, or both. An empty filter keeps everything.
func filterProjects(projects map[string]workspace.Project, names []string, affected string) (map[string]workspace.Project, error) {
	keep := map[string]struct{}{}
	if affected = strings.TrimSpace(affected); affected != "" {
		reached, err := workspace.Affected(projects, affected)
		if err != nil {
			return nil, err
		}
		keep[affected] = struct{}{}
		for _, name := range reached {
			keep[name] = struct{}{}
		}
	}
	for _, name := range names {
		if _, ok := projects[name]; !ok {
			return nil, fmt.Errorf("unknown project %q", name)
		}
		keep[name] = struct{}{}
	}
	if len(keep) == 0 {
		return projects, nil
	}
	filtered := make(map[string]workspace.Project, len(keep))
	for name := range keep {
		filtered[name] = projects[name]
	}
	return filtered, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type consoleReporter struct{}

func (consoleReporter) TaskStarted(t task.Task) {
	fmt.Printf("▶ %s\n", t.ID)
}

func (consoleReporter) TaskFinished(result runner.TaskResult) {
	if result.State == runner.StateFailed {
		fmt.Printf("✗ %s: %s\n", result.ID, result.Error)
		return
	}
	fmt.Printf("✓ %s (%s)\n", result.ID, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
}

func (consoleReporter) RunFinished(report runner.Report) {
	failed := len(report.Failed())
	fmt.Printf("Run %s: %d done, %d failed, %d stranded\n",
		report.RunID, len(report.Results)-failed, failed, len(report.Stranded))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
