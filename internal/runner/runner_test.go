package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trellisdev/trellis/internal/graph"
	"github.com/trellisdev/trellis/internal/task"
)

type fakeAction struct {
	run func(ctx context.Context) error
}

func (fakeAction) Kind() string { return "fake" }

func (a fakeAction) Run(ctx context.Context) error {
	if a.run == nil {
		return nil
	}
	return a.run(ctx)
}

func buildGraph(t *testing.T, ids []task.ID, deps map[task.ID][]task.ID, actions map[task.ID]task.Action) *graph.TaskGraph {
	t.Helper()
	b := graph.NewBuilder()
	for _, id := range ids {
		action := actions[id]
		if action == nil {
			action = fakeAction{}
		}
		b.AddTask(task.Task{ID: id, Name: string(id), Action: action})
	}
	for id, wants := range deps {
		for _, dep := range wants {
			b.AddDependency(id, dep)
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestRunExecutesInDependencyOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []task.ID
	record := func(id task.ID) task.Action {
		return fakeAction{run: func(context.Context) error {
			mu.Lock()
			seen = append(seen, id)
			mu.Unlock()
			return nil
		}}
	}

	g := buildGraph(t,
		[]task.ID{"deploy", "build", "test"},
		map[task.ID][]task.ID{
			"deploy": {"test"},
			"test":   {"build"},
		},
		map[task.ID]task.Action{
			"deploy": record("deploy"),
			"build":  record("build"),
			"test":   record("test"),
		},
	)

	report, err := New().Run(context.Background(), Request{Graph: g, Workspace: "acme"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []task.ID{"build", "test", "deploy"}
	if len(seen) != len(want) {
		t.Fatalf("executed %v, want %v", seen, want)
	}
	for i, id := range want {
		if seen[i] != id {
			t.Fatalf("executed %v, want %v", seen, want)
		}
	}
	if !report.Succeeded() {
		t.Fatalf("expected clean run, got failed=%d stranded=%v", len(report.Failed()), report.Stranded)
	}
	if report.Workspace != "acme" {
		t.Fatalf("workspace = %q, want acme", report.Workspace)
	}
	if report.RunID == "" {
		t.Fatal("expected a generated run id")
	}
}

func TestRunRecordsFailureAndStrandsDependents(t *testing.T) {
	boom := errors.New("compiler exploded")
	g := buildGraph(t,
		[]task.ID{"build", "test", "lint"},
		map[task.ID][]task.ID{"test": {"build"}},
		map[task.ID]task.Action{
			"build": fakeAction{run: func(context.Context) error { return boom }},
		},
	)

	report, err := New().Run(context.Background(), Request{Graph: g})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	failed := report.Failed()
	if len(failed) != 1 || failed[0].ID != "build" {
		t.Fatalf("failed = %+v, want just build", failed)
	}
	if failed[0].Error != boom.Error() {
		t.Fatalf("failure message = %q, want %q", failed[0].Error, boom.Error())
	}
	if len(report.Stranded) != 1 || report.Stranded[0] != "test" {
		t.Fatalf("stranded = %v, want [test]", report.Stranded)
	}
	// lint has no dependencies, so it still ran.
	ran := map[task.ID]TaskState{}
	for _, result := range report.Results {
		ran[result.ID] = result.State
	}
	if ran["lint"] != StateDone {
		t.Fatalf("lint state = %q, want done", ran["lint"])
	}
	if report.Succeeded() {
		t.Fatal("run with a failure must not report success")
	}
}

func TestRunParallelRespectsWorkerBound(t *testing.T) {
	var active, peak atomic.Int32
	work := func(context.Context) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return nil
	}

	ids := []task.ID{"a", "b", "c", "d", "e", "f"}
	actions := map[task.ID]task.Action{}
	for _, id := range ids {
		actions[id] = fakeAction{run: work}
	}
	g := buildGraph(t, ids, nil, actions)

	report, err := New(WithWorkers(3)).Run(context.Background(), Request{Graph: g})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Succeeded() {
		t.Fatal("expected all tasks to finish")
	}
	if got := peak.Load(); got > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", got)
	}
	if len(report.Results) != len(ids) {
		t.Fatalf("results = %d, want %d", len(report.Results), len(ids))
	}
}

func TestRunStopsDispatchingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := buildGraph(t,
		[]task.ID{"first", "second"},
		map[task.ID][]task.ID{"second": {"first"}},
		map[task.ID]task.Action{
			"first": fakeAction{run: func(context.Context) error {
				cancel()
				return nil
			}},
		},
	)

	report, err := New().Run(ctx, Request{Graph: g})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].ID != "first" {
		t.Fatalf("results = %+v, want just first", report.Results)
	}
	if len(report.Stranded) != 1 || report.Stranded[0] != "second" {
		t.Fatalf("stranded = %v, want [second]", report.Stranded)
	}
}

type recordingReporter struct {
	started  []task.ID
	finished []TaskResult
	reports  []Report
}

func (r *recordingReporter) TaskStarted(t task.Task)        { r.started = append(r.started, t.ID) }
func (r *recordingReporter) TaskFinished(result TaskResult) { r.finished = append(r.finished, result) }
func (r *recordingReporter) RunFinished(report Report)      { r.reports = append(r.reports, report) }

func TestRunNotifiesReporter(t *testing.T) {
	g := buildGraph(t,
		[]task.ID{"build", "test"},
		map[task.ID][]task.ID{"test": {"build"}},
		nil,
	)

	rec := &recordingReporter{}
	runner := New(
		WithReporter(rec),
		WithRunID(func() string { return "run-fixed" }),
	)
	if _, err := runner.Run(context.Background(), Request{Graph: g}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(rec.started) != 2 || rec.started[0] != "build" || rec.started[1] != "test" {
		t.Fatalf("started = %v, want [build test]", rec.started)
	}
	if len(rec.finished) != 2 {
		t.Fatalf("finished = %d events, want 2", len(rec.finished))
	}
	if len(rec.reports) != 1 || rec.reports[0].RunID != "run-fixed" {
		t.Fatalf("run reports = %+v, want one with run-fixed", rec.reports)
	}
}

func TestRunRejectsNilGraph(t *testing.T) {
	if _, err := New().Run(context.Background(), Request{}); err == nil {
		t.Fatal("expected an error for a nil graph")
	}
}
