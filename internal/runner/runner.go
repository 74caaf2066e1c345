package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trellisdev/trellis/internal/graph"
	"github.com/trellisdev/trellis/internal/task"
)

// Runner executes the tasks of a graph in dependency order.
type Runner struct {
	workers  int
	reporter Reporter
	clock    func() time.Time
	newRunID func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds how many actions may execute at once. Values below one
// are treated as one, which gives strictly sequential execution.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithReporter installs the observer for run events.
func WithReporter(reporter Reporter) Option {
	return func(r *Runner) {
		if reporter != nil {
			r.reporter = reporter
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRunID overrides run id generation, for tests.
func WithRunID(gen func() string) Option {
	return func(r *Runner) {
		if gen != nil {
			r.newRunID = gen
		}
	}
}

// New creates a sequential runner; use options to widen or instrument it.
func New(opts ...Option) *Runner {
	r := &Runner{
		workers:  1,
		reporter: NopReporter{},
		clock:    time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request names a run: the graph to drive and the workspace it came from.
type Request struct {
	Graph     *graph.TaskGraph
	Workspace string
}

type completion struct {
	id       task.ID
	name     string
	err      error
	started  time.Time
	finished time.Time
}

// Run drives the graph until every task has finished or no further progress
// is possible. The graph is owned by this goroutine for the whole run; worker
// goroutines only execute actions and report back on a channel. A failing
// action does not stop the run: the failure is recorded, the task is never
// marked done, and anything depending on it ends up stranded in the report.
// Cancelling the context stops new dispatches; in-flight actions are left to
// observe the context themselves.
func (r *Runner) Run(ctx context.Context, req Request) (Report, error) {
	if req.Graph == nil {
		return Report{}, fmt.Errorf("runner: run requires a graph")
	}

	report := Report{
		RunID:     r.newRunID(),
		Workspace: req.Workspace,
		StartedAt: r.clock(),
	}

	results := make(chan completion)
	inFlight := 0
	for {
		for ctx.Err() == nil && inFlight < r.workers {
			next, outcome := req.Graph.Poll()
			if outcome != graph.OutcomeReady {
				break
			}
			inFlight++
			r.reporter.TaskStarted(next)
			go r.execute(ctx, next, results)
		}
		if inFlight == 0 {
			break
		}

		done := <-results
		inFlight--
		result := TaskResult{
			ID:         done.id,
			Name:       done.name,
			State:      StateDone,
			StartedAt:  done.started,
			FinishedAt: done.finished,
		}
		if done.err != nil {
			result.State = StateFailed
			result.Error = done.err.Error()
		} else {
			req.Graph.Done(done.id)
		}
		report.Results = append(report.Results, result)
		r.reporter.TaskFinished(result)
	}

	report.Stranded = req.Graph.Order()
	report.FinishedAt = r.clock()
	r.reporter.RunFinished(report)
	return report, nil
}

func (r *Runner) execute(ctx context.Context, t task.Task, results chan<- completion) {
	started := r.clock()
	err := t.Action.Run(ctx)
	results <- completion{
		id:       t.ID,
		name:     t.Name,
		err:      err,
		started:  started,
		finished: r.clock(),
	}
}
