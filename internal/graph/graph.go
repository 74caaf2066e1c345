package graph

import (
	"github.com/trellisdev/trellis/internal/task"
)

// Outcome is the three-valued result of a Poll call.
type Outcome int

const (
	// OutcomeExhausted means the working order is empty. Terminal: once
	// observed, every later poll observes it too.
	OutcomeExhausted Outcome = iota
	// OutcomeNotReady means tasks remain but none has all of its dependencies
	// reported done yet.
	OutcomeNotReady
	// OutcomeReady means a task was dispatched and returned.
	OutcomeReady
)

// String renders the outcome for logs and reports.
func (o Outcome) String() string {
	switch o {
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeNotReady:
		return "not-ready"
	case OutcomeReady:
		return "ready"
	default:
		return "unknown"
	}
}

// TaskGraph is the runtime readiness cursor over a validated dependency
// graph. The working order shrinks only through dispatch (Poll); the
// completion set grows only through Done. The cursor is single-threaded by
// contract: callers that poll or report from several goroutines must
// serialize their access.
type TaskGraph struct {
	tasks        map[task.ID]task.Task
	dependencies map[task.ID]map[task.ID]struct{}
	done         map[task.ID]struct{}
	order        []task.ID
}

// Poll scans the working order front to back and dispatches the first task
// whose dependencies are all done; ties among simultaneously ready tasks are
// broken purely by that fixed position. The dispatched task is removed from
// the working order whether or not it is ever marked done. A task with no
// declared dependencies is vacuously ready.
func (g *TaskGraph) Poll() (task.Task, Outcome) {
	if len(g.order) == 0 {
		return task.Task{}, OutcomeExhausted
	}
	for idx, id := range g.order {
		if !g.satisfied(id) {
			continue
		}
		g.order = append(g.order[:idx], g.order[idx+1:]...)
		return g.tasks[id], OutcomeReady
	}
	return task.Task{}, OutcomeNotReady
}

// Done records external completion of the task. Idempotent, and tolerant of
// ids that were never registered or never dispatched; the executor owns the
// accuracy of its reports.
func (g *TaskGraph) Done(id task.ID) {
	g.done[id] = struct{}{}
}

// Remaining returns how many tasks have not been dispatched yet. A dispatched
// task that was never marked done no longer counts.
func (g *TaskGraph) Remaining() int {
	return len(g.order)
}

// Order returns a copy of the current working order.
func (g *TaskGraph) Order() []task.ID {
	out := make([]task.ID, len(g.order))
	copy(out, g.order)
	return out
}

func (g *TaskGraph) satisfied(id task.ID) bool {
	for dep := range g.dependencies[id] {
		if _, ok := g.done[dep]; !ok {
			return false
		}
	}
	return true
}
