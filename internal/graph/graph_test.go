package graph

import (
	"testing"

	"github.com/trellisdev/trellis/internal/task"
)

func buildDiamond(t *testing.T) *TaskGraph {
	t.Helper()
	// a depends on b and d; b and d both depend on c.
	builder := NewBuilder()
	for _, id := range []string{"a", "b", "c", "d"} {
		builder.AddTask(newTask(id))
	}
	builder.AddDependency("a", "b")
	builder.AddDependency("a", "d")
	builder.AddDependency("b", "c")
	builder.AddDependency("d", "c")
	g, err := builder.Build()
	if err != nil {
		t.Fatalf("build diamond: %v", err)
	}
	return g
}

func mustPollReady(t *testing.T, g *TaskGraph) task.Task {
	t.Helper()
	got, outcome := g.Poll()
	if outcome != OutcomeReady {
		t.Fatalf("expected ready poll, got %s", outcome)
	}
	return got
}

func TestDiamondDispatchSequence(t *testing.T) {
	g := buildDiamond(t)
	if g.Remaining() != 4 {
		t.Fatalf("expected 4 remaining, got %d", g.Remaining())
	}

	first := mustPollReady(t, g)
	if first.ID != "c" {
		t.Fatalf("first ready task should be c, got %s", first.ID)
	}
	if _, outcome := g.Poll(); outcome != OutcomeNotReady {
		t.Fatalf("expected not-ready before done(c), got %s", outcome)
	}

	g.Done("c")
	second := mustPollReady(t, g)
	third := mustPollReady(t, g)
	if second.ID != "b" || third.ID != "d" {
		t.Fatalf("expected b then d in construction order, got %s then %s", second.ID, third.ID)
	}

	if _, outcome := g.Poll(); outcome != OutcomeNotReady {
		t.Fatalf("expected not-ready before b and d are done, got %s", outcome)
	}
	g.Done("b")
	if _, outcome := g.Poll(); outcome != OutcomeNotReady {
		t.Fatalf("expected not-ready with d outstanding, got %s", outcome)
	}
	g.Done("d")

	last := mustPollReady(t, g)
	if last.ID != "a" {
		t.Fatalf("final task should be a, got %s", last.ID)
	}
	g.Done("a")

	if g.Remaining() != 0 {
		t.Fatalf("expected 0 remaining, got %d", g.Remaining())
	}
	if _, outcome := g.Poll(); outcome != OutcomeExhausted {
		t.Fatalf("expected exhausted, got %s", outcome)
	}
}

func TestExhaustedIsTerminal(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("only"))
	g, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	mustPollReady(t, g)
	for i := 0; i < 5; i++ {
		if _, outcome := g.Poll(); outcome != OutcomeExhausted {
			t.Fatalf("poll %d: expected exhausted, got %s", i, outcome)
		}
	}
}

func TestIsolatedTaskIsReadyImmediately(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("x"))
	builder.AddTask(newTask("y"))
	builder.AddTask(newTask("e"))
	builder.AddDependency("x", "y")
	g, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// y and e carry no dependencies; both dispatch before x regardless of any
	// completion reports.
	first := mustPollReady(t, g)
	second := mustPollReady(t, g)
	dispatched := map[task.ID]bool{first.ID: true, second.ID: true}
	if !dispatched["y"] || !dispatched["e"] {
		t.Fatalf("expected y and e dispatched first, got %s and %s", first.ID, second.ID)
	}
}

func TestNotReadyBeforeDependencyDone(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("x"))
	builder.AddTask(newTask("y"))
	builder.AddDependency("x", "y")
	g, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	yTask := mustPollReady(t, g)
	if yTask.ID != "y" {
		t.Fatalf("expected y first, got %s", yTask.ID)
	}
	if _, outcome := g.Poll(); outcome != OutcomeNotReady {
		t.Fatalf("expected not-ready before done(y), got %s", outcome)
	}
	g.Done("y")
	xTask := mustPollReady(t, g)
	if xTask.ID != "x" {
		t.Fatalf("expected x after done(y), got %s", xTask.ID)
	}
}

func TestReadyTasksAlwaysHaveSatisfiedDependencies(t *testing.T) {
	g := buildDiamond(t)
	deps := map[task.ID][]task.ID{
		"a": {"b", "d"},
		"b": {"c"},
		"d": {"c"},
	}
	completed := map[task.ID]bool{}
	yielded := map[task.ID]int{}
	for {
		got, outcome := g.Poll()
		switch outcome {
		case OutcomeExhausted:
			for id, count := range yielded {
				if count != 1 {
					t.Fatalf("task %s yielded %d times", id, count)
				}
			}
			if len(yielded) != 4 {
				t.Fatalf("expected every task yielded exactly once, got %d", len(yielded))
			}
			return
		case OutcomeNotReady:
			t.Fatalf("unexpected not-ready while completing in poll order")
		case OutcomeReady:
			for _, dep := range deps[got.ID] {
				if !completed[dep] {
					t.Fatalf("task %s dispatched before dependency %s was done", got.ID, dep)
				}
			}
			yielded[got.ID]++
			completed[got.ID] = true
			g.Done(got.ID)
		}
	}
}

func TestRemainingIgnoresDoneCalls(t *testing.T) {
	g := buildDiamond(t)
	before := g.Remaining()
	g.Done("c")
	g.Done("nonexistent")
	if g.Remaining() != before {
		t.Fatalf("done must not change remaining: %d != %d", g.Remaining(), before)
	}
	mustPollReady(t, g)
	if g.Remaining() != before-1 {
		t.Fatalf("ready poll must decrement remaining by one: %d", g.Remaining())
	}
}

func TestDoneIsIdempotentAndUnchecked(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("x"))
	builder.AddTask(newTask("y"))
	builder.AddDependency("x", "y")
	g, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Accepted unconditionally, even for ids never registered or dispatched.
	g.Done("y")
	g.Done("y")
	g.Done("stranger")
	first := mustPollReady(t, g)
	second := mustPollReady(t, g)
	if first.ID != "y" || second.ID != "x" {
		t.Fatalf("expected y then x, got %s then %s", first.ID, second.ID)
	}
}

func TestDispatchedButNotDoneBlocksDependentsForever(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("x"))
	builder.AddTask(newTask("y"))
	builder.AddDependency("x", "y")
	g, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	mustPollReady(t, g) // y dispatched but never reported done
	for i := 0; i < 3; i++ {
		if _, outcome := g.Poll(); outcome != OutcomeNotReady {
			t.Fatalf("poll %d: expected not-ready, got %s", i, outcome)
		}
	}
	if g.Remaining() != 1 {
		t.Fatalf("x should remain undispatched, remaining=%d", g.Remaining())
	}
}
