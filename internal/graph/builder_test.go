package graph

import (
	"errors"
	"testing"

	"github.com/trellisdev/trellis/internal/task"
)

func newTask(id string) task.Task {
	return task.Task{
		ID:     task.ID(id),
		Name:   id,
		Action: task.Shell{Command: []string{"true"}},
	}
}

func TestBuildOrdersDependenciesFirst(t *testing.T) {
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
		t.Fatalf("build: %v", err)
	}
	order := g.Order()
	if len(order) != 4 {
		t.Fatalf("expected 4 tasks in working order, got %d", len(order))
	}
	position := map[task.ID]int{}
	for idx, id := range order {
		position[id] = idx
	}
	for _, pair := range [][2]task.ID{{"a", "b"}, {"a", "d"}, {"b", "c"}, {"d", "c"}} {
		dependent, dependency := pair[0], pair[1]
		if position[dependency] >= position[dependent] {
			t.Fatalf("expected %s before %s in %v", dependency, dependent, order)
		}
	}
}

func TestBuildIsDeterministicAcrossRuns(t *testing.T) {
	declare := func() *Builder {
		builder := NewBuilder()
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			builder.AddTask(newTask(id))
		}
		builder.AddDependency("a", "b")
		builder.AddDependency("a", "d")
		builder.AddDependency("b", "c")
		builder.AddDependency("d", "c")
		return builder
	}
	first, err := declare().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	reference := first.Order()
	for run := 0; run < 20; run++ {
		g, err := declare().Build()
		if err != nil {
			t.Fatalf("build run %d: %v", run, err)
		}
		order := g.Order()
		for idx, id := range reference {
			if order[idx] != id {
				t.Fatalf("run %d: order %v differs from %v", run, order, reference)
			}
		}
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("a"))
	builder.AddTask(newTask("b"))
	builder.AddDependency("a", "b")
	builder.AddDependency("b", "a")

	_, err := builder.Build()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if cycleErr.Task != "a" && cycleErr.Task != "b" {
		t.Fatalf("cycle member %s is not part of the cycle", cycleErr.Task)
	}
}

func TestBuildNamesTaskInsideLargerCycle(t *testing.T) {
	// e depends on the cycle b -> c -> d -> b but is not part of it.
	builder := NewBuilder()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		builder.AddTask(newTask(id))
	}
	builder.AddDependency("b", "c")
	builder.AddDependency("c", "d")
	builder.AddDependency("d", "b")
	builder.AddDependency("e", "b")

	_, err := builder.Build()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	switch cycleErr.Task {
	case "b", "c", "d":
	default:
		t.Fatalf("cycle member %s is not on the b/c/d cycle", cycleErr.Task)
	}
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("a"))
	builder.AddDependency("a", "ghost")

	_, err := builder.Build()
	var unknownErr *UnknownDependencyError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownDependencyError, got %v", err)
	}
	if unknownErr.Task != "a" || unknownErr.Dependency != "ghost" {
		t.Fatalf("unexpected error detail: %+v", unknownErr)
	}
}

func TestBuildRejectsUnregisteredTaskWithDependencies(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("a"))
	builder.AddDependency("ghost", "a")

	_, err := builder.Build()
	var unregisteredErr *UnregisteredTaskError
	if !errors.As(err, &unregisteredErr) {
		t.Fatalf("expected UnregisteredTaskError, got %v", err)
	}
	if unregisteredErr.Task != "ghost" {
		t.Fatalf("unexpected task in error: %s", unregisteredErr.Task)
	}
}

func TestBuildIsSingleUse(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("a"))
	if _, err := builder.Build(); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := builder.Build(); !errors.Is(err, ErrBuilderConsumed) {
		t.Fatalf("expected ErrBuilderConsumed, got %v", err)
	}
}

func TestAddTaskOverwritesExistingEntry(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("a"))
	replacement := task.Task{
		ID:     "a",
		Name:   "renamed",
		Action: task.Shell{Command: []string{"false"}},
	}
	builder.AddTask(replacement)

	g, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got, outcome := g.Poll()
	if outcome != OutcomeReady {
		t.Fatalf("expected ready poll, got %s", outcome)
	}
	if !got.Equal(replacement) {
		t.Fatalf("expected overwritten task, got %+v", got)
	}
}

func TestDuplicateDependenciesAreTolerated(t *testing.T) {
	builder := NewBuilder()
	builder.AddTask(newTask("a"))
	builder.AddTask(newTask("b"))
	builder.AddDependency("a", "b")
	builder.AddDependency("a", "b")

	g, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, outcome := g.Poll(); outcome != OutcomeReady {
		t.Fatalf("expected b ready, got %s", outcome)
	}
	g.Done("b")
	got, outcome := g.Poll()
	if outcome != OutcomeReady || got.ID != "a" {
		t.Fatalf("expected a ready after done(b), got %s %s", got.ID, outcome)
	}
}
