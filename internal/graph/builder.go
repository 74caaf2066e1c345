package graph

import (
	"github.com/trellisdev/trellis/internal/task"
)

// Builder accumulates tasks and dependency declarations, then performs one
// fallible Build that validates acyclicity and fixes the dependency-first
// working order. Registration order is preserved so the same declarations
// always produce the same working order.
type Builder struct {
	tasks    map[task.ID]task.Task
	deps     map[task.ID][]task.ID
	order    []task.ID
	consumed bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		tasks: map[task.ID]task.Task{},
		deps:  map[task.ID][]task.ID{},
	}
}

// AddTask inserts or overwrites the task under its id and ensures a (possibly
// empty) dependency entry exists, so isolated tasks are representable.
func (b *Builder) AddTask(t task.Task) {
	b.ensureEntry(t.ID)
	b.tasks[t.ID] = t
}

// AddDependency appends a dependency to the task's list: the task may only
// run after the dependency is done. Duplicates are tolerated; neither id is
// checked here — Build validates that both name registered tasks.
func (b *Builder) AddDependency(id, dependency task.ID) {
	b.ensureEntry(id)
	b.deps[id] = append(b.deps[id], dependency)
}

func (b *Builder) ensureEntry(id task.ID) {
	if _, exists := b.deps[id]; exists {
		return
	}
	b.deps[id] = nil
	b.order = append(b.order, id)
}

// Build consumes the builder and returns a validated cursor, or a CycleError
// naming a task inside a cycle. The working order is a topological sort
// seeded from the tasks with no dependencies, walking the dependent relation,
// so every dependency precedes every task that depends on it.
func (b *Builder) Build() (*TaskGraph, error) {
	if b.consumed {
		return nil, ErrBuilderConsumed
	}
	b.consumed = true

	for _, id := range b.order {
		if _, registered := b.tasks[id]; !registered {
			return nil, &UnregisteredTaskError{Task: id}
		}
		for _, dep := range b.deps[id] {
			if _, registered := b.tasks[dep]; !registered {
				return nil, &UnknownDependencyError{Task: id, Dependency: dep}
			}
		}
	}

	dependencies := make(map[task.ID]map[task.ID]struct{}, len(b.order))
	dependents := make(map[task.ID][]task.ID, len(b.order))
	indegree := make(map[task.ID]int, len(b.order))
	for _, id := range b.order {
		set := make(map[task.ID]struct{}, len(b.deps[id]))
		for _, dep := range b.deps[id] {
			if _, duplicate := set[dep]; duplicate {
				continue
			}
			set[dep] = struct{}{}
			dependents[dep] = append(dependents[dep], id)
			indegree[id]++
		}
		dependencies[id] = set
	}

	var queue []task.ID
	for _, id := range b.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	ordered := make([]task.ID, 0, len(b.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered = append(ordered, id)
		for _, successor := range dependents[id] {
			indegree[successor]--
			if indegree[successor] == 0 {
				queue = append(queue, successor)
			}
		}
	}

	if len(ordered) != len(b.order) {
		return nil, &CycleError{Task: b.cycleMember(ordered)}
	}

	return &TaskGraph{
		tasks:        b.tasks,
		dependencies: dependencies,
		done:         map[task.ID]struct{}{},
		order:        ordered,
	}, nil
}

// cycleMember walks the unsorted remainder of the graph along unsorted
// dependencies until a task repeats; that task is on a cycle. Every unsorted
// task keeps at least one unsorted dependency, so the walk cannot stall.
func (b *Builder) cycleMember(sorted []task.ID) task.ID {
	placed := make(map[task.ID]struct{}, len(sorted))
	for _, id := range sorted {
		placed[id] = struct{}{}
	}
	var current task.ID
	for _, id := range b.order {
		if _, ok := placed[id]; !ok {
			current = id
			break
		}
	}
	visited := map[task.ID]struct{}{}
	for {
		if _, seen := visited[current]; seen {
			return current
		}
		visited[current] = struct{}{}
		for _, dep := range b.deps[current] {
			if _, ok := placed[dep]; !ok {
				current = dep
				break
			}
		}
	}
}
