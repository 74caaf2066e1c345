package workspace

import (
	"fmt"
	"sort"

	"github.com/trellisdev/trellis/internal/graph"
	"github.com/trellisdev/trellis/internal/task"
)

// Dependency declares that Task may only run after DependsOn is done.
type Dependency struct {
	Task      task.ID
	DependsOn task.ID
}

// TaskID composes the conventional "project:target" task identifier.
func TaskID(project, target string) task.ID {
	return task.ID(project + ":" + target)
}

// Tasks assembles task and dependency declarations for the requested targets
// across the given projects. Projects are visited in sorted name order and
// targets in the order requested, so the same inputs always declare tasks in
// the same order. A project that does not define a requested target is
// skipped. Action payloads are decoded through the registry; unset kinds
// default to shell.
func Tasks(projects map[string]Project, targets []string, reg *task.Registry) ([]task.Task, []Dependency, error) {
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("workspace: at least one target is required")
	}
	if reg == nil {
		return nil, nil, fmt.Errorf("workspace: action registry is required")
	}

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	var tasks []task.Task
	var dependencies []Dependency
	for _, target := range targets {
		for _, name := range names {
			declared, ok := projects[name].Targets[target]
			if !ok {
				continue
			}
			id := TaskID(name, target)
			kind := declared.Kind
			if kind == "" {
				kind = task.ShellKind
			}
			action, err := reg.Resolve(kind, task.Payload(declared.With))
			if err != nil {
				return nil, nil, fmt.Errorf("workspace: target %s: %w", id, err)
			}
			tasks = append(tasks, task.Task{ID: id, Name: string(id), Action: action})
			for _, dep := range declared.DependsOn {
				dependencies = append(dependencies, Dependency{Task: id, DependsOn: task.ID(dep)})
			}
		}
	}
	if len(tasks) == 0 {
		return nil, nil, fmt.Errorf("workspace: no project defines any of the requested targets")
	}
	return tasks, dependencies, nil
}

// BuildGraph feeds assembled declarations into a graph builder and returns
// the validated cursor.
func BuildGraph(tasks []task.Task, dependencies []Dependency) (*graph.TaskGraph, error) {
	builder := graph.NewBuilder()
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		builder.AddTask(t)
	}
	for _, dep := range dependencies {
		builder.AddDependency(dep.Task, dep.DependsOn)
	}
	return builder.Build()
}
