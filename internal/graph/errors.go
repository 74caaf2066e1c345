package graph

import (
	"errors"
	"fmt"

	"github.com/trellisdev/trellis/internal/task"
)

// ErrBuilderConsumed is returned when Build is called on a builder that
// already produced a graph. A builder is single-use.
var ErrBuilderConsumed = errors.New("graph: builder already consumed")

// CycleError reports that the dependency declarations cannot be linearized.
// Task names one member of some cycle; it is not necessarily a minimal or
// complete description of the cycle.
type CycleError struct {
	Task task.ID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph: dependency cycle involving task %s", e.Task)
}

// UnknownDependencyError reports a dependency declaration whose target was
// never registered via AddTask. AddDependency tolerates unknown ids; Build
// rejects them so a graph can never dispatch a task it cannot describe.
type UnknownDependencyError struct {
	Task       task.ID
	Dependency task.ID
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("graph: task %s depends on unregistered task %s", e.Task, e.Dependency)
}

// UnregisteredTaskError reports a task that declared dependencies but was
// never registered via AddTask.
type UnregisteredTaskError struct {
	Task task.ID
}

func (e *UnregisteredTaskError) Error() string {
	return fmt.Sprintf("graph: dependencies declared for unregistered task %s", e.Task)
}
