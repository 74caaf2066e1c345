package task

import (
	"fmt"
	"reflect"
)

// ID uniquely identifies a task within a single graph. IDs are opaque to the
// scheduler; the workspace layer conventionally uses "project:target".
type ID string

// Task unites an identifier, a display name, and the action that runs when the
// task is dispatched. Tasks are immutable values once added to a builder.
type Task struct {
	ID     ID
	Name   string
	Action Action
}

// Validate ensures the task is well-formed before it enters a graph.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task: id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("task: name is required for %s", t.ID)
	}
	if t.Action == nil {
		return fmt.Errorf("task: action is required for %s", t.ID)
	}
	return nil
}

// Equal reports whether two tasks match on every field, including the full
// action payload.
func (t Task) Equal(other Task) bool {
	if t.ID != other.ID || t.Name != other.Name {
		return false
	}
	return reflect.DeepEqual(t.Action, other.Action)
}
