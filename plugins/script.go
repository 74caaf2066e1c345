// Package plugins extends the task action set with workspace-provided Go
// scripts. Scripts are plain .go files interpreted at run time with yaegi, so
// a workspace can ship custom actions without recompiling the tool.
package plugins

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Kind is the registry key for the script action.
const Kind = "script"

const defaultFuncName = "Run"

// Script runs a function declared in an interpreted Go file. The function may
// take no arguments or a single []string, and may return nothing or an error.
type Script struct {
	Path string
	Func string
	Args []string
}

// Kind implements task.Action.
func (s Script) Kind() string { return Kind }

// Run interprets the script file and invokes its entry function, blocking
// until it returns. Interpretation and invocation failures are returned to
// the executor like any other action failure.
func (s Script) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return fmt.Errorf("plugins: script action requires a path")
	}
	interpreter := interp.New(interp.Options{})
	if err := interpreter.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("plugins: load stdlib symbols: %w", err)
	}
	if _, err := interpreter.EvalPath(path); err != nil {
		return fmt.Errorf("plugins: interpret %s: %w", path, err)
	}
	name := strings.TrimSpace(s.Func)
	if name == "" {
		name = defaultFuncName
	}
	value, err := interpreter.Eval(name)
	if err != nil {
		return fmt.Errorf("plugins: %s must define %s: %w", path, name, err)
	}
	if err := invokeScriptFunc(value, s.Args); err != nil {
		return fmt.Errorf("plugins: %s %s: %w", path, name, err)
	}
	return nil
}

func invokeScriptFunc(value reflect.Value, args []string) error {
	if !value.IsValid() {
		return fmt.Errorf("entry symbol is missing")
	}
	fn := value
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("entry symbol is not a function")
	}

	fnType := fn.Type()
	var callArgs []reflect.Value
	switch fnType.NumIn() {
	case 0:
	case 1:
		if fnType.In(0) != reflect.TypeOf([]string{}) {
			return fmt.Errorf("entry function must take no arguments or a single []string")
		}
		callArgs = []reflect.Value{reflect.ValueOf(append([]string{}, args...))}
	default:
		return fmt.Errorf("entry function must take no arguments or a single []string")
	}

	results := fn.Call(callArgs)
	if len(results) == 0 {
		return nil
	}
	if len(results) > 1 {
		return fmt.Errorf("entry function must return nothing or a single error")
	}
	last := results[0]
	errType := reflect.TypeOf((*error)(nil)).Elem()
	if !last.Type().Implements(errType) {
		return fmt.Errorf("entry function must return nothing or a single error")
	}
	if last.IsNil() {
		return nil
	}
	return last.Interface().(error)
}
