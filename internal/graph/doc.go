// Package graph is the scheduling core: it validates task dependency
// declarations into an acyclic graph and exposes a pull-based cursor that
// yields tasks one at a time once their dependencies are reported done.
// The package never touches threads, processes, or files; executing actions
// and parallelising ready work belong to the runner collaborator.
package graph
