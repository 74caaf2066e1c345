// Package runner is the execution collaborator for the scheduling core. It
// drives the poll/done protocol against a task graph, executes actions
// sequentially or on a bounded worker pool, and turns action failures into
// recorded results instead of aborting the run: a failed task is never marked
// done, so its dependents stay blocked while independent subgraphs keep
// making progress. A single goroutine owns the graph; workers only run
// actions.
package runner
