// Package workspace loads and validates workspace and project descriptions,
// computes tag-based affected-project sets, and assembles the task and
// dependency declarations the scheduling core consumes. It owns every file
// path explicitly; nothing in here reads a conventional location.
package workspace
