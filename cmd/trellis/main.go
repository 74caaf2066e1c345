// cmd/trellis/main.go
//
// This is the entry point for the Trellis TUI.
// When you run `trellis` from a workspace root, this is what executes.
//
// Flow:
// 1. Initialize the .trellis folder in the workspace root
// 2. Load the workspace description and its projects
// 3. Launch the target board TUI

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/trellisdev/trellis/internal/config"
	"github.com/trellisdev/trellis/internal/tui"
)

func main() {
	root := flag.String("workspace", "", "workspace root (defaults to cwd)")
	flag.Parse()

	dir := *root
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
			os.Exit(1)
		}
		dir = cwd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving workspace root: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitTrellisDir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .trellis directory: %v\n", err)
		os.Exit(1)
	}

	app, err := tui.NewApp(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading workspace: %v\n", err)
		os.Exit(1)
	}

	// tea.NewProgram creates a new bubbletea application.
	p := tea.NewProgram(
		app,
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
