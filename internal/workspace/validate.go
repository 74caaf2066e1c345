package workspace

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// IssueKind enumerates workspace validation findings.
type IssueKind string

const (
	IssueWorkspaceDecode IssueKind = "workspace-decode"
	IssueProjectDecode   IssueKind = "project-decode"
	IssueMissingTarget   IssueKind = "missing-target"
	IssueUnknownTags     IssueKind = "unknown-tags"
)

// Issue describes one validation finding against workspace policy.
type Issue struct {
	Kind    IssueKind
	Project string
	Target  string
	Tags    []string
	Detail  string
}

// String renders the issue for reports and logs.
func (i Issue) String() string {
	switch i.Kind {
	case IssueWorkspaceDecode:
		return fmt.Sprintf("workspace description could not be read: %s", i.Detail)
	case IssueProjectDecode:
		return fmt.Sprintf("project %s could not be read: %s", i.Project, i.Detail)
	case IssueMissingTarget:
		return fmt.Sprintf("project %s is missing required target %s", i.Project, i.Target)
	case IssueUnknownTags:
		return fmt.Sprintf("project %s uses unknown tags: %s", i.Project, strings.Join(i.Tags, ", "))
	default:
		return i.Detail
	}
}

// ValidateFile loads the workspace at path and validates every project it
// declares. Decode failures are collected as issues rather than aborting, so
// one broken project file does not hide findings in the others.
func ValidateFile(path string) []Issue {
	ws, err := LoadWorkspace(path)
	if err != nil {
		return []Issue{{Kind: IssueWorkspaceDecode, Detail: err.Error()}}
	}
	baseDir := filepath.Dir(path)

	var issues []Issue
	for _, name := range ws.ProjectNames() {
		projectPath := ws.Projects[name]
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(baseDir, projectPath)
		}
		project, err := LoadProject(projectPath)
		if err != nil {
			issues = append(issues, Issue{Kind: IssueProjectDecode, Project: name, Detail: err.Error()})
			continue
		}
		issues = append(issues, Validate(ws, name, project)...)
	}
	return issues
}

// Validate checks a single loaded project against workspace policy: every
// required target must be declared and every tag must be known to the
// workspace.
func Validate(ws Workspace, name string, project Project) []Issue {
	var issues []Issue
	for _, target := range ws.RequiredTargets {
		if _, ok := project.Targets[target]; !ok {
			issues = append(issues, Issue{Kind: IssueMissingTarget, Project: name, Target: target})
		}
	}

	known := make(map[string]struct{}, len(ws.Tags))
	for _, tag := range ws.Tags {
		known[tag] = struct{}{}
	}
	var unknown []string
	for _, tag := range append(append([]string{}, project.AffectsTags...), project.AffectedByTags...) {
		if _, ok := known[tag]; !ok {
			unknown = append(unknown, tag)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		unknown = dedupe(unknown)
		issues = append(issues, Issue{Kind: IssueUnknownTags, Project: name, Tags: unknown})
	}
	return issues
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for idx, value := range sorted {
		if idx > 0 && sorted[idx-1] == value {
			continue
		}
		out = append(out, value)
	}
	return out
}
