package workspace

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Workspace models the top-level workspace description file. Project values
// are file paths relative to the workspace file's directory.
type Workspace struct {
	Name            string            `yaml:"name"`
	AppVersion      string            `yaml:"app_version,omitempty"`
	Projects        map[string]string `yaml:"projects"`
	Tags            []string          `yaml:"tags,omitempty"`
	Maintainers     []string          `yaml:"maintainers,omitempty"`
	Repository      string            `yaml:"repository,omitempty"`
	RequiredTargets []string          `yaml:"required_targets,omitempty"`
}

// Validate ensures the workspace description is self-consistent.
func (ws Workspace) Validate() error {
	if ws.Name == "" {
		return fmt.Errorf("workspace: name is required")
	}
	for name, path := range ws.Projects {
		if name == "" {
			return fmt.Errorf("workspace %s: project name is required", ws.Name)
		}
		if path == "" {
			return fmt.Errorf("workspace %s: project %s requires a path", ws.Name, name)
		}
	}
	return nil
}

// ProjectNames returns the declared project names in sorted order.
func (ws Workspace) ProjectNames() []string {
	names := make([]string, 0, len(ws.Projects))
	for name := range ws.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Target declares one runnable unit inside a project. With is the opaque
// action payload handed to the registered factory for Kind; DependsOn lists
// task ids ("project:target") that must finish first.
type Target struct {
	Kind      string         `yaml:"kind,omitempty"`
	With      map[string]any `yaml:"with,omitempty"`
	DependsOn []string       `yaml:"depends_on,omitempty"`
}

// Project models a single project description file.
type Project struct {
	Name           string            `yaml:"name"`
	Version        string            `yaml:"version,omitempty"`
	Description    string            `yaml:"description,omitempty"`
	Owners         []string          `yaml:"owners,omitempty"`
	AffectsTags    []string          `yaml:"affects_tags,omitempty"`
	AffectedByTags []string          `yaml:"affected_by_tags,omitempty"`
	Targets        map[string]Target `yaml:"targets,omitempty"`
}

// Validate ensures the project description is self-consistent.
func (p Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("workspace: project name is required")
	}
	for target := range p.Targets {
		if target == "" {
			return fmt.Errorf("workspace: project %s declares an unnamed target", p.Name)
		}
	}
	return nil
}

// ParseWorkspaceYAML decodes a workspace description from YAML/JSON bytes.
func ParseWorkspaceYAML(data []byte) (Workspace, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Workspace{}, fmt.Errorf("workspace: description payload is empty")
	}
	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return Workspace{}, fmt.Errorf("workspace: decode description: %w", err)
	}
	if err := ws.Validate(); err != nil {
		return Workspace{}, err
	}
	return ws, nil
}

// LoadWorkspace reads a workspace description from an explicit file path.
func LoadWorkspace(path string) (Workspace, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Workspace{}, fmt.Errorf("workspace: read %s: %w", path, err)
	}
	ws, parseErr := ParseWorkspaceYAML(content)
	if parseErr != nil {
		return Workspace{}, fmt.Errorf("workspace: %s: %w", path, parseErr)
	}
	return ws, nil
}

// ParseProjectYAML decodes a project description from YAML/JSON bytes.
func ParseProjectYAML(data []byte) (Project, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Project{}, fmt.Errorf("workspace: project payload is empty")
	}
	var project Project
	if err := yaml.Unmarshal(data, &project); err != nil {
		return Project{}, fmt.Errorf("workspace: decode project: %w", err)
	}
	if err := project.Validate(); err != nil {
		return Project{}, err
	}
	return project, nil
}

// LoadProject reads a project description from an explicit file path.
func LoadProject(path string) (Project, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("workspace: read %s: %w", path, err)
	}
	project, parseErr := ParseProjectYAML(content)
	if parseErr != nil {
		return Project{}, fmt.Errorf("workspace: %s: %w", path, parseErr)
	}
	return project, nil
}

// LoadProjects reads every project the workspace declares. baseDir anchors
// relative project paths, conventionally the workspace file's directory.
func LoadProjects(ws Workspace, baseDir string) (map[string]Project, error) {
	projects := make(map[string]Project, len(ws.Projects))
	for _, name := range ws.ProjectNames() {
		path := ws.Projects[name]
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		project, err := LoadProject(path)
		if err != nil {
			return nil, fmt.Errorf("workspace %s: project %s: %w", ws.Name, name, err)
		}
		projects[name] = project
	}
	return projects, nil
}
