package workspace

import (
	"fmt"
	"sort"
)

// Affected returns the projects transitively affected by the named project,
// based on declared tags: a project is affected when any of its
// affected_by_tags matches an affects_tag of a project already in the set.
// The result is sorted and never contains the starting project or
// duplicates, so mutually affecting projects cannot recurse forever.
func Affected(projects map[string]Project, name string) ([]string, error) {
	if _, ok := projects[name]; !ok {
		return nil, fmt.Errorf("workspace: unknown project %s", name)
	}

	ordered := make([]string, 0, len(projects))
	for candidate := range projects {
		ordered = append(ordered, candidate)
	}
	sort.Strings(ordered)

	visited := map[string]struct{}{name: {}}
	frontier := []string{name}
	var affected []string
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		tags := make(map[string]struct{}, len(projects[current].AffectsTags))
		for _, tag := range projects[current].AffectsTags {
			tags[tag] = struct{}{}
		}
		for _, candidate := range ordered {
			if _, seen := visited[candidate]; seen {
				continue
			}
			if !anyTagMatches(projects[candidate].AffectedByTags, tags) {
				continue
			}
			visited[candidate] = struct{}{}
			affected = append(affected, candidate)
			frontier = append(frontier, candidate)
		}
	}
	sort.Strings(affected)
	return affected, nil
}

func anyTagMatches(tags []string, set map[string]struct{}) bool {
	for _, tag := range tags {
		if _, ok := set[tag]; ok {
			return true
		}
	}
	return false
}
