package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scopetest-dev/scopetest/internal/model"
)

// Mermaid renders a why result as a Mermaid graph TD diagram: one node per
// file on the path, one arrow per import hop, labeled with the import kind.
// This is a supplemental rendering `why --diagram` offers on top of the
// plain step list — useful for pasting into a PR description when the chain
// is long enough that prose stops being legible.
func Mermaid(target string, paths []model.ExplanationPath) string {
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(path string) string {
		if id, ok := nodeIDs[path]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[path] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seenEdge := make(map[string]bool)
	getID(target)
	sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", nodeIDs[target], shortPath(target)))

	for _, p := range paths {
		for _, step := range p.Steps {
			fromID := getID(step.From)
			toID := getID(step.To)
			edgeKey := fromID + "->" + toID
			if seenEdge[edgeKey] {
				continue
			}
			seenEdge[edgeKey] = true
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"] -->|%s| %s[\"%s\"]\n",
				fromID, shortPath(step.From), step.Kind, toID, shortPath(step.To)))
		}
	}

	return sb.String()
}

// shortPath returns the last two path segments, enough to disambiguate
// same-named files (index.ts in different packages) without the whole path
// crowding the diagram.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
