package export

import (
	"fmt"
	"sort"
	"strings"
)

// GenerateMermaid produces a Mermaid graph LR diagram from a recipe table.
// Extensions become rounded entry nodes and stages become boxes; stages
// sharing a name share a node, so recipes visibly converge on common stages.
func GenerateMermaid(table map[string][]string) string {
	exts := make([]string, 0, len(table))
	stageSet := make(map[string]bool)
	for ext, stages := range table {
		exts = append(exts, ext)
		for _, s := range stages {
			stageSet[s] = true
		}
	}
	sort.Strings(exts)

	stages := make([]string, 0, len(stageSet))
	for s := range stageSet {
		stages = append(stages, s)
	}
	sort.Strings(stages)

	// Build node → ID mapping for Mermaid (alphanumeric only). Keys are
	// prefixed so an extension can never collide with a stage name.
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, ext := range exts {
		sb.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", getID("ext:"+ext), ext))
	}
	for _, s := range stages {
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", getID("stage:"+s), s))
	}

	// Emit each recipe as a chain. Extensions with identical recipes, such
	// as docx and odt, repeat the same stage edges; those are deduplicated.
	seen := make(map[string]bool)
	for _, ext := range exts {
		prev := getID("ext:" + ext)
		for _, s := range table[ext] {
			id := getID("stage:" + s)
			edge := prev + "-->" + id
			if !seen[edge] {
				seen[edge] = true
				sb.WriteString(fmt.Sprintf("  %s --> %s\n", prev, id))
			}
			prev = id
		}
	}

	return sb.String()
}
