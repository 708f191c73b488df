// Package graph renders flow graphs as Mermaid flowcharts.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// labelLimit truncates long message texts in node labels.
const labelLimit = 40

// GraphOverlay contains session data to highlight on the graph.
type GraphOverlay struct {
	VisitedBlocks []string
	// CurrentBlock is the block a session is suspended at.
	CurrentBlock string
}

// GenerateMermaid produces a Mermaid flowchart for a flow graph.
// Shapes:
// - Start block: ((Circle))
// - Intent detection: [/Parallelogram/]
// - Message: [Rectangle]
// Intent edges carry the intent as label, the fallback edge is dotted.
// Referenced ids with no block are drawn with the "missing" class.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if g == nil {
		return sb.String()
	}

	known := make(map[string]bool, len(g.Blocks))
	for _, b := range g.Blocks {
		known[b.ID] = true
	}
	missing := make(map[string]bool)
	edge := func(from, arrow, to string) {
		if !known[to] {
			missing[to] = true
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(from), arrow, sanitizeMermaidID(to))
	}

	for _, b := range g.Blocks {
		safeID := sanitizeMermaidID(b.ID)

		opener, closer := "[", "]"
		switch {
		case b.ID == g.StartBlockID:
			opener, closer = "((", "))"
		case b.Kind == domain.BlockIntentDetection:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label(b), closer)

		switch b.Kind {
		case domain.BlockMessage:
			if b.NextBlockID != "" {
				edge(b.ID, "-->", b.NextBlockID)
			}
		case domain.BlockIntentDetection:
			if b.Intent == nil {
				continue
			}
			for _, intent := range intentOrder(b.Intent) {
				to := b.Intent.IntentToBlock[intent]
				if to == "" {
					continue
				}
				edge(b.ID, fmt.Sprintf("-- \"%s\" -->", escape(intent)), to)
			}
			if b.Intent.FallbackBlockID != "" {
				edge(b.ID, "-. fallback .->", b.Intent.FallbackBlockID)
			}
		}
	}

	if g.StartBlockID != "" && !known[g.StartBlockID] {
		missing[g.StartBlockID] = true
	}
	if len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		sb.WriteString("\n    classDef missing fill:#ffebee,stroke:#c62828,stroke-dasharray:4 4,color:#000;\n")
		for _, id := range ids {
			fmt.Fprintf(&sb, "    %s[\"%s ?\"]\n", sanitizeMermaidID(id), escape(id))
			fmt.Fprintf(&sb, "    class %s missing;\n", sanitizeMermaidID(id))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedBlocks {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || visited[safeID] {
				continue
			}
			visited[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if overlay.CurrentBlock != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentBlock))
		}
	}

	return sb.String()
}

func label(b domain.Block) string {
	if b.Kind != domain.BlockMessage || b.Message == nil || b.Message.Text == "" {
		return escape(b.ID)
	}
	text := strings.Join(strings.Fields(b.Message.Text), " ")
	if r := []rune(text); len(r) > labelLimit {
		text = string(r[:labelLimit-1]) + "…"
	}
	return escape(b.ID) + "<br/>" + escape(text)
}

// intentOrder lists candidates first, then mappings outside the candidate list, sorted.
func intentOrder(p *domain.IntentPayload) []string {
	out := make([]string, 0, len(p.IntentToBlock))
	seen := make(map[string]bool, len(p.CandidateIntents))
	for _, intent := range p.CandidateIntents {
		if seen[intent] {
			continue
		}
		seen[intent] = true
		if _, ok := p.IntentToBlock[intent]; ok {
			out = append(out, intent)
		}
	}
	var extra []string
	for intent := range p.IntentToBlock {
		if !seen[intent] {
			extra = append(extra, intent)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
