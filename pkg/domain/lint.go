package domain

import "fmt"

// Severity grades a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one structural problem reported by Lint.
type Finding struct {
	Severity Severity `json:"severity"`
	BlockID  string   `json:"block_id,omitempty"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	if f.BlockID == "" {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.BlockID, f.Message)
}

// Lint crawls the graph from the start block and reports dangling references, duplicate ids,
// unreachable blocks and Message-only cycles. Installation never depends on Lint; the engine
// handles the same problems at runtime.
func (g *Graph) Lint() []Finding {
	var findings []Finding
	if g == nil {
		return []Finding{{Severity: SeverityError, Message: "flow is nil"}}
	}
	if err := g.Validate(); err != nil {
		findings = append(findings, Finding{Severity: SeverityError, Message: err.Error()})
	}

	seen := make(map[string]bool, len(g.Blocks))
	for _, b := range g.Blocks {
		if b.ID == "" {
			findings = append(findings, Finding{Severity: SeverityError, Message: "block without id"})
			continue
		}
		if seen[b.ID] {
			findings = append(findings, Finding{Severity: SeverityError, BlockID: b.ID, Message: "duplicate block id (first definition wins)"})
		}
		seen[b.ID] = true
	}

	if _, ok := g.Block(g.StartBlockID); !ok {
		findings = append(findings, Finding{Severity: SeverityError, BlockID: g.StartBlockID, Message: "start block not found"})
	}

	for i := range g.Blocks {
		b := &g.Blocks[i]
		for _, to := range b.Successors() {
			if _, ok := g.Block(to); !ok {
				findings = append(findings, Finding{Severity: SeverityError, BlockID: b.ID, Message: fmt.Sprintf("dangling reference to %q", to)})
			}
		}
		if b.Kind == BlockIntentDetection && b.Intent != nil {
			if len(b.Intent.CandidateIntents) == 0 {
				findings = append(findings, Finding{Severity: SeverityWarning, BlockID: b.ID, Message: "no candidate intents, every message takes the fallback"})
			}
			if b.Intent.FallbackBlockID == "" {
				findings = append(findings, Finding{Severity: SeverityWarning, BlockID: b.ID, Message: "no fallback block, unmatched input ends the conversation"})
			}
			for _, intent := range b.Intent.CandidateIntents {
				if _, ok := b.Intent.IntentToBlock[intent]; !ok {
					findings = append(findings, Finding{Severity: SeverityWarning, BlockID: b.ID, Message: fmt.Sprintf("intent %q has no mapping", intent)})
				}
			}
		}
	}

	reachable := g.reachable()
	for _, b := range g.Blocks {
		if b.ID != "" && !reachable[b.ID] {
			findings = append(findings, Finding{Severity: SeverityWarning, BlockID: b.ID, Message: "unreachable from start block"})
		}
	}

	findings = append(findings, g.messageCycles()...)
	return findings
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (g *Graph) reachable() map[string]bool {
	visited := make(map[string]bool)
	queue := []string{g.StartBlockID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		b, ok := g.Block(id)
		if !ok {
			continue
		}
		visited[id] = true
		queue = append(queue, b.Successors()...)
	}
	return visited
}

// messageCycles finds chains of Message blocks that loop back on themselves without
// ever reaching an IntentDetection block.
func (g *Graph) messageCycles() []Finding {
	var findings []Finding
	reported := make(map[string]bool)
	for _, b := range g.Blocks {
		if b.Kind != BlockMessage || reported[b.ID] {
			continue
		}
		onPath := map[string]bool{}
		cur := &b
		for cur != nil && cur.Kind == BlockMessage {
			if onPath[cur.ID] {
				if !reported[cur.ID] {
					findings = append(findings, Finding{Severity: SeverityError, BlockID: cur.ID, Message: "message blocks form a cycle with no intent detection"})
				}
				for id := range onPath {
					reported[id] = true
				}
				break
			}
			onPath[cur.ID] = true
			next, ok := g.Block(cur.NextBlockID)
			if !ok {
				break
			}
			cur = next
		}
	}
	return findings
}
