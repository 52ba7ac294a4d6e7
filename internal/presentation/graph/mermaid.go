package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
)

// maxLabel bounds the message excerpt shown inside a node.
const maxLabel = 32

// Overlay highlights where a session is paused.
type Overlay struct {
	Current string // node ID for flows, block ID for block maps
}

// FlowMermaid renders a legacy flow as a Mermaid flowchart.
// Shapes follow node types: start ((circle)), userInput [/parallelogram/],
// condition {diamond}, delay ([stadium]) and end (((double circle))).
func FlowMermaid(flow *domain.Flow, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range flow.Nodes {
		opener, closer := "[", "]"
		switch node.(type) {
		case domain.StartNode:
			opener, closer = "((", "))"
		case domain.UserInputNode:
			opener, closer = "[/", "/]"
		case domain.ConditionNode:
			opener, closer = "{", "}"
		case domain.DelayNode:
			opener, closer = "([", "])"
		case domain.EndNode:
			opener, closer = "(((", ")))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node.NodeID()), opener, nodeLabel(node), closer)
	}

	for _, e := range flow.Edges {
		arrow := "-->"
		if e.SourceHandle != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", quote(e.SourceHandle))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	writeOverlay(&sb, overlay)
	return sb.String()
}

// BlocksMermaid renders the redirects between a bot's blocks: goToBlock jumps,
// userInput continuations and button targets. Welcome and default-answer blocks
// are styled apart.
func BlocksMermaid(blocks []*domain.Block, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	var welcome, fallback []string
	for _, b := range blocks {
		id := sanitizeMermaidID(b.ID)
		label := b.ID
		if b.Name != "" && b.Name != b.ID {
			label = b.Name + " <br/> " + b.ID
		}
		if len(b.Triggers) > 0 {
			label += " <br/> " + excerpt(strings.Join(b.Triggers, ", "))
		}
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", id, quote(label))

		if b.IsWelcome {
			welcome = append(welcome, id)
		}
		if b.IsDefaultAnswer {
			fallback = append(fallback, id)
		}
	}

	for _, b := range blocks {
		from := sanitizeMermaidID(b.ID)
		for _, card := range b.Cards {
			switch c := card.(type) {
			case domain.GoToBlockCard:
				fmt.Fprintf(&sb, "    %s --> %s\n", from, sanitizeMermaidID(c.BlockID))
			case domain.UserInputCard:
				if c.NextBlockID != "" {
					fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, quote(c.VariableName), sanitizeMermaidID(c.NextBlockID))
				}
			case domain.GalleryCard:
				for _, btn := range c.Buttons {
					if btn.BlockID != "" {
						fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, quote(btn.Title), sanitizeMermaidID(btn.BlockID))
					}
				}
			case domain.QuickReplyCard:
				for _, btn := range c.Buttons {
					if btn.BlockID != "" {
						fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, quote(btn.Title), sanitizeMermaidID(btn.BlockID))
					}
				}
			}
		}
	}

	if len(welcome) > 0 || len(fallback) > 0 {
		sb.WriteString("\n    classDef welcome fill:#e8f5e9,stroke:#2e7d32,color:#000;\n")
		sb.WriteString("    classDef fallback fill:#eceff1,stroke:#546e7a,stroke-dasharray:4,color:#000;\n")
		for _, id := range welcome {
			fmt.Fprintf(&sb, "    class %s welcome;\n", id)
		}
		for _, id := range fallback {
			fmt.Fprintf(&sb, "    class %s fallback;\n", id)
		}
	}

	writeOverlay(&sb, overlay)
	return sb.String()
}

func writeOverlay(sb *strings.Builder, overlay *Overlay) {
	if overlay == nil || overlay.Current == "" {
		return
	}
	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text for contrast regardless of theme.
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	fmt.Fprintf(sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
}

func nodeLabel(node domain.Node) string {
	var detail string
	switch n := node.(type) {
	case domain.TextNode:
		detail = n.Message
	case domain.ImageNode:
		detail = n.ImageURL
	case domain.CardNode:
		detail = n.Title
	case domain.QuickReplyNode:
		detail = n.Message
	case domain.UserInputNode:
		detail = n.VariableName + " = ?"
	case domain.ConditionNode:
		detail = fmt.Sprintf("%s %s %s", n.Variable, n.Operator, n.Value)
	case domain.DelayNode:
		detail = fmt.Sprintf("%gs", n.Seconds)
	}
	if detail == "" {
		return quote(node.NodeID())
	}
	return quote(node.NodeID() + " <br/> " + excerpt(detail))
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLabel {
		return s
	}
	return string(r[:maxLabel-1]) + "…"
}

// quote makes s safe inside a double-quoted Mermaid label.
func quote(s string) string {
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
