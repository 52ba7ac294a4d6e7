package dsl

import (
	"encoding/json"

	"github.com/aretw0/botflow/pkg/domain"
)

// FlowBuilder provides a fluent API for configuring a legacy node graph.
type FlowBuilder struct {
	doc   domain.FlowDocument
	nodes []domain.Node
	edges []domain.Edge
}

func (fb *FlowBuilder) Name(name string) *FlowBuilder {
	fb.doc.Name = name
	return fb
}

func (fb *FlowBuilder) Triggers(triggers ...string) *FlowBuilder {
	fb.doc.Triggers = append(fb.doc.Triggers, triggers...)
	return fb
}

// Default makes the flow run when nothing else matches.
func (fb *FlowBuilder) Default() *FlowBuilder {
	fb.doc.IsDefault = true
	return fb
}

func (fb *FlowBuilder) Inactive() *FlowBuilder {
	fb.doc.IsActive = false
	return fb
}

func (fb *FlowBuilder) Start(id string) *FlowBuilder {
	return fb.Node(domain.StartNode{ID: id})
}

func (fb *FlowBuilder) Text(id, message string) *FlowBuilder {
	return fb.Node(domain.TextNode{ID: id, Message: message})
}

func (fb *FlowBuilder) Ask(id, prompt, variable string) *FlowBuilder {
	return fb.Node(domain.UserInputNode{ID: id, Prompt: prompt, VariableName: variable})
}

// Condition adds a branch node; connect it with Branch(id, true/false, target).
func (fb *FlowBuilder) Condition(id, variable, operator, value string) *FlowBuilder {
	return fb.Node(domain.ConditionNode{ID: id, Variable: variable, Operator: operator, Value: value})
}

func (fb *FlowBuilder) Delay(id string, seconds float64) *FlowBuilder {
	return fb.Node(domain.DelayNode{ID: id, Seconds: seconds})
}

func (fb *FlowBuilder) End(id string) *FlowBuilder {
	return fb.Node(domain.EndNode{ID: id})
}

// Node appends any node variant.
func (fb *FlowBuilder) Node(n domain.Node) *FlowBuilder {
	fb.nodes = append(fb.nodes, n)
	return fb
}

// Go adds an unconditional edge.
func (fb *FlowBuilder) Go(source, target string) *FlowBuilder {
	fb.edges = append(fb.edges, domain.Edge{Source: source, Target: target})
	return fb
}

// Chain connects the given nodes in order.
func (fb *FlowBuilder) Chain(ids ...string) *FlowBuilder {
	for i := 1; i < len(ids); i++ {
		fb.Go(ids[i-1], ids[i])
	}
	return fb
}

// Branch adds the edge taken when the condition node source evaluates to when.
func (fb *FlowBuilder) Branch(source string, when bool, target string) *FlowBuilder {
	handle := "false"
	if when {
		handle = "true"
	}
	fb.edges = append(fb.edges, domain.Edge{Source: source, Target: target, SourceHandle: handle})
	return fb
}

func (fb *FlowBuilder) document() (domain.FlowDocument, error) {
	nodes := make([]map[string]any, 0, len(fb.nodes))
	for _, n := range fb.nodes {
		data, err := tagged(n.NodeType(), n)
		if err != nil {
			return domain.FlowDocument{}, err
		}
		delete(data, "id")
		delete(data, "type")
		node := map[string]any{"id": n.NodeID(), "type": n.NodeType()}
		if len(data) > 0 {
			node["data"] = data
		}
		nodes = append(nodes, node)
	}

	rawNodes, err := json.Marshal(nodes)
	if err != nil {
		return domain.FlowDocument{}, err
	}
	edges := fb.edges
	if edges == nil {
		edges = []domain.Edge{}
	}
	rawEdges, err := json.Marshal(edges)
	if err != nil {
		return domain.FlowDocument{}, err
	}

	doc := fb.doc
	doc.Nodes = rawNodes
	doc.Edges = rawEdges
	return doc, nil
}
