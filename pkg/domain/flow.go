package domain

import "encoding/json"

// Flow is a legacy conversation graph.
type Flow struct {
	ID        string
	BotID     string
	Name      string
	Nodes     []Node
	Edges     []Edge
	Triggers  []string
	IsDefault bool
	IsActive  bool
}

// FlowDocument is the stored form of a Flow. Nodes and edges stay raw until parsed.
type FlowDocument struct {
	ID        string          `json:"id" yaml:"id"`
	BotID     string          `json:"botId" yaml:"botId"`
	Name      string          `json:"name" yaml:"name"`
	Nodes     json.RawMessage `json:"nodes" yaml:"-"`
	Edges     json.RawMessage `json:"edges" yaml:"-"`
	Triggers  []string        `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	IsDefault bool            `json:"isDefault,omitempty" yaml:"isDefault,omitempty"`
	IsActive  bool            `json:"isActive" yaml:"isActive"`
}

// Edge connects two nodes. SourceHandle is "true" or "false" on condition nodes.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// Node is a vertex of a Flow. The set of variants is closed.
type Node interface {
	NodeID() string
	NodeType() string
	isNode()
}

type StartNode struct {
	ID string `json:"id"`
}

type TextNode struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type ImageNode struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption,omitempty"`
}

type CardNode struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

type QuickReplyNode struct {
	ID      string             `json:"id"`
	Message string             `json:"message"`
	Buttons []QuickReplyButton `json:"buttons"`
}

type UserInputNode struct {
	ID           string `json:"id"`
	Prompt       string `json:"prompt"`
	VariableName string `json:"variableName"`
}

type ConditionNode struct {
	ID       string `json:"id"`
	Variable string `json:"variable"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type DelayNode struct {
	ID         string  `json:"id"`
	Seconds    float64 `json:"seconds"`
	ShowTyping bool    `json:"showTyping,omitempty"`
}

type EndNode struct {
	ID string `json:"id"`
}

func (n StartNode) NodeID() string      { return n.ID }
func (n TextNode) NodeID() string       { return n.ID }
func (n ImageNode) NodeID() string      { return n.ID }
func (n CardNode) NodeID() string       { return n.ID }
func (n QuickReplyNode) NodeID() string { return n.ID }
func (n UserInputNode) NodeID() string  { return n.ID }
func (n ConditionNode) NodeID() string  { return n.ID }
func (n DelayNode) NodeID() string      { return n.ID }
func (n EndNode) NodeID() string        { return n.ID }

func (StartNode) NodeType() string      { return NodeStart }
func (TextNode) NodeType() string       { return NodeText }
func (ImageNode) NodeType() string      { return NodeImage }
func (CardNode) NodeType() string       { return NodeCard }
func (QuickReplyNode) NodeType() string { return NodeQuickReply }
func (UserInputNode) NodeType() string  { return NodeUserInput }
func (ConditionNode) NodeType() string  { return NodeCondition }
func (DelayNode) NodeType() string      { return NodeDelay }
func (EndNode) NodeType() string        { return NodeEnd }

func (StartNode) isNode()      {}
func (TextNode) isNode()       {}
func (ImageNode) isNode()      {}
func (CardNode) isNode()       {}
func (QuickReplyNode) isNode() {}
func (UserInputNode) isNode()  {}
func (ConditionNode) isNode()  {}
func (DelayNode) isNode()      {}
func (EndNode) isNode()        {}

// Node returns the node with the given id.
func (f *Flow) Node(id string) (Node, bool) {
	for _, n := range f.Nodes {
		if n.NodeID() == id {
			return n, true
		}
	}
	return nil, false
}

// Start returns the first start node.
func (f *Flow) Start() (Node, bool) {
	for _, n := range f.Nodes {
		if _, ok := n.(StartNode); ok {
			return n, true
		}
	}
	return nil, false
}

// Next returns the target of the first edge leaving source.
// A non-empty handle restricts the search to edges carrying that SourceHandle.
func (f *Flow) Next(source, handle string) (string, bool) {
	for _, e := range f.Edges {
		if e.Source != source {
			continue
		}
		if handle != "" && e.SourceHandle != handle {
			continue
		}
		return e.Target, true
	}
	return "", false
}
