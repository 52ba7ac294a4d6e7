package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
)

// graphProgram walks a legacy flow along its edges. A nil current node means the flow ended.
type graphProgram struct {
	flow    *domain.Flow
	current domain.Node
}

func (p *graphProgram) interpreter() string { return "graph" }

func (p *graphProgram) position() (string, int, string) {
	if p.current == nil {
		return p.flow.ID, 0, "end"
	}
	return p.current.NodeID(), 0, p.current.NodeType()
}

func (p *graphProgram) charge(kind string) bool { return kind != "end" }

func (p *graphProgram) step(t *Turn) (StepResult, error) {
	if p.current == nil {
		return Done{}, nil
	}
	vars := t.Session.Context

	switch n := p.current.(type) {
	case domain.StartNode:
		return p.follow(n.ID, ""), nil
	case domain.TextNode:
		p.advance()
		return Send{Messages: []domain.Outbound{textMessage(n.Message, vars)}}, nil
	case domain.ImageNode:
		p.advance()
		return Send{Messages: imageMessages(n.ImageURL, n.Caption, vars)}, nil
	case domain.CardNode:
		p.advance()
		return Send{Messages: []domain.Outbound{cardMessage(n.Title, n.Subtitle, n.ImageURL, n.Buttons, vars)}}, nil
	case domain.QuickReplyNode:
		p.advance()
		return Send{Messages: []domain.Outbound{quickReplyMessage(n.Message, n.Buttons, vars)}}, nil
	case domain.UserInputNode:
		return AwaitInput{Prompt: textMessage(n.Prompt, vars)}, nil
	case domain.ConditionNode:
		handle := domain.HandleFalse
		if Evaluate(n.Variable, n.Operator, n.Value, vars) {
			handle = domain.HandleTrue
		}
		t.Logger.Debug("condition evaluated", "node_id", n.ID, "branch", handle)
		return p.follow(n.ID, handle), nil
	case domain.DelayNode:
		p.advance()
		return Pause{Duration: seconds(n.Seconds), Typing: n.ShowTyping}, nil
	case domain.EndNode:
		return Done{}, nil
	default:
		return nil, &domain.DataIntegrityError{
			Kind: "flow",
			ID:   p.flow.ID,
			Path: p.current.NodeID(),
			Err:  fmt.Errorf("unsupported node %T", n),
		}
	}
}

// follow jumps along the edge leaving from, or ends the flow when there is none.
func (p *graphProgram) follow(from, handle string) StepResult {
	next, ok := p.flow.Next(from, handle)
	if !ok {
		p.current = nil
		return Done{}
	}
	return Goto{Target: next}
}

// advance moves to the successor of the current node without spending a step.
func (p *graphProgram) advance() {
	next, ok := p.flow.Next(p.current.NodeID(), "")
	if !ok {
		p.current = nil
		return
	}
	node, ok := p.flow.Node(next)
	if !ok {
		p.current = nil
		return
	}
	p.current = node
}

func (p *graphProgram) enter(_ context.Context, _ *Turn, target string) error {
	node, ok := p.flow.Node(target)
	if !ok {
		return &domain.DataIntegrityError{Kind: "flow", ID: p.flow.ID, Err: fmt.Errorf("edge target %q does not exist", target)}
	}
	p.current = node
	return nil
}

func (p *graphProgram) suspend(t *Turn) {
	id := p.current.NodeID()
	t.pointAtNode(&id)
}

func (p *graphProgram) finish(t *Turn) {
	t.pointAtNode(nil)
}

// RunGraph resumes the legacy flow the session is paused in, or starts the flow whose
// trigger matches the input, or the bot's default flow.
func (x *Executor) RunGraph(ctx context.Context, t *Turn) error {
	flows, err := x.LoadFlows(ctx, t.Bot.ID)
	if err != nil {
		return err
	}

	if t.Session.CurrentNodeID != nil {
		nodeID := *t.Session.CurrentNodeID
		for _, flow := range flows {
			if node, ok := flow.Node(nodeID); ok {
				return x.resumeGraph(ctx, t, flow, node)
			}
		}
		t.Logger.Warn("session points at a missing node, starting over", "node_id", nodeID)
		t.Session.SetNodePointer(nil)
	}

	flow := MatchFlow(flows, t.Input)
	if flow == nil {
		flow = DefaultFlow(flows)
	}
	if flow == nil {
		return &domain.ConfigurationError{BotID: t.Bot.ID, Reason: "no block or flow can handle the message"}
	}

	start, _ := flow.Start()
	t.Logger.Debug("starting flow", "flow_id", flow.ID)
	return x.drive(ctx, t, &graphProgram{flow: flow, current: start})
}

func (x *Executor) resumeGraph(ctx context.Context, t *Turn, flow *domain.Flow, node domain.Node) error {
	p := &graphProgram{flow: flow, current: node}
	if in, ok := node.(domain.UserInputNode); ok {
		if strings.TrimSpace(t.Input) == "" {
			x.deliver(ctx, t, textMessage(in.Prompt, t.Session.Context))
			p.suspend(t)
			return nil
		}
		t.Session.Context.Set(in.VariableName, EscapeTemplate(t.Input))
		p.advance()
	}
	return x.drive(ctx, t, p)
}
