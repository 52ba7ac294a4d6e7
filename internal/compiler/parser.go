package compiler

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	cardsSchema *jsonschema.Schema
	flowSchema  *jsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	c := jsonschema.NewCompiler()
	for _, name := range []string{"cards.json", "flow.json"} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = fmt.Errorf("read schema %s: %w", name, err)
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			schemasErr = fmt.Errorf("unmarshal schema %s: %w", name, err)
			return
		}
		if err := c.AddResource(name, doc); err != nil {
			schemasErr = fmt.Errorf("add schema resource %s: %w", name, err)
			return
		}
	}
	if cardsSchema, schemasErr = c.Compile("cards.json"); schemasErr != nil {
		return
	}
	flowSchema, schemasErr = c.Compile("flow.json")
}

// Parser turns stored documents into typed blocks and flows.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// ParseBlock validates the cards of doc and decodes them into their variants.
func (p *Parser) ParseBlock(doc domain.BlockDocument) (*domain.Block, error) {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}

	raw := rawOrEmpty(doc.Cards)
	items, err := validate(cardsSchema, raw)
	if err != nil {
		return nil, integrity("block", doc.ID, err)
	}

	cards := make([]domain.Card, 0, len(items))
	for i, item := range items {
		card, err := decodeCard(item)
		if err != nil {
			return nil, &domain.DataIntegrityError{Kind: "block", ID: doc.ID, Path: fmt.Sprintf("/%d", i), Err: err}
		}
		cards = append(cards, card)
	}

	return &domain.Block{
		ID:              doc.ID,
		BotID:           doc.BotID,
		Name:            doc.Name,
		Cards:           cards,
		Triggers:        doc.Triggers,
		IsWelcome:       doc.IsWelcome,
		IsDefaultAnswer: doc.IsDefaultAnswer,
		IsEnabled:       doc.IsEnabled,
	}, nil
}

// ParseFlow validates the nodes and edges of doc, decodes them and checks the graph structure.
func (p *Parser) ParseFlow(doc domain.FlowDocument) (*domain.Flow, error) {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}

	envelope := fmt.Sprintf(`{"nodes":%s,"edges":%s}`, rawOrEmpty(doc.Nodes), rawOrEmpty(doc.Edges))
	if _, err := validate(flowSchema, []byte(envelope)); err != nil {
		return nil, integrity("flow", doc.ID, err)
	}

	var shape struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []domain.Edge    `json:"edges"`
	}
	if err := json.Unmarshal([]byte(envelope), &shape); err != nil {
		return nil, integrity("flow", doc.ID, err)
	}

	flow := &domain.Flow{
		ID:        doc.ID,
		BotID:     doc.BotID,
		Name:      doc.Name,
		Edges:     shape.Edges,
		Triggers:  doc.Triggers,
		IsDefault: doc.IsDefault,
		IsActive:  doc.IsActive,
	}

	seen := make(map[string]bool, len(shape.Nodes))
	starts := 0
	for i, item := range shape.Nodes {
		node, err := decodeNode(item)
		if err != nil {
			return nil, &domain.DataIntegrityError{Kind: "flow", ID: doc.ID, Path: fmt.Sprintf("/nodes/%d", i), Err: err}
		}
		if seen[node.NodeID()] {
			return nil, &domain.DataIntegrityError{Kind: "flow", ID: doc.ID, Path: fmt.Sprintf("/nodes/%d", i), Err: fmt.Errorf("duplicate node id %q", node.NodeID())}
		}
		seen[node.NodeID()] = true
		if _, ok := node.(domain.StartNode); ok {
			starts++
		}
		flow.Nodes = append(flow.Nodes, node)
	}

	if starts != 1 {
		return nil, &domain.DataIntegrityError{Kind: "flow", ID: doc.ID, Path: "/nodes", Err: fmt.Errorf("expected exactly one start node, found %d", starts)}
	}
	for i, e := range flow.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			return nil, &domain.DataIntegrityError{Kind: "flow", ID: doc.ID, Path: fmt.Sprintf("/edges/%d", i), Err: fmt.Errorf("edge %s -> %s references an unknown node", e.Source, e.Target)}
		}
	}

	return flow, nil
}

func rawOrEmpty(raw json.RawMessage) []byte {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return []byte("[]")
	}
	return raw
}

func integrity(kind, id string, err error) error {
	var ve *schemaViolation
	if errors.As(err, &ve) {
		return &domain.DataIntegrityError{Kind: kind, ID: id, Path: ve.Path, Err: ve}
	}
	return &domain.DataIntegrityError{Kind: kind, ID: id, Err: err}
}

// schemaViolation is the first leaf cause of a schema validation failure.
type schemaViolation struct {
	Path    string
	Message string
}

func (v *schemaViolation) Error() string { return v.Message }

// validate checks raw against sch and returns the decoded array items when the
// instance is an array.
func validate(sch *jsonschema.Schema, raw []byte) ([]map[string]any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := flattenValidationErrors(ve)[0]
			return nil, &schemaViolation{
				Path:    "/" + strings.Join(leaf.InstanceLocation, "/"),
				Message: fmt.Sprintf("%v", leaf.ErrorKind),
			}
		}
		return nil, err
	}

	list, ok := doc.([]any)
	if !ok {
		return nil, nil
	}
	items := make([]map[string]any, 0, len(list))
	for _, it := range list {
		m, _ := it.(map[string]any)
		items = append(items, m)
	}
	return items, nil
}

func flattenValidationErrors(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var flat []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

func decodeInto(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func decodeCard(m map[string]any) (domain.Card, error) {
	kind, _ := m["type"].(string)
	switch kind {
	case domain.CardText:
		return decodeCardAs[domain.TextCard](m)
	case domain.CardImage:
		return decodeCardAs[domain.ImageCard](m)
	case domain.CardGallery:
		var c domain.GalleryCard
		if err := decodeInto(m, &c); err != nil {
			return nil, err
		}
		normalizeButtons(c.Buttons)
		return c, nil
	case domain.CardQuickReply:
		return decodeCardAs[domain.QuickReplyCard](m)
	case domain.CardUserInput:
		return decodeCardAs[domain.UserInputCard](m)
	case domain.CardDelay:
		return decodeCardAs[domain.DelayCard](m)
	case domain.CardGoToBlock:
		return decodeCardAs[domain.GoToBlockCard](m)
	default:
		return nil, fmt.Errorf("unknown card type %q", kind)
	}
}

func decodeCardAs[T domain.Card](m map[string]any) (domain.Card, error) {
	var c T
	if err := decodeInto(m, &c); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeNode(m map[string]any) (domain.Node, error) {
	id, _ := m["id"].(string)
	kind, _ := m["type"].(string)
	data, _ := m["data"].(map[string]any)
	if data == nil {
		data = map[string]any{}
	}

	var err error
	switch kind {
	case domain.NodeStart:
		return domain.StartNode{ID: id}, nil
	case domain.NodeEnd:
		return domain.EndNode{ID: id}, nil
	case domain.NodeText:
		var n domain.TextNode
		err = decodeInto(data, &n)
		n.ID = id
		return n, err
	case domain.NodeImage:
		var n domain.ImageNode
		err = decodeInto(data, &n)
		n.ID = id
		return n, err
	case domain.NodeCard:
		var n domain.CardNode
		err = decodeInto(data, &n)
		n.ID = id
		normalizeButtons(n.Buttons)
		return n, err
	case domain.NodeQuickReply:
		var n domain.QuickReplyNode
		err = decodeInto(data, &n)
		n.ID = id
		return n, err
	case domain.NodeUserInput:
		var n domain.UserInputNode
		err = decodeInto(data, &n)
		n.ID = id
		return n, err
	case domain.NodeCondition:
		var n domain.ConditionNode
		err = decodeInto(data, &n)
		n.ID = id
		return n, err
	case domain.NodeDelay:
		var n domain.DelayNode
		err = decodeInto(data, &n)
		n.ID = id
		return n, err
	default:
		return nil, fmt.Errorf("unknown node type %q", kind)
	}
}

// normalizeButtons infers a missing button kind from the fields that are set.
func normalizeButtons(buttons []domain.Button) {
	for i := range buttons {
		b := &buttons[i]
		if b.Kind != "" {
			continue
		}
		switch {
		case b.BlockID != "":
			b.Kind = domain.ButtonBlock
		case b.URL != "":
			b.Kind = domain.ButtonURL
		default:
			b.Kind = domain.ButtonPostback
		}
	}
}
