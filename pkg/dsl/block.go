package dsl

import (
	"encoding/json"

	"github.com/aretw0/botflow/pkg/domain"
)

// BlockBuilder provides a fluent API for configuring a block. Cards run in the
// order they are added.
type BlockBuilder struct {
	doc   domain.BlockDocument
	cards []domain.Card
}

func (bb *BlockBuilder) Name(name string) *BlockBuilder {
	bb.doc.Name = name
	return bb
}

// Triggers appends keywords that start this block.
func (bb *BlockBuilder) Triggers(triggers ...string) *BlockBuilder {
	bb.doc.Triggers = append(bb.doc.Triggers, triggers...)
	return bb
}

func (bb *BlockBuilder) Welcome() *BlockBuilder {
	bb.doc.IsWelcome = true
	return bb
}

// DefaultAnswer marks the block as the fallback for unmatched input.
func (bb *BlockBuilder) DefaultAnswer() *BlockBuilder {
	bb.doc.IsDefaultAnswer = true
	return bb
}

func (bb *BlockBuilder) Disabled() *BlockBuilder {
	bb.doc.IsEnabled = false
	return bb
}

func (bb *BlockBuilder) Text(text string) *BlockBuilder {
	return bb.Card(domain.TextCard{Text: text})
}

func (bb *BlockBuilder) Image(url, caption string) *BlockBuilder {
	return bb.Card(domain.ImageCard{URL: url, Caption: caption})
}

func (bb *BlockBuilder) Gallery(title, subtitle, imageURL string, buttons ...domain.Button) *BlockBuilder {
	return bb.Card(domain.GalleryCard{Title: title, Subtitle: subtitle, ImageURL: imageURL, Buttons: buttons})
}

func (bb *BlockBuilder) QuickReplies(text string, buttons ...domain.QuickReplyButton) *BlockBuilder {
	return bb.Card(domain.QuickReplyCard{Text: text, Buttons: buttons})
}

// Ask suspends the block until the sender answers and stores the answer in variable.
func (bb *BlockBuilder) Ask(prompt, variable string) *BlockBuilder {
	return bb.Card(domain.UserInputCard{Prompt: prompt, VariableName: variable})
}

// AskThen is Ask followed by a jump to next once the answer arrives.
func (bb *BlockBuilder) AskThen(prompt, variable, next string) *BlockBuilder {
	return bb.Card(domain.UserInputCard{Prompt: prompt, VariableName: variable, NextBlockID: next})
}

func (bb *BlockBuilder) Delay(seconds float64, showTyping bool) *BlockBuilder {
	return bb.Card(domain.DelayCard{Seconds: seconds, ShowTyping: showTyping})
}

// GoTo jumps to another block. Cards after it never run.
func (bb *BlockBuilder) GoTo(blockID string) *BlockBuilder {
	return bb.Card(domain.GoToBlockCard{BlockID: blockID})
}

// Card appends any card variant.
func (bb *BlockBuilder) Card(c domain.Card) *BlockBuilder {
	bb.cards = append(bb.cards, c)
	return bb
}

func (bb *BlockBuilder) document() (domain.BlockDocument, error) {
	cards := make([]map[string]any, 0, len(bb.cards))
	for _, c := range bb.cards {
		m, err := tagged(c.CardType(), c)
		if err != nil {
			return domain.BlockDocument{}, err
		}
		cards = append(cards, m)
	}
	raw, err := json.Marshal(cards)
	if err != nil {
		return domain.BlockDocument{}, err
	}
	doc := bb.doc
	doc.Cards = raw
	return doc, nil
}

// Reply is a quick reply button, optionally jumping to blockID.
func Reply(title, blockID string) domain.QuickReplyButton {
	return domain.QuickReplyButton{Title: title, BlockID: blockID}
}

// BlockButton is a gallery button that enters blockID.
func BlockButton(title, blockID string) domain.Button {
	return domain.Button{Title: title, Kind: domain.ButtonBlock, BlockID: blockID}
}

// URLButton is a gallery button that opens url.
func URLButton(title, url string) domain.Button {
	return domain.Button{Title: title, Kind: domain.ButtonURL, URL: url}
}
