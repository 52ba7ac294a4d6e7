package domain

import "encoding/json"

// Block is an ordered list of cards executed top to bottom.
type Block struct {
	ID              string
	BotID           string
	Name            string
	Cards           []Card
	Triggers        []string
	IsWelcome       bool
	IsDefaultAnswer bool
	IsEnabled       bool
}

// BlockDocument is the stored form of a Block. Cards stay raw until parsed.
type BlockDocument struct {
	ID              string          `json:"id" yaml:"id"`
	BotID           string          `json:"botId" yaml:"botId"`
	Name            string          `json:"name" yaml:"name"`
	Cards           json.RawMessage `json:"cards" yaml:"-"`
	Triggers        []string        `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	IsWelcome       bool            `json:"isWelcome,omitempty" yaml:"isWelcome,omitempty"`
	IsDefaultAnswer bool            `json:"isDefaultAnswer,omitempty" yaml:"isDefaultAnswer,omitempty"`
	IsEnabled       bool            `json:"isEnabled" yaml:"isEnabled"`
}

// Card is one step of a Block. The set of variants is closed.
type Card interface {
	CardType() string
	isCard()
}

type TextCard struct {
	Text string `json:"text"`
}

// ImageCard sends an image; a non-empty Caption follows as a text message.
type ImageCard struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type GalleryCard struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

type QuickReplyCard struct {
	Text    string             `json:"text"`
	Buttons []QuickReplyButton `json:"buttons"`
}

// UserInputCard suspends the block until the sender answers.
// The answer is stored under VariableName; NextBlockID, when set, is entered next.
type UserInputCard struct {
	Prompt       string `json:"prompt"`
	VariableName string `json:"variableName"`
	NextBlockID  string `json:"nextBlockId,omitempty"`
}

type DelayCard struct {
	Seconds    float64 `json:"seconds"`
	ShowTyping bool    `json:"showTyping,omitempty"`
}

type GoToBlockCard struct {
	BlockID string `json:"blockId"`
}

// Button is attached to gallery cards and card nodes.
type Button struct {
	Title   string `json:"title"`
	Kind    string `json:"type,omitempty"`
	Payload string `json:"payload,omitempty"`
	URL     string `json:"url,omitempty"`
	BlockID string `json:"blockId,omitempty"`
}

type QuickReplyButton struct {
	Title   string `json:"title"`
	BlockID string `json:"blockId,omitempty"`
}

func (TextCard) CardType() string       { return CardText }
func (ImageCard) CardType() string      { return CardImage }
func (GalleryCard) CardType() string    { return CardGallery }
func (QuickReplyCard) CardType() string { return CardQuickReply }
func (UserInputCard) CardType() string  { return CardUserInput }
func (DelayCard) CardType() string      { return CardDelay }
func (GoToBlockCard) CardType() string  { return CardGoToBlock }

func (TextCard) isCard()       {}
func (ImageCard) isCard()      {}
func (GalleryCard) isCard()    {}
func (QuickReplyCard) isCard() {}
func (UserInputCard) isCard()  {}
func (DelayCard) isCard()      {}
func (GoToBlockCard) isCard()  {}
