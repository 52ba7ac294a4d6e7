package domain

import (
	"fmt"
	"strings"
)

// Outbound is a message the engine asks a gateway to deliver. The set of variants is closed.
type Outbound interface {
	// Summary is the plain-text rendition written to the message log.
	Summary() string
	isOutbound()
}

type TextMessage struct {
	Text string `json:"text"`
}

type ImageMessage struct {
	URL string `json:"url"`
}

type CardMessage struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

type QuickReply struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type QuickReplyMessage struct {
	Text    string       `json:"text"`
	Replies []QuickReply `json:"replies"`
}

// TypingIndicator toggles the "typing..." bubble.
type TypingIndicator struct {
	On bool `json:"on"`
}

func (m TextMessage) Summary() string  { return m.Text }
func (m ImageMessage) Summary() string { return "[image] " + m.URL }
func (m CardMessage) Summary() string {
	if m.Subtitle == "" {
		return "[card] " + m.Title
	}
	return fmt.Sprintf("[card] %s - %s", m.Title, m.Subtitle)
}
func (m QuickReplyMessage) Summary() string {
	titles := make([]string, len(m.Replies))
	for i, r := range m.Replies {
		titles[i] = r.Title
	}
	return fmt.Sprintf("%s [%s]", m.Text, strings.Join(titles, " | "))
}
func (m TypingIndicator) Summary() string {
	if m.On {
		return "[typing on]"
	}
	return "[typing off]"
}

func (TextMessage) isOutbound()       {}
func (ImageMessage) isOutbound()      {}
func (CardMessage) isOutbound()       {}
func (QuickReplyMessage) isOutbound() {}
func (TypingIndicator) isOutbound()   {}

// QuickReplyPayload is the payload echoed back by the platform when a quick reply is tapped.
func QuickReplyPayload(b QuickReplyButton) string {
	if b.BlockID != "" {
		return b.BlockID
	}
	return b.Title
}
