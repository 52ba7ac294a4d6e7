package domain

import "time"

// Bot identifies the automated agent a conversation belongs to.
// Token is the platform credential handed to gateways; it is never serialized.
type Bot struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
	PageID   string `json:"pageId,omitempty" yaml:"pageId,omitempty"`
	Token    string `json:"-" yaml:"token,omitempty"`
}

// Contact is a sender as seen by a bot.
type Contact struct {
	ID           string    `json:"id"`
	BotID        string    `json:"bot_id"`
	SenderID     string    `json:"sender_id"`
	Name         string    `json:"name,omitempty"`
	ProfilePic   string    `json:"profile_pic,omitempty"`
	Platform     string    `json:"platform"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	MessageCount int       `json:"message_count"`
}

// Result is the outcome of one conversational turn.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
