package domain

import "time"

// Session is the persisted pause point of one conversation between a bot and a sender.
//
// CurrentBlockID and CurrentNodeID are never both set: a conversation is either
// paused inside a Block, paused inside a legacy Flow, or idle.
type Session struct {
	ID       string `json:"id"`
	BotID    string `json:"bot_id"`
	SenderID string `json:"sender_id"`

	// CurrentNodeID is the legacy graph pointer.
	CurrentNodeID *string `json:"current_node_id"`

	// CurrentBlockID and CurrentCardIndex locate the userInput card awaiting an answer.
	CurrentBlockID   *string `json:"current_block_id"`
	CurrentCardIndex int     `json:"current_card_index"`

	// Context holds the variables collected so far.
	Context Vars `json:"context"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionKey derives the storage key of the (botID, senderID) session.
func SessionKey(botID, senderID string) string {
	return botID + ":" + senderID
}

// NewSession creates an idle session.
func NewSession(botID, senderID string, now time.Time) *Session {
	return &Session{
		ID:        SessionKey(botID, senderID),
		BotID:     botID,
		SenderID:  senderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetBlockPointer points the session at a card of a block and clears the node pointer.
// A nil blockID marks the block as finished and resets the index.
func (s *Session) SetBlockPointer(blockID *string, cardIndex int) {
	s.CurrentNodeID = nil
	if blockID == nil {
		s.CurrentBlockID = nil
		s.CurrentCardIndex = 0
		return
	}
	id := *blockID
	s.CurrentBlockID = &id
	s.CurrentCardIndex = cardIndex
}

// SetNodePointer points the session at a legacy graph node and clears the block pointer.
func (s *Session) SetNodePointer(nodeID *string) {
	s.CurrentBlockID = nil
	s.CurrentCardIndex = 0
	if nodeID == nil {
		s.CurrentNodeID = nil
		return
	}
	id := *nodeID
	s.CurrentNodeID = &id
}

// Reset clears both pointers and the collected variables.
func (s *Session) Reset() {
	s.CurrentNodeID = nil
	s.CurrentBlockID = nil
	s.CurrentCardIndex = 0
	s.Context = Vars{}
}

// InBlock reports whether the session is paused inside a block.
func (s *Session) InBlock() bool { return s.CurrentBlockID != nil }

// InFlow reports whether the session is paused inside a legacy flow.
func (s *Session) InFlow() bool { return s.CurrentNodeID != nil }

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.CurrentNodeID != nil {
		id := *s.CurrentNodeID
		c.CurrentNodeID = &id
	}
	if s.CurrentBlockID != nil {
		id := *s.CurrentBlockID
		c.CurrentBlockID = &id
	}
	c.Context = s.Context.Clone()
	return &c
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }
