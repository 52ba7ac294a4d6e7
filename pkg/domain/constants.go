package domain

// Card type tags as they appear in stored block documents.
const (
	CardText       = "text"
	CardImage      = "image"
	CardGallery    = "gallery"
	CardQuickReply = "quickReply"
	CardUserInput  = "userInput"
	CardDelay      = "delay"
	CardGoToBlock  = "goToBlock"
)

// Node type tags as they appear in stored flow documents.
const (
	NodeStart      = "start"
	NodeText       = "text"
	NodeImage      = "image"
	NodeCard       = "card"
	NodeQuickReply = "quickReply"
	NodeUserInput  = "userInput"
	NodeCondition  = "condition"
	NodeDelay      = "delay"
	NodeEnd        = "end"
)

// Button kinds.
const (
	ButtonPostback = "postback"
	ButtonURL      = "url"
	ButtonBlock    = "block"
)

// Condition edge handles.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Direction of a logged message.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)
