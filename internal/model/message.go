package model

// InboundMessage is a user message delivered by the messaging channel.
type InboundMessage struct {
	UserKey string `json:"user_key"`
	Text    string `json:"text"`
}

// OutboundMessage is a reply to deliver to the user.
type OutboundMessage struct {
	UserKey string `json:"user_key"`
	Text    string `json:"text"`
	Index   int    `json:"index"`
}

// TurnResponse is the result of processing one inbound message.
type TurnResponse struct {
	UserKey   string   `json:"user_key"`
	Step      Step     `json:"step"`
	Replies   []string `json:"replies"`
	Completed bool     `json:"completed"`
	Quote     *Quote   `json:"quote,omitempty"`

	// Failed is set when the turn could not be processed and nothing was
	// stored. Replies then hold a generic re-prompt.
	Failed bool `json:"failed,omitempty"`
}

// PriceRequest asks for a direct price by catalog names.
type PriceRequest struct {
	Category   string    `json:"category"`
	Product    string    `json:"product"`
	Materials  []string  `json:"materials"`
	Finishes   []string  `json:"finishes"`
	Dimensions []float64 `json:"dimensions"`
	Quantities []int     `json:"quantities"`
	SKUCount   int       `json:"sku_count"`
}

// ListEventsResponse is the response for listing conversation events.
type ListEventsResponse struct {
	Events       []ConversationEvent `json:"events"`
	HasMore      bool                `json:"has_more"`
	LastSequence uint64              `json:"last_sequence"`
}

// ErrorEvent describes a failure in an API response body.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
