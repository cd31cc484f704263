package handler

// Webhook request and response types.

type WebhookRequest struct {
	Sender WebhookSender `json:"sender"`
	Chat   WebhookChat   `json:"chat"`
	Text   string        `json:"text"`
}

type WebhookSender struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// WebhookChat carries the chat type: "private" or "group".
type WebhookChat struct {
	Type string `json:"type"`
}

const (
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"
)

type WebhookResponse struct {
	Replies []Reply `json:"replies"`
}

type Reply struct {
	Text string `json:"text"`
}

// NewTextResponse wraps one or more messages into the reply envelope.
func NewTextResponse(texts ...string) WebhookResponse {
	replies := make([]Reply, 0, len(texts))
	for _, t := range texts {
		if t == "" {
			continue
		}
		replies = append(replies, Reply{Text: t})
	}
	return WebhookResponse{Replies: replies}
}

// NewEmptyResponse acknowledges a webhook without replying.
func NewEmptyResponse() WebhookResponse {
	return WebhookResponse{Replies: []Reply{}}
}
