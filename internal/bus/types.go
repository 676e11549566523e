// Package bus provides the in-process publish/subscribe abstraction used to
// fan a single event stream out to many subscribers: the AI Streaming Bridge
// broadcasting chunks to SSE clients, and the Sync Engine announcing
// reconciliation results to anything watching a Library.
package bus

// StreamEvent is one event of an AI streaming bridge conversation (§4.8).
type StreamEvent struct {
	Name    string      `json:"name"` // "start", "chunk", "complete", "error"
	Payload interface{} `json:"payload,omitempty"`
}

// StreamEvent kind constants.
const (
	EventStart    = "start"
	EventChunk    = "chunk"
	EventComplete = "complete"
	EventError    = "error"
)

// ChunkPayload carries one increment of assistant output text.
type ChunkPayload struct {
	Text string `json:"text"`
}

// CompletePayload carries the final assembled response.
type CompletePayload struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"inputTokens,omitempty"`
	OutputTokens int    `json:"outputTokens,omitempty"`
}

// ErrorPayload carries a stream-terminating error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// SyncEvent announces that the Sync Engine upserted, removed, or failed to
// process a path during reconciliation or fsnotify-driven sync (§4.5).
type SyncEvent struct {
	LibraryID string `json:"libraryId"`
	Path      string `json:"path"`
	Kind      string `json:"kind"` // "upserted", "removed", "error"
	Message   string `json:"message,omitempty"`
}

// EventHandler handles one event delivered to a subscription.
type EventHandler[T any] func(T)

// Publisher abstracts event broadcast + subscription so the AI Streaming
// Bridge and Sync Engine can be tested without a concrete transport, and so
// the HTTP layer's SSE writers can subscribe without depending on the
// publisher's internals.
type Publisher[T any] interface {
	Subscribe(id string, handler EventHandler[T])
	Unsubscribe(id string)
	Broadcast(event T)
}
