// Package aistream implements the AI Streaming Bridge (§4.8): a
// channel-based producer/consumer that turns an upstream provider's
// server-sent-event stream into a sequence of bus.StreamEvent values, so the
// External Interface Adapter can relay them to a browser's EventSource
// without knowing anything about the provider's wire format.
package aistream

import (
	"context"
	"fmt"

	"github.com/flabwick/papyrus/internal/bus"
)

// ChatRequest is one AI streaming bridge request: a page or workspace's
// AI-context text plus the user's prompt.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
}

// Message is one turn of the conversation sent upstream.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Provider streams a chat completion, invoking onChunk for every incremental
// piece of assistant text. Implementations must stop promptly when ctx is
// canceled.
type Provider interface {
	StreamChat(ctx context.Context, req ChatRequest, onChunk func(text string)) (full string, err error)
}

// Bridge runs a ChatRequest against a Provider and emits bus.StreamEvent
// values on the returned channel: one "start", zero or more "chunk", then
// one of "complete" or "error", after which the channel is closed. Canceling
// ctx stops the provider call; once ctx is done every send, the terminal one
// included, races ctx.Done() and may be skipped, so a canceled run can close
// the channel without a terminal event.
type Bridge struct {
	provider Provider
}

// New constructs a Bridge over provider.
func New(provider Provider) *Bridge {
	return &Bridge{provider: provider}
}

// Start launches the provider call in its own goroutine and returns a
// channel of events for the caller to range over. It never blocks.
func (b *Bridge) Start(ctx context.Context, req ChatRequest) <-chan bus.StreamEvent {
	events := make(chan bus.StreamEvent, 8)

	go func() {
		defer close(events)

		select {
		case events <- bus.StreamEvent{Name: bus.EventStart}:
		case <-ctx.Done():
			return
		}

		full, err := b.provider.StreamChat(ctx, req, func(text string) {
			select {
			case events <- bus.StreamEvent{Name: bus.EventChunk, Payload: bus.ChunkPayload{Text: text}}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			select {
			case events <- bus.StreamEvent{Name: bus.EventError, Payload: bus.ErrorPayload{Message: err.Error()}}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case events <- bus.StreamEvent{Name: bus.EventComplete, Payload: bus.CompletePayload{Text: full}}:
		case <-ctx.Done():
		}
	}()

	return events
}

// ErrCanceled wraps ctx.Err() for providers to return when the upstream
// request is aborted mid-stream.
func ErrCanceled(ctx context.Context) error {
	return fmt.Errorf("ai stream canceled: %w", ctx.Err())
}
