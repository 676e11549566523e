package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/aistream"
	"github.com/flabwick/papyrus/internal/bus"
	"github.com/flabwick/papyrus/internal/models"
)

type streamHandler struct {
	s *Server
}

func (h *streamHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/workspaces/{id}/chat", h.s.chain(h.handleChat))
}

type chatRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"maxTokens"`
}

// handleChat resolves workspaceID's AI-context items into a system prompt,
// starts the AI Streaming Bridge, and relays its bus.StreamEvent channel to
// the client as a Server-Sent Events stream (§4.8). Each event is written as
// one "event: <name>\ndata: <json>\n\n" frame and flushed immediately so the
// browser's EventSource sees it without buffering.
func (h *streamHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if h.s.bridge == nil {
		writeError(w, apperr.New(apperr.KindProcessingError, "AI streaming is not enabled on this server"))
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperr.New(apperr.KindProcessingError, "streaming is not supported by this response writer"))
		return
	}

	items, err := h.s.engine.AIContextItems(r.Context(), ws.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	systemPrompt := buildSystemPrompt(items)

	chatReq := aistream.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []aistream.Message{{Role: "user", Content: req.Prompt}},
		MaxTokens:    req.MaxTokens,
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.s.bridge.Start(r.Context(), chatReq)
	for event := range events {
		if err := writeSSE(w, event); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, event bus.StreamEvent) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
	return err
}

// buildSystemPrompt joins a workspace's AI-context items into the text
// sent upstream as the provider's system prompt (§4.8), one item per
// paragraph so the model can attribute content to a title.
func buildSystemPrompt(items []models.WorkspaceItemView) string {
	var b strings.Builder
	for _, it := range items {
		if it.Title != "" {
			b.WriteString(it.Title)
			b.WriteString("\n")
		}
		b.WriteString(it.Preview)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
