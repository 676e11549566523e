package httpapi

import (
	"net/http"
	"time"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
)

type workspacesHandler struct {
	s *Server
}

func (h *workspacesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/libraries/{libraryID}/workspaces", h.s.chain(h.handleList))
	mux.HandleFunc("POST /v1/libraries/{libraryID}/workspaces", h.s.chain(h.handleCreate))
	mux.HandleFunc("GET /v1/workspaces/{id}", h.s.chain(h.handleGet))
	mux.HandleFunc("DELETE /v1/workspaces/{id}", h.s.chain(h.handleDelete))
	mux.HandleFunc("POST /v1/workspaces/{id}/favorite", h.s.chain(h.handleFavorite))
	mux.HandleFunc("POST /v1/workspaces/{id}/duplicate", h.s.chain(h.handleDuplicate))
	mux.HandleFunc("GET /v1/workspaces/{id}/items", h.s.chain(h.handleItems))
	mux.HandleFunc("POST /v1/workspaces/{id}/items", h.s.chain(h.handleAddItem))
	mux.HandleFunc("PUT /v1/workspaces/{id}/items/{kind}/{itemID}", h.s.chain(h.handleUpdateItem))
	mux.HandleFunc("DELETE /v1/workspaces/{id}/items/{kind}/{itemID}", h.s.chain(h.handleRemoveItem))
}

func (h *workspacesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	libraryID := r.PathValue("libraryID")
	if _, _, err := h.s.ownedLibrary(r.Context(), libraryID); err != nil {
		writeError(w, err)
		return
	}
	workspaces, err := h.s.stores.Workspaces.ListByLibrary(r.Context(), libraryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workspaces": workspaces})
}

type createWorkspaceRequest struct {
	Title string `json:"title"`
}

func (h *workspacesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	libraryID := r.PathValue("libraryID")
	if _, _, err := h.s.ownedLibrary(r.Context(), libraryID); err != nil {
		writeError(w, err)
		return
	}
	var req createWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ws, err := h.s.stores.Workspaces.Create(r.Context(), libraryID, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (h *workspacesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.s.stores.Workspaces.Touch(r.Context(), ws.ID, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (h *workspacesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.s.stores.Workspaces.Delete(r.Context(), ws.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

type favoriteRequest struct {
	Favorited bool `json:"favorited"`
}

func (h *workspacesHandler) handleFavorite(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.s.stores.Workspaces.SetFavorited(r.Context(), ws.ID, req.Favorited); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

type duplicateRequest struct {
	Title string `json:"title"`
}

func (h *workspacesHandler) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req duplicateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	dup, err := h.s.engine.Duplicate(r.Context(), ws.ID, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

func (h *workspacesHandler) handleItems(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := h.s.engine.ListItems(r.Context(), ws.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

type addItemRequest struct {
	ItemID   string          `json:"itemId"`
	ItemKind models.ItemKind `json:"itemKind"`
	At       *int            `json:"at"`
}

func (h *workspacesHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ItemKind != models.ItemKindPage && req.ItemKind != models.ItemKindFile {
		writeError(w, apperr.Validation("invalid itemKind", map[string]string{"itemKind": "must be \"page\" or \"file\""}))
		return
	}
	if err := h.s.engine.AddItem(r.Context(), ws.ID, req.ItemID, req.ItemKind, req.At); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"ok": "true"})
}

type updateItemRequest struct {
	Position      *int  `json:"position"`
	Depth         *int  `json:"depth"`
	IsInAIContext *bool `json:"isInAiContext"`
	IsCollapsed   *bool `json:"isCollapsed"`
}

func (h *workspacesHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	kind := models.ItemKind(r.PathValue("kind"))
	itemID := r.PathValue("itemID")

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Position != nil {
		if err := h.s.engine.MoveItem(r.Context(), ws.ID, itemID, kind, *req.Position); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Depth != nil || req.IsInAIContext != nil || req.IsCollapsed != nil {
		if err := h.s.engine.UpdateFlags(r.Context(), ws.ID, itemID, kind, req.Depth, req.IsInAIContext, req.IsCollapsed); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (h *workspacesHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ws, _, _, err := h.s.ownedWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	kind := models.ItemKind(r.PathValue("kind"))
	itemID := r.PathValue("itemID")
	if err := h.s.engine.RemoveItem(r.Context(), ws.ID, itemID, kind); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}
