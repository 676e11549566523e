package httpapi

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/contentstore"
	"github.com/flabwick/papyrus/internal/hashutil"
	"github.com/flabwick/papyrus/internal/linkgraph"
	"github.com/flabwick/papyrus/internal/models"
)

type pagesHandler struct {
	s *Server
}

func (h *pagesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/libraries/{libraryID}/pages", h.s.chain(h.handleList))
	mux.HandleFunc("POST /v1/libraries/{libraryID}/pages", h.s.chain(h.handleCreate))
	mux.HandleFunc("GET /v1/pages/{id}", h.s.chain(h.handleGet))
	mux.HandleFunc("PUT /v1/pages/{id}", h.s.chain(h.handleUpdate))
	mux.HandleFunc("DELETE /v1/pages/{id}", h.s.chain(h.handleDelete))
	mux.HandleFunc("GET /v1/pages/{id}/links", h.s.chain(h.handleLinks))
}

func (h *pagesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	libraryID := r.PathValue("libraryID")
	if _, _, err := h.s.ownedLibrary(r.Context(), libraryID); err != nil {
		writeError(w, err)
		return
	}
	pages, err := h.s.stores.Pages.ListByLibrary(r.Context(), libraryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pages": pages})
}

type createPageRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	WorkspaceID string `json:"workspaceId"`
}

func (h *pagesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	libraryID := r.PathValue("libraryID")
	lib, user, err := h.s.ownedLibrary(r.Context(), libraryID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createPageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var page *models.Page
	if req.Title == "" {
		if req.WorkspaceID == "" {
			writeError(w, apperr.Validation("workspaceId is required for an unsaved page", map[string]string{"workspaceId": "required"}))
			return
		}
		page, err = h.s.factory.CreateUnsaved(r.Context(), libraryID, req.WorkspaceID, req.Content)
	} else {
		page, err = h.s.factory.CreateSaved(r.Context(), user.Username, lib.Slug, libraryID, req.Title, req.Content)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (h *pagesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	page, _, _, err := h.s.ownedPage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type updatePageRequest struct {
	Content *string `json:"content"`
	Title   *string `json:"title"`
}

// handleUpdate edits a Page's content and/or title. A title assigned to an
// unsaved Page promotes it to saved via the Factory (§3, §9 Open Question),
// rather than being handled as a plain metadata update.
func (h *pagesHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	page, lib, user, err := h.s.ownedPage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req updatePageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Title != nil && page.PageType == models.PageUnsaved {
		updated, err := h.s.factory.ConvertUnsavedToSaved(r.Context(), user.Username, lib.Slug, page.ID, *req.Title)
		if err != nil {
			writeError(w, err)
			return
		}
		if req.Content != nil && *req.Content != updated.Content {
			if err := h.updateContent(r.Context(), updated, user.Username, lib.Slug, *req.Content); err != nil {
				writeError(w, err)
				return
			}
			updated, err = h.s.stores.Pages.Get(r.Context(), page.ID)
			if err != nil {
				writeError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, updated)
		return
	}

	if req.Content != nil {
		if err := h.updateContent(r.Context(), page, user.Username, lib.Slug, *req.Content); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Title != nil {
		if err := h.s.stores.Pages.UpdateTitle(r.Context(), page.ID, req.Title); err != nil {
			writeError(w, err)
			return
		}
		if *req.Title != "" {
			if err := h.s.graph.OnPageSaved(r.Context(), page.LibraryID, *req.Title, page.ID); err != nil {
				writeError(w, err)
				return
			}
		}
	}

	fresh, err := h.s.stores.Pages.Get(r.Context(), page.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fresh)
}

// updateContent writes content to disk (when the Page has a backing file)
// and updates the Metadata Store row plus the Link Parser's edges, the same
// disk-then-database ordering the Factory uses for creation.
func (h *pagesHandler) updateContent(ctx context.Context, page *models.Page, username, slug, content string) error {
	if page.FilePath != nil {
		abs := filepath.Join(h.s.content.LibraryDir(username, slug), *page.FilePath)
		if err := contentstore.WriteAtomic(abs, []byte(content)); err != nil {
			return err
		}
	}

	hash := hashutil.HashBytes([]byte(content))
	if err := h.s.stores.Pages.UpdateContent(ctx, page.ID, content, previewText(content), hash); err != nil {
		return err
	}
	return h.s.graph.Reparse(ctx, page.LibraryID, page.ID, content)
}

// previewText returns the first ~280 characters of content for listing
// views, matching the Factory and Sync Engine's own preview truncation.
func previewText(content string) string {
	const maxLen = 280
	trimmed := strings.TrimSpace(content)
	if len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen]
}

func (h *pagesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	page, _, _, err := h.s.ownedPage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.s.stores.Pages.SoftDelete(r.Context(), page.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

type linksResponse struct {
	Forward  []models.PageLink `json:"forward"`
	Backlink []models.PageLink `json:"backlinks"`
	Health   float64           `json:"health"`
}

func (h *pagesHandler) handleLinks(w http.ResponseWriter, r *http.Request) {
	page, _, _, err := h.s.ownedPage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	forward, err := h.s.graph.Forward(r.Context(), page.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	back, err := h.s.graph.Backlinks(r.Context(), page.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linksResponse{Forward: forward, Backlink: back, Health: linkgraph.Health(forward)})
}
