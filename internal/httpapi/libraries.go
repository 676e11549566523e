package httpapi

import (
	"net/http"
	"time"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/sanitize"
	syncpkg "github.com/flabwick/papyrus/internal/sync"
)

type librariesHandler struct {
	s *Server
}

func (h *librariesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/libraries", h.s.chain(h.handleList))
	mux.HandleFunc("POST /v1/libraries", h.s.chain(h.handleCreate))
	mux.HandleFunc("GET /v1/libraries/{id}", h.s.chain(h.handleGet))
	mux.HandleFunc("DELETE /v1/libraries/{id}", h.s.chain(h.handleDelete))
	mux.HandleFunc("POST /v1/libraries/{id}/sync", h.s.chain(h.handleSync))
}

func (h *librariesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	libs, err := h.s.stores.Libraries.ListByUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"libraries": libs})
}

type createLibraryRequest struct {
	Name string `json:"name"`
}

func (h *librariesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	var req createLibraryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	slug, err := sanitize.Slug(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.s.stores.Libraries.GetBySlug(r.Context(), p.UserID, slug); err == nil {
		writeError(w, apperr.Conflict(slug, "a library with this slug already exists"))
		return
	}

	if err := h.s.content.CreateLibraryTree(p.Username, slug); err != nil {
		writeError(w, err)
		return
	}

	lib, err := h.s.stores.Libraries.Create(r.Context(), p.UserID, req.Name, slug, h.s.content.LibraryDir(p.Username, slug))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lib)
}

func (h *librariesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	lib, _, err := h.s.ownedLibrary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

func (h *librariesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	lib, user, err := h.s.ownedLibrary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.s.content.ArchiveLibraryTree(user.Username, lib.Slug, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	if err := h.s.stores.Libraries.SoftDelete(r.Context(), lib.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

// handleSync runs the Sync Engine's ForceSync reconciliation of a single
// Library on demand (§4.5), used by clients that want a synchronous
// guarantee the Metadata Store reflects the on-disk tree rather than
// waiting on fsnotify's debounced watch.
func (h *librariesHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	lib, user, err := h.s.ownedLibrary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if h.s.recon == nil {
		writeError(w, apperr.New(apperr.KindProcessingError, "sync engine is not enabled on this server"))
		return
	}
	ref := syncpkg.LibraryRef{Username: user.Username, Slug: lib.Slug, ID: lib.ID}
	if err := h.s.recon.ForceSync(r.Context(), ref); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}
