package httpapi

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
	"github.com/flabwick/papyrus/internal/store"
)

type filesHandler struct {
	s *Server
}

func (h *filesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/libraries/{libraryID}/files", h.s.chain(h.handleList))
	mux.HandleFunc("POST /v1/libraries/{libraryID}/files", h.s.chain(h.handleUpload))
	mux.HandleFunc("GET /v1/files/{id}", h.s.chain(h.handleGet))
	mux.HandleFunc("GET /v1/files/{id}/cover", h.s.chain(h.handleCover))
	mux.HandleFunc("DELETE /v1/files/{id}", h.s.chain(h.handleDelete))
}

func (h *filesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	libraryID := r.PathValue("libraryID")
	if _, _, err := h.s.ownedLibrary(r.Context(), libraryID); err != nil {
		writeError(w, err)
		return
	}
	files, err := h.s.stores.Files.ListByLibrary(r.Context(), libraryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

const (
	maxFilesPerUpload = 10
	maxBytesPerFile   = 100 << 20 // 100MB (§6)
)

// uploadResult reports one file's outcome within a batch upload, so a
// partial failure in a 10-file batch doesn't abort the files that
// succeeded (§6).
type uploadResult struct {
	FileName string       `json:"fileName"`
	File     *models.File `json:"file,omitempty"`
	Skipped  bool         `json:"skipped,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// handleUpload accepts a multipart batch of up to 10 files, each up to
// 100MB, dispatching to the Factory per file. The "mode" query parameter
// selects the duplicate-filename resolution strategy: "skip" (default
// "rename") leaves an existing file alone, "replace" soft-deletes it and
// removes its on-disk bytes before writing the new upload under the same
// name, and "rename" lets the Factory's UniquePath suffix the new file
// instead (§5).
func (h *filesHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	libraryID := r.PathValue("libraryID")
	lib, user, err := h.s.ownedLibrary(r.Context(), libraryID)
	if err != nil {
		writeError(w, err)
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "rename"
	}
	if mode != "skip" && mode != "replace" && mode != "rename" {
		writeError(w, apperr.Validation("invalid duplicate mode", map[string]string{"mode": "must be skip, replace, or rename"}))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFilesPerUpload)*(maxBytesPerFile+1<<20))
	if err := r.ParseMultipartForm(maxBytesPerFile); err != nil {
		writeError(w, apperr.Validation("failed to parse multipart upload", map[string]string{"body": err.Error()}))
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, apperr.Validation("no files provided", map[string]string{"files": "required, field name \"files\""}))
		return
	}
	if len(headers) > maxFilesPerUpload {
		writeError(w, apperr.Validation("too many files in one batch", map[string]string{"files": "max 10 per upload"}))
		return
	}

	results := make([]uploadResult, 0, len(headers))
	for _, fh := range headers {
		res := h.uploadOne(r.Context(), user.ID, user.Username, lib.Slug, libraryID, fh, mode)
		results = append(results, res)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"results": results})
}

// uploadOne resolves fh's duplicate-name policy, reads its bytes, and hands
// them to the Factory. Quota is checked against fh.Size before the bytes are
// even read off the wire into memory, not just before the Factory writes
// them to disk (§8: the bytes must not be written at all when over quota).
func (h *filesHandler) uploadOne(ctx context.Context, userID, username, slug, libraryID string, fh *multipart.FileHeader, mode string) uploadResult {
	if fh.Size > maxBytesPerFile {
		return uploadResult{FileName: fh.Filename, Error: "file exceeds the 100MB per-file limit"}
	}

	if err := store.CheckQuota(ctx, h.s.stores, userID, fh.Size); err != nil {
		return uploadResult{FileName: fh.Filename, Error: err.Error()}
	}

	existing, err := h.s.stores.Files.GetByFileName(ctx, libraryID, fh.Filename)
	hasExisting := err == nil
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return uploadResult{FileName: fh.Filename, Error: err.Error()}
	}

	if hasExisting {
		switch mode {
		case "skip":
			return uploadResult{FileName: fh.Filename, Skipped: true}
		case "replace":
			abs := filepath.Join(h.s.content.LibraryDir(username, slug), existing.Path)
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				return uploadResult{FileName: fh.Filename, Error: err.Error()}
			}
			if err := h.s.stores.Files.SoftDelete(ctx, existing.ID); err != nil {
				return uploadResult{FileName: fh.Filename, Error: err.Error()}
			}
		case "rename":
			// fall through: the Factory's UniquePath suffixes the new file.
		}
	}

	src, err := fh.Open()
	if err != nil {
		return uploadResult{FileName: fh.Filename, Error: err.Error()}
	}
	defer src.Close()

	data := make([]byte, 0, fh.Size)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return uploadResult{FileName: fh.Filename, Error: readErr.Error()}
		}
	}

	file, err := h.s.factory.CreateFile(ctx, username, slug, libraryID, fh.Filename, data)
	if err != nil {
		return uploadResult{FileName: fh.Filename, Error: err.Error()}
	}
	return uploadResult{FileName: fh.Filename, File: file}
}

func (h *filesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	file, _, _, err := h.s.ownedFile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// handleCover streams a File's extracted cover image, cached for 24h as a
// derived asset that never changes after processing completes (§6).
func (h *filesHandler) handleCover(w http.ResponseWriter, r *http.Request) {
	file, lib, user, err := h.s.ownedFile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if file.CoverImagePath == nil {
		writeError(w, apperr.NotFound(file.ID, "file has no cover image"))
		return
	}
	abs := filepath.Join(h.s.content.LibraryDir(user.Username, lib.Slug), *file.CoverImagePath)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, abs)
}

func (h *filesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	file, _, _, err := h.s.ownedFile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.s.stores.Files.SoftDelete(r.Context(), file.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}
