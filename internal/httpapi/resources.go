package httpapi

import (
	"context"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
)

// ownedLibrary resolves libraryID and checks it belongs to the principal on
// ctx, returning the Library plus its owner's User (needed for the
// username/slug pair every contentstore path is keyed on).
func (s *Server) ownedLibrary(ctx context.Context, libraryID string) (*models.Library, *models.User, error) {
	p := principalFromContext(ctx)
	lib, err := s.stores.Libraries.Get(ctx, libraryID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil || lib.UserID != p.UserID {
		return nil, nil, apperr.Forbidden(libraryID, "library does not belong to the caller")
	}
	user, err := s.stores.Users.Get(ctx, lib.UserID)
	if err != nil {
		return nil, nil, err
	}
	return lib, user, nil
}

// ownedPage resolves a Page then checks its owning Library belongs to the
// caller.
func (s *Server) ownedPage(ctx context.Context, pageID string) (*models.Page, *models.Library, *models.User, error) {
	page, err := s.stores.Pages.Get(ctx, pageID)
	if err != nil {
		return nil, nil, nil, err
	}
	lib, user, err := s.ownedLibrary(ctx, page.LibraryID)
	if err != nil {
		return nil, nil, nil, err
	}
	return page, lib, user, nil
}

// ownedFile resolves a File then checks its owning Library belongs to the
// caller.
func (s *Server) ownedFile(ctx context.Context, fileID string) (*models.File, *models.Library, *models.User, error) {
	file, err := s.stores.Files.Get(ctx, fileID)
	if err != nil {
		return nil, nil, nil, err
	}
	lib, user, err := s.ownedLibrary(ctx, file.LibraryID)
	if err != nil {
		return nil, nil, nil, err
	}
	return file, lib, user, nil
}

// ownedWorkspace resolves a Workspace then checks its owning Library belongs
// to the caller.
func (s *Server) ownedWorkspace(ctx context.Context, workspaceID string) (*models.Workspace, *models.Library, *models.User, error) {
	ws, err := s.stores.Workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, nil, nil, err
	}
	lib, user, err := s.ownedLibrary(ctx, ws.LibraryID)
	if err != nil {
		return nil, nil, nil, err
	}
	return ws, lib, user, nil
}
