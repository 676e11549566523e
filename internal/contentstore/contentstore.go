// Package contentstore manages the on-disk tree that is the source of truth
// for content bytes (§4.2, §6). Every operation surfaces I/O failures as
// *apperr.Error{Kind: KindStorageError} carrying the offending path.
package contentstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/hashutil"
)

// Store roots every user/library tree under a configured storage root
// following the §6 layout:
//
//	storage/<username>/libraries/<slug>/{pages,files,files/covers}
//	storage/.archived/<username>-<epoch-ms>/
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string { return s.root }

func (s *Store) userDir(username string) string {
	return filepath.Join(s.root, username)
}

func (s *Store) librariesDir(username string) string {
	return filepath.Join(s.userDir(username), "libraries")
}

func (s *Store) LibraryDir(username, slug string) string {
	return filepath.Join(s.librariesDir(username), slug)
}

func (s *Store) PagesDir(username, slug string) string {
	return filepath.Join(s.LibraryDir(username, slug), "pages")
}

func (s *Store) FilesDir(username, slug string) string {
	return filepath.Join(s.LibraryDir(username, slug), "files")
}

func (s *Store) CoversDir(username, slug string) string {
	return filepath.Join(s.FilesDir(username, slug), "covers")
}

func (s *Store) archiveRoot() string {
	return filepath.Join(s.root, ".archived")
}

// CreateUserTree creates storage/<username>/ and its libraries directory.
func (s *Store) CreateUserTree(username string) error {
	dir := s.userDir(username)
	if err := os.MkdirAll(filepath.Join(dir, "libraries"), 0o755); err != nil {
		return apperr.Storage(dir, err)
	}
	return nil
}

// CreateLibraryTree creates the pages/, files/, and files/covers/
// subdirectories a Library requires (§3 invariant).
func (s *Store) CreateLibraryTree(username, slug string) error {
	dirs := []string{
		s.PagesDir(username, slug),
		s.FilesDir(username, slug),
		s.CoversDir(username, slug),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return apperr.Storage(d, err)
		}
	}
	return nil
}

// ArchiveUserTree moves storage/<username>/ under
// storage/.archived/<username>-<epoch-ms>/ (§3, §6).
func (s *Store) ArchiveUserTree(username string, now time.Time) (string, error) {
	src := s.userDir(username)
	dst := filepath.Join(s.archiveRoot(), fmt.Sprintf("%s-%d", username, now.UnixMilli()))

	if err := os.MkdirAll(s.archiveRoot(), 0o755); err != nil {
		return "", apperr.Storage(s.archiveRoot(), err)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", apperr.Storage(src, err)
	}
	return dst, nil
}

// ArchiveLibraryTree moves a single library folder under the archive root,
// used when a Library (not its whole owning User) is soft-deleted (§3).
func (s *Store) ArchiveLibraryTree(username, slug string, now time.Time) (string, error) {
	src := s.LibraryDir(username, slug)
	dst := filepath.Join(s.archiveRoot(), fmt.Sprintf("%s-%s-%d", username, slug, now.UnixMilli()))

	if err := os.MkdirAll(s.archiveRoot(), 0o755); err != nil {
		return "", apperr.Storage(s.archiveRoot(), err)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", apperr.Storage(src, err)
	}
	return dst, nil
}

// ListUsers returns the usernames with a tree under the storage root.
func (s *Store) ListUsers() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, apperr.Storage(s.root, err)
	}
	var users []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != ".archived" {
			users = append(users, e.Name())
		}
	}
	return users, nil
}

// ListLibraries returns the library slugs under a user's libraries directory.
func (s *Store) ListLibraries(username string) ([]string, error) {
	dir := s.librariesDir(username)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Storage(dir, err)
	}
	var slugs []string
	for _, e := range entries {
		if e.IsDir() {
			slugs = append(slugs, e.Name())
		}
	}
	return slugs, nil
}

// ScannedFile is one record yielded per regular file under pages/ or files/
// during a library scan (§4.2).
type ScannedFile struct {
	Name     string // basename, without extension for Category == page
	Path     string // absolute path
	Category string // "page" or "file"
	Size     int64
	Hash     string
	ModTime  time.Time
	CTime    time.Time
}

// ScanLibrary yields one ScannedFile per regular file under pages/ and
// files/ (excluding files/covers/, which holds derived assets, not content).
func (s *Store) ScanLibrary(username, slug string) ([]ScannedFile, error) {
	var out []ScannedFile

	pagesDir := s.PagesDir(username, slug)
	if err := scanDir(pagesDir, "page", true, &out); err != nil {
		return nil, err
	}

	filesDir := s.FilesDir(username, slug)
	coversDir := s.CoversDir(username, slug)
	entries, err := os.ReadDir(filesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, apperr.Storage(filesDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(filesDir, e.Name())
		if filepath.Dir(path) == coversDir {
			continue
		}
		rec, err := scanFile(path, e.Name(), "file", false)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func scanDir(dir, category string, stripExt bool, out *[]ScannedFile) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperr.Storage(dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		rec, err := scanFile(path, e.Name(), category, stripExt)
		if err != nil {
			return err
		}
		*out = append(*out, rec)
	}
	return nil
}

func scanFile(path, name, category string, stripExt bool) (ScannedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ScannedFile{}, apperr.Storage(path, err)
	}
	hash, err := hashutil.HashFile(path)
	if err != nil {
		return ScannedFile{}, err
	}
	displayName := name
	if stripExt {
		displayName = name[:len(name)-len(filepath.Ext(name))]
	}
	return ScannedFile{
		Name:     displayName,
		Path:     path,
		Category: category,
		Size:     info.Size(),
		Hash:     hash,
		ModTime:  info.ModTime(),
		CTime:    statCTime(info),
	}, nil
}

// WriteAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partial write.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return apperr.Storage(dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperr.Storage(path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperr.Storage(path, err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Storage(path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return apperr.Storage(path, err)
	}
	cleanup = false
	return nil
}

// UniquePath resolves a rename collision by appending "_<n>" before the
// extension, per the §5 duplicate-resolution rule.
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
