// Package models holds the domain entities of the content store: Users,
// Libraries, Pages, Files, Workspaces, WorkspaceItems, and PageLinks.
package models

import "time"

// User owns Libraries and a storage quota.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	StorageQuota  int64     `json:"storageQuota"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Library is a named, per-user collection of Pages and Files.
type Library struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	FolderPath string   `json:"folderPath"`
	CreatedAt time.Time `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// PageType enumerates the three Page lifecycles (§3).
type PageType string

const (
	PageSaved   PageType = "saved"
	PageFile    PageType = "file"
	PageUnsaved PageType = "unsaved"
)

// Page is a text/markdown content item within a Library.
type Page struct {
	ID              string    `json:"id"`
	LibraryID       string    `json:"libraryId"`
	Title           *string   `json:"title"`
	PageType        PageType  `json:"pageType"`
	Content         string    `json:"content"`
	ContentPreview  string    `json:"contentPreview"`
	FilePath        *string   `json:"filePath,omitempty"`
	FileID          *string   `json:"fileId,omitempty"`
	WorkspaceID     *string   `json:"workspaceId,omitempty"`
	FileHash        string    `json:"fileHash,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
}

// FileType enumerates the supported uploaded-document kinds.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeEPUB  FileType = "epub"
	FileTypeImage FileType = "image"
)

// ProcessingStatus tracks a File's extraction outcome.
type ProcessingStatus string

const (
	ProcessingPending  ProcessingStatus = "pending"
	ProcessingComplete ProcessingStatus = "complete"
	ProcessingFailed   ProcessingStatus = "failed"
)

// File is an uploaded document with per-kind extracted metadata.
type File struct {
	ID               string           `json:"id"`
	LibraryID        string           `json:"libraryId"`
	FileName         string           `json:"fileName"`
	FileType         FileType         `json:"fileType"`
	Size             int64            `json:"size"`
	Path             string           `json:"path"`
	ContentPreview   string           `json:"contentPreview,omitempty"`
	CoverImagePath   *string          `json:"coverImagePath,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	ProcessingError  string           `json:"processingError,omitempty"`
	FileHash         string           `json:"fileHash,omitempty"`
	Metadata         FileMetadata     `json:"metadata"`
	UploadedAt       time.Time        `json:"uploadedAt"`
	DeletedAt        *time.Time       `json:"deletedAt,omitempty"`
}

// FileMetadata is the per-kind metadata bag extracted by a processor.
// Only the fields relevant to FileType are populated.
type FileMetadata struct {
	// PDF
	PDFPageCount int    `json:"pdfPageCount,omitempty"`
	PDFAuthor    string `json:"pdfAuthor,omitempty"`
	PDFTitle     string `json:"pdfTitle,omitempty"`
	PDFSubject   string `json:"pdfSubject,omitempty"`
	PDFCreator   string `json:"pdfCreator,omitempty"`
	PDFProducer  string `json:"pdfProducer,omitempty"`

	// EPUB
	EPUBTitle       string `json:"epubTitle,omitempty"`
	EPUBAuthor      string `json:"epubAuthor,omitempty"`
	EPUBPublisher   string `json:"epubPublisher,omitempty"`
	EPUBLanguage    string `json:"epubLanguage,omitempty"`
	EPUBISBN        string `json:"epubIsbn,omitempty"`
	EPUBDescription string `json:"epubDescription,omitempty"`
	EPUBChapters    int    `json:"epubChapters,omitempty"`
	EPUBHasTOC      bool   `json:"epubHasToc,omitempty"`
	EPUBHasImages   bool   `json:"epubHasImages,omitempty"`

	// Image
	ImageWidth  int    `json:"imageWidth,omitempty"`
	ImageHeight int    `json:"imageHeight,omitempty"`
	ImageFormat string `json:"imageFormat,omitempty"`
}

// Workspace is an ordered mixed-kind view within a Library.
type Workspace struct {
	ID             string    `json:"id"`
	LibraryID      string    `json:"libraryId"`
	Title          string    `json:"title"`
	IsFavorited    bool      `json:"isFavorited"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ItemKind distinguishes the two referenceable content kinds.
type ItemKind string

const (
	ItemKindPage ItemKind = "page"
	ItemKindFile ItemKind = "file"
)

// WorkspaceItem is a membership edge between a Workspace and a Page or File.
type WorkspaceItem struct {
	WorkspaceID    string    `json:"workspaceId"`
	ItemID         string    `json:"itemId"`
	ItemKind       ItemKind  `json:"itemKind"`
	Position       int       `json:"position"`
	Depth          int       `json:"depth"`
	IsInAIContext  bool      `json:"isInAiContext"`
	IsCollapsed    bool      `json:"isCollapsed"`
	AddedAt        time.Time `json:"addedAt"`
}

// WorkspaceItemView is a WorkspaceItem joined with a display summary of the
// underlying Page or File, as returned by listItems (§4.4).
type WorkspaceItemView struct {
	WorkspaceItem
	Title   string `json:"title"`
	Preview string `json:"preview,omitempty"`
}

// PageLink is a directed edge between Pages, computed from `[[title]]`
// occurrences in a Page's body.
type PageLink struct {
	ID             string `json:"id"`
	SourcePageID   string `json:"sourcePageId"`
	TargetPageID   *string `json:"targetPageId"`
	LinkText       string `json:"linkText"`
	Position       int    `json:"position"`
}

// Session is either a cookie-bound web session or an opaque CLI bearer token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"-"`
	IsCLI     bool      `json:"isCli"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
