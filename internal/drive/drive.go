// Package drive provides the document-source provider backed by Google
// Drive. It lists indexable files, fetches metadata and downloads file
// content, exporting Google-native documents to plain text. Token refresh
// is delegated to the oauth2 token source and treated as opaque here.
package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Google Workspace MIME types that require export instead of download.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// MaxDownloadSize caps downloaded and exported content (5MB).
const MaxDownloadSize = 5 * 1024 * 1024

// listPageSize is the Drive list page size per request.
const listPageSize = 100

// fileFields are the metadata fields requested from the Drive API.
const fileFields = "id, name, mimeType, size, modifiedTime"

// File is the provider-neutral view of a source file.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modifiedTime"`
}

// Client lists and downloads files from a Google Drive folder.
type Client struct {
	svc      *drivev3.Service
	folderID string
	logger   *slog.Logger
}

// NewClient creates a Drive client authenticated with a static access
// token. folderID restricts listing to one folder; empty means the whole
// drive.
func NewClient(ctx context.Context, accessToken, folderID string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	svc, err := drivev3.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return &Client{svc: svc, folderID: folderID, logger: logger}, nil
}

// ListFiles returns all indexable files, following list pagination.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	var files []File
	pageToken := ""

	for {
		call := c.svc.Files.List().
			Q(listQuery(c.folderID)).
			PageSize(listPageSize).
			Fields("nextPageToken", "files("+fileFields+")").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing drive files: %w", err)
		}

		for _, f := range page.Files {
			if f.MimeType == MimeTypeFolder {
				continue
			}
			files = append(files, toFile(f))
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.logger.Debug("listed drive files", "count", len(files))
	return files, nil
}

// GetFile fetches metadata for a single file.
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	f, err := c.svc.Files.Get(fileID).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return File{}, fmt.Errorf("getting drive file %s: %w", fileID, err)
	}
	return toFile(f), nil
}

// Download fetches a file's content. Google-native documents are exported
// to a text format; the returned MIME type reflects the bytes actually
// returned.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, "", err
	}

	if exported, ok := exportMime(file.MimeType); ok {
		data, err := c.export(ctx, fileID, exported)
		if err != nil {
			return nil, "", err
		}
		return data, exported, nil
	}

	if file.Size > MaxDownloadSize {
		return nil, "", fmt.Errorf("file %s exceeds download limit (%d bytes)", fileID, file.Size)
	}

	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, "", fmt.Errorf("downloading file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize))
	if err != nil {
		return nil, "", fmt.Errorf("reading file %s: %w", fileID, err)
	}

	return data, file.MimeType, nil
}

// export downloads a Google-native document converted to exportedMime.
func (c *Client) export(ctx context.Context, fileID, exportedMime string) ([]byte, error) {
	resp, err := c.svc.Files.Export(fileID, exportedMime).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("exporting file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("reading export %s: %w", fileID, err)
	}
	return data, nil
}

// exportMime maps a Google Workspace MIME type to its export format.
// The second return is false for regular files.
func exportMime(mimeType string) (string, bool) {
	switch mimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		return ExportMimeText, true
	case MimeTypeGoogleSheet:
		return ExportMimeCSV, true
	}
	return "", false
}

// listQuery builds the Drive query for indexable files.
func listQuery(folderID string) string {
	mimes := []string{
		MimeTypeGoogleDoc,
		MimeTypeGoogleSheet,
		MimeTypeGoogleSlides,
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
		"text/markdown",
		"text/csv",
	}

	clauses := make([]string, 0, len(mimes))
	for _, m := range mimes {
		clauses = append(clauses, fmt.Sprintf("mimeType = '%s'", m))
	}

	q := "trashed = false and (" + strings.Join(clauses, " or ") + ")"
	if folderID != "" {
		q = fmt.Sprintf("'%s' in parents and %s", folderID, q)
	}
	return q
}

// toFile converts an SDK file into the provider-neutral view.
func toFile(f *drivev3.File) File {
	return File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		ModifiedTime: f.ModifiedTime,
	}
}
