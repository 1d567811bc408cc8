package graph

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/teemow/outlook-mcp/internal/instrumentation"
)

// Graph accepts these well-known names in place of folder IDs. Keys are
// lowercased display names and aliases; values are the wire names.
var wellKnownFolders = map[string]string{
	"inbox":         "inbox",
	"drafts":        "drafts",
	"sentitems":     "sentitems",
	"sent items":    "sentitems",
	"sent":          "sentitems",
	"deleteditems":  "deleteditems",
	"deleted items": "deleteditems",
	"trash":         "deleteditems",
	"junkemail":     "junkemail",
	"junk email":    "junkemail",
	"junk":          "junkemail",
	"archive":       "archive",
	"outbox":        "outbox",
}

// folderCache maps normalized folder paths to Graph folder IDs. Resolution
// walks childFolders level by level, so hits here save a request per path
// segment.
type folderCache struct {
	mu  sync.RWMutex
	ids map[string]string
}

func newFolderCache() *folderCache {
	return &folderCache{ids: make(map[string]string)}
}

func (fc *folderCache) get(path string) (string, bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	id, ok := fc.ids[path]
	return id, ok
}

func (fc *folderCache) put(path, id string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.ids[path] = id
}

func (fc *folderCache) clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.ids = make(map[string]string)
}

// InvalidateFolderCache drops all cached path→ID mappings. Call it after a
// mutation that may have moved or renamed folders, or when a cached ID turns
// out to be stale.
func (c *Client) InvalidateFolderCache() {
	c.folders.clear()
}

// ListFolders returns all top-level mail folders, following pagination.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	ctx, done := c.startOperation(ctx, "folders", "list")
	folders, err := c.listFolderPage(ctx, "/me/mailFolders")
	done(err)
	return folders, err
}

// ListChildFolders returns the children of the given folder, following
// pagination.
func (c *Client) ListChildFolders(ctx context.Context, folderID string) ([]Folder, error) {
	ctx, done := c.startOperation(ctx, "folders", "list")
	folders, err := c.listFolderPage(ctx, "/me/mailFolders/"+url.PathEscape(folderID)+"/childFolders")
	done(err)
	return folders, err
}

func (c *Client) listFolderPage(ctx context.Context, path string) ([]Folder, error) {
	query := url.Values{}
	query.Set("$top", "100")

	var folders []Folder
	var page folderListResponse
	if err := c.do(ctx, "GET", path, query, nil, &page); err != nil {
		return nil, err
	}
	folders = append(folders, page.Value...)
	for page.NextLink != "" {
		next := page.NextLink
		page = folderListResponse{}
		if err := c.doURL(ctx, "GET", next, nil, &page); err != nil {
			return nil, err
		}
		folders = append(folders, page.Value...)
	}
	return folders, nil
}

// ResolveFolderPath turns a folder path like "Inbox/Receipts/2024" into a
// Graph folder ID. Single-segment well-known names (Inbox, Sent Items, ...)
// short-circuit to their wire names without a request. Other paths are walked
// segment by segment through childFolders, case-insensitively, and the result
// is cached.
func (c *Client) ResolveFolderPath(ctx context.Context, path string) (string, error) {
	normalized := normalizeFolderPath(path)
	if normalized == "" {
		return "", fmt.Errorf("folder path is empty")
	}

	if wire, ok := wellKnownFolders[normalized]; ok {
		c.recordResolution(ctx, instrumentation.FolderResolutionHit)
		return wire, nil
	}

	if id, ok := c.folders.get(normalized); ok {
		c.recordResolution(ctx, instrumentation.FolderResolutionHit)
		return id, nil
	}

	id, err := c.walkFolderPath(ctx, normalized)
	if err != nil {
		c.recordResolution(ctx, instrumentation.FolderResolutionError)
		return "", err
	}
	if id == "" {
		c.recordResolution(ctx, instrumentation.FolderResolutionMiss)
		return "", &GraphError{
			Status:  404,
			Code:    "ErrorFolderNotFound",
			Message: fmt.Sprintf("mail folder %q not found", path),
		}
	}

	c.folders.put(normalized, id)
	c.recordResolution(ctx, instrumentation.FolderResolutionMiss)
	return id, nil
}

// walkFolderPath descends one path segment at a time. Returns "" (no error)
// when a segment does not exist.
func (c *Client) walkFolderPath(ctx context.Context, normalized string) (string, error) {
	segments := strings.Split(normalized, "/")

	var currentID string
	var resolvedSoFar []string
	for i, segment := range segments {
		var siblings []Folder
		var err error
		if i == 0 {
			siblings, err = c.ListFolders(ctx)
		} else {
			siblings, err = c.ListChildFolders(ctx, currentID)
		}
		if err != nil {
			return "", err
		}

		currentID = ""
		for _, folder := range siblings {
			if strings.EqualFold(folder.DisplayName, segment) {
				currentID = folder.ID
				break
			}
		}
		if currentID == "" {
			return "", nil
		}

		// Cache every prefix so sibling lookups reuse the walk.
		resolvedSoFar = append(resolvedSoFar, segment)
		c.folders.put(strings.Join(resolvedSoFar, "/"), currentID)
	}
	return currentID, nil
}

// normalizeFolderPath lowercases and strips redundant separators so cache
// keys and well-known lookups are stable.
func normalizeFolderPath(path string) string {
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, strings.ToLower(p))
		}
	}
	return strings.Join(kept, "/")
}
