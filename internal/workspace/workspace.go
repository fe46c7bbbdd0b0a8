// Package workspace assembles local archives from conversation workspace
// files fetched one at a time over the runtime API.
package workspace

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/joss/ohc/internal/api"
	"github.com/joss/ohc/internal/logging"
)

// workspaceRoot is the project root inside a conversation runtime; change
// paths are stored in the archive relative to it.
const workspaceRoot = "/workspace/project/"

// ErrNoChanges indicates the workspace has no downloadable changed files.
var ErrNoChanges = errors.New("no uncommitted changes to download")

// Fetcher is the slice of the API client the downloader needs.
type Fetcher interface {
	GetConversationChanges(ctx context.Context, conversationID, runtimeURL, sessionKey string) ([]api.FileChange, error)
	GetFileContent(ctx context.Context, conversationID, filePath, runtimeURL, sessionKey string) (string, error)
}

// Options controls which changed files are archived.
type Options struct {
	// Include restricts the archive to paths matching any of these
	// doublestar patterns. Empty means all changed files.
	Include []string
}

// Result reports what went into an archive.
type Result struct {
	Path           string
	Written        int
	Failed         []string
	SkippedDeleted int
	FilteredOut    int
}

// Downloader builds archives of changed workspace files.
type Downloader struct {
	fetcher Fetcher
	log     zerolog.Logger
}

// NewDownloader creates a downloader backed by the given API client.
func NewDownloader(f Fetcher) *Downloader {
	return &Downloader{fetcher: f, log: logging.Component("workspace")}
}

// DownloadChanges fetches every changed file of an active conversation and
// writes them into a ZIP at outPath, together with a conversation metadata
// entry. Deleted files are skipped (they have no content to fetch), and a
// file that fails mid-batch is logged and skipped without aborting the
// rest: the archive is built from whatever succeeded.
func (d *Downloader) DownloadChanges(ctx context.Context, conv *api.Conversation, outPath string, opts Options) (*Result, error) {
	changes, err := d.fetcher.GetConversationChanges(ctx, conv.ID, conv.RuntimeHost(), conv.SessionAPIKey)
	if err != nil {
		return nil, err
	}

	result := &Result{Path: outPath}

	var wanted []api.FileChange
	for _, ch := range changes {
		if ch.Status == api.ChangeDeleted {
			result.SkippedDeleted++
			continue
		}
		if !matchesAny(opts.Include, archivePath(ch.Path)) {
			result.FilteredOut++
			continue
		}
		wanted = append(wanted, ch)
	}
	if len(wanted) == 0 {
		return nil, ErrNoChanges
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeMetadata(zw, conv, len(wanted)); err != nil {
		return nil, err
	}

	for _, ch := range wanted {
		content, err := d.fetcher.GetFileContent(ctx, conv.ID, ch.Path, conv.RuntimeHost(), conv.SessionAPIKey)
		if err != nil {
			d.log.Warn().Str("path", ch.Path).Err(err).Msg("skipping file")
			result.Failed = append(result.Failed, ch.Path)
			continue
		}

		w, err := zw.Create(archivePath(ch.Path))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return nil, err
		}
		result.Written++
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return result, nil
}

func writeMetadata(zw *zip.Writer, conv *api.Conversation, numFiles int) error {
	w, err := zw.Create("conversation_metadata.json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"conversation_id": conv.ID,
		"title":           conv.DisplayTitle(),
		"status":          conv.DisplayStatus(),
		"created_at":      conv.CreatedAt,
		"last_updated_at": conv.LastUpdatedAt,
		"num_files":       numFiles,
	})
}

// archivePath strips the runtime workspace root so archive entries are
// project-relative.
func archivePath(p string) string {
	p = strings.TrimPrefix(p, workspaceRoot)
	return strings.TrimPrefix(p, "/")
}

func matchesAny(patterns []string, path string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, path)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// UniquePath returns path unchanged if nothing exists there, otherwise
// inserts " (n)" before the extension until the name is free.
func UniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// SaveArchive writes downloaded archive bytes to path.
func SaveArchive(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
