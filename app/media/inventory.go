package media

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/savkin/tweetmill/app/tasks"
)

// Asset is one physical media file discovered during the inventory scan.
// A single file may be referenced by several tweets (quoted or retweeted
// media), so TweetIDs grows as further references turn up.
type Asset struct {
	FileID    string
	Path      string
	MediaType string
	TweetIDs  map[string]struct{}
	SizeBytes int64
	Hash      string
}

// Report is the persisted shape of the inventory summary.
type Report struct {
	TotalFiles     int             `json:"total_files"`
	TotalSizeBytes int64           `json:"total_size_bytes"`
	MediaTypes     map[string]int  `json:"media_types"`
	DuplicateFiles []DuplicatePair `json:"duplicate_files"`
}

// DuplicatePair records a content-hash collision between two files. The
// file claimed first during the scan is the original.
type DuplicatePair struct {
	Original  string `json:"original"`
	Duplicate string `json:"duplicate"`
}

// Handler inventories, deduplicates and copies the raw media files under
// <archive>/data/media. Scanning runs on the shared worker pool; the
// inventory map is guarded by a mutex, and each file identifier is
// claimed by exactly one worker so a file is hashed at most once.
type Handler struct {
	mediaPath     string
	outputPath    string
	processedPath string
	logger        *slog.Logger
	pool          *tasks.Pool

	mu         sync.Mutex
	inventory  map[string]*Asset
	claimOrder []string
}

func NewHandler(archivePath string, outputPath string, logger *slog.Logger, pool *tasks.Pool) *Handler {
	return &Handler{
		mediaPath:     filepath.Join(archivePath, "data", "media"),
		outputPath:    outputPath,
		processedPath: filepath.Join(outputPath, "processed_media"),
		logger:        logger,
		pool:          pool,
		inventory:     make(map[string]*Asset),
	}
}

// Scan walks the raw media directory and builds the inventory. Per-file
// failures are logged and skipped; a missing media directory just means
// an empty inventory.
func (h *Handler) Scan() {
	entries, err := os.ReadDir(h.mediaPath)
	if err != nil {
		h.logger.Debug("No media directory to scan", "path", h.mediaPath, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(h.mediaPath, entry.Name())
		h.pool.Submit(func() {
			h.processFile(path)
		})
	}

	h.pool.Wait()

	h.logger.Info("Media scan complete", "files", len(h.inventory))
}

// processFile claims the file's identifier and fills in the asset. The
// identifier is the filename stem; the associated tweet id is the stem up
// to the first '-' (the whole stem when no separator is present).
func (h *Handler) processFile(path string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tweetID, _, found := strings.Cut(stem, "-")
	if !found {
		tweetID = stem
	}

	h.mu.Lock()
	if asset, ok := h.inventory[stem]; ok {
		// Identifier already claimed: only the reference set grows.
		asset.TweetIDs[tweetID] = struct{}{}
		h.mu.Unlock()
		return
	}
	asset := &Asset{
		FileID:   stem,
		Path:     path,
		TweetIDs: map[string]struct{}{tweetID: {}},
	}
	h.inventory[stem] = asset
	h.claimOrder = append(h.claimOrder, stem)
	h.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		h.dropClaim(stem)
		h.logger.Error("Failed to stat media file", "file", path, "error", err)
		return
	}

	hash, err := hashFile(path)
	if err != nil {
		h.dropClaim(stem)
		h.logger.Error("Failed to hash media file", "file", path, "error", err)
		return
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		h.dropClaim(stem)
		h.logger.Error("Failed to detect media type", "file", path, "error", err)
		return
	}

	asset.SizeBytes = info.Size()
	asset.Hash = hash
	asset.MediaType = mtype.String()
}

func (h *Handler) dropClaim(stem string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.inventory, stem)
	for i, s := range h.claimOrder {
		if s == stem {
			h.claimOrder = append(h.claimOrder[:i], h.claimOrder[i+1:]...)
			break
		}
	}
}

// Copy writes every distinct asset into <output>/processed_media. With
// preserveTypeStructure the files are grouped by the top-level MIME
// category (image/, video/, ...); otherwise the tree is flat. Existing
// destination files are overwritten.
func (h *Handler) Copy(preserveTypeStructure bool) {
	for _, stem := range h.claimOrder {
		asset := h.inventory[stem]

		destDir := h.processedPath
		if preserveTypeStructure {
			category, _, _ := strings.Cut(asset.MediaType, "/")
			destDir = filepath.Join(h.processedPath, category)
		}

		if err := os.MkdirAll(destDir, 0o755); err != nil {
			h.logger.Error("Failed to create media output directory", "dir", destDir, "error", err)
			continue
		}

		dest := filepath.Join(destDir, filepath.Base(asset.Path))
		if err := copyFile(asset.Path, dest); err != nil {
			h.logger.Error("Failed to copy media file", "file", asset.Path, "error", err)
		}
	}
}

// WriteReport builds the inventory summary and persists it as
// <output>/media_report.json. Duplicate detection runs in claim order,
// so the first-seen file of each colliding hash is the original.
func (h *Handler) WriteReport() error {
	report := h.buildReport()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal media report: %w", err)
	}

	reportPath := filepath.Join(h.outputPath, "media_report.json")
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write media report: %w", err)
	}

	h.logger.Info("Media report written", "path", reportPath)
	return nil
}

func (h *Handler) buildReport() Report {
	report := Report{
		TotalFiles:     len(h.inventory),
		MediaTypes:     make(map[string]int),
		DuplicateFiles: []DuplicatePair{},
	}

	seenHashes := make(map[string]string)
	for _, stem := range h.claimOrder {
		asset := h.inventory[stem]
		report.TotalSizeBytes += asset.SizeBytes
		report.MediaTypes[asset.MediaType]++

		if original, ok := seenHashes[asset.Hash]; ok {
			report.DuplicateFiles = append(report.DuplicateFiles, DuplicatePair{
				Original:  original,
				Duplicate: asset.FileID,
			})
		} else {
			seenHashes[asset.Hash] = asset.FileID
		}
	}

	return report
}

// TweetMediaMap returns the tweet-id to file-id association derived from
// the scan, file ids listed in claim order per tweet.
func (h *Handler) TweetMediaMap() map[string][]string {
	tweetMedia := make(map[string][]string)
	for _, stem := range h.claimOrder {
		for tweetID := range h.inventory[stem].TweetIDs {
			tweetMedia[tweetID] = append(tweetMedia[tweetID], stem)
		}
	}
	return tweetMedia
}

// Assets returns the scanned inventory in claim order.
func (h *Handler) Assets() []*Asset {
	assets := make([]*Asset, 0, len(h.claimOrder))
	for _, stem := range h.claimOrder {
		assets = append(assets, h.inventory[stem])
	}
	return assets
}

// hashFile streams the file through sha256 in blocks, keeping memory
// bounded regardless of file size.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

func copyFile(src string, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
