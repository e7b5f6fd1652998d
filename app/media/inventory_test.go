package media

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/savkin/tweetmill/app/tasks"
)

// PNG magic bytes so mimetype detection has something real to look at.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func newTestHandler(t *testing.T) (*Handler, string, string) {
	t.Helper()

	archive := t.TempDir()
	output := t.TempDir()
	if err := os.MkdirAll(filepath.Join(archive, "data", "media"), 0o755); err != nil {
		t.Fatalf("Failed to create media dir: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := tasks.NewPool(4, 16, logger)
	t.Cleanup(pool.Close)

	return NewHandler(archive, output, logger, pool), archive, output
}

func writeMediaFile(t *testing.T, archive string, name string, content []byte) {
	t.Helper()
	path := filepath.Join(archive, "data", "media", name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write media file: %v", err)
	}
}

func TestScanAssociatesTweetIDFromFilename(t *testing.T) {
	handler, archive, _ := newTestHandler(t)
	writeMediaFile(t, archive, "12345-ABCDEF.png", pngBytes)
	writeMediaFile(t, archive, "noseparator.png", pngBytes)

	handler.Scan()

	assets := handler.Assets()
	if len(assets) != 2 {
		t.Fatalf("Expected 2 assets, got: %d", len(assets))
	}

	tweetMedia := handler.TweetMediaMap()
	if files := tweetMedia["12345"]; len(files) != 1 || files[0] != "12345-ABCDEF" {
		t.Errorf("Expected tweet 12345 mapped to 12345-ABCDEF, got: %v", files)
	}
	// A filename without the separator associates with the whole stem.
	if files := tweetMedia["noseparator"]; len(files) != 1 || files[0] != "noseparator" {
		t.Errorf("Expected whole-stem association, got: %v", files)
	}
}

func TestScanDetectsMediaTypeAndSize(t *testing.T) {
	handler, archive, _ := newTestHandler(t)
	writeMediaFile(t, archive, "1-a.png", pngBytes)

	handler.Scan()

	assets := handler.Assets()
	if len(assets) != 1 {
		t.Fatalf("Expected 1 asset, got: %d", len(assets))
	}
	if assets[0].MediaType != "image/png" {
		t.Errorf("Expected image/png, got: %s", assets[0].MediaType)
	}
	if assets[0].SizeBytes != int64(len(pngBytes)) {
		t.Errorf("Expected size %d, got: %d", len(pngBytes), assets[0].SizeBytes)
	}
	if assets[0].Hash == "" {
		t.Error("Expected content hash to be computed")
	}
}

func TestReportRecordsDuplicatePair(t *testing.T) {
	handler, archive, output := newTestHandler(t)
	// Same bytes under two different names: one duplicate pair by hash.
	writeMediaFile(t, archive, "100-first.png", pngBytes)
	writeMediaFile(t, archive, "200-second.png", pngBytes)

	handler.Scan()
	if err := handler.WriteReport(); err != nil {
		t.Fatalf("Expected no error writing report, got: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(output, "media_report.json"))
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}

	if report.TotalFiles != 2 {
		t.Errorf("Expected 2 files, got: %d", report.TotalFiles)
	}
	if report.TotalSizeBytes != int64(2*len(pngBytes)) {
		t.Errorf("Expected total size %d, got: %d", 2*len(pngBytes), report.TotalSizeBytes)
	}
	if report.MediaTypes["image/png"] != 2 {
		t.Errorf("Expected 2 image/png entries, got: %v", report.MediaTypes)
	}
	if len(report.DuplicateFiles) != 1 {
		t.Fatalf("Expected 1 duplicate pair, got: %d", len(report.DuplicateFiles))
	}

	pair := report.DuplicateFiles[0]
	names := map[string]bool{pair.Original: true, pair.Duplicate: true}
	if !names["100-first"] || !names["200-second"] {
		t.Errorf("Expected pair to reference both files, got: %+v", pair)
	}
	if pair.Original == pair.Duplicate {
		t.Errorf("Expected distinct original and duplicate, got: %+v", pair)
	}
}

func TestRepeatedStemGrowsReferenceSetOnly(t *testing.T) {
	handler, archive, _ := newTestHandler(t)
	// Same stem with two extensions: a single asset, first claim wins.
	writeMediaFile(t, archive, "300-shared.png", pngBytes)
	writeMediaFile(t, archive, "300-shared.jpg", pngBytes)

	handler.Scan()

	if assets := handler.Assets(); len(assets) != 1 {
		t.Errorf("Expected a single asset for the shared stem, got: %d", len(assets))
	}
}

func TestCopyGroupedByMIMECategory(t *testing.T) {
	handler, archive, output := newTestHandler(t)
	writeMediaFile(t, archive, "400-grouped.png", pngBytes)

	handler.Scan()
	handler.Copy(true)

	copied := filepath.Join(output, "processed_media", "image", "400-grouped.png")
	if _, err := os.Stat(copied); err != nil {
		t.Errorf("Expected copied file at %s: %v", copied, err)
	}
}

func TestCopyFlat(t *testing.T) {
	handler, archive, output := newTestHandler(t)
	writeMediaFile(t, archive, "500-flat.png", pngBytes)

	handler.Scan()
	handler.Copy(false)

	copied := filepath.Join(output, "processed_media", "500-flat.png")
	if _, err := os.Stat(copied); err != nil {
		t.Errorf("Expected copied file at %s: %v", copied, err)
	}
}

func TestScanSkipsUnreadableFileAndKeepsSiblings(t *testing.T) {
	handler, archive, output := newTestHandler(t)
	writeMediaFile(t, archive, "600-good.png", pngBytes)

	// A dangling symlink fails stat and must be skipped, never fatal.
	broken := filepath.Join(archive, "data", "media", "601-broken.png")
	if err := os.Symlink(filepath.Join(archive, "nonexistent"), broken); err != nil {
		t.Skipf("Symlinks not supported here: %v", err)
	}

	handler.Scan()

	assets := handler.Assets()
	if len(assets) != 1 {
		t.Fatalf("Expected only the readable asset, got: %d", len(assets))
	}
	if assets[0].FileID != "600-good" {
		t.Errorf("Expected surviving asset 600-good, got: %s", assets[0].FileID)
	}

	if err := handler.WriteReport(); err != nil {
		t.Fatalf("Expected no error writing report, got: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(output, "media_report.json"))
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.TotalFiles != 1 {
		t.Errorf("Expected skipped file absent from report, got total: %d", report.TotalFiles)
	}
	if report.MediaTypes["image/png"] != 1 {
		t.Errorf("Expected a single image/png entry, got: %v", report.MediaTypes)
	}
}

func TestScanMissingMediaDirIsEmptyInventory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := tasks.NewPool(2, 4, logger)
	defer pool.Close()

	handler := NewHandler(filepath.Join(t.TempDir(), "nope"), t.TempDir(), logger, pool)
	handler.Scan()

	if assets := handler.Assets(); len(assets) != 0 {
		t.Errorf("Expected empty inventory, got: %d assets", len(assets))
	}
}
