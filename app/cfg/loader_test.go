package cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestBuildAppliesDefaults(t *testing.T) {
	cfg, err := build(rawCfg{
		ArchivePath: "./archive",
		OutputPath:  "./out",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(cfg.Formats) != 2 || cfg.Formats[0] != "parquet" || cfg.Formats[1] != "csv" {
		t.Errorf("Expected default formats [parquet csv], got: %v", cfg.Formats)
	}
	if cfg.WorkerCount != defaultWorkerCount {
		t.Errorf("Expected default worker count %d, got: %d", defaultWorkerCount, cfg.WorkerCount)
	}
	if cfg.QueueSize != defaultQueueSize {
		t.Errorf("Expected default queue size %d, got: %d", defaultQueueSize, cfg.QueueSize)
	}
}

func TestBuildRejectsUnknownFormat(t *testing.T) {
	_, err := build(rawCfg{
		ArchivePath: "./archive",
		OutputPath:  "./out",
		Formats:     []string{"xlsx"},
	})
	if err == nil {
		t.Error("Expected error for unknown output format")
	}
}

func TestBuildRejectsMissingPaths(t *testing.T) {
	if _, err := build(rawCfg{OutputPath: "./out"}); err == nil {
		t.Error("Expected error for missing archive path")
	}
	if _, err := build(rawCfg{ArchivePath: "./archive"}); err == nil {
		t.Error("Expected error for missing output path")
	}
}

func TestBuildLoadsSettingsFile(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.yml")
	settingsYAML := `output_formats:
  - json
max_workers: 8
queue_size: 50
flat_media: true
`
	if err := os.WriteFile(settingsPath, []byte(settingsYAML), 0o644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}

	cfg, err := build(rawCfg{
		ArchivePath:  "./archive",
		OutputPath:   "./out",
		SettingsFile: settingsPath,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(cfg.Formats) != 1 || cfg.Formats[0] != "json" {
		t.Errorf("Expected formats [json] from settings, got: %v", cfg.Formats)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("Expected worker count 8 from settings, got: %d", cfg.WorkerCount)
	}
	if cfg.QueueSize != 50 {
		t.Errorf("Expected queue size 50 from settings, got: %d", cfg.QueueSize)
	}
	if !cfg.FlatMedia {
		t.Error("Expected flat media enabled from settings")
	}
}

func TestFlagsOverrideSettingsFile(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.yml")
	if err := os.WriteFile(settingsPath, []byte("max_workers: 8\n"), 0o644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}

	cfg, err := build(rawCfg{
		ArchivePath:  "./archive",
		OutputPath:   "./out",
		WorkerCount:  2,
		SettingsFile: settingsPath,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.WorkerCount != 2 {
		t.Errorf("Expected flag value 2 to win, got: %d", cfg.WorkerCount)
	}
}

func TestBuildRejectsUnreadableSettingsFile(t *testing.T) {
	_, err := build(rawCfg{
		ArchivePath:  "./archive",
		OutputPath:   "./out",
		SettingsFile: filepath.Join(t.TempDir(), "missing.yml"),
	})
	if err == nil {
		t.Error("Expected error for missing settings file")
	}
}
