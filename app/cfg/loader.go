package cfg

import (
	"cmp"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/savkin/tweetmill/app/archive"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const (
	defaultWorkerCount = 4
	defaultQueueSize   = 1000
)

var defaultFormats = []string{"parquet", "csv"}

type rawCfg struct {
	ArchivePath string `long:"archive-path" env:"ARCHIVE_PATH" default:"./twitter_archive" description:"Path to the unpacked Twitter archive export"`
	OutputPath  string `long:"output-path" env:"OUTPUT_PATH" default:"./processed" description:"Directory for processed outputs"`

	Formats      []string `long:"format" env:"OUTPUT_FORMATS" env-delim:"," description:"Output format (csv, parquet, json); may be given multiple times"`
	SettingsFile string   `long:"settings" env:"SETTINGS_FILE" description:"Optional YAML settings file"`
	WorkerCount  int      `long:"worker-count" env:"WORKER_COUNT" description:"Number of workers for parsing and media scanning"`
	QueueSize    int      `long:"queue-size" env:"QUEUE_SIZE" description:"Capacity of the worker task queue"`
	FlatMedia    bool     `long:"flat-media" env:"FLAT_MEDIA" description:"Copy media into a flat tree instead of grouping by MIME category"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load builds the effective configuration from defaults, the optional
// settings file, environment variables and command-line flags, in that
// precedence order. Returns (nil, nil) when help was requested.
func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return build(raw)
}

func build(raw rawCfg) (*Cfg, error) {
	cfg := &Cfg{
		ArchivePath: raw.ArchivePath,
		OutputPath:  raw.OutputPath,
		Formats:     raw.Formats,
		WorkerCount: raw.WorkerCount,
		QueueSize:   raw.QueueSize,
		FlatMedia:   raw.FlatMedia,
		Debug:       raw.Debug,
		Version:     GetVersion(),
	}

	if raw.SettingsFile != "" {
		settings, err := loadSettings(raw.SettingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings file: %w", err)
		}
		applySettings(cfg, settings)
	}

	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &settings, nil
}

// applySettings fills in values the flags left unset.
func applySettings(cfg *Cfg, settings *Settings) {
	if len(cfg.Formats) == 0 {
		cfg.Formats = settings.OutputFormats
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = settings.MaxWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = settings.QueueSize
	}
	if !cfg.FlatMedia && settings.FlatMedia != nil {
		cfg.FlatMedia = *settings.FlatMedia
	}
}

func setDefaults(cfg *Cfg) {
	if len(cfg.Formats) == 0 {
		cfg.Formats = append([]string(nil), defaultFormats...)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = defaultQueueSize
	}
}

func validate(cfg *Cfg) error {
	if cfg.ArchivePath == "" {
		return fmt.Errorf("archive path is required")
	}
	if cfg.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive")
	}
	if cfg.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive")
	}

	// The supported format set lives in the archive package; validating
	// through it keeps the two from drifting apart.
	if _, err := archive.ParseFormats(cfg.Formats); err != nil {
		return err
	}

	return nil
}
