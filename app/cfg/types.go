package cfg

type Cfg struct {
	// Input and output locations
	ArchivePath string
	OutputPath  string

	// Processing configuration
	Formats     []string
	WorkerCount int
	QueueSize   int
	FlatMedia   bool

	// Application metadata
	Debug   bool
	Version string
}

// Settings is the optional YAML settings file. Values present in the
// file override the built-in defaults; command-line flags and
// environment variables override both.
type Settings struct {
	OutputFormats []string `yaml:"output_formats"`
	MaxWorkers    int      `yaml:"max_workers"`
	QueueSize     int      `yaml:"queue_size"`
	FlatMedia     *bool    `yaml:"flat_media"`
}
