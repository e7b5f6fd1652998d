package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/savkin/tweetmill/app/tasks"
)

// jsWrapperPrefix marks archive data files that embed their JSON payload
// inside a JavaScript variable assignment, e.g.
// "window.YTD.tweets.part0 = [ ... ]".
const jsWrapperPrefix = "window.YTD."

// Pipeline discovers the archive's data files, drives parsing across all
// entries on the shared worker pool, derives the analytical columns and
// persists the assembled collection.
type Pipeline struct {
	dataPath   string
	outputPath string
	formats    []Format
	parser     *Parser
	pool       *tasks.Pool
	logger     *slog.Logger
}

func NewPipeline(archivePath string, outputPath string, formats []Format, parser *Parser, pool *tasks.Pool, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		dataPath:   filepath.Join(archivePath, "data"),
		outputPath: outputPath,
		formats:    formats,
		parser:     parser,
		pool:       pool,
		logger:     logger,
	}
}

// Run processes the whole archive and returns the assembled collection.
// Empty input is not an error: the result is an empty collection and
// empty output files are still written.
func (p *Pipeline) Run() (Collection, error) {
	files, err := filepath.Glob(filepath.Join(p.dataPath, "*.js"))
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate archive files: %w", err)
	}

	p.logger.Info("Starting archive processing", "files", len(files))

	var mu sync.Mutex
	records := make(Collection, 0)

	for _, file := range files {
		entries, err := p.loadArchiveFile(file)
		if err != nil {
			p.logger.Error("Skipping undecodable archive file", "file", file, "error", err)
			continue
		}

		for _, raw := range entries {
			p.pool.Submit(func() {
				if rec, ok := p.parser.Parse(raw); ok {
					mu.Lock()
					records = append(records, rec)
					mu.Unlock()
				}
			})
		}
	}

	// Parsing results arrive in completion order; the explicit sort below
	// is the only ordering guarantee.
	p.pool.Wait()

	p.derive(records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	p.persist(records)

	p.logger.Info("Archive processing complete", "records", len(records))
	return records, nil
}

// loadArchiveFile decodes one data file as a JSON array of entries,
// stripping the JS variable-assignment wrapper when present.
func (p *Pipeline) loadArchiveFile(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content := string(data)
	if strings.HasPrefix(content, jsWrapperPrefix) {
		idx := strings.Index(content, "[")
		if idx < 0 {
			return nil, fmt.Errorf("JS wrapper without array payload")
		}
		content = content[idx:]
	}

	var entries []any
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return entries, nil
}

// derive fills in the analytical columns on the assembled collection.
func (p *Pipeline) derive(records Collection) {
	for i := range records {
		rec := &records[i]
		rec.HasMedia = len(rec.Media) > 0
		rec.TextLength = utf8.RuneCountInString(rec.Text)
		rec.HourOfDay = rec.CreatedAt.Hour()
		rec.DayOfWeek = rec.CreatedAt.Weekday().String()
	}
}

// persist writes the collection in every requested format. A failing
// format is logged and does not prevent the remaining ones.
func (p *Pipeline) persist(records Collection) {
	for _, format := range p.formats {
		var err error
		switch format {
		case FormatCSV:
			err = p.writeCSV(records)
		case FormatParquet:
			err = p.writeParquet(records)
		case FormatJSON:
			err = p.writeJSON(records)
		}

		if err != nil {
			p.logger.Error("Failed to write output", "format", string(format), "error", err)
		} else {
			p.logger.Info("Output written", "format", string(format), "records", len(records))
		}
	}
}
