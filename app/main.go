package main

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/savkin/tweetmill/app/archive"
	"github.com/savkin/tweetmill/app/cfg"
	"github.com/savkin/tweetmill/app/media"
	"github.com/savkin/tweetmill/app/stats"
	"github.com/savkin/tweetmill/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	// Output directory and run log are the only setup steps allowed to
	// abort the run.
	if err := os.MkdirAll(appCfg.OutputPath, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	logPath := filepath.Join(appCfg.OutputPath, "preprocessing.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("Failed to open run log: %v", err)
	}
	defer logFile.Close()

	logger := newRunLogger(logFile, appCfg.Debug)

	formats, err := archive.ParseFormats(appCfg.Formats)
	if err != nil {
		logger.Error("Invalid output format configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting Twitter archive processing",
		"version", appCfg.Version,
		"archive", appCfg.ArchivePath,
		"output", appCfg.OutputPath,
		"formats", appCfg.Formats,
		"workers", appCfg.WorkerCount)

	pool := tasks.NewPool(appCfg.WorkerCount, appCfg.QueueSize, logger)
	defer pool.Close()

	linker := media.NewLinker(appCfg.ArchivePath)
	parser := archive.NewParser(logger, linker)
	pipeline := archive.NewPipeline(appCfg.ArchivePath, appCfg.OutputPath, formats, parser, pool, logger)

	start := time.Now()

	records, err := pipeline.Run()
	if err != nil {
		logger.Error("Archive processing failed", "error", err)
		os.Exit(1)
	}

	handler := media.NewHandler(appCfg.ArchivePath, appCfg.OutputPath, logger, pool)
	handler.Scan()
	handler.Copy(!appCfg.FlatMedia)
	if err := handler.WriteReport(); err != nil {
		logger.Error("Failed to write media report", "error", err)
	}

	aggregator := stats.NewAggregator(appCfg.OutputPath, logger)
	summary := aggregator.Summarize(records)
	if err := aggregator.Write(summary); err != nil {
		logger.Error("Failed to write summary statistics", "error", err)
	}

	logger.Info("Processing complete",
		"total_tweets", summary.TotalTweets,
		"total_likes", summary.Engagement.TotalLikes,
		"total_retweets", summary.Engagement.TotalRetweets,
		"duration", time.Since(start).String())
}

// newRunLogger builds the run-scoped logger writing to both stderr and
// the append-only preprocessing.log, tagged with a unique run id. The
// logger is passed down explicitly; no package relies on a global one.
func newRunLogger(logFile io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler).With("run_id", uuid.NewString())
}
