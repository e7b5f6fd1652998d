package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/savkin/tweetmill/app/archive"
)

// Stats is the descriptive summary of one processed collection. Averages
// and date bounds are pointers so an empty collection reports an explicit
// null instead of a bogus zero.
type Stats struct {
	TotalTweets     int             `json:"total_tweets"`
	DateRange       DateRange       `json:"date_range"`
	Engagement      Engagement      `json:"engagement"`
	ContentAnalysis ContentAnalysis `json:"content_analysis"`
	Timing          Timing          `json:"timing"`
}

type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

type Engagement struct {
	TotalLikes          int64    `json:"total_likes"`
	TotalRetweets       int64    `json:"total_retweets"`
	AvgLikesPerTweet    *float64 `json:"avg_likes_per_tweet"`
	AvgRetweetsPerTweet *float64 `json:"avg_retweets_per_tweet"`
}

type ContentAnalysis struct {
	TweetsWithMedia int `json:"tweets_with_media"`
	// TweetsWithURLs is the total URL count across all records, not the
	// number of records carrying at least one URL.
	TweetsWithURLs     int            `json:"tweets_with_urls"`
	MostCommonHashtags []HashtagCount `json:"most_common_hashtags"`
	AvgTweetLength     *float64       `json:"avg_tweet_length"`
}

type Timing struct {
	MostActiveHours []HourCount    `json:"most_active_hours"`
	MostActiveDays  map[string]int `json:"most_active_days"`
}

type HashtagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Aggregator computes summary statistics over an assembled collection
// and persists them as summary_stats.json.
type Aggregator struct {
	outputPath string
	logger     *slog.Logger
}

func NewAggregator(outputPath string, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		outputPath: outputPath,
		logger:     logger,
	}
}

// Summarize computes the full statistics over col without mutating it.
// Top-N rankings break count ties by first appearance in collection
// order; since the collection is sorted by timestamp before aggregation,
// that tie-break is deterministic.
func (a *Aggregator) Summarize(col archive.Collection) Stats {
	stats := Stats{
		TotalTweets: len(col),
		ContentAnalysis: ContentAnalysis{
			MostCommonHashtags: []HashtagCount{},
		},
		Timing: Timing{
			MostActiveHours: []HourCount{},
			MostActiveDays:  weekdayCounts(col),
		},
	}

	if len(col) == 0 {
		return stats
	}

	minTime, maxTime := col[0].CreatedAt, col[0].CreatedAt
	var totalTextLength int64

	hashtagCounter := newCounter()
	hourCounter := newCounter()

	for _, rec := range col {
		if rec.CreatedAt.Before(minTime) {
			minTime = rec.CreatedAt
		}
		if rec.CreatedAt.After(maxTime) {
			maxTime = rec.CreatedAt
		}

		stats.Engagement.TotalLikes += rec.Likes
		stats.Engagement.TotalRetweets += rec.Retweets

		if rec.HasMedia {
			stats.ContentAnalysis.TweetsWithMedia++
		}
		stats.ContentAnalysis.TweetsWithURLs += len(rec.URLs)
		totalTextLength += int64(rec.TextLength)

		for _, tag := range rec.Hashtags {
			hashtagCounter.add(tag)
		}
		hourCounter.add(strconv.Itoa(rec.HourOfDay))
	}

	stats.DateRange.Start = &minTime
	stats.DateRange.End = &maxTime

	n := float64(len(col))
	stats.Engagement.AvgLikesPerTweet = ptr(float64(stats.Engagement.TotalLikes) / n)
	stats.Engagement.AvgRetweetsPerTweet = ptr(float64(stats.Engagement.TotalRetweets) / n)
	stats.ContentAnalysis.AvgTweetLength = ptr(float64(totalTextLength) / n)

	for _, entry := range hashtagCounter.top(10) {
		stats.ContentAnalysis.MostCommonHashtags = append(stats.ContentAnalysis.MostCommonHashtags, HashtagCount{
			Tag:   entry.key,
			Count: entry.count,
		})
	}

	for _, entry := range hourCounter.top(5) {
		hour, _ := strconv.Atoi(entry.key)
		stats.Timing.MostActiveHours = append(stats.Timing.MostActiveHours, HourCount{
			Hour:  hour,
			Count: entry.count,
		})
	}

	return stats
}

// Write persists the statistics as <output>/summary_stats.json.
func (a *Aggregator) Write(stats Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary stats: %w", err)
	}

	path := filepath.Join(a.outputPath, "summary_stats.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary stats: %w", err)
	}

	a.logger.Info("Summary statistics written", "path", path, "total_tweets", stats.TotalTweets)
	return nil
}

// weekdayCounts builds the full day-of-week distribution, including days
// with zero records.
func weekdayCounts(col archive.Collection) map[string]int {
	days := make(map[string]int, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		days[d.String()] = 0
	}
	for _, rec := range col {
		days[rec.CreatedAt.Weekday().String()]++
	}
	return days
}

// counter tracks occurrence counts together with first-seen order so
// top-N rankings have a stable tie-break.
type counter struct {
	counts    map[string]int
	firstSeen map[string]int
	order     int
}

func newCounter() *counter {
	return &counter{
		counts:    make(map[string]int),
		firstSeen: make(map[string]int),
	}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.firstSeen[key] = c.order
		c.order++
	}
	c.counts[key]++
}

type countEntry struct {
	key   string
	count int
}

func (c *counter) top(n int) []countEntry {
	entries := make([]countEntry, 0, len(c.counts))
	for key, count := range c.counts {
		entries = append(entries, countEntry{key: key, count: count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return c.firstSeen[entries[i].key] < c.firstSeen[entries[j].key]
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func ptr(v float64) *float64 {
	return &v
}
