package archive

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

const outputBaseName = "tweets_processed"

var csvHeader = []string{
	"id", "text", "created_at", "likes", "retweets",
	"hashtags", "urls", "media", "is_retweet",
	"conversation_id", "in_reply_to_user_id", "lang",
	"has_media", "text_length", "hour_of_day", "day_of_week",
}

// writeCSV exports one row per record. List-valued and nested columns
// are serialized as JSON text inside their cell.
func (p *Pipeline) writeCSV(records Collection) error {
	f, err := os.Create(filepath.Join(p.outputPath, outputBaseName+".csv"))
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.Text,
			rec.CreatedAt.Format(time.RFC3339),
			strconv.FormatInt(rec.Likes, 10),
			strconv.FormatInt(rec.Retweets, 10),
			jsonCell(rec.Hashtags),
			jsonCell(rec.URLs),
			jsonCell(rec.Media),
			strconv.FormatBool(rec.IsRetweet),
			rec.ConversationID,
			rec.InReplyToUserID,
			rec.Lang,
			strconv.FormatBool(rec.HasMedia),
			strconv.Itoa(rec.TextLength),
			strconv.Itoa(rec.HourOfDay),
			rec.DayOfWeek,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}

func (p *Pipeline) writeParquet(records Collection) error {
	f, err := os.Create(filepath.Join(p.outputPath, outputBaseName+".parquet"))
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	w := parquet.NewGenericWriter[Record](f)
	if len(records) > 0 {
		if _, err := w.Write(records); err != nil {
			w.Close()
			f.Close()
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	return f.Close()
}

// writeJSON keeps the nested record shape, one array of record objects.
func (p *Pipeline) writeJSON(records Collection) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	path := filepath.Join(p.outputPath, outputBaseName+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

func jsonCell(v any) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "[]"
	}
	return string(data)
}
