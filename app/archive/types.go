package archive

import (
	"time"
)

// MediaRef is a record-scoped reference to one media item. LocalPath is
// empty when no locally saved copy of the remote URL was found.
type MediaRef struct {
	Type      string `json:"type" parquet:"type"`
	URL       string `json:"url" parquet:"url"`
	LocalPath string `json:"local_path,omitempty" parquet:"local_path,optional"`
}

// Record is the validated result of parsing one archive entry. The
// derived columns are zero until the pipeline's derivation step fills
// them in after assembly.
type Record struct {
	ID              string     `json:"id" parquet:"id"`
	Text            string     `json:"text" parquet:"text"`
	CreatedAt       time.Time  `json:"created_at" parquet:"created_at"`
	Likes           int64      `json:"likes" parquet:"likes"`
	Retweets        int64      `json:"retweets" parquet:"retweets"`
	Hashtags        []string   `json:"hashtags" parquet:"hashtags,list"`
	URLs            []string   `json:"urls" parquet:"urls,list"`
	Media           []MediaRef `json:"media" parquet:"media,list"`
	IsRetweet       bool       `json:"is_retweet" parquet:"is_retweet"`
	ConversationID  string     `json:"conversation_id" parquet:"conversation_id,optional"`
	InReplyToUserID string     `json:"in_reply_to_user_id,omitempty" parquet:"in_reply_to_user_id,optional"`
	Lang            string     `json:"lang" parquet:"lang"`

	// Derived columns
	HasMedia   bool   `json:"has_media" parquet:"has_media"`
	TextLength int    `json:"text_length" parquet:"text_length"`
	HourOfDay  int    `json:"hour_of_day" parquet:"hour_of_day"`
	DayOfWeek  string `json:"day_of_week" parquet:"day_of_week"`
}

// Collection is the full ordered set of records produced by one pipeline
// run, sorted ascending by CreatedAt after assembly. Duplicate ids from
// overlapping export files are possible and are never deduplicated here.
type Collection []Record

// Format selects one persisted output representation.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// ParseFormats validates a list of format names against the supported
// set, preserving order and dropping duplicates.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool)
	formats := make([]Format, 0, len(names))

	for _, name := range names {
		f := Format(name)
		switch f {
		case FormatCSV, FormatParquet, FormatJSON:
		default:
			return nil, &UnknownFormatError{Name: name}
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}

	return formats, nil
}

type UnknownFormatError struct {
	Name string
}

func (e *UnknownFormatError) Error() string {
	return "unknown output format: " + e.Name
}
