package archive

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"github.com/savkin/tweetmill/app/media"
	"github.com/savkin/tweetmill/app/textnorm"
)

// createdAtLayout is the fixed timestamp format used throughout the
// archive, e.g. "Mon Apr 29 14:02:11 +0000 2019".
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Parser converts one raw archive entry into a Record. Every field
// extraction has an explicit fallback, so a valid entry always yields a
// fully constructed record and a broken one yields nothing.
type Parser struct {
	logger *slog.Logger
	linker *media.Linker
}

func NewParser(logger *slog.Logger, linker *media.Linker) *Parser {
	return &Parser{
		logger: logger,
		linker: linker,
	}
}

// Parse extracts a Record from a decoded JSON entry. Entries wrapped one
// level deep under a "tweet" container key are unwrapped transparently.
// The second return value is false when the entry cannot produce a
// record; Parse never fails the surrounding batch.
func (p *Parser) Parse(raw any) (rec Record, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Dropping entry after extraction panic", "id", bestEffortID(raw), "panic", r)
			rec, ok = Record{}, false
		}
	}()

	entry, valid := raw.(map[string]any)
	if !valid {
		p.logger.Error("Dropping non-object entry")
		return Record{}, false
	}
	if inner, wrapped := entry["tweet"].(map[string]any); wrapped {
		entry = inner
	}

	rec = Record{
		ID:              strField(entry, "id_str"),
		Text:            textnorm.Clean(strField(entry, "full_text", "text"), textnorm.DefaultOptions()),
		CreatedAt:       p.parseTimestamp(strField(entry, "created_at"), strField(entry, "id_str")),
		Likes:           intField(entry, "favorite_count"),
		Retweets:        intField(entry, "retweet_count"),
		Hashtags:        p.extractEntityTexts(entry, "hashtags", "text"),
		URLs:            p.extractEntityTexts(entry, "urls", "expanded_url"),
		Media:           p.extractMedia(entry),
		IsRetweet:       hasRetweetMarker(entry),
		ConversationID:  strField(entry, "conversation_id_str"),
		InReplyToUserID: strField(entry, "in_reply_to_user_id_str"),
		Lang:            strFieldDefault(entry, "lang", "unknown"),
	}

	return rec, true
}

// parseTimestamp tries the fixed archive layout, then a best-effort
// generic parse, and finally degrades to the current UTC time. The
// degradation is deliberate and non-fatal, logged at debug level.
func (p *Parser) parseTimestamp(value string, id string) time.Time {
	if value != "" {
		if t, err := time.Parse(createdAtLayout, value); err == nil {
			return t
		}
		if t, err := dateparse.ParseAny(value); err == nil {
			return t
		}
	}

	p.logger.Debug("Substituting current time for missing or unparsable timestamp", "id", id, "created_at", value)
	return time.Now().UTC()
}

// extractMedia unions the media lists of "entities" and
// "extended_entities"; either may be absent. Exports repeat the first
// extended_entities item inside entities.media, so items seen under a
// URL already collected are skipped; items without any URL are kept
// as-is. The plain media URL is preferred over the https variant, and
// each URL is resolved against the locally saved assets.
func (p *Parser) extractMedia(entry map[string]any) []MediaRef {
	var refs []MediaRef
	seenURLs := make(map[string]bool)

	for _, section := range []string{"entities", "extended_entities"} {
		container, ok := entry[section].(map[string]any)
		if !ok {
			continue
		}
		items, ok := container["media"].([]any)
		if !ok {
			continue
		}

		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}

			ref := MediaRef{
				Type: strFieldDefault(m, "type", "unknown"),
				URL:  strField(m, "media_url", "media_url_https"),
			}
			if ref.URL != "" {
				if seenURLs[ref.URL] {
					continue
				}
				seenURLs[ref.URL] = true
			}
			if localPath, found := p.linker.ResolveLocal(ref.URL); found {
				ref.LocalPath = localPath
			}
			refs = append(refs, ref)
		}
	}

	return refs
}

// extractEntityTexts projects one field of an entity sub-list in source
// order, tolerating a missing field as an empty string per item.
func (p *Parser) extractEntityTexts(entry map[string]any, listKey string, fieldKey string) []string {
	container, ok := entry["entities"].(map[string]any)
	if !ok {
		return nil
	}
	items, ok := container[listKey].([]any)
	if !ok {
		return nil
	}

	values := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			values = append(values, strField(m, fieldKey))
		} else {
			values = append(values, "")
		}
	}

	return values
}

// hasRetweetMarker reports whether the entry carries a non-empty
// retweeted_status structure, regardless of its contents.
func hasRetweetMarker(entry map[string]any) bool {
	rs, ok := entry["retweeted_status"].(map[string]any)
	return ok && len(rs) > 0
}

// strField walks a fallback chain of keys and returns the first
// non-empty string value, or "".
func strField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func strFieldDefault(m map[string]any, key string, fallback string) string {
	if s := strField(m, key); s != "" {
		return s
	}
	return fallback
}

// intField coerces a possibly-null, possibly-string count to an integer,
// defaulting to 0. Out-of-range source values pass through as-is; no
// clamping is performed.
func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// bestEffortID digs out whatever identifier is available for logging a
// dropped entry.
func bestEffortID(raw any) string {
	entry, ok := raw.(map[string]any)
	if !ok {
		return "unknown"
	}
	if inner, wrapped := entry["tweet"].(map[string]any); wrapped {
		entry = inner
	}
	if id := strField(entry, "id_str", "id"); id != "" {
		return id
	}
	return "unknown"
}
