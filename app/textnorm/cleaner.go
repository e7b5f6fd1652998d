package textnorm

import (
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/forPelevin/gomoji"
	"golang.org/x/text/unicode/norm"
)

// Options controls the individual cleaning steps. Every removal is
// independently toggleable; see DefaultOptions for the standard set.
type Options struct {
	RemoveURLs       bool
	RemoveMentions   bool
	RemoveHashtags   bool
	RemoveEmails     bool
	RemoveNumbers    bool
	NormalizeUnicode bool
	PreserveEmojis   bool
}

func DefaultOptions() Options {
	return Options{
		RemoveURLs:       true,
		RemoveMentions:   false,
		RemoveHashtags:   false,
		RemoveEmails:     true,
		RemoveNumbers:    false,
		NormalizeUnicode: true,
		PreserveEmojis:   true,
	}
}

// Entities holds everything ExtractEntities pulls out of a text.
type Entities struct {
	URLs     []string
	Mentions []string
	Hashtags []string
	Emojis   []string
	Emails   []string
}

var (
	urlPattern     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	hashtagPattern = regexp.MustCompile(`#\w+`)
	emailPattern   = regexp.MustCompile(`\S+@\S+`)
	numberPattern  = regexp.MustCompile(`\d+`)

	// Camel-case word splitter for hashtag normalization. Runs of 2+
	// uppercase letters count as an acronym when followed by an
	// Upper+lower pair, a digit, a non-word character, or end of string.
	// The lookahead is why this one needs regexp2 instead of stdlib RE2.
	camelWordPattern = regexp2.MustCompile(`[A-Z]?[a-z]+|[A-Z]{2,}(?=[A-Z][a-z]|\d|\W|$)|\d+`, regexp2.None)

	// Only the five entities Twitter actually escapes in archive text.
	// A general HTML entity decoder would change text the archive never
	// encoded, so these are decoded literally.
	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// Clean normalizes a raw tweet text according to opts. Empty input
// yields an empty string; Clean never fails.
//
// When PreserveEmojis is set, every emoji character found in the input
// is re-appended, space-separated, at the end of the cleaned text. The
// emoji therefore end up outside their original position; that is the
// established output shape and downstream consumers rely on it.
func Clean(text string, opts Options) string {
	if text == "" {
		return ""
	}

	var emojis []string
	if opts.PreserveEmojis {
		emojis = collectEmojis(text)
	}

	text = strings.TrimSpace(text)
	text = entityReplacer.Replace(text)

	if opts.RemoveURLs {
		text = urlPattern.ReplaceAllString(text, " ")
	}
	if opts.RemoveMentions {
		text = mentionPattern.ReplaceAllString(text, " ")
	}
	if opts.RemoveHashtags {
		text = hashtagPattern.ReplaceAllString(text, " ")
	}
	if opts.RemoveEmails {
		text = emailPattern.ReplaceAllString(text, " ")
	}
	if opts.RemoveNumbers {
		text = numberPattern.ReplaceAllString(text, " ")
	}

	if opts.NormalizeUnicode {
		text = norm.NFKC.String(text)
	}

	text = strings.Join(strings.Fields(text), " ")

	if opts.PreserveEmojis && len(emojis) > 0 {
		text = text + " " + strings.Join(emojis, " ")
	}

	return text
}

// ExtractEntities collects URLs, mentions, hashtags, emojis and email
// addresses from a text. Empty input yields empty slices.
func ExtractEntities(text string) Entities {
	return Entities{
		URLs:     urlPattern.FindAllString(text, -1),
		Mentions: mentionPattern.FindAllString(text, -1),
		Hashtags: hashtagPattern.FindAllString(text, -1),
		Emojis:   collectEmojis(text),
		Emails:   emailPattern.FindAllString(text, -1),
	}
}

// NormalizeHashtag splits a camel-case hashtag into lowercase
// space-separated words, e.g. "MachineLearning" -> "machine learning".
// A leading '#' is stripped; embedded digit runs become separate tokens.
func NormalizeHashtag(tag string) string {
	tag = strings.TrimLeft(tag, "#")
	if tag == "" {
		return ""
	}

	var words []string
	m, err := camelWordPattern.FindStringMatch(tag)
	for err == nil && m != nil {
		words = append(words, strings.ToLower(m.String()))
		m, err = camelWordPattern.FindNextMatch(m)
	}

	return strings.Join(words, " ")
}

func collectEmojis(text string) []string {
	var emojis []string
	for _, r := range text {
		if gomoji.ContainsEmoji(string(r)) {
			emojis = append(emojis, string(r))
		}
	}
	return emojis
}
