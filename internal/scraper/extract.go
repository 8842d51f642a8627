package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way to locate a field in the document. Selector is a
// CSS selector; Attr names the attribute to read, or is empty for the
// element's text.
type Strategy struct {
	Selector string
	Attr     string
}

// Text is shorthand for an inner-text strategy.
func Text(selector string) Strategy {
	return Strategy{Selector: selector}
}

// Attr is shorthand for an attribute strategy.
func Attr(selector, attr string) Strategy {
	return Strategy{Selector: selector, Attr: attr}
}

// ExtractFirst tries each strategy in order against the scope and
// returns the first non-empty result. A full miss returns ("", false),
// never an error: markup drift on a single field must not abort a crawl.
func ExtractFirst(scope *goquery.Selection, strategies []Strategy) (string, bool) {
	for _, s := range strategies {
		node := scope.Find(s.Selector).First()
		if node.Length() == 0 {
			continue
		}
		var value string
		if s.Attr == "" {
			value = strings.TrimSpace(node.Text())
		} else {
			raw, ok := node.Attr(s.Attr)
			if !ok {
				continue
			}
			value = strings.TrimSpace(raw)
		}
		if value != "" {
			return value, true
		}
	}
	return "", false
}

var (
	countKeepRe   = regexp.MustCompile(`[^\d.KMkm]`)
	countDigitsRe = regexp.MustCompile(`[^0-9.]`)
	intDigitsRe   = regexp.MustCompile(`[^0-9]`)
)

// ParseCount converts a free-form counter ("1.2K followers",
// "3M", "1,234") into an integer, applying K/M magnitude suffixes.
// Unparseable input yields nil rather than an error.
func ParseCount(text string) *int64 {
	cleaned := countKeepRe.ReplaceAllString(strings.TrimSpace(text), "")
	if cleaned == "" {
		return nil
	}
	upper := strings.ToUpper(cleaned)
	multiplier := float64(1)
	switch {
	case strings.Contains(upper, "K"):
		multiplier = 1_000
	case strings.Contains(upper, "M"):
		multiplier = 1_000_000
	}
	if multiplier > 1 {
		digits := countDigitsRe.ReplaceAllString(cleaned, "")
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return nil
		}
		n := int64(f * multiplier)
		return &n
	}
	if strings.Contains(cleaned, ".") {
		f, err := strconv.ParseFloat(countDigitsRe.ReplaceAllString(cleaned, ""), 64)
		if err != nil {
			return nil
		}
		n := int64(f)
		return &n
	}
	digits := intDigitsRe.ReplaceAllString(cleaned, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

var urnTrailingIDRe = regexp.MustCompile(`:(\d+)$`)

// ParseEntityURN pulls the trailing numeric id out of an entity-URN
// style string such as "urn:li:fs_company:123456".
func ParseEntityURN(urn string) (string, bool) {
	m := urnTrailingIDRe.FindStringSubmatch(strings.TrimSpace(urn))
	if m == nil {
		return "", false
	}
	return m[1], true
}

var relativeTimeRe = regexp.MustCompile(`(?i)^\s*(\d+)\s*(minute|min|m|hour|hr|h|day|d|week|wk|w|month|mo|year|yr|y)s?\b`)

// ParseTimestamp resolves an element timestamp with the configured
// fallback order: the machine-readable datetime attribute, then a
// human relative/absolute string, then now.
func ParseTimestamp(datetimeAttr, humanText string, now time.Time) time.Time {
	if datetimeAttr != "" {
		if ts, err := time.Parse(time.RFC3339, datetimeAttr); err == nil {
			return ts
		}
		if ts, err := time.Parse("2006-01-02T15:04:05", datetimeAttr); err == nil {
			return ts.UTC()
		}
	}
	if ts, ok := parseRelativeTime(humanText, now); ok {
		return ts
	}
	return now
}

// parseRelativeTime handles the "3d", "2 weeks ago" style strings the
// source renders when no machine timestamp is present. Month and year
// offsets are approximate, which is the best the source allows.
func parseRelativeTime(text string, now time.Time) (time.Time, bool) {
	m := relativeTimeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "minute", "min", "m":
		unit = time.Minute
	case "hour", "hr", "h":
		unit = time.Hour
	case "day", "d":
		unit = 24 * time.Hour
	case "week", "wk", "w":
		unit = 7 * 24 * time.Hour
	case "month", "mo":
		unit = 30 * 24 * time.Hour
	case "year", "yr", "y":
		unit = 365 * 24 * time.Hour
	default:
		return time.Time{}, false
	}
	return now.Add(-time.Duration(n) * unit), true
}
