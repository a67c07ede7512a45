package parser

import (
	"regexp"
	"strings"
	"time"
)

// Grammar decides whether a line is a record boundary marker and, if so,
// which instant it names.
type Grammar interface {
	Timestamp(line string) (time.Time, bool)
}

// GrammarFunc adapts a plain function to Grammar.
type GrammarFunc func(line string) (time.Time, bool)

// Timestamp calls f.
func (f GrammarFunc) Timestamp(line string) (time.Time, bool) { return f(line) }

// DefaultLayouts are the timestamp layouts accepted when none are configured.
var DefaultLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02 15:04",
	"2006-01-02",
}

// datePrefix is a cheap shape check run before trying every layout.
var datePrefix = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}`)

// LayoutGrammar accepts a line when, trimmed and stripped of one pair of
// surrounding square brackets, it parses with one of Layouts.
type LayoutGrammar struct {
	Layouts  []string
	Location *time.Location
}

// NewLayoutGrammar returns a LayoutGrammar. Empty layouts fall back to
// DefaultLayouts and a nil location to time.Local.
func NewLayoutGrammar(layouts []string, loc *time.Location) *LayoutGrammar {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	if loc == nil {
		loc = time.Local
	}
	return &LayoutGrammar{Layouts: layouts, Location: loc}
}

// Timestamp implements Grammar.
func (g *LayoutGrammar) Timestamp(line string) (time.Time, bool) {
	s := strings.TrimSpace(line)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if !datePrefix.MatchString(s) {
		return time.Time{}, false
	}
	for _, layout := range g.Layouts {
		if ts, err := time.ParseInLocation(layout, s, g.Location); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
