// Package parser splits a flat notes file into timestamped records.
//
// A record starts at every line the Grammar accepts as a timestamp and runs
// until the next one. Lines that look like dates but fail to parse are kept
// as content of the current record.
package parser

import (
	"strings"

	"github.com/starford/quicknote/internal/models"
)

// DefaultSeparator is the delimiter row written between records.
const DefaultSeparator = "------------------"

const bom = "\ufeff"

// Parser turns raw notes text into records. It is safe for concurrent use.
type Parser struct {
	grammar   Grammar
	separator string
}

// Option configures a Parser.
type Option func(*Parser)

// WithGrammar replaces the default LayoutGrammar.
func WithGrammar(g Grammar) Option {
	return func(p *Parser) {
		if g != nil {
			p.grammar = g
		}
	}
}

// WithSeparator sets the delimiter row dropped between records. Only a line
// equal to sep after trimming matches, so shorter rules inside a note are
// content. An empty sep keeps every line.
func WithSeparator(sep string) Option {
	return func(p *Parser) {
		p.separator = strings.TrimSpace(sep)
	}
}

// New returns a Parser using DefaultLayouts in the local time zone and
// DefaultSeparator unless overridden.
func New(opts ...Option) *Parser {
	p := &Parser{grammar: NewLayoutGrammar(nil, nil), separator: DefaultSeparator}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses raw with the default grammar.
func Parse(raw string) []models.Note {
	return New().Parse(raw)
}

// Parse returns the records of raw in file order. Text before the first
// timestamp is dropped. The result is never nil.
func (p *Parser) Parse(raw string) []models.Note {
	raw = strings.TrimPrefix(raw, bom)
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	notes := []models.Note{}
	var (
		open    bool
		current models.Note
		body    []string
	)
	flush := func() {
		if !open {
			return
		}
		current.Content = strings.Join(trimBlankEdges(body), "\n")
		notes = append(notes, current)
	}

	for _, line := range lines {
		if p.isSeparator(line) {
			continue
		}
		if ts, ok := p.grammar.Timestamp(line); ok {
			flush()
			open = true
			current = models.Note{Timestamp: ts}
			body = nil
			continue
		}
		if open {
			body = append(body, line)
		}
	}
	flush()

	return notes
}

func (p *Parser) isSeparator(line string) bool {
	return p.separator != "" && strings.TrimSpace(line) == p.separator
}

// trimBlankEdges drops whitespace-only lines at both ends, leaving interior
// lines untouched.
func trimBlankEdges(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
