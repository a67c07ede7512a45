// Package query filters parsed notes against free-text queries.
package query

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/starford/quicknote/internal/models"
)

// DefaultLayouts are the timestamp renderings a query is matched against.
var DefaultLayouts = []string{
	models.DisplayLayout,
	"2006-01-02 15:04",
}

// Engine is a case-insensitive substring filter. It holds no state between
// calls; every Filter recomputes from the records it is given.
type Engine struct {
	layouts []string
}

// NewEngine returns an Engine matching timestamps rendered with layouts,
// or DefaultLayouts when none are given.
func NewEngine(layouts ...string) *Engine {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	return &Engine{layouts: layouts}
}

// Filter returns the records whose content or rendered timestamp contains
// q, ignoring case, in their original relative order. An empty q returns
// records unchanged.
func (e *Engine) Filter(records []models.Note, q string) []models.Note {
	if q == "" {
		return records
	}
	needle := fold(q)
	return lo.Filter(records, func(n models.Note, _ int) bool {
		return e.matches(n, needle)
	})
}

// match reports whether a single record satisfies q.
func (e *Engine) match(n models.Note, q string) bool {
	return q == "" || e.matches(n, fold(q))
}

func (e *Engine) matches(n models.Note, needle string) bool {
	if strings.Contains(fold(n.Content), needle) {
		return true
	}
	return lo.SomeBy(e.layouts, func(layout string) bool {
		return strings.Contains(fold(n.Timestamp.Format(layout)), needle)
	})
}

func fold(s string) string {
	// cases.Caser is stateful and not safe for concurrent use.
	return cases.Fold().String(s)
}

// Order returns records for display. With newestFirst it returns a reversed
// copy; otherwise records in file order. records is never modified.
func Order(records []models.Note, newestFirst bool) []models.Note {
	if !newestFirst {
		return records
	}
	return lo.Reverse(append([]models.Note(nil), records...))
}
