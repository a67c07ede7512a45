package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quicknote/internal/models"
)

func utcParser() *Parser {
	return New(WithGrammar(NewLayoutGrammar(nil, time.UTC)))
}

func TestParse_Scenario(t *testing.T) {
	input := "2024-01-01 10:00\nBuy milk\n2024-01-02 09:30\nCall Bob\nReschedule meeting"
	notes := utcParser().Parse(input)

	require.Len(t, notes, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), notes[0].Timestamp)
	assert.Equal(t, "Buy milk", notes[0].Content)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), notes[1].Timestamp)
	assert.Equal(t, "Call Bob\nReschedule meeting", notes[1].Content)
}

func TestParse_Deterministic(t *testing.T) {
	input := "junk\n2024-03-01 08:00\na\n\n  b\n2024-03-02 08:00\nc\n"
	p := utcParser()
	assert.Equal(t, p.Parse(input), p.Parse(input))
}

func TestParse_EmptyAndNoTimestamps(t *testing.T) {
	p := utcParser()
	for _, in := range []string{"", "\n\n", "just some text\nwith no dates"} {
		notes := p.Parse(in)
		assert.NotNil(t, notes)
		assert.Empty(t, notes, "input %q", in)
	}
}

func TestParse_PreambleDiscarded(t *testing.T) {
	notes := utcParser().Parse("my notes\n=====\n2024-01-01 10:00\nfirst")
	require.Len(t, notes, 1)
	assert.Equal(t, "first", notes[0].Content)
}

func TestParse_InvalidTimestampBecomesContent(t *testing.T) {
	input := "2024-01-01 10:00\nfirst\n2024-13-45 25:99\nstill first\n2024-01-02 10:00\nsecond"
	notes := utcParser().Parse(input)

	require.Len(t, notes, 2)
	assert.Equal(t, "first\n2024-13-45 25:99\nstill first", notes[0].Content)
	assert.Equal(t, "second", notes[1].Content)
}

func TestParse_OrderFollowsFile(t *testing.T) {
	input := "2024-05-01 10:00\nlater\n2023-01-01 10:00\nearlier\n2024-02-01 10:00\nmiddle"
	notes := utcParser().Parse(input)

	require.Len(t, notes, 3)
	assert.Equal(t, []string{"later", "earlier", "middle"},
		[]string{notes[0].Content, notes[1].Content, notes[2].Content})
}

func TestParse_InteriorWhitespacePreserved(t *testing.T) {
	input := "2024-01-01 10:00\n\n  indented\n\n\ttabbed  \n\n"
	notes := utcParser().Parse(input)

	require.Len(t, notes, 1)
	assert.Equal(t, "  indented\n\n\ttabbed  ", notes[0].Content)
}

func TestParse_BracketedWithSeparators(t *testing.T) {
	input := strings.Join([]string{
		"------------------",
		"[2024-01-01 10:00:00]",
		"Buy milk",
		"------------------",
		"[2024-01-02 09:30:00]",
		"Call Bob",
		"------------------",
		"",
	}, "\r\n")
	notes := utcParser().Parse(input)

	require.Len(t, notes, 2)
	assert.Equal(t, "Buy milk", notes[0].Content)
	assert.Equal(t, "Call Bob", notes[1].Content)
	assert.Equal(t, 9, notes[1].Timestamp.Hour())
}

func TestParse_ByteOrderMark(t *testing.T) {
	notes := utcParser().Parse("\ufeff2024-01-01 10:00\nBuy milk\n2024-01-02 09:30\nCall Bob")

	require.Len(t, notes, 2)
	assert.Equal(t, "Buy milk", notes[0].Content)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), notes[0].Timestamp)
	assert.Equal(t, "Call Bob", notes[1].Content)
}

func TestParse_ShortRuleIsContent(t *testing.T) {
	notes := utcParser().Parse("2024-01-01 10:00\nTitle\n---\nbody\n  indented  \n------------------\n")

	require.Len(t, notes, 1)
	assert.Equal(t, "Title\n---\nbody\n  indented  ", notes[0].Content)
}

func TestParse_CustomSeparator(t *testing.T) {
	p := New(WithGrammar(NewLayoutGrammar(nil, time.UTC)), WithSeparator("***"))
	notes := p.Parse("2024-01-01 10:00\na\n***\n2024-01-02 10:00\nb\n------------------")

	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].Content)
	assert.Equal(t, "b\n------------------", notes[1].Content)

	notes = New(WithGrammar(NewLayoutGrammar(nil, time.UTC)), WithSeparator("")).Parse("2024-01-01 10:00\na\n------------------")
	require.Len(t, notes, 1)
	assert.Equal(t, "a\n------------------", notes[0].Content)
}

func TestParse_CustomGrammar(t *testing.T) {
	// Lines of the form "## <unix seconds>" mark records.
	g := GrammarFunc(func(line string) (time.Time, bool) {
		var sec int64
		if !strings.HasPrefix(line, "## ") {
			return time.Time{}, false
		}
		for _, r := range line[3:] {
			if r < '0' || r > '9' {
				return time.Time{}, false
			}
			sec = sec*10 + int64(r-'0')
		}
		return time.Unix(sec, 0).UTC(), true
	})
	notes := New(WithGrammar(g)).Parse("## 0\nepoch\n## x\nnot a marker\n2024-01-01 10:00\nplain")

	require.Len(t, notes, 1)
	assert.Equal(t, models.Note{
		Timestamp: time.Unix(0, 0).UTC(),
		Content:   "epoch\n## x\nnot a marker\n2024-01-01 10:00\nplain",
	}, notes[0])
}

func TestLayoutGrammar_Layouts(t *testing.T) {
	g := NewLayoutGrammar(nil, time.UTC)
	for _, line := range []string{
		"2024-01-02 09:30",
		"  2024-01-02 09:30:15  ",
		"2024-01-02T09:30",
		"2024-01-02T09:30:15",
		"2024-01-02T09:30:15Z",
		"2024/01/02 09:30",
		"2024-01-02",
		"[2024-01-02 09:30]",
	} {
		ts, ok := g.Timestamp(line)
		assert.True(t, ok, "line %q", line)
		assert.Equal(t, 2024, ts.Year(), "line %q", line)
	}
	for _, line := range []string{"", "Buy milk", "2024-01-02 note", "on 2024-01-02 09:30", "[2024-02-30]"} {
		_, ok := g.Timestamp(line)
		assert.False(t, ok, "line %q", line)
	}
}

func TestLayoutGrammar_ConfiguredLayoutsOnly(t *testing.T) {
	g := NewLayoutGrammar([]string{"2006-01-02"}, time.UTC)
	_, ok := g.Timestamp("2024-01-02 09:30")
	assert.False(t, ok)
	_, ok = g.Timestamp("2024-01-02")
	assert.True(t, ok)
}
