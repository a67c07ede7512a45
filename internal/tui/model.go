// Package tui is a terminal front end for the notes session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/starford/quicknote/internal/apperr"
	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/query"
	"github.com/starford/quicknote/internal/session"
)

// snapshotMsg carries a session change into the update loop.
type snapshotMsg session.Snapshot

// doneMsg reports the outcome of a session command.
type doneMsg struct {
	op  string
	err error
}

type noteItem struct {
	note models.Note
}

func (i noteItem) Title() string       { return i.note.Display() }
func (i noteItem) Description() string { return oneLine(i.note.Content) }
func (i noteItem) FilterValue() string { return i.note.Content }

var spaceRun = regexp.MustCompile(`\s{2,}|\t+`)

// oneLine flattens content for a single list row.
func oneLine(content string) string {
	s := strings.ReplaceAll(content, "\n", " ↵ ")
	return spaceRun.ReplaceAllString(s, " ")
}

// Model is the bubbletea model. Every session call runs inside a tea.Cmd,
// never in Update, because session observers feed back into the program.
type Model struct {
	ctx         context.Context
	machine     *session.Machine
	newestFirst bool

	snap   session.Snapshot
	status string
	width  int
	height int

	pathInput   textinput.Model
	searchInput textinput.Model
	list        list.Model
}

// New returns the initial model.
func New(ctx context.Context, machine *session.Machine, newestFirst bool) Model {
	path := textinput.New()
	path.Placeholder = "/path/to/notes.txt"
	path.Prompt = "Notes file:"
	path.PromptStyle = promptStyle
	path.CharLimit = 4096
	path.Focus()

	search := textinput.New()
	search.Placeholder = "text, weekday or date"
	search.Prompt = "Search:"
	search.PromptStyle = promptStyle

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.SetShowFilter(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)

	m := Model{
		ctx:         ctx,
		machine:     machine,
		newestFirst: newestFirst,
		pathInput:   path,
		searchInput: search,
		list:        l,
	}
	m.applySnapshot(machine.Snapshot())
	return m
}

// Init restores the saved notes file.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.run("start", m.machine.Start))
}

func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return doneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) submit() tea.Cmd {
	raw := m.pathInput.Value()
	return m.run("submit", func(ctx context.Context) error {
		return m.machine.SubmitPath(ctx, raw)
	})
}

func (m Model) browse() tea.Cmd {
	return m.run("browse", func(ctx context.Context) error {
		_, err := m.machine.Browse(ctx)
		return err
	})
}

func (m Model) changeFile() tea.Cmd {
	return m.run("change", func(context.Context) error { return m.machine.ChangeFile() })
}

func (m Model) dismiss() tea.Cmd {
	return m.run("dismiss", func(context.Context) error {
		m.machine.DismissBanner()
		return nil
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case snapshotMsg:
		m.applySnapshot(session.Snapshot(msg))
		return m, nil

	case doneMsg:
		if msg.err != nil {
			slog.Debug("tui: command failed", slog.String("op", msg.op), slog.String("error", msg.err.Error()))
		}
		m.status = statusFor(msg.err)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.snap.State.(type) {
		case session.Ready:
			return m.updateNotes(msg)
		case session.Loading:
			if msg.String() == "ctrl+n" {
				return m, m.changeFile()
			}
			return m, nil
		default:
			return m.updateSetup(msg)
		}
	}

	var cmd tea.Cmd
	if _, ok := m.snap.State.(session.Ready); ok {
		m.searchInput, cmd = m.searchInput.Update(msg)
	} else {
		m.pathInput, cmd = m.pathInput.Update(msg)
	}
	return m, cmd
}

func (m Model) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m, m.submit()
	case "ctrl+b":
		return m, m.browse()
	case "ctrl+r":
		if _, ok := m.snap.State.(session.Errored); ok {
			return m, m.run("reload", m.machine.Reload)
		}
		return m, nil
	case "esc":
		if m.snap.Banner != "" {
			return m, m.dismiss()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) updateNotes(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+r":
		return m, m.run("reload", m.machine.Reload)
	case "ctrl+o":
		return m, m.run("open", m.machine.OpenSource)
	case "ctrl+n":
		return m, m.changeFile()
	case "esc":
		if m.snap.Banner != "" {
			return m, m.dismiss()
		}
		m.searchInput.SetValue("")
		m.refresh()
		return m, nil
	case "tab", "down":
		m.list.CursorDown()
		return m, nil
	case "shift+tab", "up":
		m.list.CursorUp()
		return m, nil
	case "pgdown":
		m.list.NextPage()
		return m, nil
	case "pgup":
		m.list.PrevPage()
		return m, nil
	}

	old := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() != old {
		m.refresh()
	}
	return m, cmd
}

func (m *Model) applySnapshot(s session.Snapshot) {
	if s.Version < m.snap.Version {
		return
	}
	prev := m.snap.State
	m.snap = s

	switch s.State.(type) {
	case session.Ready:
		if _, was := prev.(session.Ready); !was {
			m.pathInput.Blur()
			m.searchInput.Focus()
		}
	case session.Unconfigured:
		if _, was := prev.(session.Unconfigured); !was {
			m.pathInput.SetValue(s.PathHint)
			m.pathInput.CursorEnd()
		}
		m.searchInput.Blur()
		m.pathInput.Focus()
	case session.Errored:
		m.searchInput.Blur()
		m.pathInput.Focus()
	}
	m.refresh()
}

// refresh re-runs the search over the loaded notes.
func (m *Model) refresh() {
	ready, ok := m.snap.State.(session.Ready)
	if !ok {
		m.list.SetItems(nil)
		return
	}
	matched := query.Order(m.machine.Engine().Filter(ready.Notes, m.searchInput.Value()), m.newestFirst)
	m.list.SetItems(lo.Map(matched, func(n models.Note, _ int) list.Item { return noteItem{note: n} }))
	m.list.ResetSelected()
}

func (m *Model) resize() {
	m.list.SetSize(m.width, max(m.height-6, 1))
}

func statusFor(err error) string {
	// Other failures are already on the session banner.
	if errors.Is(err, apperr.ErrEmptyPath) {
		return "Enter the path to your notes .txt file."
	}
	return ""
}

// View implements tea.Model.
func (m Model) View() string {
	parts := []string{titleStyle.Render("quicknote")}
	if m.snap.Banner != "" {
		parts = append(parts, bannerStyle.Render(m.snap.Banner))
	}
	if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}

	switch st := m.snap.State.(type) {
	case session.Ready:
		parts = append(parts, m.notesView(st))
	case session.Loading:
		parts = append(parts,
			fmt.Sprintf("Loading %s …", st.Path),
			helpStyle.Render("ctrl+n change file • ctrl+c quit"))
	case session.Errored:
		parts = append(parts, errorStyle.Render(st.Message), m.setupView(true))
	default:
		parts = append(parts, m.setupView(false))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) setupView(retry bool) string {
	help := "enter load • ctrl+b browse • ctrl+c quit"
	if retry {
		help = "enter load • ctrl+b browse • ctrl+r retry • ctrl+c quit"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		"Select your notes .txt file.",
		m.pathInput.View(),
		helpStyle.Render(help),
	)
}

func (m Model) notesView(st session.Ready) string {
	header := pathStyle.Render(fmt.Sprintf("%d of %d notes • %s", len(m.list.Items()), len(st.Notes), st.Path))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.searchInput.View(),
		header,
		listStyle.Render(m.list.View()),
		helpStyle.Render("ctrl+r reload • ctrl+o open file • ctrl+n change file • esc clear • ctrl+c quit"),
	)
}
