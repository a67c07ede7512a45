// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the notes session for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/query"
	"github.com/starford/quicknote/internal/session"
)

// NotesFormatURI is the resource describing the notes file format.
const NotesFormatURI = "quicknote://notes-format"

// Server wraps the MCP server with quicknote tools.
type Server struct {
	mcp         *server.MCPServer
	m           *session.Machine
	newestFirst bool
}

// New creates a new MCP server with all tools registered.
func New(m *session.Machine, newestFirst bool) *Server {
	s := &Server{m: m, newestFirst: newestFirst}

	s.mcp = server.NewMCPServer(
		"quicknote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive substring search over note content and timestamps "+
			"(e.g. \"tuesday\", \"2024-02-13\", \"6:05pm\"). An empty query lists every note."),
		mcp.WithString("query", mcp.Description("Text to look for")),
		mcp.WithBoolean("newest_first", mcp.Description("List the most recent notes first")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Report which notes file is loaded and whether loading succeeded."),
	), s.getSession)

	s.mcp.AddTool(mcp.NewTool("reload_notes",
		mcp.WithDescription("Re-read the current notes file from disk."),
	), s.reloadNotes)

	s.mcp.AddTool(mcp.NewTool("select_notes_file",
		mcp.WithDescription("Load a different notes file. The choice is remembered across restarts."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path to the .txt notes file")),
	), s.selectNotesFile)

	s.mcp.AddTool(mcp.NewTool("get_notes_format",
		mcp.WithDescription("Returns the notes file format. Read it before editing the file so "+
			"new entries are recognised."),
	), s.getNotesFormat)

	// Resource: notes file format.
	s.mcp.AddResource(
		mcp.NewResource(NotesFormatURI, "Notes File Format",
			mcp.WithResourceDescription("Plain-text layout of the timestamped notes file."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNotesFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type sessionResult struct {
	State   string `json:"state"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
	Banner  string `json:"banner,omitempty"`
	Count   int    `json:"count"`
}

func summarize(snap session.Snapshot) sessionResult {
	res := sessionResult{State: snap.State.Name(), Banner: snap.Banner}
	res.Path, _ = session.PathOf(snap.State)
	switch st := snap.State.(type) {
	case session.Ready:
		res.Count = len(st.Notes)
	case session.Errored:
		res.Message = st.Message
	}
	return res
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := req.GetString("query", "")
	newestFirst := req.GetBool("newest_first", s.newestFirst)

	snap := s.m.Snapshot()
	ready, ok := snap.State.(session.Ready)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no notes loaded (state: %s)", snap.State.Name())), nil
	}
	matched := query.Order(s.m.Engine().Filter(ready.Notes, q), newestFirst)
	return jsonResult(lo.Map(matched, func(n models.Note, _ int) models.NoteView { return n.View() })), nil
}

func (s *Server) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(summarize(s.m.Snapshot())), nil
}

func (s *Server) reloadNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.m.Reload(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summarize(s.m.Snapshot())), nil
}

func (s *Server) selectNotesFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.m.Snapshot().State.(session.Ready); ok {
		if err := s.m.ChangeFile(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if err := s.m.SubmitPath(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := summarize(s.m.Snapshot())
	if res.State == session.NameError {
		return mcp.NewToolResultError(res.Message), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getNotesFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NotesFormatContract), nil
}

func (s *Server) readNotesFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NotesFormatURI,
			MIMEType: "text/markdown",
			Text:     NotesFormatContract,
		},
	}, nil
}
