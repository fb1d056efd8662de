// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the importer's tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tuannvm/viwoods-obsidian/internal/catalog"
	"github.com/tuannvm/viwoods-obsidian/internal/manifest"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/storage"
)

// Importer runs the pipeline for one source file.
type Importer interface {
	ImportFile(ctx context.Context, src storage.Provider, name string) (*models.ImportSummary, error)
}

// Server wraps the MCP server with importer tools.
type Server struct {
	mcp       *server.MCPServer
	src       storage.Provider
	manifests *manifest.Store
	cat       *catalog.DB
	imp       Importer
}

// New creates a new MCP server with all importer tools registered.
func New(src storage.Provider, manifests *manifest.Store, cat *catalog.DB, imp Importer) *Server {
	s := &Server{src: src, manifests: manifests, cat: cat, imp: imp}

	s.mcp = server.NewMCPServer(
		"Viwoods Importer",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_books",
		mcp.WithDescription("List all imported notebooks with their page counts and last import time."),
	), s.listBooks)

	s.mcp.AddTool(mcp.NewTool("list_source_files",
		mcp.WithDescription("List the .note and .zip files currently present in the source folder."),
	), s.listSourceFiles)

	s.mcp.AddTool(mcp.NewTool("get_manifest",
		mcp.WithDescription("Return the import manifest of a notebook: per-page fingerprints and history."),
		mcp.WithString("book", mcp.Required(), mcp.Description("Book name as reported by list_books")),
	), s.getManifest)

	s.mcp.AddTool(mcp.NewTool("import_note",
		mcp.WithDescription("Run the import pipeline for one source file. Only new and modified pages "+
			"are re-rendered and re-written; unchanged pages are skipped."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Source file name relative to the source folder (e.g. Notebook-A.note)")),
	), s.importNote)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent import runs for a notebook with per-run change counts."),
		mcp.WithString("book", mcp.Required(), mcp.Description("Book name as reported by list_books")),
	), s.listRuns)

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

func (s *Server) listBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	books, err := s.cat.ListBooks()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(books, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listSourceFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.src.List("", ".note", ".zip")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var names []string
	for _, m := range metas {
		names = append(names, m.Path)
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no source files found"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) getManifest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book, err := req.RequireString("book")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.manifests.Load(book)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if m.LastImport.IsZero() && len(m.ImportedPages) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("book never imported: %s", book)), nil
	}
	out, _ := json.MarshalIndent(m, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) importNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := s.imp.ImportFile(ctx, s.src, file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	book, err := req.RequireString("book")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	runs, err := s.cat.ListRuns(book, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(runs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
