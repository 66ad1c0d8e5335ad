// Package mcpserver exposes the assessment pipeline as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/hyperifyio/goassess/internal/app"
)

// New registers every tool backed by a on a new MCP server.
func New(a *app.App) *server.MCPServer {
	s := server.NewMCPServer(
		app.ToolName,
		app.BuildVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	decompileTool := NewDecompileTool(a)
	s.AddTool(decompileTool.Definition(), decompileTool.Handle)

	assessTool := NewAssessTool(a)
	s.AddTool(assessTool.Definition(), assessTool.Handle)

	typesTool := NewTypesTool(a)
	s.AddTool(typesTool.Definition(), typesTool.Handle)

	rulesTool := NewRulesTool(a)
	s.AddTool(rulesTool.Definition(), rulesTool.Handle)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(a *app.App) error {
	return server.ServeStdio(New(a))
}

const instructions = "Assess professional reports against known report types. " +
	"Call list_report_types to see the supported types, then assess_report with the report text. " +
	"decompile_report returns the detected structure without scoring."
