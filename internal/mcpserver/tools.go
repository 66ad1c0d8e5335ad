package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyperifyio/goassess/internal/app"
	"github.com/hyperifyio/goassess/internal/export"
	"github.com/hyperifyio/goassess/internal/report"
)

var formats = []string{
	string(report.FormatMarkdown),
	string(report.FormatText),
	string(report.FormatPDFText),
	string(report.FormatPasted),
}

func contentArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full report text"),
		),
		mcp.WithString("format",
			mcp.Description("Input format (default: markdown)"),
			mcp.Enum(formats...),
		),
		mcp.WithString("report_type",
			mcp.Description("Report type id, name or alias to assess against; detected when empty"),
		),
	}
}

type input struct {
	content string
	format  report.Format
	typeID  string
}

func readInput(req mcp.CallToolRequest) (input, *mcp.CallToolResult) {
	in := input{
		content: req.GetString("content", ""),
		format:  report.Format(req.GetString("format", string(report.FormatMarkdown))),
		typeID:  strings.TrimSpace(req.GetString("report_type", "")),
	}
	if strings.TrimSpace(in.content) == "" {
		return in, mcp.NewToolResultError("'content' is required")
	}
	if !in.format.Valid() {
		return in, mcp.NewToolResultError(fmt.Sprintf("unknown format %q", in.format))
	}
	return in, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// DecompileTool handles the decompile_report tool.
type DecompileTool struct {
	app *app.App
}

// NewDecompileTool creates a DecompileTool.
func NewDecompileTool(a *app.App) *DecompileTool { return &DecompileTool{app: a} }

// Definition returns the MCP tool definition for registration.
func (t *DecompileTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Decompile a report into sections, metadata, terminology and compliance markers, and detect its report type. The report is stored for later validation."),
	}, contentArgs()...)
	return mcp.NewTool("decompile_report", opts...)
}

// Handle processes the decompile_report tool call.
func (t *DecompileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, bad := readInput(req)
	if bad != nil {
		return bad, nil
	}
	rep, err := t.app.DecompileAs(ctx, in.content, in.format, in.typeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

// AssessTool handles the assess_report tool.
type AssessTool struct {
	app *app.App
}

// NewAssessTool creates an AssessTool.
func NewAssessTool(a *app.App) *AssessTool { return &AssessTool{app: a} }

// Definition returns the MCP tool definition for registration.
func (t *AssessTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Decompile, map and validate a report, returning findings and compliance, quality, completeness and overall scores."),
	}, contentArgs()...)
	opts = append(opts, mcp.WithString("output",
		mcp.Description("Result shape: markdown (default) or json"),
		mcp.Enum("markdown", "json"),
	))
	return mcp.NewTool("assess_report", opts...)
}

// Handle processes the assess_report tool call.
func (t *AssessTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, bad := readInput(req)
	if bad != nil {
		return bad, nil
	}
	res, err := t.app.AssessAs(ctx, in.content, in.format, in.typeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("output", "markdown") == "json" {
		return jsonResult(res)
	}
	return mcp.NewToolResultText(export.Markdown(res)), nil
}

// TypesTool handles the list_report_types tool.
type TypesTool struct {
	app *app.App
}

// NewTypesTool creates a TypesTool.
func NewTypesTool(a *app.App) *TypesTool { return &TypesTool{app: a} }

// Definition returns the MCP tool definition for registration.
func (t *TypesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_report_types",
		mcp.WithDescription("List the report types reports can be assessed against, with their required sections and standards."),
	)
}

// Handle processes the list_report_types tool call.
func (t *TypesTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, rt := range t.app.Registry().List() {
		fmt.Fprintf(&b, "## %s (`%s`)\n\n", rt.Name, rt.ID)
		if rt.Description != "" {
			b.WriteString(rt.Description + "\n\n")
		}
		names := make([]string, 0, len(rt.RequiredSections))
		for _, s := range rt.RequiredSections {
			names = append(names, s.Name)
		}
		fmt.Fprintf(&b, "- Required sections: %s\n", strings.Join(names, ", "))
		if len(rt.ComplianceRules) > 0 {
			stds := make([]string, 0, len(rt.ComplianceRules))
			for _, c := range rt.ComplianceRules {
				stds = append(stds, c.Standard)
			}
			fmt.Fprintf(&b, "- Standards: %s\n", strings.Join(stds, ", "))
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("No report types registered."), nil
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

// RulesTool handles the list_rules tool.
type RulesTool struct {
	app *app.App
}

// NewRulesTool creates a RulesTool.
func NewRulesTool(a *app.App) *RulesTool { return &RulesTool{app: a} }

// Definition returns the MCP tool definition for registration.
func (t *RulesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_rules",
		mcp.WithDescription("List validation rules with their type, severity, weight and whether they are enabled."),
	)
}

// Handle processes the list_rules tool call.
func (t *RulesTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString("| Rule | Type | Severity | Weight | Enabled |\n|---|---|---|---|---|\n")
	for _, r := range t.app.Engine().Rules() {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %t |\n", r.ID, r.Type, r.Severity, r.Weight, r.Enabled)
	}
	return mcp.NewToolResultText(b.String()), nil
}
