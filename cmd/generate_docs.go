package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/auth"
	"github.com/teemow/outlook-mcp/internal/server"
)

// toolCategories fixes the presentation order of the generated reference.
var toolCategories = []string{
	"Authentication Tools",
	"Mail Tools",
	"Folder Tools",
	"Calendar Tools",
	"Rule Tools",
	"Other",
}

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate the MCP tool reference",
		Long: `Generate a markdown reference for all available MCP tools.
The command introspects the registered tool definitions, so the generated
documentation always matches the actual implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// Documentation generation registers tools without talking to Graph, so
	// placeholder credentials are fine.
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := auth.NewManager(auth.DefaultConfig(), auth.WithLogger(logger))

	serverContext, err := server.NewServerContext(ctx, manager,
		server.WithContextLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("outlook-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	// Register with write operations enabled so the docs cover every tool.
	readOnly := false
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	markdown := renderToolsReference(tools)

	if outputFile == "" {
		fmt.Print(markdown)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	return nil
}

// renderToolsReference produces the full markdown reference: title, table of
// contents, the read-only note, then one section per category in the fixed
// toolCategories order.
func renderToolsReference(tools []mcp.Tool) string {
	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		c := toolCategory(tool.Name)
		byCategory[c] = append(byCategory[c], tool)
	}
	for _, group := range byCategory {
		sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })
	}

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running outlook-mcp as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range toolCategories {
		if len(byCategory[category]) == 0 {
			continue
		}
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor)
	}
	sb.WriteString("\n")

	sb.WriteString("## Read-Only Mode\n\n")
	sb.WriteString("By default the server runs in read-only mode and registers only non-mutating tools.\n")
	sb.WriteString("Write tools (sending mail, moving messages, creating events and rules) require the `--yolo` flag.\n\n")

	for _, category := range toolCategories {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range group {
			writeToolDoc(&sb, tool)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// toolCategory buckets a tool by the noun in its name.
func toolCategory(name string) string {
	switch {
	case strings.Contains(name, "auth"):
		return "Authentication Tools"
	case strings.Contains(name, "email"):
		return "Mail Tools"
	case strings.Contains(name, "folder"):
		return "Folder Tools"
	case strings.Contains(name, "event"):
		return "Calendar Tools"
	case strings.Contains(name, "rule"):
		return "Rule Tools"
	default:
		return "Other"
	}
}

// writeToolDoc appends one tool's section: name, description, and a sorted
// argument list with required/optional markers.
func writeToolDoc(sb *strings.Builder, tool mcp.Tool) {
	fmt.Fprintf(sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(sb, "%s\n\n", tool.Description)
	}
	if len(tool.InputSchema.Properties) == 0 {
		return
	}

	sb.WriteString("**Arguments:**\n")

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := tool.InputSchema.Properties[name].(map[string]interface{})
		if !ok {
			continue
		}

		requirement := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requirement = "required"
		}

		desc, _ := prop["description"].(string)
		if desc == "" {
			if t, ok := prop["type"].(string); ok {
				desc = t + " parameter"
			} else {
				desc = "any parameter"
			}
		}

		fmt.Fprintf(sb, "- `%s` (%s): %s\n", name, requirement, desc)
	}
	sb.WriteString("\n")
}
