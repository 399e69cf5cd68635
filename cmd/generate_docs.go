package cmd

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/agenda/internal/eventlog"
	"github.com/teemow/agenda/internal/scheduling"
	"github.com/teemow/agenda/internal/tools/calendar_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate calendar tool documentation",
		Long: `Generate markdown documentation for the calendar operations the assistant
can invoke, which are also the tools of the MCP server. The documentation is
introspected from the registered tools, so it always matches the schemas the
model sees.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// The registry needs a scheduling service; a throwaway log directory and
	// no backend are enough to list the tools.
	dir, err := os.MkdirTemp("", "agenda-docs-")
	if err != nil {
		return fmt.Errorf("failed to create temporary log directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	store, err := eventlog.Open(dir)
	if err != nil {
		return err
	}
	svc, err := scheduling.NewService(scheduling.Config{Log: store})
	if err != nil {
		return err
	}
	registry, err := calendar_tools.NewRegistry(svc)
	if err != nil {
		return err
	}

	mcpSrv := mcpserver.NewMCPServer("agenda", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, registry); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}

	// Get the list of tools
	serverTools := mcpSrv.ListTools()

	// Extract mcp.Tool from each ServerTool
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	// Generate markdown documentation
	markdown := generateToolsMarkdown(tools)

	// Write to output
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

// toolCategories fixes the section order of the reference.
var toolCategories = []string{
	"Event Tools",
	"Availability Tools",
	"Calendar Discovery Tools",
	"Activity Log Tools",
	"Other",
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# Calendar Tools Reference\n\n")
	sb.WriteString("This document lists the operations the assistant can invoke. The same tools are served by `agenda serve` at `/mcp` and by `agenda serve --transport stdio`.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Tools keep their registration order inside a category.
	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		byCategory[category] = append(byCategory[category], tool)
	}

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range toolCategories {
		if len(byCategory[category]) == 0 {
			continue
		}
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor)
	}
	sb.WriteString("\n")

	sb.WriteString("## Dates and Times\n\n")
	sb.WriteString("- **Timestamps:** ISO-8601; a timestamp without an offset is read in the configured `calendar.timezone`\n")
	sb.WriteString("- **Dates:** `YYYY-MM-DD`\n")
	sb.WriteString("- **Errors:** failures are returned as a JSON object with `kind`, `message` and `retryable`\n\n")

	for _, category := range toolCategories {
		if len(byCategory[category]) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range byCategory[category] {
			sb.WriteString(generateToolMarkdown(tool))
		}
	}

	return sb.String()
}

func getCategoryFromToolName(name string) string {
	switch name {
	case "get_daily_schedule", "search_activity_logs":
		return "Activity Log Tools"
	case "list_calendars":
		return "Calendar Discovery Tools"
	}

	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return "Other"
	}
	switch parts[len(parts)-1] {
	case "event", "events", "details":
		return "Event Tools"
	case "availability", "slots":
		return "Availability Tools"
	default:
		return "Other"
	}
}

// generateToolMarkdown renders one tool with an argument table, required
// arguments first.
func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		sb.WriteString("No arguments.\n\n")
		return sb.String()
	}

	names := slices.Sorted(maps.Keys(props))
	slices.SortStableFunc(names, func(a, b string) int {
		ra, rb := slices.Contains(tool.InputSchema.Required, a), slices.Contains(tool.InputSchema.Required, b)
		switch {
		case ra == rb:
			return 0
		case ra:
			return -1
		default:
			return 1
		}
	})

	sb.WriteString("| Argument | Type | Required | Description |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		propType, _ := prop["type"].(string)
		if propType == "" {
			propType = "any"
		}
		desc, _ := prop["description"].(string)
		required := "no"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "yes"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", name, propType, required, strings.ReplaceAll(desc, "|", "\\|"))
	}
	sb.WriteString("\n")

	return sb.String()
}
