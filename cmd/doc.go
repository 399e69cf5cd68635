// Package cmd implements the command-line interface for agenda.
//
// This package provides the following commands:
//   - chat: Talk to the assistant in the terminal (default)
//   - serve: Start the chat API and MCP server (http or stdio)
//   - cleanup-logs: Apply activity log retention on demand
//   - generate-docs: Generate markdown documentation for the calendar tools
//   - version: Display version information
//
// The chat command is the default command when no subcommand is specified.
package cmd
