// Package calendar_tools defines the closed set of calendar operations the
// assistant may invoke, decodes and validates their arguments, and executes
// them against the scheduling engine. The same operations are exposed to MCP
// clients.
package calendar_tools
