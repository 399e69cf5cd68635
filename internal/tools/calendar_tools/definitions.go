package calendar_tools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const timestampHelp = "ISO-8601 timestamp with offset, e.g. '2025-01-02T09:00:00+01:00'. Without an offset the assistant's time zone is assumed."

// definitions returns the tool schema of every operation, in Operations order.
func definitions() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(string(OpListEvents),
			mcp.WithDescription("List calendar events overlapping a time range, ordered by start time"),
			mcp.WithString("time_min",
				mcp.Required(),
				mcp.Description("Start of the range. "+timestampHelp),
			),
			mcp.WithString("time_max",
				mcp.Required(),
				mcp.Description("End of the range (exclusive). "+timestampHelp),
			),
		),
		mcp.NewTool(string(OpCreateEvent),
			mcp.WithDescription("Schedule a new event on the calendar"),
			mcp.WithString("summary",
				mcp.Required(),
				mcp.Description("Event title"),
			),
			mcp.WithString("start_time",
				mcp.Required(),
				mcp.Description("Event start. "+timestampHelp),
			),
			mcp.WithString("end_time",
				mcp.Required(),
				mcp.Description("Event end. "+timestampHelp),
			),
			mcp.WithString("description",
				mcp.Description("Optional event description"),
			),
		),
		mcp.NewTool(string(OpUpdateEvent),
			mcp.WithDescription("Update an existing event. Fields that are left out keep their current value"),
			mcp.WithString("event_id",
				mcp.Required(),
				mcp.Description("ID of the event, as returned by list_events"),
			),
			mcp.WithString("summary",
				mcp.Description("New title"),
			),
			mcp.WithString("start_time",
				mcp.Description("New start. "+timestampHelp),
			),
			mcp.WithString("end_time",
				mcp.Description("New end. "+timestampHelp),
			),
			mcp.WithString("description",
				mcp.Description("New description"),
			),
		),
		mcp.NewTool(string(OpDeleteEvent),
			mcp.WithDescription("Delete an event from the calendar"),
			mcp.WithString("event_id",
				mcp.Required(),
				mcp.Description("ID of the event, as returned by list_events"),
			),
		),
		mcp.NewTool(string(OpCheckAvailability),
			mcp.WithDescription("Check whether a time range is free. Returns busy whenever the calendar cannot be read reliably"),
			mcp.WithString("start_time",
				mcp.Required(),
				mcp.Description("Start of the range. "+timestampHelp),
			),
			mcp.WithString("end_time",
				mcp.Required(),
				mcp.Description("End of the range. "+timestampHelp),
			),
		),
		mcp.NewTool(string(OpFindAvailableSlots),
			mcp.WithDescription("Find free time slots on a date during working hours"),
			mcp.WithString("date",
				mcp.Required(),
				mcp.Description("Date in YYYY-MM-DD format"),
			),
			mcp.WithNumber("start_hour",
				mcp.Description("First working hour, 0-23 (default 9)"),
				mcp.Min(0),
				mcp.Max(23),
			),
			mcp.WithNumber("end_hour",
				mcp.Description("End of the working day, 1-24 (default 18)"),
				mcp.Min(1),
				mcp.Max(24),
			),
		),
		mcp.NewTool(string(OpGetEventDetails),
			mcp.WithDescription("Get the details of a single event"),
			mcp.WithString("event_id",
				mcp.Required(),
				mcp.Description("ID of the event"),
			),
		),
		mcp.NewTool(string(OpListCalendars),
			mcp.WithDescription("List the calendars available in the user's account"),
		),
		mcp.NewTool(string(OpGetDailySchedule),
			mcp.WithDescription("Show the calendar activity recorded in the local log for a date"),
			mcp.WithString("date",
				mcp.Required(),
				mcp.Description("Date in YYYY-MM-DD format"),
			),
		),
		mcp.NewTool(string(OpSearchActivityLogs),
			mcp.WithDescription("Search all recorded calendar activity for a keyword or phrase, e.g. 'Day Off' or 'Birthday'"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Keyword or phrase, matched case-insensitively"),
			),
		),
	}
}
