package instrumentation

// Label values recorded on capability and gateway metrics are restricted to a
// known set. Anything else collapses into OperationOther so a misbehaving model
// cannot mint new time series by inventing operation names.

// Gateway operation names.
const (
	OperationList      = "list"
	OperationGet       = "get"
	OperationInsert    = "insert"
	OperationUpdate    = "update"
	OperationDelete    = "delete"
	OperationCalendars = "calendars"

	OperationOther = "other"
)

var knownCapabilities = map[string]bool{
	"list_events":          true,
	"create_event":         true,
	"update_event":         true,
	"delete_event":         true,
	"check_availability":   true,
	"find_available_slots": true,
	"get_event_details":    true,
	"list_calendars":       true,
	"get_daily_schedule":   true,
	"search_activity_logs": true,
}

// CapabilityLabel returns name when it is a registered capability and
// OperationOther otherwise.
func CapabilityLabel(name string) string {
	if knownCapabilities[name] {
		return name
	}
	return OperationOther
}
