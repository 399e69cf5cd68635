package eventlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FormatVersion is the record version written by this package.
const FormatVersion = 1

// DateLayout is the layout of target dates and segment names.
const DateLayout = "2006-01-02"

const legacyTimestampLayout = "2006-01-02 15:04:05"

// Action is the kind of mutation an entry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionMock only appears in legacy segments seeded from demo data.
	ActionMock Action = "mock"
)

// Entry is one logged calendar mutation.
type Entry struct {
	// Written is when the entry was appended.
	Written time.Time
	Action  Action `validate:"required,oneof=create update delete"`
	// Date is the target date (YYYY-MM-DD). When empty, Append derives it from
	// Start, or from the current day.
	Date    string `validate:"omitempty,datetime=2006-01-02"`
	EventID string
	Summary string
	Start   time.Time
	End     time.Time
	// Details is the human-readable description. Append fills it in from the
	// structured fields when empty.
	Details string
	// Legacy is set on entries parsed from the free-text format.
	Legacy bool
}

// String renders the entry in the line form used by activity searches.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Written.Format(legacyTimestampLayout), strings.ToUpper(string(e.Action)), e.Details)
}

func (e Entry) describe() string {
	var parts []string
	if e.EventID != "" {
		parts = append(parts, "ID: "+e.EventID)
	}
	if e.Summary != "" {
		parts = append(parts, "Summary: "+e.Summary)
	}
	if !e.Start.IsZero() {
		parts = append(parts, "Start: "+e.Start.Format(time.RFC3339))
	}
	if !e.End.IsZero() {
		parts = append(parts, "End: "+e.End.Format(time.RFC3339))
	}
	return strings.Join(parts, ", ")
}

// record is the on-disk form of an Entry.
type record struct {
	V       int    `json:"v"`
	TS      string `json:"ts"`
	Action  Action `json:"action"`
	Date    string `json:"date"`
	Summary string `json:"summary,omitempty"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	EventID string `json:"event_id,omitempty"`
	Details string `json:"details,omitempty"`
}

func encode(e Entry) ([]byte, error) {
	rec := record{
		V:       FormatVersion,
		TS:      e.Written.Format(time.RFC3339),
		Action:  e.Action,
		Date:    e.Date,
		Summary: e.Summary,
		EventID: e.EventID,
		Details: e.Details,
	}
	if !e.Start.IsZero() {
		rec.Start = e.Start.Format(time.RFC3339)
	}
	if !e.End.IsZero() {
		rec.End = e.End.Format(time.RFC3339)
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// Reasons reported for lines that cannot be used.
const (
	ReasonUnparsable   = "unparsable"
	ReasonVersion      = "unsupported_version"
	ReasonTimestamp    = "bad_timestamp"
	ReasonNoSummary    = "missing_summary"
	ReasonUnrecognised = "unrecognised"
	ReasonWindow       = "invalid_window"
)

// parseError describes why a line was rejected.
type parseError struct {
	reason string
	err    error
}

func (p *parseError) Error() string {
	if p.err == nil {
		return p.reason
	}
	return p.reason + ": " + p.err.Error()
}

func (p *parseError) Unwrap() error { return p.err }

func malformed(reason string, err error) error {
	return &parseError{reason: reason, err: err}
}

// parseLine decodes a segment line in either format. The returned entry has
// zero Start/End when the line carries none.
func parseLine(line, date string, loc *time.Location) (Entry, error) {
	switch {
	case strings.HasPrefix(line, "{"):
		return parseRecord(line, loc)
	case strings.HasPrefix(line, "["):
		return parseLegacy(line, date, loc)
	default:
		return Entry{}, malformed(ReasonUnrecognised, nil)
	}
}

func parseRecord(line string, loc *time.Location) (Entry, error) {
	var rec record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return Entry{}, malformed(ReasonUnparsable, err)
	}
	if rec.V != FormatVersion {
		return Entry{}, malformed(ReasonVersion, fmt.Errorf("version %d", rec.V))
	}

	e := Entry{
		Action:  rec.Action,
		Date:    rec.Date,
		EventID: rec.EventID,
		Summary: rec.Summary,
		Details: rec.Details,
	}
	var err error
	if e.Written, err = time.Parse(time.RFC3339, rec.TS); err != nil {
		return Entry{}, malformed(ReasonTimestamp, err)
	}
	if e.Start, err = parseTimestamp(rec.Start, loc); err != nil {
		return Entry{}, malformed(ReasonTimestamp, err)
	}
	if e.End, err = parseTimestamp(rec.End, loc); err != nil {
		return Entry{}, malformed(ReasonTimestamp, err)
	}
	if e.Details == "" {
		e.Details = e.describe()
	}
	return e, nil
}

// parseLegacy reads "[YYYY-MM-DD HH:MM:SS] ACTION: details".
func parseLegacy(line, date string, loc *time.Location) (Entry, error) {
	closing := strings.Index(line, "] ")
	if closing < 0 {
		return Entry{}, malformed(ReasonUnparsable, nil)
	}
	written, err := time.ParseInLocation(legacyTimestampLayout, line[1:closing], loc)
	if err != nil {
		return Entry{}, malformed(ReasonTimestamp, err)
	}

	rest := line[closing+2:]
	label, details, ok := strings.Cut(rest, ": ")
	if !ok {
		return Entry{}, malformed(ReasonUnparsable, nil)
	}

	e := Entry{
		Written: written,
		Action:  Action(strings.ToLower(strings.TrimSpace(label))),
		Date:    date,
		Details: details,
		Legacy:  true,
	}
	e.EventID = labelled(details, "ID: ")
	e.Summary = labelled(details, "Summary: ")
	if e.Start, err = parseTimestamp(labelled(details, "Start: "), loc); err != nil {
		return Entry{}, malformed(ReasonTimestamp, err)
	}
	if e.End, err = parseTimestamp(labelled(details, "End: "), loc); err != nil {
		return Entry{}, malformed(ReasonTimestamp, err)
	}
	return e, nil
}

// labelled extracts the value following label up to the next comma.
func labelled(details, label string) string {
	idx := strings.Index(details, label)
	if idx < 0 {
		return ""
	}
	value := details[idx+len(label):]
	if comma := strings.Index(value, ","); comma >= 0 {
		value = value[:comma]
	}
	return strings.TrimSpace(value)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 and offset-less ISO-8601 forms; the latter
// are read in loc. An empty string yields the zero time.
func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
