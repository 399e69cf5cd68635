// Package eventlog is the local, append-only record of calendar mutations.
//
// Entries are stored in one segment file per target date
// (event_log_YYYY-MM-DD.txt), where the target date is the calendar day the
// mutation concerns rather than the day it was written. Each line is one
// self-contained JSON record:
//
//	{"v":1,"ts":"2025-01-01T18:03:11Z","action":"create","date":"2025-01-02",
//	 "summary":"Team Sync","start":"2025-01-02T09:00:00Z","end":"2025-01-02T10:00:00Z",
//	 "details":"Summary: Team Sync, Start: 2025-01-02T09:00:00Z, End: 2025-01-02T10:00:00Z"}
//
// Older segments written in the free-text form
//
//	[2025-01-01 18:03:11] CREATE: Summary: Team Sync, Start: ..., End: ...
//
// remain readable. Appends and the retention sweep share an advisory lock on
// a .event_log.lock file in the directory, so concurrent processes never
// interleave partial lines or remove a segment mid-write.
//
// The store can rebuild a best-effort event list from create records, which
// the scheduling engine uses when no calendar backend is reachable. Segments
// whose target date falls outside the retention window are removed by Cleanup.
package eventlog
