// Package scheduling is the calendar domain engine. It answers event listing,
// availability and free-slot questions from the calendar gateway when one is
// configured and reachable, and from events rebuilt out of the local event log
// otherwise. Every mutation is also recorded in the event log.
package scheduling
