// Package transcript persists conversation histories per session in SQLite.
//
// The schema is managed with goose migrations embedded in the binary. The
// system message is never stored: it is regenerated at the start of each
// turn, so only user, assistant and operation result messages are kept.
package transcript
