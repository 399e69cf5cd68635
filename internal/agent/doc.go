// Package agent runs conversational turns. A turn alternates between asking
// the language model for a reply and executing the operations the model
// requests, until the model answers in plain text or the round-trip budget
// runs out. Operations execute one at a time in the order the model emitted
// them, and each result is appended before the next operation starts, so a
// transcript can always be replayed.
package agent
