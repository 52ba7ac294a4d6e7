// Package dispatch serializes conversational turns per session.
//
// Each (bot, sender) pair gets its own goroutine fed by a buffered mailbox, so a
// sender's messages are answered in the order they arrived while other senders
// proceed concurrently. Actors exit after an idle timeout and are recreated on demand.
package dispatch
