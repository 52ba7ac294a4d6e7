// Package http exposes a running engine over HTTP for operators and integration tests.
//
// It is not a platform webhook receiver: platforms deliver to an ingestion layer that
// calls Engine.ExecuteFlow directly. Routes:
//
//	GET    /health
//	GET    /info
//	GET    /metrics
//	POST   /v1/bots/{botID}/messages
//	GET    /v1/bots/{botID}/sessions/{senderID}
//	DELETE /v1/bots/{botID}/sessions/{senderID}
//	GET    /v1/bots/{botID}/sessions/{senderID}/events
package http
