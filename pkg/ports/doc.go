/*
Package ports defines the driven ports (interfaces) of the botflow engine.

These interfaces decouple the execution core from storage backends, messaging
platforms and analytics sinks.

# Key Interfaces

  - ContentRepository: read access to a bot's Blocks and Flows (plus bootstrap writes).
  - SessionStore: persists and loads conversation Sessions.
  - DistributedLocker: serializes turns of one session across replicas.
  - MessagingGateway: delivers outbound messages to a platform.
  - ContactTracker and MessageLogger: best-effort analytics sinks.
*/
package ports
