/*
Package domain contains the core models of the botflow engine.

It defines the conversational content authored by bot builders (Blocks of Cards and
legacy Flows of Nodes and Edges), the per-user Session that records where a
conversation is paused, and the outbound message shapes handed to a messaging
gateway. The package has no I/O and no third-party dependencies, following
Hexagonal Architecture principles.

# Key Entities

  - Session: the pause point of one (bot, sender) conversation plus its collected variables.
  - Block: an ordered list of Cards executed sequentially.
  - Flow: a legacy directed graph of Nodes connected by Edges.
  - Outbound: a message the engine asks the gateway to deliver.
*/
package domain
