/*
Package session implements session management and persistence orchestration.

A session is the pause point of one (bot, sender) conversation. The Manager serializes
access to it with a reference-counted in-process mutex per session key and, when a
ports.DistributedLocker is configured, a distributed lock so replicas do not interleave
turns of the same conversation.
*/
package session
