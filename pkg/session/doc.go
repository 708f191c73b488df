/*
Package session coordinates concurrent access to conversational sessions.

Events of one session (connect, message, disconnect) must be processed strictly in arrival order,
while events of different sessions must never block each other. Manager provides exactly that: a
keyed, reference-counted mutex per session id, optionally backed by a distributed lock
(see pkg/adapters/redis) when several replicas share a session registry.
*/
package session
