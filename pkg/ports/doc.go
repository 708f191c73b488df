/*
Package ports defines the driven ports (interfaces) of the chatflow engine.

These interfaces decouple the flow engine from its collaborators, so the same traversal logic
runs behind a WebSocket server, a terminal chat or a test harness.

# Key Interfaces

  - FlowStore: holds the single active flow graph, swapped atomically.
  - SessionRegistry: maps a session id to the block it is suspended at.
  - IntentResolver: classifies free text against a candidate list.
  - TranscriptSink: appends one record per inbound or outbound message.
  - MessageSender: delivers bot messages to a session.
  - DistributedLocker: serialises a session's events across replicas.
*/
package ports
