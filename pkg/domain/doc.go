/*
Package domain contains the core domain models of the chatflow engine.

It defines the conversation script (a Graph of Blocks), the transcript records produced while a
session walks that graph, and the lifecycle events emitted by the engine. This package is kept free
of I/O and persistence concerns, following Hexagonal Architecture principles.

# Key Entities

  - Graph: an immutable-once-published flow with a start block and an ordered list of blocks.
  - Block: a tagged union of Message (emit text, auto-advance) and IntentDetection (suspend until
    the next user message is classified).
  - TranscriptRecord: one inbound or outbound message, tagged with the block active at the time.
  - LifecycleHooks: callbacks used for logging and metrics.
  - SanitizeInput: size limit, UTF-8 validation and control character stripping for user text.
*/
package domain
