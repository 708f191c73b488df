/*
Package chatflow runs scripted chatbot conversations over a graph of blocks.

A flow is a directed graph of two kinds of blocks. Message blocks send their text and move on
immediately; IntentDetection blocks wait for the user's next message, classify it against a list
of candidate intents and route to the mapped block, or to a fallback. One flow is active per
process and can be replaced at any time; sessions pick up the new flow on their next event.

# Concept

The Engine is driven by three session events, usually coming from a transport such as the
websocket hub in pkg/adapters/http:

  - Connect starts (or restarts) a conversation at the start block.
  - Message resumes a session suspended at an IntentDetection block.
  - Disconnect forgets the session.

Everything the bot says goes through a ports.MessageSender. Everything exchanged is appended to a
ports.TranscriptSink. Intent classification goes through a ports.IntentResolver bounded by a
timeout; a timeout or a failure routes to the fallback block, never to the user.

# Usage

	hub := chathttp.NewHub()
	eng := chatflow.New(hub,
		chatflow.WithResolver(intent.KeywordResolver{}),
		chatflow.WithTranscriptSink(memory.NewTranscript()),
	)
	if err := eng.Install(ctx, graph); err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", chathttp.NewHandler(eng.Flows(), eng, hub))

Flows can be authored as JSON or YAML documents (pkg/adapters/file) or as a directory of
markdown blocks (pkg/adapters/loam).
*/
package chatflow
