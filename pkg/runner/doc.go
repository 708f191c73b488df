/*
Package runner connects a single local session to the flow engine through a terminal or a
JSON-Lines pipe.

It plays the role the websocket plays for the server: bot messages reach the user through an
IOHandler, and every line the user types becomes a Message event.

# Key Components

  - Runner: the read loop. It also implements ports.MessageSender for its own session.
  - TextHandler: interactive terminal I/O with an optional Markdown renderer.
  - JSONHandler: structured JSON-Lines I/O for scripted use.

# Usage

	r := runner.New(
		runner.WithSessionID("local"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	engine := chatflow.New(chatflow.WithSender(r))

	if err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}

While chatting, "/restart" reconnects the session and "/quit" leaves.
*/
package runner
