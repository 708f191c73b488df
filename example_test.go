package chatflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/intent"
	"github.com/aretw0/chatflow/pkg/ports"
)

const weatherFlow = `
flowId: weather-bot
startBlockId: A
blocks:
  - id: A
    type: MESSAGE
    nextBlockId: B
    data: {text: "Welcome!"}
  - id: B
    type: INTENT_DETECTION
    data:
      intents: [Get Weather, Get News]
      mappings: {Get Weather: C, Get News: D}
      fallbackBlockId: E
  - id: C
    type: MESSAGE
    data: {text: "It's sunny."}
  - id: D
    type: MESSAGE
    data: {text: "Nothing new today."}
  - id: E
    type: MESSAGE
    nextBlockId: B
    data: {text: "Sorry, I didn't understand."}
`

// ExampleNew runs a conversation with an offline keyword classifier, printing what the bot says.
func ExampleNew() {
	ctx := context.Background()
	printer := ports.SenderFunc(func(_ context.Context, sessionID, text string) error {
		fmt.Printf("[%s] %s\n", sessionID, text)
		return nil
	})

	engine := chatflow.New(printer, chatflow.WithResolver(intent.KeywordResolver{}))

	graph, err := file.Parse([]byte(weatherFlow))
	if err != nil {
		log.Fatal(err)
	}
	if err := engine.Install(ctx, graph); err != nil {
		log.Fatal(err)
	}

	_ = engine.Connect(ctx, "alice")
	_ = engine.Message(ctx, "alice", "tell me a joke")
	_ = engine.Message(ctx, "alice", "get news")
	_ = engine.Disconnect(ctx, "alice")

	// Output:
	// [alice] Welcome!
	// [alice] Sorry, I didn't understand.
	// [alice] Nothing new today.
}

// ExampleNew_unconfigured shows what a user sees before any flow is installed.
func ExampleNew_unconfigured() {
	ctx := context.Background()
	printer := ports.SenderFunc(func(_ context.Context, _, text string) error {
		fmt.Println(text)
		return nil
	})

	engine := chatflow.New(printer)
	err := engine.Connect(ctx, "bob")
	fmt.Println(err)

	// Output:
	// Chatbot not configured. Please upload a flow.
	// chatbot not configured
}
