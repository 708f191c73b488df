/*
Package dsl provides a Go DSL for constructing chatflow graphs.

It allows developers to define conversation scripts using a fluent builder instead of JSON or YAML
documents, which is handy for embedding, tests and generated flows.

Example usage:

	flow, err := dsl.New("weather-bot").
		Message("welcome").Text("Welcome!").Go("ask").
		Intent("ask").
			When("Get Weather", "sunny").
			Otherwise("sorry").
		Message("sunny").Text("It's sunny.").
		Message("sorry").Text("Sorry, I didn't understand.").Go("ask").
		Build()

The first block added is the start block unless Start is called.
*/
package dsl
