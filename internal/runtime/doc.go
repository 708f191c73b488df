// Package runtime implements the flow engine: it reacts to connect, message and disconnect
// events by walking the installed flow graph, suspending each session at intent detection blocks.
//
// The only state kept between events is the suspended block id in the session registry.
// Events of one session are serialised; sessions never block each other.
package runtime
