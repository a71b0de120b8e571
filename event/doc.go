// Package event provides the change-notification plumbing shared by the
// workspace, provider and registry packages.
//
// Emitter is the in-process, synchronous listener list every source exposes
// through an OnChanged method. Bus relays selected events to consumers that
// live outside the engine, such as the SSE stream and the CLI watch command,
// over a watermill gochannel.
package event
