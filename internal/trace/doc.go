// Package trace provides the tracing (structured logging) layer of cxxsema.
//
// Enable tracing from the command line:
//
//	cxxsema symbols --trace=- --trace-level=detail main.cc
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: nothing is streamed; the ring is dumped on failure
//   - LevelPhase: driver and pass boundaries
//   - LevelDetail: translation-unit events
//   - LevelDebug: every declare/find/lookup operation on the symbol table
//
// Spans are started with Begin and closed with End; instantaneous events use
// Point. The active tracer travels in a context.Context (WithTracer /
// FromContext).
package trace
