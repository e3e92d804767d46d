// Package sandbox runs untrusted plugin algorithm source without granting it
// access to the host filesystem, process, or network.
//
// The isolation primitive is gopher-lua: each invocation executes the
// algorithm's Lua source on a fresh state that exposes only an allow-listed
// set of globals. A single worker goroutine owns all Lua execution; the
// Executor multiplexes concurrent callers onto it with correlation ids and
// enforces a caller-side round-trip timeout on top of the worker-side
// execution timeout.
//
// A crash of the worker (a panic escaping the per-call recovery) rejects
// every pending request and marks the executor unavailable. It does not
// restart itself: a restarted worker would still need all algorithm sources
// re-registered by the plugin manager.
package sandbox
