// ABOUTME: Package documentation for the JSON-RPC tool-calling endpoint.

// Package mcp exposes the tool catalog over JSON-RPC 2.0 on POST /rpc.
//
// The router never throws to the transport layer: malformed payloads,
// unknown methods, and tool failures all come back as JSON-RPC envelopes.
// The request id is extracted best-effort before envelope validation so even
// invalid requests echo it, and every response carries a per-request
// correlation id for tracing failures across retries.
//
// Supported methods: initialize, tools/list, resources/list, prompts/list,
// and tools/call.
package mcp
