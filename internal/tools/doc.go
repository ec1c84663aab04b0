// ABOUTME: Package documentation for the tool registry and executor.
// ABOUTME: Explains the invocation pipeline and the unified error taxonomy.

// Package tools implements the typed tool catalog the gateway exposes to
// LLM-driven clients, and the executor that runs calls against it.
//
// # Pipeline
//
// Every invocation passes through the same stages:
//
//  1. Alias resolution: legacy snake_case names map onto canonical
//     dotted names; the registry itself stays alias-free.
//  2. Auth gate: tools declaring AuthRequired refuse anonymous calls.
//  3. Schema coercion: arguments are validated and coerced against the
//     tool's input schema (see the schema package).
//  4. Normalization: unit synonyms, trimming, and limit clamping.
//  5. DTO decode: the coerced map is decoded into a typed struct and
//     checked against required/enum struct tags.
//  6. Handler dispatch, with domain errors folded into the taxonomy.
//
// # Error Taxonomy
//
// All failures surface as *Error with one of five stable kinds:
// VALIDATION_ERROR, NOT_FOUND, DRAFT_INCOMPLETE, AUTH_REQUIRED, and
// INTERNAL_ERROR. Internal details are logged with the correlation id and
// never serialized to the caller.
package tools
