// Package config provides parsing, merging, and generation of the
// aios-core configuration document.
//
// # Overview
//
// The configuration document is a restricted, line-oriented key/value
// format: blank lines and "#" comments are ignored, and every content
// line is "<indent><key>: <value>", where an empty value opens a
// nested mapping scoped by indentation. There are no lists, no
// multi-line block scalar bodies, and no anchors.
//
// Key components:
//   - Parser: document text → Tree, never failing (best-effort)
//   - Merge: deep merge that preserves existing scalar values
//   - Generator: Tree → document text, deterministic sorted output
//
// # Best-effort parsing
//
// The parser never raises an error. Lines outside the grammar are
// dropped, counted in ParseResult.Skipped, and reported through the
// pluggable Logger. This keeps the engine forward-compatible with
// richer documents at the cost of lossiness: anything the grammar
// cannot model is simply absent from the resulting Tree. Callers that
// persist a parsed tree therefore persist only the modeled subset.
//
// # Value model
//
// Scalars are coerced exactly once, at parse time, into a tagged Value
// (bool, int, float, or string; mappings are nested Trees). The tag
// travels with the value, so nothing downstream re-interprets "2.0" or
// "false" from their textual form.
//
// # Merge semantics
//
// Merge(current, incoming) adds structure and new keys from incoming
// while keeping every scalar already set in current. It is pure (both
// inputs are cloned, never mutated) and idempotent.
//
// # Round trip
//
// For any Tree restricted to the supported grammar,
// Parse(Generate(tree)) yields a structurally equal Tree. The
// generator quotes strings whose bare form would coerce to another
// kind on re-parse.
package config
