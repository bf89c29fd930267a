// Package mock provides test doubles for the ai package.
// The mock embedder is deterministic (same text, same vector) so tests can
// assert idempotence, and supports behavior injection via function fields.
package mock
