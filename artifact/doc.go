// Package artifact contains concrete implementations of core.AssetRepository,
// the remote of record used by the persistence bridge.
//
// The canonical AssetRepository interface lives in the core package to avoid
// dependency cycles and keep domain contracts central. Implementation packages
// like this one (in‑memory) and its sub‑packages (sqlite, redis) provide
// storage backends that can be swapped without touching calling code.
//
// Every backend returns the canonical server representation: a fresh server
// id on create, READY status, server-side timestamps and a version that grows
// with each update.
package artifact
