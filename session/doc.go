// Package session houses the session container: the single process-local
// owner of the Asset, Agent and Message tables plus session metadata.
//
// Every write goes through Store.Dispatch (or one of the convenience methods
// built on it). A dispatch runs against a private clone of the current state
// and the clone is published only when the mutation returns nil, so readers
// and later mutations never observe a half-applied change. Snapshots returned
// by Store.Snapshot are immutable values and can be read without locking.
//
// The store never calls external collaborators and never reads the wall clock
// on update paths, which keeps repeated identical updates idempotent.
package session
