// Package executor contains the executor registry and the built-in executors
// for the closed set of agent types.
//
// The registry is an immutable table assembled once at startup. Adding a new
// agent type means implementing core.Executor and registering it; the
// controller never changes.
//
//	reg := executor.DefaultRegistry(mailbox.New(...))
//	ex, err := reg.Lookup(core.AgentTypeEmailAccess)
package executor
