// Package testutil contains helper builders, stubs and shared contract
// tests used across packages to reduce boilerplate when constructing core
// model objects (assets, agents) and collaborators (chat, executors). They
// are not intended for production usage.
package testutil
