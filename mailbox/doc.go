// Package mailbox contains concrete MessagingService implementations. The
// service interface and the Email record reside in the core package; depend
// on core.MessagingService in your code and select an implementation (like
// the in‑memory mailbox below) at wiring time.
package mailbox
