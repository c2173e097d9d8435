// Package types defines shared Go types used by the rateboost agent, its
// HTTP/WebSocket surfaces and the status client. These are the canonical
// in-memory representations of attachment state, separate from the
// Prometheus exposition format.
package types
