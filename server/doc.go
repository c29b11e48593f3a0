// Package server exposes the validation service on a local Unix stream
// socket.
//
// Every connection is single shot: the server reads one request document,
// writes one response document and closes. A connection whose request cannot
// be decoded, or whose response cannot be encoded or written, is closed
// without a response and counted as an error. Failures never leave the
// connection's goroutine.
//
// The number of connections handled at once is bounded by Options.MaxConns;
// the accept loop waits for a free slot before accepting, leaving further
// clients in the kernel backlog. Reads and writes carry deadlines so a stalled
// client releases its slot.
package server
