// Package wire defines the JSON documents exchanged with the validation
// service and the codec used on stream transports.
//
// Each connection carries one request document and at most one response
// document. A request is a single self-delimiting JSON value bounded by a
// caller-supplied byte limit; the decoder keeps reading until the value is
// complete, so a request split over several transport reads is accepted.
// Anything after the first value is ignored. A response is one JSON value
// followed by a newline.
package wire
