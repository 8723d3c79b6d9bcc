// Package transport implements the cast channel transport layer:
// length-prefixed message framing over TLS, connection establishment
// with certificate pinning, and connection liveness monitoring.
//
// Every frame on the wire is a 4-byte big-endian length prefix followed
// by a CBOR-encoded message body. Frames larger than the configured
// maximum are rejected without buffering the body.
package transport
