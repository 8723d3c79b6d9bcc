// Package wire defines the cast channel message model and its CBOR
// encoding.
//
// Every frame on a cast channel carries exactly one Message: a
// namespace string that routes the payload, optional source and
// destination transport identifiers, and a payload that is either
// UTF-8 text or opaque binary.
//
// Two namespaces are owned by the channel itself and never reach the
// application: the device-auth namespace used during the connect
// handshake, and the heartbeat namespace used for liveness pings.
//
// Encoding is CBOR with integer map keys. The encoder is configured
// for deterministic output; the decoder is lenient for forward
// compatibility.
package wire
