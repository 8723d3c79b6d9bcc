// Package log provides structured protocol event logging for cast
// channels.
//
// Channels emit an Event for every state transition, frame, control
// message, and error. Applications choose a sink: NoopLogger discards,
// SlogAdapter bridges to log/slog, MultiLogger fans out, and Ring keeps
// a bounded in-memory history that is handed to the delegate when a
// channel fails, so error reports carry the events leading up to the
// failure.
package log
