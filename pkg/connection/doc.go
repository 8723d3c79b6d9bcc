// Package connection manages cast channel lifecycle with automatic
// reconnection.
//
// A Manager wraps a connect function and drives it through an
// exponential backoff schedule when the channel is lost:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s on successful reconnection
//
// Each delay gets random jitter of up to 25% of the base value so a
// fleet of clients does not reconnect in lockstep.
//
// Device authentication failures are treated as permanent: retrying
// with the same credentials cannot succeed, so the manager stops
// instead of hammering the device.
package connection
