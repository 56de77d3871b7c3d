// Package session owns the process-wide table of live interview sessions.
// The registry is the sole owner of session lifecycle: creation on connect,
// lookup while events arrive, and removal on disconnect, terminal state, or
// inactivity timeout.
package session
