// Package session provides game sessions and the registry that owns them.
//
// The session package implements:
//   - Player seating and symbol assignment
//   - Turn order and game termination rules
//   - Thread-safe session storage keyed by short ids
//   - Per-session exclusive access for mutations
//   - Expiry sweeping of old sessions
//
// Core Types:
//
// Session holds one game's board, players and status. Its methods enforce the
// rules but are not safe for concurrent use. Manager is the registry: it owns
// every Session and is the only component allowed to call Session mutators,
// always through WithSession (or the Join/Leave helpers built on it).
//
// Session Identifiers:
//
// Sessions use 6-character ids drawn from [0-9A-Z] with crypto/rand. Lookups
// are case-insensitive. A generated id that collides with a live session is
// regenerated before insertion.
//
// Concurrency:
//
// The id map is guarded by a read/write lock and each session by its own
// mutex, so moves in different sessions proceed in parallel while moves in
// the same session are serialized in lock-acquisition order. Callers receive
// value snapshots and never hold references into the registry.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create()
//	if err != nil {
//		return err
//	}
//
//	symbol, snap, err := manager.Join(sess.ID, connID, "Alice")
//
//	err = manager.WithSession(sess.ID, func(s *session.Session) error {
//		return s.Move(connID, 1, 1)
//	})
//
// Cleanup:
//
// Sessions are deleted when their last player leaves, and RunSweeper
// periodically removes sessions older than a maximum age regardless of status.
package session
