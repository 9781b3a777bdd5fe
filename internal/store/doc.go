// Package store provides SQL-backed durable storage for waves and their
// participants.
//
// Every operation that has to be atomic runs in a single transaction that
// locks the wave row first (FOR UPDATE on PostgreSQL; SQLite serializes
// through its single connection):
//   - TryAddParticipant inserts the membership row, recounts, updates the
//     cached count, and reports whether this call crossed the threshold
//   - CreateWave writes the wave and its creator's participant row together
//   - DeleteWave and PurgeExpired remove participants before the wave
//
// # Unlock lease
//
// The call that crosses the threshold also takes a short lease on the
// unlock (unlock_lease_until). Only the lease holder provisions a chat
// room. ClaimUnlock hands out a fresh lease for a wave whose previous
// attempt failed or timed out, and SetUnlocked only applies while the wave
// is still locked, so is_unlocked flips false to true exactly once.
//
// # Database Configuration
//
// SQLite (default):
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// PostgreSQL is selected with OpenPostgres. Queries are written with "?"
// placeholders and rebound to "$n" for it.
//
// All timestamps are stored as Unix milliseconds.
package store
