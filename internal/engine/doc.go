// Package engine implements the wave lifecycle: creation, proximity
// queries, joins with exactly-once quorum unlock, deletion and the
// background sweep.
//
// ARCHITECTURE:
//
// Request-per-call:
// Every operation runs on the caller's goroutine. The only cross-request
// coordination is the join path, and it lives entirely inside the store's
// TryAddParticipant transaction scoped to one wave row.
//
// Join Flow:
// 1. Coordinator.Join calls TryAddParticipant (membership is durable here)
// 2. The single call that crossed the threshold already holds the unlock lease
// 3. The lease holder lists participants and asks the chat provisioner for a
//    room, keyed by the wave id, outside any transaction
// 4. SetUnlocked flips the wave exactly once and records the room
// 5. Members that joined while the room was being created are added to it
//
// A provisioning failure never fails the join. The lease is released and the
// wave stays "pending unlock" until the next join or the Sweeper claims it
// again.
//
// Expiry is lazy. Reads filter on expires_at; the Sweeper only purges waves
// long past expiry.
package engine
