// Package wave defines the domain types shared by the store, the engine and
// the transport layers: waves, participants, the activity catalog, query time
// windows and the error taxonomy.
//
// A Wave is an ephemeral declaration of intent ("anyone up for a run at the
// park in an hour?"). Its creator is its first participant. Once
// ParticipantCount reaches Threshold the wave unlocks exactly once and gains
// a ChatRoomID. Waves expire lazily: an expired wave stays in storage but is
// invisible to joins and proximity queries.
//
// Invariants maintained by the store and engine:
//   - ParticipantCount equals the number of participant rows for the wave.
//   - IsUnlocked implies ParticipantCount >= Threshold, and never reverts.
//   - ChatRoomID is non-empty iff IsUnlocked.
//   - ExpiresAt is after StartedAt.
//
// A wave with ParticipantCount >= Threshold that is not yet unlocked is
// "pending unlock": provisioning its room failed or is in flight, and a later
// join or the sweeper will finish it.
package wave
