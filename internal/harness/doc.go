// Package harness runs YAML wave scenarios against a fully wired
// in-process engine.
//
// # Scenario Format
//
//	name: scenario_a_quorum_unlock
//	description: "Second participant unlocks a threshold-2 wave"
//	start: 2026-03-01T09:00:00Z
//	steps:
//	  - op: create
//	    as: alice
//	    ref: w1
//	    create: { activity: run, lat: 1.30, lng: 103.85, threshold: 2 }
//	    expect: { participant_count: 1, unlocked: false }
//	  - op: join
//	    as: bob
//	    wave: w1
//	    expect: { participant_count: 2, unlocked: true, chat_room: true, rooms_created: 1 }
//
// # Operations
//
//   - create: creates a wave as the actor and binds its id to ref
//   - join, delete: act on the wave bound to ref (an unbound ref is used as a raw id)
//   - nearby: proximity query; results are reported by ref
//   - advance: moves the fixed clock forward by a duration
//   - sweep: runs one sweeper pass
//   - chat_down, chat_up: make room creation fail or succeed
//   - check: reads the stored wave and counts its participant rows
//
// # Determinism
//
// Each run uses a fresh in-memory SQLite store, a fixed clock, sequential
// wave ids (wave-1, wave-2, ...) and an in-memory chat provisioner whose
// rooms are numbered room-1, room-2, ... The trace is therefore stable and
// compared against golden files in testdata/golden.
package harness
