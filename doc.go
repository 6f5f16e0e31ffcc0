// Package landkeeper implements an authoritative, single-writer state
// tree runtime for multiplayer and session services. A LandKeeper owns
// one land's state tree, advances it on a fixed tick cadence, and uses a
// SyncEngine to emit per-observer snapshots and diffs subject to each
// field's SyncPolicy. Every tick's inputs and outputs can be recorded by
// a ReevaluationRecorder and later replayed by a ReevaluationEngine to
// verify the land produced the same state deterministically.
package landkeeper
