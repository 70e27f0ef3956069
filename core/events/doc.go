// Package events defines the engine events emitted on the event bus.
//
// Available event types:
//   - JobEvent: optimization job lifecycle transition or progress
//   - CycleEvent: scheduler trigger outcome
//   - SnapshotEvent: new operational snapshot published
//   - SelectionEvent: strategy chosen for a cycle
package events
