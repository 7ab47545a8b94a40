// Package notice defines the change notices emitted for a scene document and
// their merge policies.
//
// Each variant carries the minimal payload for one class of change and can
// absorb another instance of its own variant:
//
//	ContentsChanged     payload-free; any number collapse into one
//	EditTargetChanged   payload-free; any number collapse into one
//	ObjectsChanged      resynced paths, info-only paths, changed fields
//	LayerMutingChanged  muted and unmuted layers, with toggle cancellation
//	HierarchyChanged    added, removed and modified paths
//
// Notices are merged by the broker when a transaction commits. Producers may
// define further variants by implementing Notice; a variant that must never
// be collapsed returns false from Mergeable.
package notice
