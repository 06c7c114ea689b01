// Package tracking gives raw per-frame detections a short-lived identity.
//
// Responsibilities: greedy nearest-neighbour association of detection
// centres to live tracks inside a gate radius, monotonic id allocation and
// age-based eviction.
// Key types: Registry, Track, Tracked.
//
// The registry is owned by the control loop; its mutex only serialises the
// occasional reader (HTTP API, overlay trails).
package tracking
