// Package pose owns the landmark data model consumed by the biomechanics
// pipeline.
//
// Responsibilities: the 33-landmark PoseFrame layout, anatomical index
// constants, confidence helpers and small 3D vector utilities.
// Key types: Landmark, Frame, Vec3.
//
// Dependency rule: pose depends on nothing inside this module. Analysis
// packages (internal/biomech/...) depend on it, never the reverse.
package pose
