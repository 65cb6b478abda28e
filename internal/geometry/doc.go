// Package geometry models the optics of a rigid twin-camera housing.
//
// CameraProfile captures per-eye radial lens distortion (Brown model, up to
// three coefficients) plus the principal point and focal length used to
// normalize pixel coordinates. RigOffset captures the fixed mechanical
// misalignment between the two cameras. Both are immutable configuration:
// they are validated once at pipeline start and treated as read-only by the
// frame-level stages.
package geometry
