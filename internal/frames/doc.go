// Package frames re-expresses inertial measurements between axis conventions.
//
// Responsibilities: naming the axis conventions used on the ingestion path,
// deriving the signed-permutation transform between any two of them, and
// applying that transform to a whole InertialRecord (vectors, orientation
// quaternion and covariances) in one step.
// Key types: Convention, Transform, InertialRecord, Chain.
//
// The package is pure: no I/O, no shared state. Callers compose transforms
// explicitly; Chain is the fixed Producer → Neutral → {ConsumerA, ConsumerB}
// fan-out used by the node.
package frames
