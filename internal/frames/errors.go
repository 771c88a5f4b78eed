package frames

import "errors"

// ErrConventionMismatch is returned when a transform is applied to a record
// that is not in the transform's source convention, or when the declared
// handedness of the source disagrees with the transform.
var ErrConventionMismatch = errors.New("convention mismatch")
