package referenceframe

import "github.com/pkg/errors"

var (
	// ErrCycle is returned when an update would make a frame its own ancestor.
	ErrCycle = errors.New("frame update would create a cycle")

	// ErrFrameMissing is wrapped by errors about frames that are not in the frame system.
	ErrFrameMissing = errors.New("not in frame system")

	errNoParent = errors.New("no parent")
)

// NewParentFrameMissingError returns an error indicating that a frame is missing a parent.
func NewParentFrameMissingError() error {
	return errors.New("parent frame is nil")
}

// NewFrameMissingError returns an error indicating that the named frame is not in the frame system.
func NewFrameMissingError(name string) error {
	return errors.Wrapf(ErrFrameMissing, "frame with name %q", name)
}

// NewFrameAlreadyExistsError returns an error indicating that a frame name is taken.
func NewFrameAlreadyExistsError(name string) error {
	return errors.Errorf("frame with name %q already in frame system", name)
}
