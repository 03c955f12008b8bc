package inject

import (
	"context"

	"go.viam.com/markernav/actuation"
)

// Camera is an injected camera.
type Camera struct {
	actuation.Camera
	TakePictureFunc func(ctx context.Context) (actuation.Picture, error)
}

// TakePicture calls the injected TakePicture or the real version.
func (c *Camera) TakePicture(ctx context.Context) (actuation.Picture, error) {
	if c.TakePictureFunc == nil {
		return c.Camera.TakePicture(ctx)
	}
	return c.TakePictureFunc(ctx)
}
