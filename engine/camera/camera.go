package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix              [16]float32
	cameraToWorldMatrix     [16]float32
	projectionMatrix        [16]float32
	inverseProjectionMatrix [16]float32

	controller Controller
}

// Camera holds perspective settings and the matrices a raytracing kernel needs to turn a pixel
// into a world-space ray: the camera-to-world transform and the inverse projection.
//
// Position and look-at target come from an attached Controller; Update re-reads them.
type Camera interface {
	// Up returns the camera's up vector.
	Up() (x, y, z float32)

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the world-to-camera matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// CameraToWorldMatrix returns the camera-to-world matrix (column-major), the inverse of
	// ViewMatrix. Its translation column is the camera position.
	//
	// Returns:
	//   - [16]float32: the camera-to-world matrix
	CameraToWorldMatrix() [16]float32

	// ProjectionMatrix returns the perspective projection (column-major, [0,1] depth).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// InverseProjectionMatrix returns the inverse of ProjectionMatrix (column-major). It maps
	// clip-space points back to camera space.
	//
	// Returns:
	//   - [16]float32: the inverse projection matrix
	InverseProjectionMatrix() [16]float32

	// Controller returns the attached Controller, or nil.
	Controller() Controller

	// Update re-reads position and target from the controller and recomputes matrices.
	// Does nothing when no controller is attached.
	Update()

	// SetUp sets the camera's up vector.
	SetUp(x, y, z float32)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio, ignored when not positive
	SetAspect(aspect float32)

	// SetViewport sets the aspect ratio from a viewport size. Zero sizes are ignored so a
	// minimized window keeps the last valid projection.
	//
	// Parameters:
	//   - width, height: viewport size in pixels
	SetViewport(width, height int)

	// SetNear sets the near clipping plane distance.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	SetFar(far float32)

	// SetController attaches a Controller and recomputes matrices from it.
	SetController(ctrl Controller)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with a 60 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		up:     [3]float32{0, 1, 0},
		fov:    60.0 * (math.Pi / 180.0),
		aspect: 16.0 / 9.0,
		near:   0.1,
		far:    1000.0,
	}
	common.Identity(c.viewMatrix[:])
	common.Identity(c.cameraToWorldMatrix[:])
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) CameraToWorldMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraToWorldMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Controller() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.SetAspect(float32(width) / float32(height))
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

// updateMatrices recomputes all four matrices. Without a controller the camera sits at the
// origin looking down -Z. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil {
		px, py, pz := c.controller.Position()
		tx, ty, tz := c.controller.Target()
		common.LookAt(c.viewMatrix[:],
			px, py, pz,
			tx, ty, tz,
			c.up[0], c.up[1], c.up[2],
		)
		common.InvertRigid(c.cameraToWorldMatrix[:], c.viewMatrix[:])
	}

	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	if !common.Invert4(c.inverseProjectionMatrix[:], c.projectionMatrix[:]) {
		common.Identity(c.inverseProjectionMatrix[:])
	}
}
