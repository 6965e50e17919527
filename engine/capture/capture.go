// Package capture saves presented frames as WebP screenshots without stalling the render loop.
package capture

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/HugoSmits86/nativewebp"
)

// TargetReader copies a render target to host memory. renderer.Renderer satisfies it.
type TargetReader interface {
	ReadTarget(target renderer.RenderTarget) ([]float32, error)
}

// Result reports one finished capture.
type Result struct {
	Path  string
	Frame uint64
	Err   error
}

// Capturer is a raytracer.FrameObserver that writes the next presented frame to disk when
// asked. The readback happens on the render goroutine; tone mapping and encoding run on a
// worker pool.
type Capturer interface {
	raytracer.FrameObserver

	// Request queues a capture of the next presented frame to path. Several requests before the
	// same frame all receive that frame.
	//
	// Parameters:
	//   - path: the output .webp file; missing directories are created
	Request(path string)

	// Pending returns the number of requests waiting for a frame.
	Pending() int

	// Wait blocks until every capture handed to the pool has been written.
	//
	// Returns:
	//   - error: the joined errors of captures that failed since the last Wait
	Wait() error

	// Close waits for outstanding captures and stops the worker pool. Later calls only Wait.
	Close() error
}

type capturer struct {
	mu *sync.Mutex

	reader TargetReader
	pool   worker.DynamicWorkerPool
	wg     sync.WaitGroup
	stop   sync.Once

	pending []string
	errs    []error
	taskID  int

	// options
	workers  int
	exposure float32
	onResult func(Result)
}

var _ Capturer = &capturer{}

// NewCapturer creates a Capturer reading frames through reader.
//
// Parameters:
//   - reader: the readback source, usually the renderer
//   - options: functional options
//
// Returns:
//   - Capturer: the capturer
func NewCapturer(reader TargetReader, options ...CapturerBuilderOption) Capturer {
	c := &capturer{
		mu:       &sync.Mutex{},
		reader:   reader,
		workers:  2,
		exposure: 1,
	}
	for _, opt := range options {
		opt(c)
	}
	c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	return c
}

func (c *capturer) Request(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, path)
}

func (c *capturer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *capturer) Observe(frame raytracer.Frame) {
	c.mu.Lock()
	paths := c.pending
	c.pending = nil
	c.mu.Unlock()
	if len(paths) == 0 || frame.Target == nil {
		if len(paths) > 0 {
			c.requeue(paths)
		}
		return
	}

	w, h := frame.Target.Width(), frame.Target.Height()
	pixels, err := c.reader.ReadTarget(frame.Target)
	if err != nil {
		for _, p := range paths {
			c.finish(Result{Path: p, Frame: frame.Stats.Frame, Err: fmt.Errorf("capture: readback: %w", err)})
		}
		return
	}

	c.wg.Add(1)
	c.mu.Lock()
	id := c.taskID
	c.taskID++
	c.mu.Unlock()
	exposure := c.exposure
	c.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer c.wg.Done()
			img, err := ToNRGBA(pixels, w, h, exposure)
			var firstErr error
			for _, p := range paths {
				writeErr := err
				if writeErr == nil {
					writeErr = writeWebP(p, img)
				}
				firstErr = common.Coalesce(firstErr, writeErr)
				c.finish(Result{Path: p, Frame: frame.Stats.Frame, Err: writeErr})
			}
			return nil, firstErr
		},
	})
}

func (c *capturer) requeue(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(paths, c.pending...)
}

func (c *capturer) finish(r Result) {
	if r.Err != nil {
		c.mu.Lock()
		c.errs = append(c.errs, fmt.Errorf("%s: %w", r.Path, r.Err))
		c.mu.Unlock()
		common.Logger().Warn("capture failed", "path", r.Path, "frame", r.Frame, "error", r.Err)
	} else {
		common.Logger().Info("frame captured", "path", r.Path, "frame", r.Frame)
	}
	if c.onResult != nil {
		c.onResult(r)
	}
}

func (c *capturer) Wait() error {
	c.wg.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	err := errors.Join(c.errs...)
	c.errs = nil
	return err
}

func (c *capturer) Close() error {
	err := c.Wait()
	c.stop.Do(c.pool.Stop)
	return err
}

func writeWebP(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("encode webp: %w", err)
	}
	return f.Close()
}

// ToNRGBA tone maps linear float RGBA texels to an 8-bit sRGB image. Color channels are scaled
// by exposure, clamped to [0, 1] and sRGB encoded; alpha is clamped and stored linearly.
//
// Parameters:
//   - pixels: width*height*4 floats, row-major from the top-left
//   - width, height: the image size
//   - exposure: the linear scale applied before clamping
//
// Returns:
//   - *image.NRGBA: the converted image
//   - error: an error if pixels does not hold exactly width*height texels
func ToNRGBA(pixels []float32, width, height int, exposure float32) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("capture: %d floats for a %dx%d image", len(pixels), width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		src := pixels[i*4 : i*4+4]
		dst := img.Pix[i*4 : i*4+4]
		dst[0] = encodeSRGB(src[0] * exposure)
		dst[1] = encodeSRGB(src[1] * exposure)
		dst[2] = encodeSRGB(src[2] * exposure)
		dst[3] = unorm8(src[3])
	}
	return img, nil
}

func encodeSRGB(v float32) uint8 {
	c := clamp01(float64(v))
	if c <= 0.0031308 {
		c *= 12.92
	} else {
		c = 1.055*math.Pow(c, 1/2.4) - 0.055
	}
	return uint8(c*255 + 0.5)
}

func unorm8(v float32) uint8 {
	return uint8(clamp01(float64(v))*255 + 0.5)
}

// clamp01 clamps to [0, 1]; NaN maps to 0.
func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return min(v, 1)
}
