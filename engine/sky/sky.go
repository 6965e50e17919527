// Package sky loads and generates equirectangular environment maps for the raytracing kernel
// and uploads them as sampled textures.
package sky

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Uploader creates sampled textures. renderer.Renderer satisfies it.
type Uploader interface {
	UploadTexture(label string, stagingData common.TextureStagingData) (renderer.Texture, error)
}

// Load decodes a sky image from path. PNG, JPEG, BMP, TIFF and WebP are recognized by content.
// TGA has no signature and is picked by the .tga extension. Images whose longer edge exceeds
// maxDim are scaled down to fit, keeping the aspect ratio; maxDim 0 disables scaling.
//
// Parameters:
//   - path: the image file
//   - maxDim: the largest allowed edge, usually Renderer.MaxTextureDimension2D
//
// Returns:
//   - *image.NRGBA: the decoded image
//   - error: an error if the file cannot be read or decoded
func Load(path string, maxDim int) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sky: open %s: %w", path, err)
	}
	defer f.Close()

	var img *image.NRGBA
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		img, err = decodeTGA(f, maxDim)
	} else {
		img, err = Decode(f, maxDim)
	}
	if err != nil {
		return nil, fmt.Errorf("sky: %s: %w", path, err)
	}
	return img, nil
}

// Decode is Load over a reader, for the formats recognized by content.
func Decode(r io.Reader, maxDim int) (*image.NRGBA, error) {
	src, format, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	b := src.Bounds()
	common.Logger().Debug("sky decoded", "format", format, "width", b.Dx(), "height", b.Dy())
	return Fit(toNRGBA(src), maxDim), nil
}

func decodeTGA(r io.Reader, maxDim int) (*image.NRGBA, error) {
	src, err := tga.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("decode tga: %w", err)
	}
	return Fit(toNRGBA(src), maxDim), nil
}

// Fit scales img down with Catmull-Rom so neither edge exceeds maxDim. Images already within
// bounds, and maxDim <= 0, return img unchanged.
func Fit(img *image.NRGBA, maxDim int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	scale := float64(maxDim) / float64(max(w, h))
	dw := max(1, int(float64(w)*scale+0.5))
	dh := max(1, int(float64(h)*scale+0.5))
	dst := image.NewNRGBA(image.Rect(0, 0, min(dw, maxDim), min(dh, maxDim)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// toNRGBA converts any decoded image to NRGBA with its origin at (0, 0).
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Gradient returns a procedural equirectangular sky: zenith at the top row fading to horizon
// at the middle row, and a ground at half the horizon's brightness below it.
//
// Parameters:
//   - width, height: the image size, clamped to at least 1x2
//   - horizon: the color at the horizon line
//   - zenith: the color straight up
//
// Returns:
//   - *image.NRGBA: the sky image
func Gradient(width, height int, horizon, zenith color.NRGBA) *image.NRGBA {
	width = max(width, 1)
	height = max(height, 2)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	ground := color.NRGBA{R: horizon.R / 2, G: horizon.G / 2, B: horizon.B / 2, A: 255}
	half := float64(height-1) / 2

	for y := range height {
		var c color.NRGBA
		if float64(y) <= half {
			c = lerp(zenith, horizon, float64(y)/half)
		} else {
			c = ground
		}
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = c.R, c.G, c.B, 255
		}
	}
	return img
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// Upload copies img into a new sRGB texture.
//
// Parameters:
//   - u: the texture factory, usually the renderer
//   - img: the sky image
//
// Returns:
//   - renderer.Texture: the texture, owned by the caller
//   - error: an error if the upload fails
func Upload(u Uploader, img *image.NRGBA) (renderer.Texture, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("sky: empty image")
	}
	pixels := make([]byte, w*h*4)
	for y := range h {
		start := img.PixOffset(img.Bounds().Min.X, img.Bounds().Min.Y+y)
		copy(pixels[y*w*4:(y+1)*w*4], img.Pix[start:start+w*4])
	}
	tex, err := u.UploadTexture("Sky", common.TextureStagingData{
		Pixels: pixels,
		Width:  uint32(w),
		Height: uint32(h),
	})
	if err != nil {
		return nil, fmt.Errorf("sky: upload %dx%d: %w", w, h, err)
	}
	return tex, nil
}
