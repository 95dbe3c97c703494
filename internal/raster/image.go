// internal/raster/image.go
package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"printer-service/internal/model"
)

// DefaultMaxWidth is the dot width of common 58mm thermal heads
const DefaultMaxWidth = 384

// Image holds an 8-bit grayscale intensity buffer sized for printing.
// Width never exceeds MaxWidth once constructed.
type Image struct {
	pix      []byte
	width    int
	height   int
	maxWidth int
}

// New wraps a grayscale buffer, downscaling it with a Lanczos filter when
// it is wider than maxWidth. Narrower images are kept as is.
func New(pix []byte, width, height, maxWidth int) (*Image, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if width <= 0 || height <= 0 {
		return nil, model.NewError(model.ErrDecodeFailure, "", "rasterize",
			fmt.Errorf("invalid dimensions %dx%d", width, height))
	}
	if (min(width, maxWidth)+7)/8 > maxWidthBytes {
		return nil, model.NewError(model.ErrDecodeFailure, "", "rasterize",
			fmt.Errorf("width %d exceeds the raster header limit", min(width, maxWidth)))
	}
	if len(pix) != width*height {
		return nil, model.NewError(model.ErrDecodeFailure, "", "rasterize",
			fmt.Errorf("buffer holds %d pixels, want %d", len(pix), width*height))
	}

	img := &Image{
		pix:      append([]byte(nil), pix...),
		width:    width,
		height:   height,
		maxWidth: maxWidth,
	}
	if width > maxWidth {
		img.resize()
	}
	return img, nil
}

// FromImage converts any decoded image to grayscale, flattening
// transparency onto white paper.
func FromImage(src image.Image, maxWidth int) (*Image, error) {
	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)

	gray := image.NewGray(canvas.Bounds())
	draw.Draw(gray, gray.Bounds(), canvas, image.Point{}, draw.Src)

	return New(grayPixels(gray), gray.Rect.Dx(), gray.Rect.Dy(), maxWidth)
}

// Decode reads a PNG, JPEG, GIF, BMP or WebP stream
func Decode(r io.Reader, maxWidth int) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, model.NewError(model.ErrDecodeFailure, "", "decode image", err)
	}
	return FromImage(src, maxWidth)
}

// Open decodes the image file at path
func Open(path string, maxWidth int) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrDecodeFailure, "", "open image", err)
	}
	defer f.Close()
	return Decode(f, maxWidth)
}

func (img *Image) Width() int    { return img.width }
func (img *Image) Height() int   { return img.height }
func (img *Image) MaxWidth() int { return img.maxWidth }

func (img *Image) resize() {
	newHeight := int(math.Round(float64(img.height) * float64(img.maxWidth) / float64(img.width)))
	if newHeight < 1 {
		newHeight = 1
	}

	src := &image.Gray{
		Pix:    img.pix,
		Stride: img.width,
		Rect:   image.Rect(0, 0, img.width, img.height),
	}
	dst := imaging.Resize(src, img.maxWidth, newHeight, imaging.Lanczos)

	pix := make([]byte, img.maxWidth*newHeight)
	for y := 0; y < newHeight; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < img.maxWidth; x++ {
			pix[y*img.maxWidth+x] = row[x*4]
		}
	}

	img.pix = pix
	img.width = img.maxWidth
	img.height = newHeight
}

func grayPixels(g *image.Gray) []byte {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if g.Stride == w {
		return g.Pix[:w*h]
	}
	pix := make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		pix = append(pix, g.Pix[y*g.Stride:y*g.Stride+w]...)
	}
	return pix
}
