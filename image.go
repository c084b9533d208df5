package anyocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// A DecodeError indicates that image data could not be
// decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (d *DecodeError) Error() string {
	if d.Path == "" {
		return "decode image: " + d.Err.Error()
	}
	return "decode image " + d.Path + ": " + d.Err.Error()
}

func (d *DecodeError) Unwrap() error {
	return d.Err
}

// An ImageTensor is a single-channel image stored in
// width-major order, so that the first tensor dimension
// runs along the horizontal axis of the image.
//
// The value of pixel (x, y) is Data[x*Height+y].
// Values range from 0 to 1.
type ImageTensor struct {
	Width  int
	Height int
	Data   []float64
}

// Vector converts the tensor to a vector.
func (i *ImageTensor) Vector(c anyvec.Creator) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(i.Data))
}

// At returns the value of pixel (x, y).
func (i *ImageTensor) At(x, y int) float64 {
	return i.Data[x*i.Height+y]
}

// Image converts the tensor back to a grayscale image in
// the usual orientation.
// Values are clipped between 0 and 1.
func (i *ImageTensor) Image() *image.Gray {
	res := image.NewGray(image.Rect(0, 0, i.Width, i.Height))
	for x := 0; x < i.Width; x++ {
		for y := 0; y < i.Height; y++ {
			val := i.At(x, y)
			if val < 0 {
				val = 0
			} else if val > 1 {
				val = 1
			}
			res.SetGray(x, y, color.Gray{Y: uint8(val*0xff + 0.5)})
		}
	}
	return res
}

// An ImagePreprocessor converts raster images into
// fixed-size ImageTensors.
type ImagePreprocessor struct {
	Width  int
	Height int
}

// NewImagePreprocessor creates an ImagePreprocessor for
// the image size in a Config.
func NewImagePreprocessor(c *Config) *ImagePreprocessor {
	return &ImagePreprocessor{Width: c.ImageWidth, Height: c.ImageHeight}
}

// Preprocess decodes and normalizes encoded image data.
//
// If the data cannot be decoded, a *DecodeError is
// returned.
func (p *ImagePreprocessor) Preprocess(data []byte) (*ImageTensor, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return p.PreprocessImage(img), nil
}

// PreprocessFile reads and preprocesses an image file.
func (p *ImagePreprocessor) PreprocessFile(path string) (*ImageTensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("preprocess "+path, err)
	}
	res, err := p.Preprocess(data)
	if err != nil {
		err.(*DecodeError).Path = path
		return nil, err
	}
	return res, nil
}

// PreprocessImage converts the image to grayscale, resizes
// it with bilinear interpolation, scales intensities into
// [0, 1], and transposes it into width-major order.
func (p *ImagePreprocessor) PreprocessImage(img image.Image) *ImageTensor {
	if p.Width <= 0 || p.Height <= 0 {
		panic(fmt.Sprintf("invalid target size: %dx%d", p.Width, p.Height))
	}
	gray := image.NewGray16(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)

	resized := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	draw.BiLinear.Scale(resized, resized.Bounds(), gray, gray.Bounds(), draw.Src, nil)

	res := &ImageTensor{
		Width:  p.Width,
		Height: p.Height,
		Data:   make([]float64, p.Width*p.Height),
	}
	idx := 0
	for x := 0; x < p.Width; x++ {
		for y := 0; y < p.Height; y++ {
			res.Data[idx] = float64(resized.Gray16At(x, y).Y) / 0xffff
			idx++
		}
	}
	return res
}
