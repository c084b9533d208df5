package anyocr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImagePreprocessorShape(t *testing.T) {
	p := &ImagePreprocessor{Width: 20, Height: 8}
	for _, size := range [][2]int{{20, 8}, {7, 3}, {100, 31}, {1, 1}, {8, 20}} {
		img := image.NewGray(image.Rect(0, 0, size[0], size[1]))
		tensor, err := p.Preprocess(encodePNG(t, img))
		if err != nil {
			t.Fatal(err)
		}
		if tensor.Width != 20 || tensor.Height != 8 || len(tensor.Data) != 20*8 {
			t.Errorf("size %v: got %dx%d with %d values", size, tensor.Width,
				tensor.Height, len(tensor.Data))
		}
	}
}

func TestImagePreprocessorTranspose(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	img.SetGray(3, 0, color.Gray{Y: 0xff})
	img.SetGray(1, 1, color.Gray{Y: 0x80})

	p := &ImagePreprocessor{Width: 4, Height: 2}
	tensor := p.PreprocessImage(img)

	if tensor.Data[3*2+0] != 1 {
		t.Errorf("expected 1 at (3, 0) but got %f", tensor.Data[3*2+0])
	}
	if math.Abs(tensor.At(1, 1)-float64(0x8080)/0xffff) > 1e-6 {
		t.Errorf("unexpected value at (1, 1): %f", tensor.At(1, 1))
	}
	for i, x := range tensor.Data {
		if i != 3*2+0 && i != 1*2+1 && x != 0 {
			t.Errorf("index %d: expected 0 but got %f", i, x)
		}
	}

	back := tensor.Image()
	if back.Bounds().Dx() != 4 || back.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds: %v", back.Bounds())
	}
	if back.GrayAt(3, 0).Y != 0xff || back.GrayAt(1, 1).Y != 0x80 {
		t.Error("image round trip changed values")
	}
}

func TestImagePreprocessorRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 37, 13))
	for x := 0; x < 37; x++ {
		for y := 0; y < 13; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 19), B: 0x33, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	p := &ImagePreprocessor{Width: 16, Height: 4}
	tensor, err := p.Preprocess(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	for i, x := range tensor.Data {
		if x < 0 || x > 1 {
			t.Errorf("index %d: value %f out of range", i, x)
		}
	}
	vec := tensor.Vector(anyvec32.CurrentCreator())
	if vec.Len() != 16*4 {
		t.Errorf("expected vector length %d but got %d", 16*4, vec.Len())
	}
}

func TestImagePreprocessorDecodeError(t *testing.T) {
	p := &ImagePreprocessor{Width: 4, Height: 4}
	_, err := p.Preprocess([]byte("not an image"))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError but got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.jpg")
	if err := os.WriteFile(path, []byte{0xff, 0xd8, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}
	_, err = p.PreprocessFile(path)
	if !errors.As(err, &decodeErr) || decodeErr.Path != path {
		t.Errorf("expected *DecodeError for %s but got %v", path, err)
	}

	_, err = p.PreprocessFile(filepath.Join(t.TempDir(), "missing.png"))
	if err == nil || errors.As(err, &decodeErr) {
		t.Errorf("expected a read error but got %v", err)
	}
}
