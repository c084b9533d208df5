// Package ocrviz renders training progress and
// predictions as images.
package ocrviz

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/unixpickle/anyocr/ocrtrain"
	"github.com/unixpickle/essentials"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Colors of the two curves.
var (
	LossColor      = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	ValidLossColor = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
)

const (
	curveWidth   = 640
	curveHeight  = 480
	curveMargin  = 50
	strokeWidth  = 2
	tickCount    = 5
	legendOffset = 20
)

// LearningCurve plots the training and validation loss of
// every epoch.
func LearningCurve(h *ocrtrain.History) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, curveWidth, curveHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	plot := image.Rect(curveMargin, curveMargin, curveWidth-curveMargin/2,
		curveHeight-curveMargin)
	drawText(img, "Learning Curve", curveWidth/2-7*7, curveMargin/2, color.Black)
	drawText(img, "Epochs", curveWidth/2-3*7, curveHeight-curveMargin/4, color.Black)
	drawText(img, "Loss", 4, curveMargin-8, color.Black)

	axes := color.Gray{Y: 0x40}
	strokeLine(img, axes, float32(plot.Min.X), float32(plot.Max.Y),
		float32(plot.Max.X), float32(plot.Max.Y), 1)
	strokeLine(img, axes, float32(plot.Min.X), float32(plot.Min.Y),
		float32(plot.Min.X), float32(plot.Max.Y), 1)

	minLoss, maxLoss := lossRange(h)
	project := func(epoch int, loss float64) (float32, float32) {
		x := float64(plot.Min.X)
		if h.Len() > 1 {
			x += float64(plot.Dx()) * float64(epoch) / float64(h.Len()-1)
		}
		y := float64(plot.Max.Y) - float64(plot.Dy())*(loss-minLoss)/(maxLoss-minLoss)
		return float32(x), float32(y)
	}

	for i := 0; i <= tickCount; i++ {
		loss := minLoss + (maxLoss-minLoss)*float64(i)/tickCount
		_, y := project(0, loss)
		strokeLine(img, axes, float32(plot.Min.X-4), y, float32(plot.Min.X), y, 1)
		drawText(img, fmt.Sprintf("%.2f", loss), 2, int(y)+4, color.Black)
	}
	for epoch := 0; epoch < h.Len(); epoch++ {
		x, _ := project(epoch, minLoss)
		strokeLine(img, axes, x, float32(plot.Max.Y), x, float32(plot.Max.Y+4), 1)
		drawText(img, fmt.Sprint(epoch+1), int(x)-3, plot.Max.Y+16, color.Black)
	}

	plotSeries(img, h.TrainLoss, LossColor, project)
	plotSeries(img, h.ValidLoss, ValidLossColor, project)

	legendX := plot.Max.X - 110
	for i, entry := range []struct {
		Name  string
		Color color.Color
	}{{"loss", LossColor}, {"val_loss", ValidLossColor}} {
		y := plot.Min.Y + legendOffset*(i+1)
		strokeLine(img, entry.Color, float32(legendX), float32(y-4), float32(legendX+24),
			float32(y-4), strokeWidth)
		drawText(img, entry.Name, legendX+30, y, color.Black)
	}

	return img
}

// WriteLearningCurve saves a LearningCurve as a PNG file.
func WriteLearningCurve(path string, h *ocrtrain.History) error {
	if err := WritePNG(path, LearningCurve(h)); err != nil {
		return essentials.AddCtx("write learning curve", err)
	}
	return nil
}

// WritePNG encodes an image to a PNG file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func lossRange(h *ocrtrain.History) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, series := range [][]float64{h.TrainLoss, h.ValidLoss} {
		for _, x := range series {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				continue
			}
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if hi-lo < 1e-8 {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}

func plotSeries(img draw.Image, series []float64, c color.Color,
	project func(int, float64) (float32, float32)) {
	var lastX, lastY float32
	var hasLast bool
	for i, loss := range series {
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			hasLast = false
			continue
		}
		x, y := project(i, loss)
		if hasLast {
			strokeLine(img, c, lastX, lastY, x, y, strokeWidth)
		}
		fillDot(img, c, x, y, strokeWidth+1)
		lastX, lastY, hasLast = x, y, true
	}
}

func strokeLine(img draw.Image, c color.Color, x0, y0, x1, y1, width float32) {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	b := img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.MoveTo(x0+nx, y0+ny)
	r.LineTo(x1+nx, y1+ny)
	r.LineTo(x1-nx, y1-ny)
	r.LineTo(x0-nx, y0-ny)
	r.ClosePath()
	r.Draw(img, b, image.NewUniform(c), image.Point{})
}

func fillDot(img draw.Image, c color.Color, x, y, radius float32) {
	b := img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	const sides = 12
	for i := 0; i <= sides; i++ {
		angle := 2 * math.Pi * float64(i) / sides
		px := x + radius*float32(math.Cos(angle))
		py := y + radius*float32(math.Sin(angle))
		if i == 0 {
			r.MoveTo(px, py)
		} else {
			r.LineTo(px, py)
		}
	}
	r.ClosePath()
	r.Draw(img, b, image.NewUniform(c), image.Point{})
}

func drawText(img draw.Image, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
