package ocrviz

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/unixpickle/anyocr"
	"github.com/unixpickle/anyocr/ocrdata"
	"github.com/unixpickle/anyocr/ocrtrain"
)

func countColor(img *image.RGBA, c color.RGBA) int {
	var n int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestLearningCurve(t *testing.T) {
	h := &ocrtrain.History{
		TrainLoss: []float64{12, 8, 5, 4},
		ValidLoss: []float64{11, 9, 7, 7.5},
	}
	img := LearningCurve(h)
	if img.Bounds().Dx() != curveWidth || img.Bounds().Dy() != curveHeight {
		t.Errorf("unexpected size: %v", img.Bounds())
	}
	for _, c := range []color.RGBA{LossColor, ValidLossColor} {
		if countColor(img, c) == 0 {
			t.Errorf("no pixels with color %v", c)
		}
	}
}

func TestLearningCurveDegenerate(t *testing.T) {
	histories := []*ocrtrain.History{
		{},
		{TrainLoss: []float64{3}, ValidLoss: []float64{3}},
		{TrainLoss: []float64{math.NaN(), 2}, ValidLoss: []float64{math.Inf(1), 1}},
	}
	for i, h := range histories {
		if img := LearningCurve(h); img.Bounds().Empty() {
			t.Errorf("history %d: empty image", i)
		}
	}
}

func TestWriteLearningCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	h := &ocrtrain.History{TrainLoss: []float64{2, 1}, ValidLoss: []float64{2.5, 1.5}}
	if err := WriteLearningCurve(path, h); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != curveWidth || cfg.Height != curveHeight {
		t.Errorf("unexpected size: %dx%d", cfg.Width, cfg.Height)
	}

	if err := WriteLearningCurve(filepath.Join(t.TempDir(), "none", "curve.png"), h); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestPredictionGrid(t *testing.T) {
	tensor := &anyocr.ImageTensor{Width: 20, Height: 6, Data: make([]float64, 120)}
	preds := []*ocrtrain.Prediction{
		{Sample: &ocrdata.Sample{Label: "ANNA"}, Image: tensor, Predicted: "ANNA"},
		{Sample: &ocrdata.Sample{Label: "BOB"}, Image: tensor, Predicted: "B0B"},
		{Sample: &ocrdata.Sample{Label: "ZOE"}, Image: tensor, Predicted: "ZOE"},
	}
	img := PredictionGrid(preds, 2)
	cellWidth := titleWidth(preds[0]) + gridPadding
	cellHeight := tensor.Height*GridScale + gridLineHeight*gridTitleLines + gridPadding
	expected := image.Rect(0, 0, 2*cellWidth+gridPadding, 2*cellHeight+gridPadding)
	if img.Bounds() != expected {
		t.Errorf("expected bounds %v but got %v", expected, img.Bounds())
	}
	if countColor(img, mistakeColor) == 0 {
		t.Error("mistake was not highlighted")
	}
	top := gridPadding + gridLineHeight*gridTitleLines
	if img.RGBAAt(gridPadding, top) != (color.RGBA{A: 0xff}) {
		t.Errorf("expected a black pixel but got %v", img.RGBAAt(gridPadding, top))
	}
}
