package ocrviz

import (
	"image"
	"image/color"

	"github.com/unixpickle/anyocr/ocrtrain"
	"github.com/unixpickle/essentials"
	"golang.org/x/image/draw"
)

// GridScale is the factor by which images are enlarged in
// a prediction grid.
const GridScale = 2

const (
	gridPadding    = 10
	gridLineHeight = 15
	gridTitleLines = 2
	gridCharWidth  = 7
)

var mistakeColor = color.RGBA{R: 0xc0, A: 0xff}

// PredictionGrid lays out predictions in a grid with the
// given number of columns.
// Every cell shows the preprocessed image under the
// titles "True: ..." and "Pred: ...".
// Wrong predictions are titled in red.
func PredictionGrid(preds []*ocrtrain.Prediction, cols int) *image.RGBA {
	if len(preds) == 0 || cols <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	cols = min(cols, len(preds))
	rows := (len(preds) + cols - 1) / cols

	var cellWidth, cellHeight int
	for _, p := range preds {
		cellWidth = max(cellWidth, p.Image.Width*GridScale, titleWidth(p))
		cellHeight = max(cellHeight, p.Image.Height*GridScale)
	}
	cellWidth += gridPadding
	cellHeight += gridLineHeight*gridTitleLines + gridPadding

	img := image.NewRGBA(image.Rect(0, 0, cols*cellWidth+gridPadding,
		rows*cellHeight+gridPadding))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for i, p := range preds {
		x := gridPadding + (i%cols)*cellWidth
		y := gridPadding + (i/cols)*cellHeight
		titleColor := color.Color(color.Black)
		if !p.Correct() {
			titleColor = mistakeColor
		}
		drawText(img, "True: "+p.Sample.Label, x, y+gridLineHeight-3, color.Black)
		drawText(img, "Pred: "+p.Predicted, x, y+2*gridLineHeight-3, titleColor)

		top := y + gridLineHeight*gridTitleLines
		dst := image.Rect(x, top, x+p.Image.Width*GridScale, top+p.Image.Height*GridScale)
		draw.NearestNeighbor.Scale(img, dst, p.Image.Image(), image.Rect(0, 0,
			p.Image.Width, p.Image.Height), draw.Src, nil)
	}
	return img
}

// WritePredictionGrid saves a PredictionGrid as a PNG file.
func WritePredictionGrid(path string, preds []*ocrtrain.Prediction, cols int) error {
	if err := WritePNG(path, PredictionGrid(preds, cols)); err != nil {
		return essentials.AddCtx("write prediction grid", err)
	}
	return nil
}

func titleWidth(p *ocrtrain.Prediction) int {
	n := max(len([]rune(p.Sample.Label)), len([]rune(p.Predicted))) + len("True: ")
	return n * gridCharWidth
}
