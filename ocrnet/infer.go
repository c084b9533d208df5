package ocrnet

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyocr"
	"github.com/unixpickle/anyvec"
)

// PackImages concatenates image tensors into a single
// vector suitable for Model.Apply.
func PackImages(c anyvec.Creator, images []*anyocr.ImageTensor) anyvec.Vector {
	var data []float64
	for _, img := range images {
		data = append(data, img.Data...)
	}
	return c.MakeVectorData(c.MakeNumericList(data))
}

// Infer computes the output distributions for a batch of
// images, with dropout disabled.
func (m *Model) Infer(c anyvec.Creator, images []*anyocr.ImageTensor) []anyocr.ProbabilityMatrix {
	if len(images) == 0 {
		return nil
	}
	for i, img := range images {
		if img.Width != m.ImageWidth || img.Height != m.ImageHeight {
			panic(fmt.Sprintf("image %d is %dx%d (expected %dx%d)", i, img.Width,
				img.Height, m.ImageWidth, m.ImageHeight))
		}
	}
	m.SetTraining(false)
	in := anydiff.NewConst(PackImages(c, images))
	return Probabilities(m.Apply(in, len(images)))
}

// Probabilities converts a batch of log-probability
// sequences into probability matrices.
func Probabilities(seq anyseq.Seq) []anyocr.ProbabilityMatrix {
	var res []anyocr.ProbabilityMatrix
	for _, steps := range anyseq.SeparateSeqs(seq.Output()) {
		matrix := make(anyocr.ProbabilityMatrix, len(steps))
		for t, vec := range steps {
			matrix[t] = expFloats(vec)
		}
		res = append(res, matrix)
	}
	return res
}

func expFloats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = math.Exp(float64(x))
		}
		return res
	case []float64:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = math.Exp(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", data))
	}
}
