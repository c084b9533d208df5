package ocrtrain

import (
	"github.com/unixpickle/anyocr"
	"github.com/unixpickle/anyocr/ocrdata"
	"github.com/unixpickle/anyocr/ocrnet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Prediction pairs a sample with the text the model
// read from it.
type Prediction struct {
	Sample    *ocrdata.Sample
	Image     *anyocr.ImageTensor
	Predicted string
}

// Correct reports whether the prediction matches the
// label exactly.
func (p *Prediction) Correct() bool {
	return p.Predicted == p.Sample.Label
}

// An Evaluation summarizes predictions on a set of
// samples.
type Evaluation struct {
	Predictions []*Prediction

	// Accuracy is the fraction of exact matches.
	Accuracy float64

	// CER is the character error rate: the total edit
	// distance divided by the total label length.
	CER float64
}

// Predict reads every sample with a checkpoint, in batches
// of the given size.
// Undecodable images are skipped.
func Predict(c anyvec.Creator, ckpt *ocrnet.Checkpoint, l *Loader,
	s ocrdata.SampleList, batchSize int) ([]*Prediction, error) {
	if batchSize <= 0 {
		batchSize = len(s)
	}
	var res []*Prediction
	for i := 0; i < len(s); i += batchSize {
		tensors, samples, err := l.Load(s[i:min(i+batchSize, len(s))])
		if err != nil {
			return nil, essentials.AddCtx("predict", err)
		}
		if len(tensors) == 0 {
			continue
		}
		for j, text := range ckpt.Predict(c, tensors) {
			res = append(res, &Prediction{
				Sample:    samples[j],
				Image:     tensors[j],
				Predicted: text,
			})
		}
	}
	return res, nil
}

// Evaluate predicts every sample and scores the results.
func Evaluate(c anyvec.Creator, ckpt *ocrnet.Checkpoint, l *Loader,
	s ocrdata.SampleList, batchSize int) (*Evaluation, error) {
	preds, err := Predict(c, ckpt, l, s, batchSize)
	if err != nil {
		return nil, err
	}
	return Score(preds), nil
}

// Score computes the accuracy and character error rate
// of a list of predictions.
func Score(preds []*Prediction) *Evaluation {
	res := &Evaluation{Predictions: preds}
	if len(preds) == 0 {
		return res
	}
	var correct, dist, total int
	for _, p := range preds {
		if p.Correct() {
			correct++
		}
		truth := []rune(p.Sample.Label)
		dist += EditDistance(truth, []rune(p.Predicted))
		total += len(truth)
	}
	res.Accuracy = float64(correct) / float64(len(preds))
	if total > 0 {
		res.CER = float64(dist) / float64(total)
	}
	return res
}

// EditDistance computes the Levenshtein distance between
// two rune sequences.
func EditDistance(a, b []rune) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min(row[j]+1, row[j-1]+1, diag+cost)
			diag = row[j]
			row[j] = next
		}
	}
	return row[len(b)]
}
