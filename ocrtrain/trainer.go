// Package ocrtrain trains ocrnet models with CTC and
// measures how well they read.
package ocrtrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anyctc"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyocr"
	"github.com/unixpickle/anyocr/ocrdata"
	"github.com/unixpickle/anyocr/ocrnet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyBatch is returned by Fetch when none of the
// samples in a batch could be used.
var ErrEmptyBatch = errors.New("no usable samples in batch")

var nopLogger = zerolog.Nop()

// A Loader preprocesses the images of samples in
// parallel.
type Loader struct {
	Preprocessor *anyocr.ImagePreprocessor

	// Workers bounds the number of images decoded at once.
	// If it is 0, there is no bound.
	Workers int

	Log     *zerolog.Logger
	Metrics *Metrics
}

// Load preprocesses the image of every sample.
//
// Samples whose images cannot be decoded are logged and
// left out of the result.
// Other failures, such as missing files, are returned as
// errors.
func (l *Loader) Load(samples ocrdata.SampleList) ([]*anyocr.ImageTensor,
	ocrdata.SampleList, error) {
	tensors := make([]*anyocr.ImageTensor, len(samples))
	var g errgroup.Group
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}
	for i, sample := range samples {
		g.Go(func() error {
			tensor, err := l.Preprocessor.PreprocessFile(sample.ImagePath)
			if err != nil {
				var decodeErr *anyocr.DecodeError
				if errors.As(err, &decodeErr) {
					l.logger().Warn().Err(err).Str("path", sample.ImagePath).
						Msg("skipping undecodable image")
					l.Metrics.skip(SkipDecode)
					return nil
				}
				return err
			}
			tensors[i] = tensor
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, essentials.AddCtx("load images", err)
	}
	var resTensors []*anyocr.ImageTensor
	var resSamples ocrdata.SampleList
	for i, tensor := range tensors {
		if tensor != nil {
			resTensors = append(resTensors, tensor)
			resSamples = append(resSamples, samples[i])
		}
	}
	return resTensors, resSamples, nil
}

func (l *Loader) logger() *zerolog.Logger {
	if l.Log == nil {
		return &nopLogger
	}
	return l.Log
}

// A Batch is a preprocessed mini-batch.
type Batch struct {
	// Images stores the image tensors back to back.
	Images anydiff.Res

	// Labels stores the CTC targets, without padding.
	Labels [][]int

	Samples ocrdata.SampleList
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// A Trainer creates batches, computes gradients, and adds
// up costs for an ocrnet.Model.
//
// A Trainer is an anysgd.Fetcher and an anysgd.Gradienter.
type Trainer struct {
	Model   *ocrnet.Model
	Params  []*anydiff.Var
	Loader  *Loader
	Encoder *anyocr.LabelEncoder
	Creator anyvec.Creator

	// After every gradient computation, LastCost is set to
	// the mean cost of the batch.
	LastCost float64
}

// NewTrainer creates a Trainer for all of a model's
// parameters.
func NewTrainer(c anyvec.Creator, m *ocrnet.Model, l *Loader,
	e *anyocr.LabelEncoder) *Trainer {
	return &Trainer{
		Model:   m,
		Params:  m.Parameters(),
		Loader:  l,
		Encoder: e,
		Creator: c,
	}
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must be an ocrdata.SampleList.
//
// Samples with undecodable images or unencodable labels
// are skipped.
// If no samples remain, ErrEmptyBatch is returned.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	samples := s.(ocrdata.SampleList)
	tensors, samples, err := t.Loader.Load(samples)
	if err != nil {
		return nil, essentials.AddCtx("fetch batch", err)
	}
	res := &Batch{}
	var data []float64
	for i, sample := range samples {
		codes, err := t.Encoder.Encode(sample.Label)
		if err != nil {
			if errors.Is(err, anyocr.ErrLabelTooLong) {
				t.Loader.logger().Warn().Err(err).Str("path", sample.ImagePath).
					Msg("skipping long label")
				t.Loader.Metrics.skip(SkipLength)
				continue
			}
			return nil, essentials.AddCtx("fetch batch", err)
		}
		res.Labels = append(res.Labels, t.Encoder.StripPadding(codes))
		res.Samples = append(res.Samples, sample)
		data = append(data, tensors[i].Data...)
	}
	if len(res.Labels) == 0 {
		return nil, ErrEmptyBatch
	}
	res.Images = anydiff.NewConst(t.Creator.MakeVectorData(t.Creator.MakeNumericList(data)))
	return res, nil
}

// TotalCost computes the mean CTC cost for the batch.
func (t *Trainer) TotalCost(b *Batch) anydiff.Res {
	out := t.Model.Apply(b.Images, b.Size())
	costs := anyctc.Cost(out, b.Labels)
	sum := anydiff.Sum(costs)
	scaler := sum.Output().Creator().MakeNumeric(1 / float64(b.Size()))
	return anydiff.Scale(sum, scaler)
}

// Gradient computes the gradient of the batch's mean cost
// with dropout enabled.
// It also sets t.LastCost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	t.Model.SetTraining(true)
	res := anydiff.NewGrad(t.Params...)

	cost := t.TotalCost(b.(*Batch))
	t.LastCost = numericFloat(anyvec.Sum(cost.Output()))

	c := cost.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, res)

	return res
}

// Loss computes the mean cost of a list of samples with
// dropout disabled, in batches of the given size.
//
// Skipped samples do not count towards the mean.
// If every sample is skipped, the result is NaN.
func (t *Trainer) Loss(s ocrdata.SampleList, batchSize int) (float64, error) {
	if batchSize <= 0 {
		batchSize = len(s)
	}
	t.Model.SetTraining(false)
	var sum float64
	var count int
	for i := 0; i < len(s); i += batchSize {
		end := min(i+batchSize, len(s))
		b, err := t.Fetch(s[i:end])
		if err == ErrEmptyBatch {
			continue
		} else if err != nil {
			return 0, err
		}
		batch := b.(*Batch)
		cost := numericFloat(anyvec.Sum(t.TotalCost(batch).Output()))
		sum += cost * float64(batch.Size())
		count += batch.Size()
	}
	if count == 0 {
		return math.NaN(), nil
	}
	return sum / float64(count), nil
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}
