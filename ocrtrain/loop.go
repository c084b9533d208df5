package ocrtrain

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyocr/ocrdata"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// History records the mean losses of every completed
// epoch.
type History struct {
	TrainLoss []float64
	ValidLoss []float64
}

// Len returns the number of completed epochs.
func (h *History) Len() int {
	return len(h.TrainLoss)
}

// Best returns the index of the epoch with the lowest
// validation loss, or -1 if there are no epochs.
func (h *History) Best() int {
	best := -1
	for i, loss := range h.ValidLoss {
		if best == -1 || loss < h.ValidLoss[best] {
			best = i
		}
	}
	return best
}

// A Loop runs epochs of SGD with validation after every
// epoch.
//
// Whenever the validation loss improves, Checkpoint is
// called.
// When it fails to improve for Patience epochs in a row,
// training stops early.
// Either way, the parameters from the best epoch are
// restored at the end.
type Loop struct {
	Trainer     *Trainer
	Transformer anysgd.Transformer
	Rater       anysgd.Rater

	Train ocrdata.SampleList

	// Valid is used to measure the validation loss.
	// If it is empty, the training loss is monitored
	// instead.
	Valid ocrdata.SampleList

	BatchSize int
	Epochs    int

	// Patience is the number of epochs without improvement
	// before training stops.
	// If it is 0, training never stops early.
	Patience int

	// Checkpoint, if non-nil, is called after each epoch
	// that improves the validation loss.
	Checkpoint func(epoch int, validLoss float64) error

	Log     *zerolog.Logger
	Metrics *Metrics
}

// Run trains until the epochs run out, patience runs
// out, or stop is closed.
//
// An epoch interrupted by stop is not recorded.
func (l *Loop) Run(stop <-chan struct{}) (*History, error) {
	if len(l.Train) == 0 {
		panic("cannot train with empty sample list")
	}
	log := l.logger()
	history := &History{}
	params := l.Trainer.Params
	var best []anyvec.Vector
	bestLoss := math.Inf(1)
	var sinceBest int
	var numProcessed int

	defer func() {
		if best != nil {
			for i, p := range params {
				p.Vector.Set(best[i])
			}
			log.Info().Float64("valid_loss", bestLoss).Msg("restored best parameters")
		}
	}()

EpochLoop:
	for epoch := 0; epoch < l.Epochs; epoch++ {
		anysgd.Shuffle(l.Train)
		var lossSum float64
		var lossCount int
		for i := 0; i < len(l.Train); i += l.batchSize() {
			if stopped(stop) {
				log.Info().Int("epoch", epoch).Msg("training interrupted")
				break EpochLoop
			}
			end := min(i+l.batchSize(), len(l.Train))
			b, err := l.Trainer.Fetch(l.Train.Slice(i, end))
			if err == ErrEmptyBatch {
				continue
			} else if err != nil {
				return history, essentials.AddCtx("train", err)
			}
			batch := b.(*Batch)

			start := time.Now()
			grad := l.Trainer.Gradient(batch)
			if l.Transformer != nil {
				grad = l.Transformer.Transform(grad)
			}
			rate := l.Rater.Rate(float64(numProcessed) / float64(len(l.Train)))
			scaleGradient(grad, -rate)
			grad.AddToVars()
			numProcessed += end - i

			l.Metrics.step(batch.Size(), l.Trainer.LastCost, time.Since(start))
			log.Debug().Int("epoch", epoch).Int("batch", i/l.batchSize()).
				Float64("loss", l.Trainer.LastCost).Msg("step")
			lossSum += l.Trainer.LastCost * float64(batch.Size())
			lossCount += batch.Size()
		}

		trainLoss := math.NaN()
		if lossCount > 0 {
			trainLoss = lossSum / float64(lossCount)
		}
		validLoss := trainLoss
		if len(l.Valid) > 0 {
			var err error
			validLoss, err = l.Trainer.Loss(l.Valid, l.batchSize())
			if err != nil {
				return history, essentials.AddCtx("validate", err)
			}
		}
		history.TrainLoss = append(history.TrainLoss, trainLoss)
		history.ValidLoss = append(history.ValidLoss, validLoss)
		l.Metrics.epoch(validLoss)
		log.Info().Int("epoch", epoch+1).Float64("loss", trainLoss).
			Float64("val_loss", validLoss).Msg("epoch complete")

		if validLoss < bestLoss {
			bestLoss = validLoss
			sinceBest = 0
			best = snapshot(params, best)
			if l.Checkpoint != nil {
				if err := l.Checkpoint(epoch, validLoss); err != nil {
					return history, essentials.AddCtx("checkpoint", err)
				}
			}
		} else {
			sinceBest++
			if l.Patience > 0 && sinceBest >= l.Patience {
				log.Info().Int("epoch", epoch+1).Int("patience", l.Patience).
					Msg("stopping early")
				break
			}
		}
	}

	return history, nil
}

func (l *Loop) batchSize() int {
	if l.BatchSize <= 0 {
		return len(l.Train)
	}
	return l.BatchSize
}

func (l *Loop) logger() *zerolog.Logger {
	if l.Log == nil {
		return &nopLogger
	}
	return l.Log
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func scaleGradient(g anydiff.Grad, s float64) {
	for _, v := range g {
		g.Scale(v.Creator().MakeNumeric(s))
		return
	}
}

func snapshot(params []*anydiff.Var, dst []anyvec.Vector) []anyvec.Vector {
	if dst == nil {
		dst = make([]anyvec.Vector, len(params))
		for i, p := range params {
			dst[i] = p.Vector.Copy()
		}
		return dst
	}
	for i, p := range params {
		dst[i].Set(p.Vector)
	}
	return dst
}
