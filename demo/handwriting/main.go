//go:debug randseednop=0

// Command handwriting trains a handwritten-name reader
// and uses it to transcribe test images.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyocr"
	"github.com/unixpickle/anyocr/ocrdata"
	"github.com/unixpickle/anyocr/ocrnet"
	"github.com/unixpickle/anyocr/ocrtrain"
	"github.com/unixpickle/anyocr/ocrviz"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/rip"
)

var Creator anyvec.Creator

func init() {
	zerolog.TimeFieldFormat = time.StampMilli
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	var configPath, mode, metricsAddr, gridPath string
	var numShown int
	var debug bool
	flag.StringVar(&configPath, "config", "", "YAML config file (defaults are used if empty)")
	flag.StringVar(&mode, "mode", "train", "train, predict, or evaluate")
	flag.StringVar(&metricsAddr, "metrics", "", "address for serving prometheus metrics")
	flag.StringVar(&gridPath, "grid", "predictions.png", "output path for the prediction grid")
	flag.IntVar(&numShown, "show", 6, "number of test predictions to print and plot")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	logger := log.With().Str("run", ksuid.New().String()).Logger()

	cfg := anyocr.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = anyocr.LoadConfig(configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load config")
		}
	}
	logger.Debug().Interface("config", cfg).Msg("parameter list of config")

	rand.Seed(cfg.Seed)
	Creator = anyvec32.CurrentCreator()

	var metrics *ocrtrain.Metrics
	if metricsAddr != "" {
		metrics = ocrtrain.NewMetrics(prometheus.DefaultRegisterer)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				logger.Error().Err(err).Str("addr", metricsAddr).Msg("metrics server failed")
			}
		}()
	}

	loader := &ocrtrain.Loader{
		Preprocessor: anyocr.NewImagePreprocessor(cfg),
		Workers:      cfg.Workers,
		Log:          &logger,
		Metrics:      metrics,
	}

	var err error
	switch mode {
	case "train":
		err = train(cfg, loader, &logger, metrics)
		if err == nil {
			err = predict(cfg, loader, &logger, gridPath, numShown)
		}
	case "predict":
		err = predict(cfg, loader, &logger, gridPath, numShown)
	case "evaluate":
		err = evaluate(cfg, loader, &logger)
	default:
		err = fmt.Errorf("unknown mode: %s", mode)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("mode", mode).Msg("failed")
	}
}

func train(cfg *anyocr.Config, loader *ocrtrain.Loader, logger *zerolog.Logger,
	metrics *ocrtrain.Metrics) error {
	trainSamples, err := ocrdata.LoadSplit(cfg.Train)
	if err != nil {
		return err
	}
	var validSamples ocrdata.SampleList
	if cfg.Valid.CSV != "" {
		validSamples, err = ocrdata.LoadSplit(cfg.Valid)
		if err != nil {
			return err
		}
	} else {
		trainSamples, validSamples = ocrdata.SplitValidation(trainSamples, cfg.ValidRatio)
	}
	logger.Info().Int("train", len(trainSamples)).Int("valid", len(validSamples)).
		Msg("loaded samples")

	labels := trainSamples.Labels()
	vocab, err := anyocr.BuildVocabulary(labels)
	if err != nil {
		return err
	}
	maxLen := anyocr.MaxLabelLength(labels)
	logger.Info().Int("chars", vocab.NumChars()).Int("max_len", maxLen).
		Str("vocab", string(vocab.Chars())).Msg("built vocabulary")

	model := ocrnet.NewModel(Creator, cfg, vocab.NumClasses())
	encoder := &anyocr.LabelEncoder{Vocab: vocab, MaxLen: maxLen, Policy: cfg.Policy()}
	trainer := ocrtrain.NewTrainer(Creator, model, loader, encoder)
	ckpt := &ocrnet.Checkpoint{Vocab: vocab, MaxLen: maxLen, Model: model}

	loop := &ocrtrain.Loop{
		Trainer:     trainer,
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(cfg.LearningRate),
		Train:       trainSamples,
		Valid:       validSamples,
		BatchSize:   cfg.BatchSize,
		Epochs:      cfg.Epochs,
		Patience:    cfg.Patience,
		Checkpoint: func(epoch int, validLoss float64) error {
			logger.Info().Int("epoch", epoch+1).Float64("val_loss", validLoss).
				Str("path", cfg.ModelPath()).Msg("saving checkpoint")
			return ckpt.Save(cfg.ModelPath())
		},
		Log:     logger,
		Metrics: metrics,
	}

	logger.Info().Msg("Press ctrl+c once to stop...")
	history, err := loop.Run(rip.NewRIP().Chan())
	if err != nil {
		return err
	}
	if history.Len() == 0 {
		return nil
	}
	logger.Info().Str("path", cfg.CurvePath).Msg("writing learning curve")
	return ocrviz.WriteLearningCurve(cfg.CurvePath, history)
}

func predict(cfg *anyocr.Config, loader *ocrtrain.Loader, logger *zerolog.Logger,
	gridPath string, numShown int) error {
	ckpt, err := ocrnet.LoadCheckpoint(cfg.ModelPath())
	if err != nil {
		return err
	}
	samples, err := ocrdata.LoadSplit(cfg.Test)
	if err != nil {
		return err
	}
	if len(samples) > numShown {
		samples = samples[:numShown]
	}
	preds, err := ocrtrain.Predict(Creator, ckpt, loader, samples, cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, p := range preds {
		fmt.Fprintf(os.Stdout, "%s\tTrue: %s\tPred: %s\n", p.Sample.ImagePath,
			p.Sample.Label, p.Predicted)
	}
	logger.Info().Str("path", gridPath).Msg("writing prediction grid")
	return ocrviz.WritePredictionGrid(gridPath, preds, 3)
}

func evaluate(cfg *anyocr.Config, loader *ocrtrain.Loader, logger *zerolog.Logger) error {
	ckpt, err := ocrnet.LoadCheckpoint(cfg.ModelPath())
	if err != nil {
		return err
	}
	samples, err := ocrdata.LoadSplit(cfg.Test)
	if err != nil {
		return err
	}
	eval, err := ocrtrain.Evaluate(Creator, ckpt, loader, samples, cfg.BatchSize)
	if err != nil {
		return err
	}
	logger.Info().Int("samples", len(eval.Predictions)).Float64("accuracy", eval.Accuracy).
		Float64("cer", eval.CER).Msg("evaluation complete")
	return nil
}
