package anyocr

import (
	"errors"
	"os"

	"github.com/unixpickle/essentials"
	"gopkg.in/yaml.v3"
)

// ModelConfig describes the layer sizes of the
// recognition network.
//
// The network has two convolutional stages, each ending in
// a 2x2 max pool.
// ConvStages lists the filter counts of the 3x3
// convolutions in each stage.
type ModelConfig struct {
	ConvStages  [][]int `yaml:"conv_stages"`
	DenseSizes  []int   `yaml:"dense_sizes"`
	Dropout     float64 `yaml:"dropout"`
	LSTMSizes   []int   `yaml:"lstm_sizes"`
	LSTMDropout float64 `yaml:"lstm_dropout"`
}

// Split locates one CSV file and its image directory.
type Split struct {
	CSV      string `yaml:"csv"`
	ImageDir string `yaml:"image_dir"`
	Limit    int    `yaml:"limit"`
}

// Config holds the settings for data loading, training,
// and inference.
type Config struct {
	ImageWidth  int `yaml:"image_width"`
	ImageHeight int `yaml:"image_height"`

	BatchSize    int     `yaml:"batch_size"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         int64   `yaml:"seed"`
	Patience     int     `yaml:"patience"`
	Workers      int     `yaml:"workers"`

	// LengthPolicy is "reject" or "truncate".
	LengthPolicy string `yaml:"length_policy"`

	// ValidRatio is used to carve a validation split out
	// of the training split when Valid.CSV is empty.
	ValidRatio float64 `yaml:"valid_ratio"`

	Train Split `yaml:"train"`
	Valid Split `yaml:"valid"`
	Test  Split `yaml:"test"`

	ModelName string `yaml:"model_name"`
	CurvePath string `yaml:"curve_path"`

	Model ModelConfig `yaml:"model"`
}

// DefaultConfig returns the settings of the reference
// handwritten-name setup.
func DefaultConfig() *Config {
	const batchSize = 16
	return &Config{
		ImageWidth:  200,
		ImageHeight: 50,

		BatchSize:    batchSize,
		Epochs:       9,
		LearningRate: 1e-3,
		Seed:         2569,
		Patience:     10,
		Workers:      4,
		LengthPolicy: "reject",
		ValidRatio:   0.1,

		Train: Split{
			CSV:      "CSV/written_name_train.csv",
			ImageDir: "train_v2/train",
			Limit:    batchSize * 1000,
		},
		Valid: Split{
			CSV:      "CSV/written_name_validation.csv",
			ImageDir: "validation_v2/validation",
			Limit:    batchSize * 500,
		},
		Test: Split{
			CSV:      "CSV/written_name_test.csv",
			ImageDir: "test_v2/test",
			Limit:    batchSize * 100,
		},

		ModelName: "Handwritten-OCR",
		CurvePath: "OCRModel-LearningCurve.png",

		Model: ModelConfig{
			ConvStages:  [][]int{{32}, {64}},
			DenseSizes:  []int{64},
			Dropout:     0.2,
			LSTMSizes:   []int{128, 64},
			LSTMDropout: 0.25,
		},
	}
}

// ImprovedConfig returns DefaultConfig with a larger
// network: two convolutions per stage, two dense layers,
// wider LSTMs, and less patience.
func ImprovedConfig() *Config {
	res := DefaultConfig()
	res.Patience = 5
	res.ModelName = "Handwritten-OCR-Improved"
	res.CurvePath = "OCRModel-Improved-LearningCurve.png"
	res.Model = ModelConfig{
		ConvStages:  [][]int{{32, 32}, {64, 128}},
		DenseSizes:  []int{64, 128},
		Dropout:     0.4,
		LSTMSizes:   []int{256, 128},
		LSTMDropout: 0.25,
	}
	return res
}

// LoadConfig reads a YAML file on top of DefaultConfig.
// Fields missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	res := DefaultConfig()
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	if err := res.Validate(); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	return res, nil
}

// Validate checks the configuration for obviously invalid
// values.
func (c *Config) Validate() error {
	switch {
	case c.ImageWidth <= 0 || c.ImageHeight <= 0:
		return errors.New("invalid config: image size must be positive")
	case c.ImageWidth%4 != 0:
		return errors.New("invalid config: image width must be divisible by 4")
	case c.ImageHeight < 4:
		return errors.New("invalid config: image height must be at least 4")
	case c.BatchSize <= 0:
		return errors.New("invalid config: batch size must be positive")
	case c.LearningRate <= 0:
		return errors.New("invalid config: learning rate must be positive")
	case len(c.Model.ConvStages) != 2:
		return errors.New("invalid config: model needs exactly two conv stages")
	case len(c.Model.ConvStages[0]) == 0 || len(c.Model.ConvStages[1]) == 0:
		return errors.New("invalid config: every conv stage needs a convolution")
	case len(c.Model.DenseSizes) == 0:
		return errors.New("invalid config: model needs at least one dense layer")
	case len(c.Model.LSTMSizes) == 0:
		return errors.New("invalid config: model needs at least one LSTM layer")
	}
	if _, err := ParseLengthPolicy(c.LengthPolicy); err != nil {
		return err
	}
	return nil
}

// Policy returns the parsed LengthPolicy.
func (c *Config) Policy() LengthPolicy {
	p, _ := ParseLengthPolicy(c.LengthPolicy)
	return p
}

// ModelPath returns the checkpoint path for the model.
func (c *Config) ModelPath() string {
	return c.ModelName + ".anyocr"
}
