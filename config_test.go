package anyocr

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
image_width: 128
batch_size: 4
length_policy: truncate
train:
  csv: /data/train.csv
  image_dir: /data/train
model:
  lstm_sizes: [32]
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.ImageWidth != 128 || c.ImageHeight != 50 {
		t.Errorf("unexpected image size %dx%d", c.ImageWidth, c.ImageHeight)
	}
	if c.BatchSize != 4 || c.Epochs != 9 || c.Seed != 2569 {
		t.Errorf("unexpected training settings: %+v", c)
	}
	if c.Policy() != TruncateLong {
		t.Errorf("expected TruncateLong but got %v", c.Policy())
	}
	if c.Train.CSV != "/data/train.csv" || c.Train.ImageDir != "/data/train" {
		t.Errorf("unexpected train split: %+v", c.Train)
	}
	if !reflect.DeepEqual(c.Model.LSTMSizes, []int{32}) {
		t.Errorf("unexpected LSTM sizes: %v", c.Model.LSTMSizes)
	}
	if !reflect.DeepEqual(c.Model.ConvStages, [][]int{{32}, {64}}) {
		t.Errorf("unexpected conv stages: %v", c.Model.ConvStages)
	}
	if c.ModelPath() != "Handwritten-OCR.anyocr" {
		t.Errorf("unexpected model path: %s", c.ModelPath())
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
	mutations := []func(c *Config){
		func(c *Config) { c.ImageWidth = 0 },
		func(c *Config) { c.ImageWidth = 201 },
		func(c *Config) { c.ImageHeight = 3 },
		func(c *Config) { c.BatchSize = 0 },
		func(c *Config) { c.LearningRate = 0 },
		func(c *Config) { c.Model.ConvStages = [][]int{{8}} },
		func(c *Config) { c.Model.ConvStages = [][]int{{8}, {8}, {8}} },
		func(c *Config) { c.Model.ConvStages = [][]int{{8}, {}} },
		func(c *Config) { c.Model.DenseSizes = nil },
		func(c *Config) { c.Model.LSTMSizes = nil },
		func(c *Config) { c.LengthPolicy = "ignore" },
	}
	for i, mutate := range mutations {
		c := DefaultConfig()
		mutate(c)
		if c.Validate() == nil {
			t.Errorf("mutation %d: expected an error", i)
		}
	}
}

func TestLoadConfigImproved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
patience: 5
model:
  conv_stages: [[32, 32], [64, 128]]
  dense_sizes: [64, 128]
  dropout: 0.4
  lstm_sizes: [256, 128]
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	expected := ImprovedConfig()
	if c.Patience != expected.Patience {
		t.Errorf("expected patience %d but got %d", expected.Patience, c.Patience)
	}
	if !reflect.DeepEqual(c.Model, expected.Model) {
		t.Errorf("expected model %+v but got %+v", expected.Model, c.Model)
	}
	if err := expected.Validate(); err != nil {
		t.Error(err)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected an error")
	}
}
