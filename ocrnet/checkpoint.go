package ocrnet

import (
	"os"
	"path/filepath"

	"github.com/unixpickle/anyocr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// A Checkpoint bundles a trained Model with everything
// needed to decode its outputs.
type Checkpoint struct {
	Vocab  *anyocr.Vocabulary
	MaxLen int
	Model  *Model
}

// LoadCheckpoint reads a checkpoint written by Save.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load checkpoint", err)
	}
	var res Checkpoint
	var maxLen serializer.Int
	if err := serializer.DeserializeAny(data, &res.Vocab, &maxLen, &res.Model); err != nil {
		return nil, essentials.AddCtx("load checkpoint "+path, err)
	}
	res.MaxLen = int(maxLen)
	return &res, nil
}

// Save writes the checkpoint to a file.
//
// The data is written to a temporary file first, so an
// existing checkpoint is never left half-written.
func (c *Checkpoint) Save(path string) error {
	data, err := serializer.SerializeAny(c.Vocab, serializer.Int(c.MaxLen), c.Model)
	if err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return essentials.AddCtx("save checkpoint", err)
	}
	if err := tmp.Close(); err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	return nil
}

// Decoder creates a SequenceDecoder for the checkpoint's
// vocabulary.
func (c *Checkpoint) Decoder() *anyocr.SequenceDecoder {
	return &anyocr.SequenceDecoder{Vocab: c.Vocab, MaxLen: c.MaxLen}
}

// Predict reads the text in a batch of images.
func (c *Checkpoint) Predict(cr anyvec.Creator, images []*anyocr.ImageTensor) []string {
	return c.Decoder().DecodeBatch(c.Model.Infer(cr, images))
}
