// Package ocrnet implements a convolutional-recurrent
// network for reading handwritten text with CTC.
//
// A batch of width-major image tensors is fed through a
// small CNN.
// Every row of the resulting feature map (i.e. every
// horizontal position in the image) becomes a timestep,
// and the timesteps are processed by bidirectional LSTMs.
// The network produces log-probabilities over the classes
// of an anyocr.Vocabulary plus the CTC blank.
package ocrnet

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyocr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
	var b Mapped
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeMapped)
}

// A SeqLayer is a serializable sequence-to-sequence
// transformation.
// *anyrnn.Bidir and *Mapped are SeqLayers.
type SeqLayer interface {
	serializer.Serializer
	Apply(in anyseq.Seq) anyseq.Seq
}

// Mapped is a SeqLayer that maps a Block over a sequence.
type Mapped struct {
	Block anyrnn.Block
}

// DeserializeMapped deserializes a Mapped.
func DeserializeMapped(d []byte) (*Mapped, error) {
	var res Mapped
	if err := serializer.DeserializeAny(d, &res.Block); err != nil {
		return nil, essentials.AddCtx("deserialize Mapped", err)
	}
	return &res, nil
}

// Apply maps the block over the sequence.
func (m *Mapped) Apply(in anyseq.Seq) anyseq.Seq {
	return anyrnn.Map(in, m.Block)
}

// Parameters returns the block's parameters if it is an
// anynet.Parameterizer.
func (m *Mapped) Parameters() []*anydiff.Var {
	if p, ok := m.Block.(anynet.Parameterizer); ok {
		return p.Parameters()
	}
	return nil
}

// SerializerType returns the unique ID used to serialize a
// Mapped with the serializer package.
func (m *Mapped) SerializerType() string {
	return "github.com/unixpickle/anyocr/ocrnet.Mapped"
}

// Serialize serializes the Mapped.
func (m *Mapped) Serialize() ([]byte, error) {
	s, ok := m.Block.(serializer.Serializer)
	if !ok {
		return nil, fmt.Errorf("not a Serializer: %T", m.Block)
	}
	return serializer.SerializeAny(s)
}

// A Model is a recognition network.
type Model struct {
	ImageWidth  int
	ImageHeight int

	// TimeSteps is the number of rows in the CNN output,
	// and thus the length of every output sequence.
	TimeSteps int

	CNN anynet.Net
	Seq []SeqLayer
}

// NewModel creates a randomly initialized Model for the
// image size and layer sizes in a Config.
//
// The numClasses argument should include the blank, as
// given by anyocr.Vocabulary.NumClasses.
func NewModel(c anyvec.Creator, cfg *anyocr.Config, numClasses int) *Model {
	mc := cfg.Model

	// Tensors are width-major, so anyconv's rows are image
	// columns.
	rows, cols, depth := cfg.ImageWidth, cfg.ImageHeight, 1
	var cnn anynet.Net
	for _, stage := range mc.ConvStages {
		for _, filters := range stage {
			pad := &anyconv.Padding{
				InputWidth:    cols,
				InputHeight:   rows,
				InputDepth:    depth,
				PaddingTop:    1,
				PaddingRight:  1,
				PaddingBottom: 1,
				PaddingLeft:   1,
			}
			conv := &anyconv.Conv{
				FilterCount:  filters,
				FilterWidth:  3,
				FilterHeight: 3,
				StrideX:      1,
				StrideY:      1,
				InputWidth:   cols + 2,
				InputHeight:  rows + 2,
				InputDepth:   depth,
			}
			conv.InitRand(c)
			conv.Filters.Vector.Scale(c.MakeNumeric(math.Sqrt2))
			cnn = append(cnn, pad, conv, anynet.ReLU)
			rows, cols, depth = conv.OutputHeight(), conv.OutputWidth(), conv.OutputDepth()
		}
		pool := &anyconv.MaxPool{
			SpanX:       2,
			SpanY:       2,
			InputWidth:  cols,
			InputHeight: rows,
			InputDepth:  depth,
		}
		cnn = append(cnn, pool)
		rows, cols, depth = pool.OutputHeight(), pool.OutputWidth(), pool.OutputDepth()
	}

	inSize := cols * depth
	var embed anynet.Net
	for _, size := range mc.DenseSizes {
		dense := anynet.NewFC(c, inSize, size)
		dense.Weights.Vector.Scale(c.MakeNumeric(math.Sqrt2))
		embed = append(embed, dense, anynet.ReLU)
		inSize = size
	}
	embed = append(embed, &anynet.Dropout{KeepProb: 1 - mc.Dropout})
	seq := []SeqLayer{&Mapped{Block: &anyrnn.LayerBlock{Layer: embed}}}
	for _, hidden := range mc.LSTMSizes {
		seq = append(seq,
			&Mapped{Block: &anyrnn.LayerBlock{
				Layer: &anynet.Dropout{KeepProb: 1 - mc.LSTMDropout},
			}},
			&anyrnn.Bidir{
				Forward:  anyrnn.NewLSTM(c, inSize, hidden),
				Backward: anyrnn.NewLSTM(c, inSize, hidden),
				Mixer:    anynet.ConcatMixer{},
			},
		)
		inSize = hidden * 2
	}
	seq = append(seq, &Mapped{Block: &anyrnn.LayerBlock{
		Layer: anynet.Net{
			anynet.NewFC(c, inSize, numClasses),
			anynet.LogSoftmax,
		},
	}})

	return &Model{
		ImageWidth:  cfg.ImageWidth,
		ImageHeight: cfg.ImageHeight,
		TimeSteps:   rows,
		CNN:         cnn,
		Seq:         seq,
	}
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	if len(slice) < 4 {
		return nil, fmt.Errorf("deserialize Model: too few fields (%d)", len(slice))
	}
	var res Model
	var sizes [3]int
	for i := range sizes {
		n, ok := slice[i].(serializer.Int)
		if !ok {
			return nil, fmt.Errorf("deserialize Model: not an Int: %T", slice[i])
		}
		sizes[i] = int(n)
	}
	res.ImageWidth, res.ImageHeight, res.TimeSteps = sizes[0], sizes[1], sizes[2]
	var ok bool
	if res.CNN, ok = slice[3].(anynet.Net); !ok {
		return nil, fmt.Errorf("deserialize Model: not a Net: %T", slice[3])
	}
	for _, x := range slice[4:] {
		layer, ok := x.(SeqLayer)
		if !ok {
			return nil, fmt.Errorf("deserialize Model: not a SeqLayer: %T", x)
		}
		res.Seq = append(res.Seq, layer)
	}
	return &res, nil
}

// Apply applies the model to a batch of image tensors,
// packed one after another in the input.
//
// The output sequences contain log-probabilities, with
// the blank as the last class.
func (m *Model) Apply(images anydiff.Res, batch int) anyseq.Seq {
	imgSize := m.ImageWidth * m.ImageHeight
	if images.Output().Len() != batch*imgSize {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			batch*imgSize, images.Output().Len()))
	}
	features := m.CNN.Apply(images, batch)
	seq := RowSeq(features, batch, m.TimeSteps)
	for _, layer := range m.Seq {
		seq = layer.Apply(seq)
	}
	return seq
}

// SetTraining enables or disables dropout.
func (m *Model) SetTraining(training bool) {
	for _, d := range m.dropouts() {
		d.Enabled = training
	}
}

// Parameters returns the learnable parameters of the
// model, in a consistent order.
func (m *Model) Parameters() []*anydiff.Var {
	res := m.CNN.Parameters()
	for _, layer := range m.Seq {
		if p, ok := layer.(anynet.Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// SerializerType returns the unique ID used to serialize a
// Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/unixpickle/anyocr/ocrnet.Model"
}

// Serialize serializes the Model.
func (m *Model) Serialize() ([]byte, error) {
	slice := []serializer.Serializer{
		serializer.Int(m.ImageWidth),
		serializer.Int(m.ImageHeight),
		serializer.Int(m.TimeSteps),
		m.CNN,
	}
	for _, layer := range m.Seq {
		slice = append(slice, layer)
	}
	return serializer.SerializeSlice(slice)
}

func (m *Model) dropouts() []*anynet.Dropout {
	var res []*anynet.Dropout
	var visit func(x interface{})
	visit = func(x interface{}) {
		switch x := x.(type) {
		case *anynet.Dropout:
			res = append(res, x)
		case anynet.Net:
			for _, l := range x {
				visit(l)
			}
		case *anyrnn.LayerBlock:
			visit(x.Layer)
		case *Mapped:
			visit(x.Block)
		}
	}
	visit(m.CNN)
	for _, layer := range m.Seq {
		visit(layer)
	}
	return res
}
