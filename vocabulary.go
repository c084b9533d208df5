// Package anyocr provides the label and image plumbing for
// training and running handwriting recognition models with
// CTC.
//
// A Vocabulary maps characters to integer classes, a
// LabelEncoder turns text into fixed-length targets, an
// ImagePreprocessor turns raster images into width-major
// tensors, and a SequenceDecoder turns the per-timestep
// output distributions of a model back into text.
package anyocr

import (
	"errors"
	"fmt"
	"sort"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// These markers are produced by Vocabulary.Decode for the
// two reserved codes.
const (
	UnknownMarker = "[UNK]"
	PaddingMarker = "[PAD]"
)

// ErrEmptyCorpus is returned when a vocabulary is built
// from an empty list of labels.
var ErrEmptyCorpus = errors.New("empty label corpus")

func init() {
	var v Vocabulary
	serializer.RegisterTypedDeserializer(v.SerializerType(), DeserializeVocabulary)
}

// A Vocabulary is an immutable mapping between characters
// and integer codes.
//
// Characters are assigned codes 0 through n-1 in code
// point order.
// Code n is reserved for unknown characters and code n+1
// for padding.
//
// A Vocabulary is safe for concurrent use.
type Vocabulary struct {
	chars []rune
	codes map[rune]int
}

// BuildVocabulary creates a Vocabulary from the distinct
// characters in a list of labels.
func BuildVocabulary(labels []string) (*Vocabulary, error) {
	if len(labels) == 0 {
		return nil, essentials.AddCtx("build vocabulary", ErrEmptyCorpus)
	}
	var chars []rune
	for _, label := range labels {
		chars = append(chars, []rune(label)...)
	}
	return NewVocabulary(chars), nil
}

// NewVocabulary creates a Vocabulary from a list of
// characters.
// Duplicates are ignored.
func NewVocabulary(chars []rune) *Vocabulary {
	seen := map[rune]bool{}
	var unique []rune
	for _, c := range chars {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	sort.Slice(unique, func(i, j int) bool {
		return unique[i] < unique[j]
	})
	codes := make(map[rune]int, len(unique))
	for i, c := range unique {
		codes[c] = i
	}
	return &Vocabulary{chars: unique, codes: codes}
}

// DeserializeVocabulary deserializes a Vocabulary.
func DeserializeVocabulary(d []byte) (*Vocabulary, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Vocabulary", err)
	}
	chars := make([]rune, len(slice))
	for i, x := range slice {
		code, ok := x.(serializer.Int)
		if !ok {
			return nil, fmt.Errorf("deserialize Vocabulary: not an Int: %T", x)
		}
		chars[i] = rune(code)
	}
	return NewVocabulary(chars), nil
}

// NumChars returns the number of distinct characters.
func (v *Vocabulary) NumChars() int {
	return len(v.chars)
}

// Size returns the number of lookup classes, which is the
// number of characters plus one for the unknown code.
func (v *Vocabulary) Size() int {
	return len(v.chars) + 1
}

// NumClasses returns the number of outputs a CTC model
// needs at each timestep: one per lookup class plus the
// blank symbol.
func (v *Vocabulary) NumClasses() int {
	return v.Size() + 1
}

// UnknownCode returns the code for unknown characters.
func (v *Vocabulary) UnknownCode() int {
	return len(v.chars)
}

// PaddingCode returns the code used to pad labels.
func (v *Vocabulary) PaddingCode() int {
	return len(v.chars) + 1
}

// BlankCode returns the class index of the CTC blank.
// It is the last class and coincides with PaddingCode.
func (v *Vocabulary) BlankCode() int {
	return v.NumClasses() - 1
}

// Chars returns a copy of the characters, ordered by code.
func (v *Vocabulary) Chars() []rune {
	return append([]rune{}, v.chars...)
}

// Encode returns the code for a character.
func (v *Vocabulary) Encode(c rune) int {
	if code, ok := v.codes[c]; ok {
		return code
	}
	return v.UnknownCode()
}

// Decode returns the character for a code.
// Reserved codes yield UnknownMarker or PaddingMarker, and
// out-of-range codes yield "".
func (v *Vocabulary) Decode(code int) string {
	switch {
	case code >= 0 && code < len(v.chars):
		return string(v.chars[code])
	case code == v.UnknownCode():
		return UnknownMarker
	case code == v.PaddingCode():
		return PaddingMarker
	default:
		return ""
	}
}

// DecodeLabel renders an encoded label as text.
// Padding is dropped, unknown codes become spaces, and the
// result is trimmed.
func (v *Vocabulary) DecodeLabel(codes []int) string {
	return renderCodes(v, codes)
}

// SerializerType returns the unique ID used to serialize a
// Vocabulary with the serializer package.
func (v *Vocabulary) SerializerType() string {
	return "github.com/unixpickle/anyocr.Vocabulary"
}

// Serialize serializes the Vocabulary.
func (v *Vocabulary) Serialize() ([]byte, error) {
	slice := make([]serializer.Serializer, len(v.chars))
	for i, c := range v.chars {
		slice[i] = serializer.Int(c)
	}
	return serializer.SerializeSlice(slice)
}

// MaxLabelLength returns the length, in characters, of the
// longest label.
func MaxLabelLength(labels []string) int {
	var res int
	for _, label := range labels {
		if n := len([]rune(label)); n > res {
			res = n
		}
	}
	return res
}
