package ocrdata

import (
	"crypto/md5"

	"github.com/unixpickle/anynet/anysgd"
)

// A Sample is an image file paired with the text written
// in it.
type Sample struct {
	ImagePath string
	Label     string
}

// A SampleList is an anysgd.SampleList of OCR samples.
type SampleList []*Sample

// Len returns the number of samples.
func (s SampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-slice of the list.
func (s SampleList) Slice(i, j int) anysgd.SampleList {
	return append(SampleList{}, s[i:j]...)
}

// Hash hashes the image path of a sample.
// This makes a SampleList an anysgd.Hasher.
func (s SampleList) Hash(i int) []byte {
	sum := md5.Sum([]byte(s[i].ImagePath))
	return sum[:]
}

// Labels returns the label of every sample.
func (s SampleList) Labels() []string {
	res := make([]string, len(s))
	for i, x := range s {
		res[i] = x.Label
	}
	return res
}

// SplitValidation deterministically partitions a list
// into training and validation samples.
// The validRatio argument is the expected fraction of
// samples that end up in the validation list.
//
// The list s is re-ordered in the process.
func SplitValidation(s SampleList, validRatio float64) (train, valid SampleList) {
	left, right := anysgd.HashSplit(s, 1-validRatio)
	return left.(SampleList), right.(SampleList)
}
