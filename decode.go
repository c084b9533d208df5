package anyocr

import (
	"fmt"
	"strings"
)

// A ProbabilityMatrix stores a model's output for one
// sample: one probability distribution per timestep.
//
// The last entry of each distribution is the probability
// of the CTC blank symbol.
type ProbabilityMatrix [][]float64

// Check verifies that the matrix has at least one
// timestep and exactly numClasses entries per timestep.
func (p ProbabilityMatrix) Check(numClasses int) error {
	if len(p) == 0 {
		return fmt.Errorf("probability matrix: no timesteps")
	}
	for t, dist := range p {
		if len(dist) != numClasses {
			return fmt.Errorf("probability matrix: timestep %d has %d classes (expected %d)",
				t, len(dist), numClasses)
		}
	}
	return nil
}

// BestPath computes the best-path labeling of the matrix.
//
// The most likely class is selected at every timestep,
// with ties going to the lowest class index.
// Runs of the same class are collapsed, and then blanks
// are removed.
// Thus, [A, A, blank, A] yields [A, A].
func BestPath(p ProbabilityMatrix) []int {
	if len(p) == 0 {
		return nil
	}
	blank := len(p[0]) - 1
	var res []int
	last := -1
	for _, dist := range p {
		best := 0
		for i, prob := range dist {
			if prob > dist[best] {
				best = i
			}
		}
		if best != last && best != blank {
			res = append(res, best)
		}
		last = best
	}
	return res
}

// A SequenceDecoder turns model outputs into text.
type SequenceDecoder struct {
	Vocab  *Vocabulary
	MaxLen int
}

// Decode decodes a single matrix.
//
// The best path is limited to MaxLen codes, rendered
// through the Vocabulary, and cleaned up: unknown markers
// become spaces and surrounding whitespace is trimmed.
//
// Decode panics if the matrix does not have the number of
// classes required by the Vocabulary.
func (s *SequenceDecoder) Decode(p ProbabilityMatrix) string {
	if err := p.Check(s.Vocab.NumClasses()); err != nil {
		panic(err)
	}
	codes := BestPath(p)
	if len(codes) > s.MaxLen {
		codes = codes[:s.MaxLen]
	}
	return renderCodes(s.Vocab, codes)
}

// DecodeBatch decodes every matrix in a batch.
func (s *SequenceDecoder) DecodeBatch(ps []ProbabilityMatrix) []string {
	res := make([]string, len(ps))
	for i, p := range ps {
		res[i] = s.Decode(p)
	}
	return res
}

func renderCodes(v *Vocabulary, codes []int) string {
	var b strings.Builder
	for _, c := range codes {
		b.WriteString(v.Decode(c))
	}
	text := strings.ReplaceAll(b.String(), PaddingMarker, "")
	text = strings.ReplaceAll(text, UnknownMarker, " ")
	return strings.TrimSpace(text)
}
