package anyocr

import (
	"errors"
	"fmt"
)

// ErrLabelTooLong is matched by errors.Is for every
// *LengthError.
var ErrLabelTooLong = errors.New("label too long")

// A LengthPolicy decides what happens to labels longer
// than the maximum label length.
type LengthPolicy int

const (
	// RejectLong causes Encode to fail with a *LengthError.
	RejectLong LengthPolicy = iota

	// TruncateLong drops the trailing characters.
	TruncateLong
)

// ParseLengthPolicy parses "reject" or "truncate".
// An empty string yields RejectLong.
func ParseLengthPolicy(s string) (LengthPolicy, error) {
	switch s {
	case "", "reject":
		return RejectLong, nil
	case "truncate":
		return TruncateLong, nil
	default:
		return 0, fmt.Errorf("unknown length policy: %q", s)
	}
}

// A LengthError indicates that a label exceeded the
// maximum label length.
type LengthError struct {
	Label  string
	Length int
	MaxLen int
}

func (l *LengthError) Error() string {
	return fmt.Sprintf("label %q has %d characters (max %d)", l.Label, l.Length, l.MaxLen)
}

// Is reports whether target is ErrLabelTooLong.
func (l *LengthError) Is(target error) bool {
	return target == ErrLabelTooLong
}

// A LabelEncoder converts text labels into fixed-length
// integer sequences.
type LabelEncoder struct {
	Vocab  *Vocabulary
	MaxLen int
	Policy LengthPolicy
}

// Encode converts the label into exactly MaxLen codes,
// padding on the right with the Vocabulary's padding code.
//
// The label is split into characters, not bytes.
func (l *LabelEncoder) Encode(label string) ([]int, error) {
	chars := []rune(label)
	if len(chars) > l.MaxLen {
		if l.Policy != TruncateLong {
			return nil, &LengthError{Label: label, Length: len(chars), MaxLen: l.MaxLen}
		}
		chars = chars[:l.MaxLen]
	}
	res := make([]int, l.MaxLen)
	for i := range res {
		if i < len(chars) {
			res[i] = l.Vocab.Encode(chars[i])
		} else {
			res[i] = l.Vocab.PaddingCode()
		}
	}
	return res, nil
}

// StripPadding returns the codes preceding the first
// padding code.
// The result is the target sequence for a CTC cost, which
// treats the padding code as the blank symbol.
func (l *LabelEncoder) StripPadding(codes []int) []int {
	pad := l.Vocab.PaddingCode()
	for i, c := range codes {
		if c == pad {
			return append([]int{}, codes[:i]...)
		}
	}
	return append([]int{}, codes...)
}

// EncodeLabel encodes a label with the RejectLong policy.
func EncodeLabel(v *Vocabulary, label string, maxLen int) ([]int, error) {
	e := LabelEncoder{Vocab: v, MaxLen: maxLen}
	return e.Encode(label)
}
