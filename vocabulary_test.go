package anyocr

import (
	"errors"
	"reflect"
	"testing"

	"github.com/unixpickle/serializer"
)

func TestBuildVocabularyCodes(t *testing.T) {
	v, err := BuildVocabulary([]string{"ANNA", "BOB"})
	if err != nil {
		t.Fatal(err)
	}
	if v.NumChars() != 4 {
		t.Fatalf("expected 4 characters but got %d", v.NumChars())
	}
	if v.Size() != 5 || v.NumClasses() != 6 {
		t.Errorf("unexpected sizes: Size=%d NumClasses=%d", v.Size(), v.NumClasses())
	}
	expected := []rune{'A', 'B', 'N', 'O'}
	if actual := v.Chars(); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected chars %q but got %q", expected, actual)
	}
	if v.UnknownCode() != 4 || v.PaddingCode() != 5 || v.BlankCode() != 5 {
		t.Errorf("unexpected reserved codes: unknown=%d padding=%d blank=%d",
			v.UnknownCode(), v.PaddingCode(), v.BlankCode())
	}
}

func TestBuildVocabularyDeterministic(t *testing.T) {
	v1, _ := BuildVocabulary([]string{"ZEBRA", "apple", "ÉLAN"})
	v2, _ := BuildVocabulary([]string{"ÉLAN", "apple", "ZEBRA"})
	if !reflect.DeepEqual(v1.Chars(), v2.Chars()) {
		t.Errorf("orders differ: %q and %q", v1.Chars(), v2.Chars())
	}
}

func TestBuildVocabularyEmpty(t *testing.T) {
	_, err := BuildVocabulary(nil)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus but got %v", err)
	}
}

func TestVocabularyTotality(t *testing.T) {
	labels := []string{"JEAN-LUC", "MÜLLER", "O'NEIL", "日本"}
	v, err := BuildVocabulary(labels)
	if err != nil {
		t.Fatal(err)
	}
	for _, label := range labels {
		for _, c := range label {
			if actual := v.Decode(v.Encode(c)); actual != string(c) {
				t.Errorf("char %q decoded as %q", c, actual)
			}
		}
	}
}

func TestVocabularyUnknown(t *testing.T) {
	v := NewVocabulary([]rune("AB"))
	for _, c := range "xyz☃" {
		if code := v.Encode(c); code != v.UnknownCode() {
			t.Errorf("char %q: expected unknown code but got %d", c, code)
		}
		if s := v.Decode(v.Encode(c)); s != UnknownMarker {
			t.Errorf("char %q: expected %q but got %q", c, UnknownMarker, s)
		}
	}
	if s := v.Decode(v.PaddingCode()); s != PaddingMarker {
		t.Errorf("expected %q but got %q", PaddingMarker, s)
	}
	for _, code := range []int{-1, 100} {
		if s := v.Decode(code); s != "" {
			t.Errorf("code %d: expected empty string but got %q", code, s)
		}
	}
}

func TestVocabularyDecodeLabel(t *testing.T) {
	v, _ := BuildVocabulary([]string{"ANNA", "BOB"})
	codes, err := EncodeLabel(v, "BOB", 4)
	if err != nil {
		t.Fatal(err)
	}
	if s := v.DecodeLabel(codes); s != "BOB" {
		t.Errorf("expected BOB but got %q", s)
	}
	codes, _ = EncodeLabel(v, "B?B", 4)
	if s := v.DecodeLabel(codes); s != "B B" {
		t.Errorf("expected %q but got %q", "B B", s)
	}
}

func TestVocabularySerialize(t *testing.T) {
	v, _ := BuildVocabulary([]string{"HELLO", "WORLD", "ÆØÅ"})
	data, err := serializer.SerializeAny(v)
	if err != nil {
		t.Fatal(err)
	}
	var newV *Vocabulary
	if err := serializer.DeserializeAny(data, &newV); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, newV) {
		t.Errorf("expected %q but got %q", v.Chars(), newV.Chars())
	}
}

func TestMaxLabelLength(t *testing.T) {
	if n := MaxLabelLength([]string{"ANNA", "BOB"}); n != 4 {
		t.Errorf("expected 4 but got %d", n)
	}
	if n := MaxLabelLength([]string{"ÉÉÉ", "AB"}); n != 3 {
		t.Errorf("expected 3 but got %d", n)
	}
}
