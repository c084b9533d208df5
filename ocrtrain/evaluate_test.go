package ocrtrain

import (
	"math"
	"testing"

	"github.com/unixpickle/anyocr/ocrdata"
)

func TestEditDistance(t *testing.T) {
	cases := []struct {
		A, B     string
		Expected int
	}{
		{"", "", 0},
		{"ANNA", "ANNA", 0},
		{"ANNA", "", 4},
		{"", "BOB", 3},
		{"ANNA", "ANA", 1},
		{"KITTEN", "SITTING", 3},
		{"ÉLISE", "ELISE", 1},
	}
	for _, c := range cases {
		actual := EditDistance([]rune(c.A), []rune(c.B))
		if actual != c.Expected {
			t.Errorf("%q vs %q: expected %d but got %d", c.A, c.B, c.Expected, actual)
		}
	}
}

func TestScore(t *testing.T) {
	preds := []*Prediction{
		{Sample: &ocrdata.Sample{Label: "ANNA"}, Predicted: "ANNA"},
		{Sample: &ocrdata.Sample{Label: "BOB"}, Predicted: "BO"},
		{Sample: &ocrdata.Sample{Label: "ZOE"}, Predicted: "ZOE"},
		{Sample: &ocrdata.Sample{Label: "MAX"}, Predicted: ""},
	}
	eval := Score(preds)
	if eval.Accuracy != 0.5 {
		t.Errorf("expected accuracy 0.5 but got %v", eval.Accuracy)
	}
	expectedCER := 4.0 / 13.0
	if math.Abs(eval.CER-expectedCER) > 1e-9 {
		t.Errorf("expected CER %v but got %v", expectedCER, eval.CER)
	}

	empty := Score(nil)
	if empty.Accuracy != 0 || empty.CER != 0 {
		t.Errorf("unexpected empty evaluation: %+v", empty)
	}
}
