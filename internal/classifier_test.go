package internal

import (
	"errors"
	"testing"
)

func TestLogisticRegression_Separable(t *testing.T) {
	m := NewLogisticRegression()
	x := [][]float64{{0, 0}, {0.2, 0}, {0.1, 1}, {3, 1}, {3.2, 0}, {2.9, 1}}
	y := []int{0, 0, 0, 1, 1, 1}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	tests := []struct {
		in   []float64
		want int
	}{
		{[]float64{-0.5, 0}, LabelVisual},
		{[]float64{4, 0}, LabelInteractive},
	}
	for _, tt := range tests {
		got, err := m.Predict(tt.in)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if got != tt.want {
			t.Errorf("Predict(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLogisticRegression_Errors(t *testing.T) {
	m := NewLogisticRegression()
	if _, err := m.Predict([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("predict before fit: %v", err)
	}
	if err := m.Fit([][]float64{{1}, {2}}, []int{1, 1}); !errors.Is(err, ErrSingleClass) {
		t.Errorf("single class fit: %v", err)
	}
	if err := m.Fit([][]float64{{1}}, []int{1, 0}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if err := m.Fit([][]float64{{0}, {1}, {5}, {6}}, []int{0, 0, 1, 1}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := m.Predict([]float64{1, 2}); err == nil {
		t.Error("expected error for wrong feature count")
	}
}

type failingModel struct{ panics bool }

func (failingModel) Fit([][]float64, []int) error { return nil }

func (m failingModel) Predict([]float64) (int, error) {
	if m.panics {
		panic("boom")
	}
	return 0, errors.New("predict failed")
}

// classifierDoc div/button 有内容，span/select 为空
func classifierDoc() *Document {
	return Parse(stream(
		"o", "div", "w", "Text", "c", "div",
		"o", "button", "w", "Go", "c", "button",
		"o", "span", "c", "span",
		"o", "select", "c", "select",
	))
}

func TestClassify_FallbackOnModelError(t *testing.T) {
	for _, panics := range []bool{false, true} {
		doc := classifierDoc()
		out := Classify(doc, ClassifyOptions{Model: failingModel{panics: panics}})

		if !out.UsedFallback || out.Err == nil {
			t.Fatalf("panics=%v: expected fallback, got %+v", panics, out)
		}
		if out.Trained != 2 || out.Predicted != 2 {
			t.Errorf("panics=%v: trained=%d predicted=%d", panics, out.Trained, out.Predicted)
		}
		if doc.PredictedContent["span"] != VisualElement {
			t.Errorf("span = %q", doc.PredictedContent["span"])
		}
		if doc.PredictedContent["select"] != InteractiveElement {
			t.Errorf("select = %q", doc.PredictedContent["select"])
		}
		if got := doc.FunctionalContent["select"]; len(got) != 1 || got[0] != InteractiveElement {
			t.Errorf("functional[select] = %q", got)
		}
	}
}

func TestClassify_Disabled(t *testing.T) {
	doc := classifierDoc()
	out := Classify(doc, ClassifyOptions{Disabled: true})

	if !errors.Is(out.Err, ErrDisabled) || !out.UsedFallback {
		t.Fatalf("outcome = %+v", out)
	}
	if len(doc.PredictedContent) != 2 {
		t.Errorf("predicted = %v", doc.PredictedContent)
	}
}

func TestClassify_TrainedModel(t *testing.T) {
	doc := classifierDoc()
	out := Classify(doc, ClassifyOptions{})

	if out.Err != nil || out.UsedFallback || out.Skipped {
		t.Fatalf("outcome = %+v", out)
	}
	for _, name := range []string{"span", "select"} {
		label := doc.PredictedContent[name]
		if label != VisualElement && label != InteractiveElement {
			t.Errorf("%s has no prediction: %q", name, label)
		}
	}
	// 有内容的标签不参与预测
	if _, ok := doc.PredictedContent["div"]; ok {
		t.Error("div should not be predicted")
	}
}

func TestClassify_SkippedWithoutTrainingData(t *testing.T) {
	doc := Parse(stream("o", "span", "c", "span"))
	out := Classify(doc, ClassifyOptions{})

	if !out.Skipped {
		t.Fatalf("expected skip, got %+v", out)
	}
	if len(doc.PredictedContent) != 0 {
		t.Errorf("unexpected predictions: %v", doc.PredictedContent)
	}
}

func TestBalance(t *testing.T) {
	var x [][]float64
	var y []int
	for i := 0; i < 10; i++ {
		x = append(x, []float64{1})
		y = append(y, LabelInteractive)
	}
	x = append(x, []float64{0})
	y = append(y, LabelVisual)

	bx, by := balance(x, y, 7)
	visual := 0
	for _, l := range by {
		if l == LabelVisual {
			visual++
		}
	}
	if visual != 5 || len(bx) != 15 || len(by) != 15 {
		t.Errorf("visual=%d len=%d", visual, len(by))
	}

	// 已经均衡时不变
	x2, y2 := balance([][]float64{{0}, {1}}, []int{0, 1}, 7)
	if len(x2) != 2 || len(y2) != 2 {
		t.Errorf("balanced input changed: %d", len(x2))
	}
}
