package internal

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/cdipaolo/goml/base"
	"github.com/cdipaolo/goml/linear"
)

const (
	LabelVisual      = 0
	LabelInteractive = 1

	InteractiveElement = "Interactive element"
	VisualElement      = "Visual element"
)

var (
	ErrNotFitted   = errors.New("classifier: model not fitted")
	ErrSingleClass = errors.New("classifier: training set has a single class")
	ErrDisabled    = errors.New("classifier: disabled")
)

// fallbackVisualTags 分类器不可用时按此白名单判定为视觉元素
var fallbackVisualTags = map[string]bool{
	"div": true, "span": true, "p": true, "h1": true, "h2": true, "h3": true, "img": true,
}

// Classifier 二分类器，每个文档创建一次、训练一次
type Classifier interface {
	Fit(x [][]float64, y []int) error
	Predict(x []float64) (int, error)
}

// LogisticRegression 标准化特征后交给 goml 的逻辑回归（批量梯度上升）
type LogisticRegression struct {
	Iterations   int
	LearningRate float64
	L2           float64

	model *linear.Logistic
	mean  []float64
	std   []float64
}

// NewLogisticRegression 默认参数
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{Iterations: 500, LearningRate: 0.1, L2: 0.001}
}

func (m *LogisticRegression) Fit(x [][]float64, y []int) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("classifier: %d samples, %d labels", len(x), len(y))
	}
	pos := 0
	for _, l := range y {
		pos += l
	}
	if pos == 0 || pos == len(y) {
		return ErrSingleClass
	}

	dim := len(x[0])
	m.mean = make([]float64, dim)
	m.std = make([]float64, dim)
	for _, row := range x {
		if len(row) != dim {
			return fmt.Errorf("classifier: ragged feature matrix")
		}
		for j, v := range row {
			m.mean[j] += v
		}
	}
	n := float64(len(x))
	for j := range m.mean {
		m.mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - m.mean[j]
			m.std[j] += d * d
		}
	}
	for j := range m.std {
		m.std[j] = math.Sqrt(m.std[j] / n)
		if m.std[j] == 0 {
			m.std[j] = 1
		}
	}

	scaled := make([][]float64, len(x))
	labels := make([]float64, len(y))
	for i, row := range x {
		scaled[i] = m.scale(row)
		labels[i] = float64(y[i])
	}

	model := linear.NewLogistic(base.BatchGA, m.LearningRate, m.L2, m.Iterations, scaled, labels)
	model.Output = io.Discard
	if err := model.Learn(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	m.model = model
	return nil
}

func (m *LogisticRegression) Predict(x []float64) (int, error) {
	if m.model == nil {
		return 0, ErrNotFitted
	}
	if len(x) != len(m.mean) {
		return 0, fmt.Errorf("classifier: expected %d features, got %d", len(m.mean), len(x))
	}
	p, err := m.model.Predict(m.scale(x))
	if err != nil {
		return 0, fmt.Errorf("classifier: %w", err)
	}
	if p[0] >= 0.5 {
		return LabelInteractive, nil
	}
	return LabelVisual, nil
}

func (m *LogisticRegression) scale(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - m.mean[j]) / m.std[j]
	}
	return out
}

// ClassifyOptions 分类参数
type ClassifyOptions struct {
	Disabled bool
	Model    Classifier // 为空时使用逻辑回归
	Seed     uint64
}

// ClassifyOutcome 分类结果摘要
type ClassifyOutcome struct {
	Trained      int
	Predicted    int
	Skipped      bool
	UsedFallback bool
	Err          error
}

// Classify 用有内容的标签训练，再为没有内容的标签预测交互/视觉
// 分类器出错时退回静态白名单，错误不会向上传播
func Classify(doc *Document, opts ClassifyOptions) ClassifyOutcome {
	logger := GetLogger()
	var out ClassifyOutcome

	var x [][]float64
	var y []int
	var empty []TagRecord
	for _, tag := range doc.OpenTags() {
		hasContent := len(doc.Content[tag.Name]) > 0
		if !hasContent {
			empty = append(empty, tag)
		}
		if !hasContent && len(doc.AttributesOf(tag)) == 0 {
			continue
		}
		f := ExtractTagFeatures(doc, tag, -1)
		x = append(x, f.Vector())
		y = append(y, LabelFor(tag, f))
	}
	out.Trained = len(x)

	var model Classifier
	switch {
	case opts.Disabled:
		out.Err = ErrDisabled
	case len(x) == 0:
		logger.Debug("没有可训练的标签，跳过分类")
		out.Skipped = true
		return out
	default:
		model = opts.Model
		if model == nil {
			model = NewLogisticRegression()
		}
		x, y = balance(x, y, opts.Seed)
		logger.Info("训练分类器，共 %d 个样本", len(x))
		if err := model.Fit(x, y); err != nil {
			logger.Warn("分类器训练失败，使用静态白名单: %v", err)
			out.Err = err
			model = nil
		}
	}

	for _, tag := range empty {
		label, err := predict(model, ExtractTagFeatures(doc, tag, 0))
		if err != nil {
			if out.Err == nil {
				out.Err = err
				logger.Warn("标签 <%s> 预测失败，使用静态白名单: %v", tag.Name, err)
			}
			out.UsedFallback = true
			label = fallbackLabel(tag.Name)
		}
		recordPrediction(doc, tag.Name, label)
		out.Predicted++
	}

	return out
}

func predict(model Classifier, f TagFeatures) (label int, err error) {
	if model == nil {
		return 0, ErrNotFitted
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return model.Predict(f.Vector())
}

func fallbackLabel(name string) int {
	if fallbackVisualTags[name] {
		return LabelVisual
	}
	return LabelInteractive
}

func recordPrediction(doc *Document, name string, label int) {
	if label == LabelInteractive {
		doc.PredictedContent[name] = InteractiveElement
		if !contains(doc.FunctionalContent[name], InteractiveElement) {
			doc.FunctionalContent[name] = append(doc.FunctionalContent[name], InteractiveElement)
		}
		return
	}
	doc.PredictedContent[name] = VisualElement
	if !contains(doc.VisualContent[name], VisualElement) {
		doc.VisualContent[name] = append(doc.VisualContent[name], VisualElement)
	}
}

// balance 少数类不足多数类 20% 时有放回地随机复制少数类，直到达到 50%
func balance(x [][]float64, y []int, seed uint64) ([][]float64, []int) {
	counts := [2]int{}
	for _, l := range y {
		counts[l]++
	}
	minority := LabelInteractive
	if counts[LabelVisual] < counts[LabelInteractive] {
		minority = LabelVisual
	}
	majority := 1 - minority
	if counts[minority] == 0 || float64(counts[minority]) >= 0.2*float64(counts[majority]) {
		return x, y
	}

	var idx []int
	for i, l := range y {
		if l == minority {
			idx = append(idx, i)
		}
	}

	GetLogger().Debug("样本不均衡 - 交互: %d, 视觉: %d", counts[LabelInteractive], counts[LabelVisual])
	rng := rand.New(rand.NewPCG(seed, 42))
	for float64(counts[minority]) < 0.5*float64(counts[majority]) {
		i := idx[rng.IntN(len(idx))]
		x = append(x, x[i])
		y = append(y, y[i])
		counts[minority]++
	}
	return x, y
}
