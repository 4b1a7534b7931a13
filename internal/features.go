package internal

import (
	"regexp"
	"strings"
)

var (
	interactiveClassPattern = regexp.MustCompile(`(?i)button|clickable|interactive|menu|nav`)
	interactiveValuePattern = regexp.MustCompile(`(?i)button|click|submit|active`)
)

// 启发式评分里 +2 的标签
var scoredTags = map[string]bool{
	"button": true, "a": true, "input": true, "select": true, "form": true,
}

// 直接判定为交互元素的标签
var interactiveLabelTags = map[string]bool{
	"script": true, "button": true, "a": true, "form": true,
	"input": true, "select": true, "textarea": true,
}

// TagFeatures 单个开标签的结构特征
// 向量顺序：[属性数, 事件属性数, 有 id, 有 class, 内容长度, 启发式分数]
type TagFeatures struct {
	AttrCount     int
	EventHandlers int
	HasID         bool
	HasClass      bool
	ContentLength int
	Score         int
}

// Vector 转为分类器输入
func (f TagFeatures) Vector() []float64 {
	return []float64{
		float64(f.AttrCount),
		float64(f.EventHandlers),
		boolFloat(f.HasID),
		boolFloat(f.HasClass),
		float64(f.ContentLength),
		float64(f.Score),
	}
}

// ExtractTagFeatures 提取标签特征
// contentLength 为 -1 时按该标签名已有文本计算
func ExtractTagFeatures(doc *Document, tag TagRecord, contentLength int) TagFeatures {
	attrs := doc.AttributesOf(tag)
	f := TagFeatures{AttrCount: len(attrs)}

	classMatch := false
	valueMatch := false
	for _, a := range attrs {
		if strings.HasPrefix(a.Name, "on") {
			f.EventHandlers++
		}
		switch a.Name {
		case "id":
			f.HasID = true
		case "class":
			f.HasClass = true
			if interactiveClassPattern.MatchString(a.Value) {
				classMatch = true
			}
		}
		if interactiveValuePattern.MatchString(a.Value) {
			valueMatch = true
		}
	}

	if contentLength < 0 {
		contentLength = len(strings.Join(doc.Content[tag.Name], " "))
	}
	f.ContentLength = contentLength

	if scoredTags[tag.Name] {
		f.Score += 2
	}
	if (tag.Name == "div" || tag.Name == "span") && classMatch {
		f.Score++
	}
	if f.EventHandlers > 0 {
		f.Score++
	}
	if valueMatch {
		f.Score++
	}

	return f
}

// LabelFor 训练标签：1 交互，0 视觉
func LabelFor(tag TagRecord, f TagFeatures) int {
	if interactiveLabelTags[tag.Name] || f.EventHandlers > 0 || f.Score >= 2 {
		return 1
	}
	return 0
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
