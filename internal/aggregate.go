package internal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	interactiveTags = map[string]bool{
		"button": true, "a": true, "input": true, "select": true, "textarea": true, "form": true,
	}
	interactiveRoles = map[string]bool{"button": true, "link": true, "menu": true}
	navPattern       = regexp.MustCompile(`nav|menu`)
)

// ChildEntry 表单/导航元素内部的子标签
type ChildEntry struct {
	Name       string            `json:"name"`
	Attributes []AttributeRecord `json:"attributes"`
	Content    []string          `json:"content"`
}

// ElementEntry 交互元素 / 内容块
type ElementEntry struct {
	Position   int               `json:"position"`
	Content    []string          `json:"content"`
	Attributes []AttributeRecord `json:"attributes"`
}

// GroupEntry 表单和导航元素，带开闭标签之间的子标签
type GroupEntry struct {
	ElementEntry
	Children []ChildEntry `json:"children"`
}

// ContainerEntry 容器元素
type ContainerEntry struct {
	Position       int               `json:"position"`
	Attributes     []AttributeRecord `json:"attributes"`
	ChildrenCount  int               `json:"children_count"`
	ContentSummary string            `json:"content_summary"`
}

// LayoutEntry 布局元素
type LayoutEntry struct {
	Position       int               `json:"position"`
	Attributes     []AttributeRecord `json:"attributes"`
	ContentSummary string            `json:"content_summary"`
}

// StructureNode html_structure 预览中的一项
type StructureNode struct {
	Name       string   `json:"name"`
	Level      int      `json:"level"`
	Attributes []string `json:"attributes"`
}

type FunctionalityAnalysis struct {
	InteractiveElementsCount int `json:"interactive_elements_count"`
	FormsCount               int `json:"forms_count"`
	NavigationElementsCount  int `json:"navigation_elements_count"`
	JSFilesCount             int `json:"js_files_count"`
	CSSFilesCount            int `json:"css_files_count"`
}

type VisualAnalysis struct {
	ContainersCount     int `json:"containers_count"`
	LayoutElementsCount int `json:"layout_elements_count"`
	ContentBlocksCount  int `json:"content_blocks_count"`
	ImagesCount         int `json:"images_count"`
}

// FunctionalityView site_functionality.json
type FunctionalityView struct {
	CSS                  []*AssetRef               `json:"css"`
	JavaScript           []*AssetRef               `json:"javascript"`
	Images               []*AssetRef               `json:"images"`
	InteractiveElements  map[string][]ElementEntry `json:"interactive_elements"`
	Forms                map[string][]GroupEntry   `json:"forms"`
	NavigationalElements map[string][]GroupEntry   `json:"navigational_elements"`
	Analysis             FunctionalityAnalysis     `json:"ai_analysis"`
}

// VisualView site_visual_structure.json
type VisualView struct {
	HTMLStructure  []StructureNode             `json:"html_structure"`
	LayoutElements map[string][]LayoutEntry    `json:"layout_elements"`
	Containers     map[string][]ContainerEntry `json:"containers"`
	ContentBlocks  map[string][]ElementEntry   `json:"content_blocks"`
	Images         []*AssetRef                 `json:"images"`
	SimilarImages  []ImageGroup                `json:"similar_images"`
	MetaData       map[string]string           `json:"meta_data"`
	Title          string                      `json:"title"`
	Analysis       VisualAnalysis              `json:"ai_analysis"`
}

// MarshalJSON 未镜像的资源 local_path 输出为 null
func (a AssetRef) MarshalJSON() ([]byte, error) {
	var local *string
	if a.LocalPath != "" {
		local = &a.LocalPath
	}
	return json.Marshal(struct {
		URL       string            `json:"url"`
		LocalPath *string           `json:"local_path"`
		Image     *ImageFingerprint `json:"fingerprint,omitempty"`
	}{a.URL, local, a.Image})
}

type aggregator struct {
	doc    *Document
	policy *bluemonday.Policy
	// content 清洗后的文本，按标签名缓存
	content map[string][]string
}

// Aggregate 把标签和属性记录划分为功能视图和视觉视图
func Aggregate(doc *Document) (*FunctionalityView, *VisualView) {
	a := &aggregator{
		doc:     doc,
		policy:  bluemonday.StrictPolicy(),
		content: make(map[string][]string),
	}

	fv := &FunctionalityView{
		CSS:                  nonNilRefs(doc.CSS),
		JavaScript:           nonNilRefs(doc.JavaScript),
		Images:               nonNilRefs(doc.Images),
		InteractiveElements:  make(map[string][]ElementEntry),
		Forms:                make(map[string][]GroupEntry),
		NavigationalElements: make(map[string][]GroupEntry),
	}
	vv := &VisualView{
		LayoutElements: make(map[string][]LayoutEntry),
		Containers:     make(map[string][]ContainerEntry),
		ContentBlocks:  make(map[string][]ElementEntry),
		Images:         nonNilRefs(doc.Images),
		MetaData:       doc.MetaData,
		Title:          doc.Title,
	}
	if vv.MetaData == nil {
		vv.MetaData = map[string]string{}
	}

	for i, tag := range doc.Tags {
		if !tag.IsOpen() {
			continue
		}
		attrs := doc.AttributesOf(tag)
		if !isInteractive(tag.Name, attrs) {
			continue
		}
		entry := ElementEntry{
			Position:   tag.Position,
			Content:    a.contentOf(tag.Name),
			Attributes: nonNilAttrs(attrs),
		}
		switch {
		case tag.Name == "form" || hasAttrMatch(attrs, func(at AttributeRecord) bool {
			return at.Name == "class" && strings.Contains(at.Value, "form")
		}):
			fv.Forms[tag.Name] = append(fv.Forms[tag.Name], GroupEntry{entry, a.children(i)})
		case tag.Name == "nav" || hasAttrMatch(attrs, func(at AttributeRecord) bool {
			return (at.Name == "class" || at.Name == "id") && navPattern.MatchString(at.Value)
		}):
			fv.NavigationalElements[tag.Name] = append(fv.NavigationalElements[tag.Name], GroupEntry{entry, a.children(i)})
		default:
			fv.InteractiveElements[tag.Name] = append(fv.InteractiveElements[tag.Name], entry)
		}
	}

	for i, tag := range doc.Tags {
		if !tag.IsOpen() {
			continue
		}
		// 同名标签只要有一个进了功能视图就不再归入视觉视图
		if _, ok := fv.InteractiveElements[tag.Name]; ok {
			continue
		}
		if _, ok := fv.Forms[tag.Name]; ok {
			continue
		}
		if _, ok := fv.NavigationalElements[tag.Name]; ok {
			continue
		}

		attrs := nonNilAttrs(doc.AttributesOf(tag))
		switch tag.Name {
		case "div", "section", "article", "main":
			vv.Containers[tag.Name] = append(vv.Containers[tag.Name], ContainerEntry{
				Position:       tag.Position,
				Attributes:     attrs,
				ChildrenCount:  len(a.childTags(i)),
				ContentSummary: a.summary(tag.Name),
			})
		case "header", "footer", "aside", "nav":
			vv.LayoutElements[tag.Name] = append(vv.LayoutElements[tag.Name], LayoutEntry{
				Position:       tag.Position,
				Attributes:     attrs,
				ContentSummary: a.summary(tag.Name),
			})
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "span", "strong", "em":
			vv.ContentBlocks[tag.Name] = append(vv.ContentBlocks[tag.Name], ElementEntry{
				Position:   tag.Position,
				Content:    a.contentOf(tag.Name),
				Attributes: attrs,
			})
		}
	}

	vv.HTMLStructure = a.structure()
	vv.SimilarImages = GroupSimilarImages(doc.Images, SimilarImageDistance)
	if vv.SimilarImages == nil {
		vv.SimilarImages = []ImageGroup{}
	}

	fv.Analysis = FunctionalityAnalysis{
		InteractiveElementsCount: countEntries(fv.InteractiveElements),
		FormsCount:               countEntries(fv.Forms),
		NavigationElementsCount:  countEntries(fv.NavigationalElements),
		JSFilesCount:             len(fv.JavaScript),
		CSSFilesCount:            len(fv.CSS),
	}
	vv.Analysis = VisualAnalysis{
		ContainersCount:     countEntries(vv.Containers),
		LayoutElementsCount: countEntries(vv.LayoutElements),
		ContentBlocksCount:  countEntries(vv.ContentBlocks),
		ImagesCount:         len(vv.Images),
	}
	return fv, vv
}

func isInteractive(name string, attrs []AttributeRecord) bool {
	if interactiveTags[name] {
		return true
	}
	return hasAttrMatch(attrs, func(a AttributeRecord) bool {
		return strings.HasPrefix(a.Name, "on") || (a.Name == "role" && interactiveRoles[a.Value])
	})
}

func hasAttrMatch(attrs []AttributeRecord, match func(AttributeRecord) bool) bool {
	for _, a := range attrs {
		if match(a) {
			return true
		}
	}
	return false
}

// matchingClose 下标 i 处开标签对应的闭合标签下标，按同名嵌套计数；没有时返回 -1
func matchingClose(tags []TagRecord, i int) int {
	name := tags[i].Name
	depth := 0
	for j := i + 1; j < len(tags); j++ {
		if tags[j].Name != name {
			continue
		}
		if tags[j].IsOpen() {
			depth++
			continue
		}
		if depth == 0 {
			return j
		}
		depth--
	}
	return -1
}

// childTags 开闭标签之间的所有开标签
func (a *aggregator) childTags(i int) []TagRecord {
	end := matchingClose(a.doc.Tags, i)
	if end < 0 {
		return nil
	}
	var out []TagRecord
	for _, t := range a.doc.Tags[i+1 : end] {
		if t.IsOpen() {
			out = append(out, t)
		}
	}
	return out
}

func (a *aggregator) children(i int) []ChildEntry {
	out := []ChildEntry{}
	for _, t := range a.childTags(i) {
		out = append(out, ChildEntry{
			Name:       t.Name,
			Attributes: nonNilAttrs(a.doc.AttributesOf(t)),
			Content:    a.contentOf(t.Name),
		})
	}
	return out
}

// contentOf 去掉残留标记后的文本片段
func (a *aggregator) contentOf(name string) []string {
	if c, ok := a.content[name]; ok {
		return c
	}
	out := []string{}
	for _, frag := range a.doc.Content[name] {
		clean := strings.TrimSpace(html.UnescapeString(a.policy.Sanitize(frag)))
		if clean != "" {
			out = append(out, clean)
		}
	}
	a.content[name] = out
	return out
}

func (a *aggregator) summary(name string) string {
	return SummarizeContent(a.contentOf(name))
}

// SummarizeContent 超过 5 段只取前 3 段
func SummarizeContent(content []string) string {
	switch {
	case len(content) == 0:
		return "No content"
	case len(content) > 5:
		return fmt.Sprintf("%s... (%d items)", strings.Join(content[:3], " "), len(content))
	default:
		return strings.Join(content, " ")
	}
}

// structure 前 StructureLimit 条标签记录的嵌套预览
func (a *aggregator) structure() []StructureNode {
	out := []StructureNode{}
	var stack []string
	for i, tag := range a.doc.Tags {
		if i >= StructureLimit {
			break
		}
		if !tag.IsOpen() {
			if len(stack) > 0 && stack[len(stack)-1] == tag.Name {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		attrs := []string{}
		for _, at := range a.doc.AttributesOf(tag) {
			attrs = append(attrs, at.Name+"="+at.Value)
		}
		out = append(out, StructureNode{Name: tag.Name, Level: len(stack), Attributes: attrs})
		stack = append(stack, tag.Name)
	}
	return out
}

func countEntries[T any](m map[string][]T) int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}

func nonNilRefs(refs []*AssetRef) []*AssetRef {
	if refs == nil {
		return []*AssetRef{}
	}
	return refs
}

func nonNilAttrs(attrs []AttributeRecord) []AttributeRecord {
	if attrs == nil {
		return []AttributeRecord{}
	}
	return attrs
}
