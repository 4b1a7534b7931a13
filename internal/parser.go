package internal

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// trackerPattern 统计/广告类脚本，不镜像
var trackerPattern = regexp.MustCompile(`(?i)yandex|metrika|google|analytics|ads|tracker`)

// functionalTags 文本内容归入功能类的标签
var functionalTags = map[string]bool{
	"button": true, "a": true, "form": true, "input": true,
	"select": true, "option": true, "textarea": true,
}

type openTag struct {
	name     string
	position int
	frag     int // 在重建缓冲区中的下标
}

// parseState 第一遍解析的全部可变状态
type parseState struct {
	doc        *Document
	tokens     []Token
	stack      []openTag
	inHead     bool
	titleWords int
}

// Parse 第一遍：消费 token 流，生成标签/属性/内容记录、重建缓冲区和资源引用
func Parse(tokens []Token) *Document {
	p := &parseState{doc: NewDocument(), tokens: tokens}

	for i, tok := range tokens {
		switch tok.Kind {
		case TokenTagOpen:
			p.tagOpen(strings.TrimSpace(tok.Value), i)
		case TokenAttribute:
			p.attribute(tok.Value, i)
		case TokenWord:
			p.word(tok.Value, i)
		case TokenTagClose:
			p.tagClose(strings.TrimSpace(tok.Value), i)
		default:
			p.doc.warn(WarnStreamFormat, i, "未知的 token 类型 %q", tok.Kind)
		}
	}

	p.finish()
	return p.doc
}

func (p *parseState) current() *openTag {
	if len(p.stack) == 0 {
		return nil
	}
	return &p.stack[len(p.stack)-1]
}

// peek 越界时返回 ok=false
func (p *parseState) peek(i int) (Token, bool) {
	if i < 0 || i >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[i], true
}

func (p *parseState) tagOpen(name string, pos int) {
	if name == "" {
		p.doc.warn(WarnStreamFormat, pos, "tag_open 缺少标签名")
		return
	}

	p.doc.Tags = append(p.doc.Tags, TagRecord{Type: TagOpen, Name: name, Position: pos})
	p.doc.Buffer = append(p.doc.Buffer, "<"+name)
	p.stack = append(p.stack, openTag{name: name, position: pos, frag: len(p.doc.Buffer) - 1})

	if name == "head" {
		p.inHead = true
	}
	if name == "title" {
		p.titleWords = 0
	}
}

func (p *parseState) attribute(raw string, pos int) {
	logger := GetLogger()
	cur := p.current()
	if cur == nil {
		logger.Debug("位置 %d: 属性 %q 没有所属标签，跳过", pos, raw)
		return
	}

	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		logger.Debug("位置 %d: 属性 %q 缺少 '='，跳过", pos, raw)
		return
	}
	key = cleanAttrKey(key)
	value = cleanAttrValue(value)
	if key == "" {
		logger.Debug("位置 %d: 属性名为空，跳过", pos)
		return
	}

	p.doc.Buffer[cur.frag] = spliceAttr(p.doc.Buffer[cur.frag], key, value)
	p.doc.Attributes = append(p.doc.Attributes, AttributeRecord{
		Tag:         cur.name,
		Name:        key,
		Value:       value,
		InHead:      p.inHead,
		TagPosition: cur.position,
	})

	frag := p.doc.Buffer[cur.frag]
	switch {
	case cur.name == "script" && key == "src":
		if trackerPattern.MatchString(value) {
			logger.Debug("跳过统计脚本: %s", value)
		} else {
			p.doc.JavaScript = append(p.doc.JavaScript, &AssetRef{Kind: AssetJS, URL: value})
		}

	case (cur.name == "img" && key == "src") ||
		(cur.name == "link" && key == "href" && strings.Contains(frag, `rel="icon"`)):
		if strings.Contains(value, "var(") {
			logger.Debug("跳过包含 CSS 变量的图片地址: %s", value)
		} else {
			p.doc.Images = append(p.doc.Images, &AssetRef{Kind: AssetImage, URL: value})
		}

	case cur.name == "link" && key == "href" && strings.Contains(frag, `rel="stylesheet"`):
		p.doc.CSS = append(p.doc.CSS, &AssetRef{Kind: AssetCSS, URL: value})
	}

	if cur.name == "title" {
		if next, ok := p.peek(pos + 1); ok && next.Kind == TokenWord {
			p.doc.Title = strings.TrimSpace(next.Value)
		}
	}

	if cur.name == "meta" && (key == "name" || key == "property") {
		next, ok := p.peek(pos + 1)
		if ok && next.Kind == TokenAttribute && strings.Contains(next.Value, "content=") {
			_, content, _ := strings.Cut(next.Value, "=")
			p.doc.MetaData[value] = cleanAttrValue(content)
		}
	}
}

func (p *parseState) word(raw string, pos int) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}

	cur := p.current()
	if cur == nil {
		GetLogger().Debug("位置 %d: 文本 %q 不在任何标签内", pos, text)
		p.doc.Buffer = append(p.doc.Buffer, html.EscapeString(text))
		return
	}

	if !contains(p.doc.Content[cur.name], text) {
		p.doc.Content[cur.name] = append(p.doc.Content[cur.name], text)
		if functionalTags[cur.name] {
			p.doc.FunctionalContent[cur.name] = append(p.doc.FunctionalContent[cur.name], text)
		} else {
			p.doc.VisualContent[cur.name] = append(p.doc.VisualContent[cur.name], text)
		}
	}

	if cur.name == "title" {
		if p.titleWords == 0 {
			p.doc.Title = text
		} else {
			p.doc.Title += " " + text
		}
		p.titleWords++
	}

	p.spliceText(html.EscapeString(text))
}

// spliceText 把文本接到最后一个片段上
// 文本和属性值进入缓冲区前都经过 html.EscapeString，片段边界只由标签本身决定
func (p *parseState) spliceText(text string) {
	buf := p.doc.Buffer
	if len(buf) == 0 {
		p.doc.Buffer = append(p.doc.Buffer, text)
		return
	}

	last := len(buf) - 1
	entry := buf[last]
	switch {
	case isCloseFragment(entry):
		p.doc.Buffer = append(p.doc.Buffer, text)
	case isOpenFragment(entry) && !strings.Contains(entry, ">"):
		buf[last] = entry + ">" + text
	case strings.HasSuffix(entry, ">"):
		buf[last] = entry + text
	default:
		buf[last] = entry + " " + text
	}
}

func (p *parseState) tagClose(name string, pos int) {
	if name == "" {
		p.doc.warn(WarnStreamFormat, pos, "tag_close 缺少标签名")
		return
	}

	p.doc.Tags = append(p.doc.Tags, TagRecord{Type: TagClose, Name: name, Position: pos})
	if cur := p.current(); cur != nil && cur.name == name {
		p.stack = p.stack[:len(p.stack)-1]
	} else {
		p.doc.warn(WarnUnbalancedTag, pos, "不匹配的闭合标签 </%s>，缺少对应的开标签", name)
	}

	p.doc.Buffer = append(p.doc.Buffer, "</"+name+">")
	if name == "head" {
		p.inHead = false
	}
}

// finish 补全未闭合的开标签片段
func (p *parseState) finish() {
	for i, entry := range p.doc.Buffer {
		if isOpenFragment(entry) && !strings.Contains(entry, ">") {
			p.doc.Buffer[i] = entry + ">"
		}
	}
	for _, t := range p.stack {
		p.doc.warn(WarnStreamFormat, t.position, "标签 <%s> 到流结束仍未闭合", t.name)
	}
}

// spliceAttr 追加属性；片段已经以 > 结束时插到 > 之前
func spliceAttr(frag, key, value string) string {
	attr := " " + key + `="` + html.EscapeString(value) + `"`
	if idx := strings.Index(frag, ">"); idx >= 0 {
		return frag[:idx] + attr + frag[idx:]
	}
	return frag + attr
}

func cleanAttrKey(s string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "", `\`, "").Replace(s))
}

func cleanAttrValue(s string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", `\`, "").Replace(s))
}

func isOpenFragment(s string) bool {
	return strings.HasPrefix(s, "<") && !strings.HasPrefix(s, "</")
}

func isCloseFragment(s string) bool {
	return strings.HasPrefix(s, "</")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
