package internal

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// voidElements 没有子节点和闭合标签的元素
var voidElements = map[string]bool{
	"img": true, "br": true, "hr": true, "meta": true,
	"link": true, "input": true, "source": true,
}

const defaultStyle = `
body { font-family: Arial, sans-serif; margin: 0; padding: 0; line-height: 1.6; }
img { max-width: 100%; height: auto; }
@media (max-width: 768px) { body { font-size: 16px; } }
`

// Skeleton 重建文档的固定骨架
type Skeleton struct {
	Root      *html.Node
	Head      *html.Node
	Body      *html.Node
	Container *html.Node

	// placed 已放入生成的 head 的资源（原始 URL 和本地路径）
	placed map[string]bool
}

// Reconstruct 第二遍：把重建缓冲区转换为嵌套在固定骨架里的文档树
func Reconstruct(doc *Document, baseURL string) *Skeleton {
	sk := buildSkeleton(doc, baseURL)
	if len(doc.Buffer) == 0 {
		sk.Container.AppendChild(elementWithText("div", "No content was parsed from the input file."))
		return sk
	}
	sk.walk(doc.Buffer)
	return sk
}

func buildSkeleton(doc *Document, baseURL string) *Skeleton {
	sk := &Skeleton{placed: make(map[string]bool)}

	sk.Root = &html.Node{Type: html.DocumentNode}
	sk.Root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element("html", "lang", "en")
	sk.Root.AppendChild(root)

	sk.Head = element("head")
	root.AppendChild(sk.Head)
	sk.Head.AppendChild(element("meta", "name", "viewport", "content", "width=device-width, initial-scale=1.0"))
	sk.Head.AppendChild(element("meta", "charset", "utf-8"))

	title := doc.Title
	if title == "" {
		title = DefaultTitle
	}
	sk.Head.AppendChild(elementWithText("title", title))

	seen := make(map[string]bool)
	usable := func(ref *AssetRef) bool {
		if ref.LocalPath == "" || seen[ref.LocalPath] || bufferContains(doc.Buffer, ref.LocalPath) {
			return false
		}
		seen[ref.LocalPath] = true
		return true
	}
	place := func(ref *AssetRef) {
		sk.placed[ref.URL] = true
		sk.placed[ref.LocalPath] = true
	}

	for _, img := range doc.Images {
		if img.LocalPath == "" || !(strings.Contains(img.URL, "favicon") || strings.Contains(img.URL, "icon")) {
			continue
		}
		if usable(img) {
			sk.Head.AppendChild(element("link", "rel", "icon", "href", img.LocalPath))
			place(img)
		}
		break
	}

	for _, css := range doc.CSS {
		if usable(css) {
			sk.Head.AppendChild(element("link", "rel", "stylesheet", "href", css.LocalPath))
			place(css)
		}
	}

	sk.Head.AppendChild(elementWithText("style", defaultStyle))

	for _, js := range doc.JavaScript {
		if usable(js) {
			sk.Head.AppendChild(element("script", "src", js.LocalPath, "defer", "defer"))
			place(js)
		}
	}

	sk.Body = element("body")
	root.AppendChild(sk.Body)

	banner := elementWithText("div", "This is a mirrored site for analysis purposes - original URL: "+baseURL)
	setAttr(banner, "style", "padding: 5px; background: #f9f9f9; color: #666; font-size: 12px; text-align: center;")
	sk.Body.AppendChild(banner)

	// noscript 的子节点按原样输出
	sk.Body.AppendChild(elementWithText("noscript",
		`<div style="color: red; padding: 10px; text-align: center;">JavaScript is disabled. Some functionality may not work.</div>`))

	sk.Container = element("div",
		"class", "mirror-container",
		"style", "max-width: 1200px; margin: 0 auto; padding: 15px;")
	sk.Body.AppendChild(sk.Container)

	return sk
}

type walkFrame struct {
	node *html.Node
	name string
}

// fragment 一个缓冲区片段的词法结果
type fragment struct {
	name  string
	attrs []html.Attribute
	text  string
	close bool
}

// rawTextElements Tokenizer 不对其内容做实体解码的元素
var rawTextElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"xmp": true, "noembed": true, "noframes": true, "plaintext": true,
}

// tokenizeFragment 用 html.Tokenizer 解析 "<name attrs>inline" 或 "</name>" 片段
// 属性值和文本都已解码，属性名保持原样（小写）
func tokenizeFragment(line string) (fragment, bool) {
	z := html.NewTokenizer(strings.NewReader(line))
	switch z.Next() {
	case html.EndTagToken:
		name, _ := z.TagName()
		return fragment{name: string(name), close: true}, true

	case html.StartTagToken, html.SelfClosingTagToken:
		tok := z.Token()
		frag := fragment{name: tok.Data, attrs: tok.Attr}
		var text strings.Builder
		for tt := z.Next(); tt != html.ErrorToken; tt = z.Next() {
			if tt == html.TextToken {
				text.Write(z.Text())
			}
		}
		frag.text = text.String()
		if rawTextElements[frag.name] {
			frag.text = html.UnescapeString(frag.text)
		}
		return frag, true
	}
	return fragment{}, false
}

func (sk *Skeleton) walk(buffer []string) {
	logger := GetLogger()
	stack := []walkFrame{{node: sk.Container}}

	for _, line := range buffer {
		parent := stack[len(stack)-1].node

		if !isOpenFragment(line) && !isCloseFragment(line) {
			if strings.TrimSpace(line) != "" {
				parent.AppendChild(&html.Node{Type: html.TextNode, Data: html.UnescapeString(line)})
			}
			continue
		}

		frag, ok := tokenizeFragment(line)
		if !ok {
			logger.Debug("无法解析的片段: %q", line)
			continue
		}
		name := frag.name

		if frag.close {
			if name == "html" || name == "body" || name == "head" || voidElements[name] {
				continue
			}
			if len(stack) > 1 && stack[len(stack)-1].name == name {
				stack = stack[:len(stack)-1]
			} else {
				logger.Debug("忽略闭合片段 %s", line)
			}
			continue
		}

		if (name == "base" || name == "meta" || name == "title") && parent != sk.Head {
			continue
		}
		if name == "html" || name == "body" || name == "head" {
			continue
		}
		if (name == "script" || name == "link") && sk.referencesPlaced(frag.attrs) {
			continue
		}

		node := element(name)
		for _, a := range frag.attrs {
			setAttr(node, a.Key, controlChars.ReplaceAllString(a.Val, ""))
		}
		parent.AppendChild(node)

		if voidElements[name] {
			if strings.TrimSpace(frag.text) != "" {
				parent.AppendChild(&html.Node{Type: html.TextNode, Data: frag.text})
			}
			continue
		}
		if strings.TrimSpace(frag.text) != "" {
			node.AppendChild(&html.Node{Type: html.TextNode, Data: frag.text})
		}
		stack = append(stack, walkFrame{node: node, name: name})
	}

	if len(stack) > 1 {
		logger.Debug("重建结束时仍有 %d 个元素未闭合", len(stack)-1)
	}
}

// referencesPlaced 属性中的 src/href 是否指向已经放进 head 的资源
func (sk *Skeleton) referencesPlaced(attrs []html.Attribute) bool {
	for _, a := range attrs {
		if (a.Key == "src" || a.Key == "href") && sk.placed[a.Val] {
			return true
		}
	}
	return false
}

// Render 序列化为 HTML
func (sk *Skeleton) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, sk.Root); err != nil {
		return "", fmt.Errorf("序列化 HTML 失败: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

func element(tag string, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(kv); i += 2 {
		setAttr(n, kv[i], kv[i+1])
	}
	return n
}

func elementWithText(tag, text string) *html.Node {
	n := element(tag)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// setAttr 同名属性保留最后一个值
func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func bufferContains(buf []string, s string) bool {
	for _, line := range buf {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
