package internal

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse_DivButton(t *testing.T) {
	doc := Parse(stream(
		"o", "div", "a", "class=box", "w", "Hello",
		"o", "button", "a", `onclick="go()"`, "w", "Click",
		"c", "button", "c", "div",
	))

	want := []string{
		`<div class="box">Hello`,
		`<button onclick="go()">Click`,
		`</button>`,
		`</div>`,
	}
	if !reflect.DeepEqual(doc.Buffer, want) {
		t.Fatalf("buffer = %q, want %q", doc.Buffer, want)
	}

	if got := doc.Content["div"]; !reflect.DeepEqual(got, []string{"Hello"}) {
		t.Errorf("content[div] = %q", got)
	}
	if got := doc.FunctionalContent["button"]; !reflect.DeepEqual(got, []string{"Click"}) {
		t.Errorf("functional[button] = %q", got)
	}
	if got := doc.VisualContent["div"]; !reflect.DeepEqual(got, []string{"Hello"}) {
		t.Errorf("visual[div] = %q", got)
	}
	if len(doc.Tags) != 4 {
		t.Errorf("expected 4 tag records, got %d", len(doc.Tags))
	}
	if len(doc.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", doc.Warnings)
	}

	attrs := doc.AttributesOf(doc.Tags[1])
	if len(attrs) != 1 || attrs[0].Name != "onclick" || attrs[0].Value != "go()" {
		t.Errorf("button attributes = %+v", attrs)
	}
}

func TestParse_UnbalancedClose(t *testing.T) {
	doc := Parse(stream(
		"o", "div", "w", "A",
		"c", "span",
		"c", "div",
	))

	if n := countWarnings(doc, WarnUnbalancedTag); n != 1 {
		t.Fatalf("expected 1 unbalanced warning, got %d", n)
	}
	// </div> 仍然匹配，没有未闭合告警
	if n := countWarnings(doc, WarnStreamFormat); n != 0 {
		t.Errorf("expected no stream warnings, got %d", n)
	}
	if doc.Buffer[1] != "</span>" {
		t.Errorf("close fragment not kept: %q", doc.Buffer)
	}
}

func TestParse_UnclosedAtEnd(t *testing.T) {
	doc := Parse(stream("o", "section", "a", "id=main"))

	if doc.Buffer[0] != `<section id="main">` {
		t.Errorf("open fragment not terminated: %q", doc.Buffer[0])
	}
	if n := countWarnings(doc, WarnStreamFormat); n != 1 {
		t.Errorf("expected 1 stream warning, got %d", n)
	}
}

func TestParse_Assets(t *testing.T) {
	doc := Parse(stream(
		"o", "link", "a", "rel=stylesheet", "a", "href=/s.css",
		"o", "script", "a", "src=/app.js", "c", "script",
		"o", "script", "a", "src=https://www.google-analytics.com/ga.js", "c", "script",
		"o", "img", "a", "src=/logo.png",
		"o", "img", "a", "src=var(--hero)",
		"o", "link", "a", "rel=icon", "a", "href=/favicon.ico",
	))

	if len(doc.CSS) != 1 || doc.CSS[0].URL != "/s.css" {
		t.Errorf("css = %+v", doc.CSS)
	}
	if len(doc.JavaScript) != 1 || doc.JavaScript[0].URL != "/app.js" {
		t.Errorf("js = %+v", doc.JavaScript)
	}
	var imgs []string
	for _, ref := range doc.Images {
		imgs = append(imgs, ref.URL)
	}
	if !reflect.DeepEqual(imgs, []string{"/logo.png", "/favicon.ico"}) {
		t.Errorf("images = %q", imgs)
	}
}

func TestParse_TitleAndMeta(t *testing.T) {
	doc := Parse(stream(
		"o", "head",
		"o", "title", "w", "My", "w", "Site", "c", "title",
		"o", "meta", "a", "name=description", "a", "content=Hello world",
		"o", "meta", "a", "property=og:type", "a", "content=website",
		"c", "head",
		"o", "body", "o", "p", "a", "class=x", "c", "p", "c", "body",
	))

	if doc.Title != "My Site" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.MetaData["description"] != "Hello world" {
		t.Errorf("meta description = %q", doc.MetaData["description"])
	}
	if doc.MetaData["og:type"] != "website" {
		t.Errorf("meta og:type = %q", doc.MetaData["og:type"])
	}

	for _, a := range doc.Attributes {
		wantHead := a.Tag == "meta"
		if a.InHead != wantHead {
			t.Errorf("attribute %s.%s in_head = %v", a.Tag, a.Name, a.InHead)
		}
	}
}

func TestParse_ContentDedupAndEscaping(t *testing.T) {
	doc := Parse(stream(
		"o", "p", "w", "A", "c", "p",
		"o", "p", "w", "A", "w", "1<2", "c", "p",
		"w", "tail",
	))

	if got := doc.Content["p"]; !reflect.DeepEqual(got, []string{"A", "1<2"}) {
		t.Errorf("content[p] = %q", got)
	}
	for _, frag := range doc.Buffer {
		if strings.Contains(frag, "1<2") {
			t.Errorf("text not escaped in buffer: %q", frag)
		}
	}
	if doc.Buffer[2] != "<p>A 1&lt;2" {
		t.Errorf("fragment = %q", doc.Buffer[2])
	}
	if last := doc.Buffer[len(doc.Buffer)-1]; last != "tail" {
		t.Errorf("free text fragment = %q", last)
	}
}

func TestParse_AttributeWithoutTag(t *testing.T) {
	doc := Parse(stream("a", "class=x", "w", "loose"))

	if len(doc.Attributes) != 0 {
		t.Errorf("orphan attribute recorded: %+v", doc.Attributes)
	}
	if !reflect.DeepEqual(doc.Buffer, []string{"loose"}) {
		t.Errorf("buffer = %q", doc.Buffer)
	}
}
