package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// VerifyReport 对生成页面的检查结果
type VerifyReport struct {
	Title         string   `json:"title"`
	Elements      int      `json:"elements"`
	Links         int      `json:"links"`
	Images        int      `json:"images"`
	Scripts       int      `json:"scripts"`
	Stylesheets   int      `json:"stylesheets"`
	HasContainer  bool     `json:"has_container"`
	MissingAssets []string `json:"missing_assets"`
}

// OK 骨架完整且引用的本地资源都存在
func (r *VerifyReport) OK() bool {
	return r.HasContainer && len(r.MissingAssets) == 0
}

// VerifyMirror 重新解析输出目录中的 mirrored_site.html，统计元素并检查本地资源引用
func VerifyMirror(outputDir string) (*VerifyReport, error) {
	path := filepath.Join(outputDir, MirrorFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 %s 失败: %w", MirrorFile, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", MirrorFile, err)
	}

	report := &VerifyReport{
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
		Elements:      doc.Find("*").Length(),
		Links:         doc.Find("a[href]").Length(),
		Images:        doc.Find("img").Length(),
		Scripts:       doc.Find("script[src]").Length(),
		Stylesheets:   doc.Find(`link[rel="stylesheet"]`).Length(),
		HasContainer:  doc.Find("body > div.mirror-container").Length() == 1,
		MissingAssets: []string{},
	}

	seen := make(map[string]bool)
	check := func(ref string) {
		if !isMirroredPath(ref) || seen[ref] {
			return
		}
		seen[ref] = true
		if _, err := os.Stat(filepath.Join(outputDir, filepath.FromSlash(ref))); err != nil {
			report.MissingAssets = append(report.MissingAssets, ref)
		}
	}
	doc.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		check(s.AttrOr("src", ""))
	})
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		check(s.AttrOr("href", ""))
	})

	return report, nil
}

func isMirroredPath(ref string) bool {
	for _, kind := range []AssetKind{AssetCSS, AssetJS, AssetImage} {
		if strings.HasPrefix(ref, assetDir(kind)+"/") {
			return true
		}
	}
	return false
}
