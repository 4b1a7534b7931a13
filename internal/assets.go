package internal

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// AssetCache 规范化 URL 到下载结果的去重缓存，失败的结果同样缓存
// 脚本去掉查询串（避免缓存参数导致重复下载），样式表和图片按完整 URL
type AssetCache struct {
	results map[string]AssetResult
}

// NewAssetCache 创建空缓存
func NewAssetCache() *AssetCache {
	return &AssetCache{results: make(map[string]AssetResult)}
}

// CanonicalKey 缓存键
func CanonicalKey(kind AssetKind, rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if kind == AssetJS {
		u, _, _ = strings.Cut(u, "?")
	}
	return string(kind) + "|" + u
}

// Lookup 查询已有的下载结果
func (c *AssetCache) Lookup(kind AssetKind, rawURL string) (AssetResult, bool) {
	res, ok := c.results[CanonicalKey(kind, rawURL)]
	return res, ok
}

// Store 记录下载结果，同一个键只记录一次
func (c *AssetCache) Store(kind AssetKind, rawURL string, res AssetResult) {
	key := CanonicalKey(kind, rawURL)
	if _, ok := c.results[key]; !ok {
		c.results[key] = res
	}
}

// Len 已缓存的资源数
func (c *AssetCache) Len() int {
	return len(c.results)
}

// ResolveStats 资源镜像统计
type ResolveStats struct {
	Total    int
	Fetched  int
	CacheHit int
	Failures map[FailureKind]int
}

// ResolveAssets 依次下载 CSS、JS、图片，并把缓冲区里原始 URL 改写为本地路径
func ResolveAssets(ctx context.Context, doc *Document, f *Fetcher, opts Options) ResolveStats {
	logger := GetLogger()
	cache := NewAssetCache()
	stats := ResolveStats{Failures: make(map[FailureKind]int)}

	groups := []struct {
		kind   AssetKind
		refs   []*AssetRef
		budget Budget
	}{
		{AssetCSS, doc.CSS, opts.CSSBudget},
		{AssetJS, doc.JavaScript, opts.JSBudget},
		{AssetImage, doc.Images, opts.ImageBudget},
	}

	for _, g := range groups {
		stats.Total += len(g.refs)
	}

	done := 0
	for _, g := range groups {
		for i, ref := range g.refs {
			done++
			logger.Progress(done, stats.Total, "镜像资源")

			if prev, ok := cache.Lookup(g.kind, ref.URL); ok {
				if !prev.OK() {
					logger.Debug("跳过已失败的资源 (%s): %s", prev.Failure, ref.URL)
					stats.Failures[prev.Failure]++
					continue
				}
				ref.LocalPath = prev.LocalPath
				ref.Image = prev.image
				stats.CacheHit++
				rewriteBuffer(doc.Buffer, ref.URL, prev.LocalPath)
				continue
			}

			res := f.Fetch(ctx, ref.URL, g.kind, i+1, g.budget)
			if !res.OK() {
				cache.Store(g.kind, ref.URL, res)
				stats.Failures[res.Failure]++
				continue
			}

			ref.LocalPath = res.LocalPath
			stats.Fetched++
			rewriteBuffer(doc.Buffer, ref.URL, res.LocalPath)

			if g.kind == AssetImage {
				fp, err := FingerprintImage(filepath.Join(f.outputDir, filepath.FromSlash(res.LocalPath)))
				if err != nil {
					logger.Debug("图片指纹计算失败 %s: %v", res.LocalPath, err)
				} else {
					ref.Image = fp
					res.image = fp
				}
			}
			cache.Store(g.kind, ref.URL, res)
		}
	}

	logger.Info("资源镜像完成：共 %d 个引用，下载 %d 个，复用 %d 个，失败 %d 个",
		stats.Total, stats.Fetched, stats.CacheHit, stats.Total-stats.Fetched-stats.CacheHit)
	return stats
}

// rewriteBuffer 把缓冲区中所有原始 URL 替换为本地路径
func rewriteBuffer(buf []string, oldURL, localPath string) {
	if oldURL == "" {
		return
	}
	escaped := html.EscapeString(oldURL)
	for i, line := range buf {
		if strings.Contains(line, escaped) {
			buf[i] = strings.ReplaceAll(line, escaped, localPath)
		}
	}
}
