package internal

import (
	"net/url"
	"regexp"
	"strings"
)

var absoluteURLPattern = regexp.MustCompile(`https?://[^\s"']+`)

// ResolveBaseURL 确定解析相对资源地址用的源站
// 优先级：显式指定 > <base href> > canonical 链接的 origin > token 中第一个绝对 URL 的 origin > 默认值
func ResolveBaseURL(explicit string, tokens []Token) string {
	logger := GetLogger()

	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if !strings.Contains(explicit, "://") {
			explicit = "https://" + explicit
		}
		return explicit
	}

	if href := tagAttr(tokens, "base", "href", nil); strings.HasPrefix(href, "http") {
		logger.Info("从 <base href> 获取源站: %s", href)
		return href
	}

	isCanonical := func(attrs map[string]string) bool { return attrs["rel"] == "canonical" }
	if href := tagAttr(tokens, "link", "href", isCanonical); strings.HasPrefix(href, "http") {
		if origin := originOf(href); origin != "" {
			logger.Info("从 canonical 链接获取源站: %s", origin)
			return origin
		}
	}

	for _, tok := range tokens {
		if m := absoluteURLPattern.FindString(tok.Value); m != "" {
			if origin := originOf(m); origin != "" {
				logger.Info("从内容中获取源站: %s", origin)
				return origin
			}
		}
	}

	logger.Warn("无法确定源站，使用默认值 %s", DefaultBaseURL)
	return DefaultBaseURL
}

// tagAttr 找到第一个名为 tag、满足 match 的元素，返回其 attr 属性值
func tagAttr(tokens []Token, tag, attr string, match func(map[string]string) bool) string {
	for i := 0; i < len(tokens); i++ {
		if tokens[i].Kind != TokenTagOpen || strings.TrimSpace(tokens[i].Value) != tag {
			continue
		}
		attrs := make(map[string]string)
		for j := i + 1; j < len(tokens) && tokens[j].Kind == TokenAttribute; j++ {
			k, v, ok := strings.Cut(tokens[j].Value, "=")
			if ok {
				attrs[cleanAttrKey(k)] = cleanAttrValue(v)
			}
		}
		if v, ok := attrs[attr]; ok && (match == nil || match(attrs)) {
			return v
		}
	}
	return ""
}

// originOf 返回 scheme://host
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// resolveURL 把相对地址解析为绝对地址
func resolveURL(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
