package internal

import (
	"fmt"
	"time"
)

// TokenKind token 类型
type TokenKind string

const (
	TokenTagOpen   TokenKind = "tag_open"
	TokenAttribute TokenKind = "attribute"
	TokenWord      TokenKind = "word"
	TokenTagClose  TokenKind = "tag_close"
)

// Token 外部 tokenizer 产出的一条解析指令
type Token struct {
	Kind  TokenKind `json:"kind"`
	Value string    `json:"value"`
}

// TagRecord 标签记录（开/闭）
type TagRecord struct {
	Type     string `json:"type"` // "open" or "close"
	Name     string `json:"name"`
	Position int    `json:"position"` // token 流中的下标
}

// IsOpen 是否为开标签
func (t TagRecord) IsOpen() bool {
	return t.Type == TagOpen
}

const (
	TagOpen  = "open"
	TagClose = "close"
)

// AttributeRecord 属性记录
type AttributeRecord struct {
	Tag         string `json:"tag"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	InHead      bool   `json:"in_head"`
	TagPosition int    `json:"-"` // 所属开标签的位置，用于精确查找
}

// AssetKind 资源类型
type AssetKind string

const (
	AssetCSS   AssetKind = "css"
	AssetJS    AssetKind = "js"
	AssetImage AssetKind = "image"
)

// AssetRef 外部资源引用
type AssetRef struct {
	Kind      AssetKind         `json:"-"`
	URL       string            `json:"url"`
	LocalPath string            `json:"local_path"` // 空字符串表示未镜像
	Image     *ImageFingerprint `json:"fingerprint,omitempty"`
}

// ImageFingerprint 镜像图片的感知哈希
type ImageFingerprint struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PHash  string `json:"phash"`
}

// WarningKind 非致命问题的类别
type WarningKind string

const (
	WarnStreamFormat  WarningKind = "stream_format"
	WarnUnbalancedTag WarningKind = "unbalanced_tag"
	WarnSerialization WarningKind = "serialization"
)

// Warning 处理过程中记录的非致命问题
type Warning struct {
	Kind     WarningKind
	Position int
	Message  string
}

// Document 单个文档的全部解析状态
// 由解析器创建，依次传给分类、镜像、重建、汇总各阶段，处理完即丢弃
type Document struct {
	Tags       []TagRecord
	Attributes []AttributeRecord

	Content           map[string][]string
	FunctionalContent map[string][]string
	VisualContent     map[string][]string
	PredictedContent  map[string]string

	MetaData map[string]string
	Title    string

	CSS        []*AssetRef
	JavaScript []*AssetRef
	Images     []*AssetRef

	// Buffer 重建缓冲区，资源 URL 改写时原地修改
	Buffer []string

	Warnings []Warning
}

// NewDocument 创建空文档
func NewDocument() *Document {
	return &Document{
		Content:           make(map[string][]string),
		FunctionalContent: make(map[string][]string),
		VisualContent:     make(map[string][]string),
		PredictedContent:  make(map[string]string),
		MetaData:          make(map[string]string),
	}
}

// OpenTags 返回所有开标签记录
func (d *Document) OpenTags() []TagRecord {
	var open []TagRecord
	for _, t := range d.Tags {
		if t.IsOpen() {
			open = append(open, t)
		}
	}
	return open
}

// AttributesOf 返回某个开标签自身的属性
func (d *Document) AttributesOf(tag TagRecord) []AttributeRecord {
	var attrs []AttributeRecord
	for _, a := range d.Attributes {
		if a.TagPosition == tag.Position {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

func (d *Document) warn(kind WarningKind, pos int, format string, args ...interface{}) {
	w := Warning{Kind: kind, Position: pos, Message: fmt.Sprintf(format, args...)}
	d.Warnings = append(d.Warnings, w)
	GetLogger().Warn("[%s] %s", kind, w.Message)
}

// Budget 单类资源的下载限制
type Budget struct {
	MaxBytes   int64         `yaml:"max_bytes"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Options 配置选项
type Options struct {
	TokensPath string // token 文件路径（.json 或行对格式）
	OutputDir  string
	BaseURL    string // 为空时从 token 流推断

	CSSBudget   Budget
	JSBudget    Budget
	ImageBudget Budget

	Probe          bool // 下载前探测源站连通性
	Preview        bool // 用 headless Chrome 截图
	Markdown       bool // 额外输出 mirrored_site.md
	NoClassifier   bool // 关闭分类器，直接走静态白名单
	Insecure       bool // 忽略源站证书错误
	PreviewTimeout time.Duration
}

// Report 一次运行的结果摘要
type Report struct {
	BaseURL       string
	Title         string
	TagCount      int
	AssetsTotal   int
	AssetsFetched int
	Warnings      []Warning
	Classifier    ClassifyOutcome
	Verification  *VerifyReport
	Preview       *PreviewInfo
	Files         []string
}

// 常量定义
const (
	FunctionalityFile = "site_functionality.json"
	VisualFile        = "site_visual_structure.json"
	MirrorFile        = "mirrored_site.html"
	MarkdownFile      = "mirrored_site.md"
	PreviewFile       = "mirrored_preview.png"

	DefaultBaseURL  = "http://example.com"
	DefaultTitle    = "Mirrored Site"
	ChunkSize       = 64 * 1024        // 下载分块大小
	DefaultCSSMax   = 2 * 1024 * 1024  // CSS 上限 2MB
	DefaultJSMax    = 5 * 1024 * 1024  // JS 上限 5MB
	DefaultImageMax = 8 * 1024 * 1024  // 图片上限 8MB
	DefaultTimeout  = 15 * time.Second // 单次请求超时
	DefaultRetries  = 3
	StructureLimit  = 50 // html_structure 预览的最大标签数
)
