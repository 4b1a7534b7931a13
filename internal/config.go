package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig YAML 配置文件，字段为空时保留默认值
type FileConfig struct {
	OutputDir      string        `yaml:"output_dir"`
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	CSSMaxMB       int           `yaml:"css_max_mb"`
	JSMaxMB        int           `yaml:"js_max_mb"`
	ImageMaxMB     int           `yaml:"image_max_mb"`
	Probe          bool          `yaml:"probe"`
	Preview        bool          `yaml:"preview"`
	PreviewTimeout time.Duration `yaml:"preview_timeout"`
	Markdown       bool          `yaml:"markdown"`
	Classifier     *bool         `yaml:"classifier"`
	Insecure       bool          `yaml:"insecure"`
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	b := func(max int64) Budget {
		return Budget{MaxBytes: max, Timeout: DefaultTimeout, MaxRetries: DefaultRetries}
	}
	return Options{
		OutputDir:      "mirror_output",
		CSSBudget:      b(DefaultCSSMax),
		JSBudget:       b(DefaultJSMax),
		ImageBudget:    b(DefaultImageMax),
		PreviewTimeout: 30 * time.Second,
	}
}

// LoadConfig 读取并解析 YAML 配置
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置 %s 失败: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate 检查数值范围
func (c *FileConfig) Validate() error {
	if c.Timeout < 0 || c.PreviewTimeout < 0 {
		return fmt.Errorf("timeout 不能为负数")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries 不能为负数")
	}
	if c.CSSMaxMB < 0 || c.JSMaxMB < 0 || c.ImageMaxMB < 0 {
		return fmt.Errorf("资源大小上限不能为负数")
	}
	return nil
}

// Apply 把配置文件中设置过的字段覆盖到 opts
func (c *FileConfig) Apply(opts *Options) {
	if c.OutputDir != "" {
		opts.OutputDir = c.OutputDir
	}
	if c.BaseURL != "" {
		opts.BaseURL = c.BaseURL
	}
	for _, b := range opts.budgets() {
		if c.Timeout > 0 {
			b.Timeout = c.Timeout
		}
		if c.MaxRetries > 0 {
			b.MaxRetries = c.MaxRetries
		}
	}
	if c.CSSMaxMB > 0 {
		opts.CSSBudget.MaxBytes = mb(c.CSSMaxMB)
	}
	if c.JSMaxMB > 0 {
		opts.JSBudget.MaxBytes = mb(c.JSMaxMB)
	}
	if c.ImageMaxMB > 0 {
		opts.ImageBudget.MaxBytes = mb(c.ImageMaxMB)
	}
	opts.Probe = opts.Probe || c.Probe
	opts.Preview = opts.Preview || c.Preview
	opts.Markdown = opts.Markdown || c.Markdown
	opts.Insecure = opts.Insecure || c.Insecure
	if c.PreviewTimeout > 0 {
		opts.PreviewTimeout = c.PreviewTimeout
	}
	if c.Classifier != nil {
		opts.NoClassifier = !*c.Classifier
	}
}

// applyDefaults 补齐未设置的字段
func (o *Options) applyDefaults() {
	def := DefaultOptions()
	if o.OutputDir == "" {
		o.OutputDir = def.OutputDir
	}
	defBudgets := def.budgets()
	for i, b := range o.budgets() {
		if b.MaxBytes <= 0 {
			b.MaxBytes = defBudgets[i].MaxBytes
		}
		if b.Timeout <= 0 {
			b.Timeout = DefaultTimeout
		}
		if b.MaxRetries <= 0 {
			b.MaxRetries = DefaultRetries
		}
	}
	if o.PreviewTimeout <= 0 {
		o.PreviewTimeout = def.PreviewTimeout
	}
}

// budgets 顺序与资源解析顺序一致：css、js、image
func (o *Options) budgets() []*Budget {
	return []*Budget{&o.CSSBudget, &o.JSBudget, &o.ImageBudget}
}

func mb(n int) int64 {
	return int64(n) * 1024 * 1024
}
