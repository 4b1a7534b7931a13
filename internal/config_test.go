package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Apply(t *testing.T) {
	path := writeConfig(t, `
output_dir: out
base_url: https://a.test
timeout: 5s
max_retries: 2
css_max_mb: 1
image_max_mb: 20
markdown: true
classifier: false
insecure: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	opts := DefaultOptions()
	cfg.Apply(&opts)

	if opts.OutputDir != "out" || opts.BaseURL != "https://a.test" {
		t.Errorf("opts = %+v", opts)
	}
	for _, b := range opts.budgets() {
		if b.Timeout != 5*time.Second || b.MaxRetries != 2 {
			t.Errorf("budget = %+v", *b)
		}
	}
	if opts.CSSBudget.MaxBytes != 1<<20 || opts.ImageBudget.MaxBytes != 20<<20 {
		t.Errorf("css=%d image=%d", opts.CSSBudget.MaxBytes, opts.ImageBudget.MaxBytes)
	}
	if opts.JSBudget.MaxBytes != DefaultJSMax {
		t.Errorf("js budget changed: %d", opts.JSBudget.MaxBytes)
	}
	if !opts.Markdown || !opts.NoClassifier || !opts.Insecure || opts.Preview {
		t.Errorf("switches = %+v", opts)
	}
}

func TestLoadConfig_ClassifierUnset(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "probe: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.NoClassifier = true
	cfg.Apply(&opts)
	if !opts.NoClassifier || !opts.Probe {
		t.Errorf("opts = %+v", opts)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative retries", "max_retries: -1\n"},
		{"negative size", "js_max_mb: -3\n"},
		{"bad duration", "timeout: soon\n"},
		{"not yaml", "[::\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	var opts Options
	opts.JSBudget.MaxBytes = 42
	opts.applyDefaults()

	if opts.OutputDir == "" || opts.PreviewTimeout <= 0 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.JSBudget.MaxBytes != 42 {
		t.Errorf("explicit budget overwritten: %d", opts.JSBudget.MaxBytes)
	}
	if opts.CSSBudget.MaxBytes != DefaultCSSMax || opts.ImageBudget.MaxBytes != DefaultImageMax {
		t.Errorf("defaults not applied: %+v %+v", opts.CSSBudget, opts.ImageBudget)
	}
	if opts.CSSBudget.Timeout != DefaultTimeout || opts.CSSBudget.MaxRetries != DefaultRetries {
		t.Errorf("css budget = %+v", opts.CSSBudget)
	}
}
