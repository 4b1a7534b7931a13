package internal

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeMirror(t *testing.T, dir, markup string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, MirrorFile), []byte(markup), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyMirror(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "mirrored_css"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mirrored_css", "css_1.css"), []byte("p{}"), 0644); err != nil {
		t.Fatal(err)
	}
	writeMirror(t, dir, `<!DOCTYPE html><html><head><title> Shop </title>
<link rel="stylesheet" href="mirrored_css/css_1.css">
<script src="mirrored_js/js_1.js" defer></script>
</head><body><div class="mirror-container">
<a href="/x">x</a>
<img src="mirrored_images/image_1.png"><img src="mirrored_images/image_1.png">
<img src="https://cdn.test/remote.png">
</div></body></html>`)

	report, err := VerifyMirror(dir)
	if err != nil {
		t.Fatalf("VerifyMirror: %v", err)
	}
	if report.Title != "Shop" || !report.HasContainer {
		t.Errorf("report = %+v", report)
	}
	if report.Links != 1 || report.Images != 3 || report.Scripts != 1 || report.Stylesheets != 1 {
		t.Errorf("counts = %+v", report)
	}
	want := []string{"mirrored_js/js_1.js", "mirrored_images/image_1.png"}
	if !reflect.DeepEqual(report.MissingAssets, want) {
		t.Errorf("missing = %q, want %q", report.MissingAssets, want)
	}
	if report.OK() {
		t.Error("report with missing assets should not be OK")
	}
}

func TestVerifyMirror_NoContainer(t *testing.T) {
	dir := t.TempDir()
	writeMirror(t, dir, "<html><body><p>x</p></body></html>")

	report, err := VerifyMirror(dir)
	if err != nil {
		t.Fatal(err)
	}
	if report.HasContainer || report.OK() {
		t.Errorf("report = %+v", report)
	}

	if _, err := VerifyMirror(t.TempDir()); err == nil {
		t.Error("expected error without mirror file")
	}
}
