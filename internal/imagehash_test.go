package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFingerprintImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(path, testPNG(t, 32, 20), 0644); err != nil {
		t.Fatal(err)
	}

	fp, err := FingerprintImage(path)
	if err != nil {
		t.Fatalf("FingerprintImage: %v", err)
	}
	if fp.Width != 32 || fp.Height != 20 || len(fp.PHash) != 16 {
		t.Errorf("fingerprint = %+v", fp)
	}

	again, err := fingerprintBytes(testPNG(t, 32, 20))
	if err != nil || again.PHash != fp.PHash {
		t.Errorf("hash not stable: %+v (%v)", again, err)
	}
}

func TestFingerprintBytes_Errors(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("<svg xmlns='http://www.w3.org/2000/svg'/>"),
	} {
		if _, err := fingerprintBytes(data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := FingerprintImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
