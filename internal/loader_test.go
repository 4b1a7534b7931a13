package internal

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseTokenLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []Token
	}{
		{
			name:  "pairs",
			lines: []string{"tag_open", "div", "word", "hi there", "tag_close", "div"},
			want: []Token{
				{TokenTagOpen, "div"},
				{TokenWord, "hi there"},
				{TokenTagClose, "div"},
			},
		},
		{
			name:  "unknown kind skipped",
			lines: []string{"comment", "tag_open", "p"},
			want:  []Token{{TokenTagOpen, "p"}},
		},
		{
			name:  "dangling kind",
			lines: []string{"tag_open", "p", "word"},
			want:  []Token{{TokenTagOpen, "p"}},
		},
		{
			name:  "blank lines between pairs",
			lines: []string{"", "attribute", "class=a", ""},
			want:  []Token{{TokenAttribute, "class=a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTokenLines(tt.lines)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadTokens_LineFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	data := "tag_open\r\nspan\r\nword\r\nok\r\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	tokens, err := LoadTokens(path)
	if err != nil {
		t.Fatalf("LoadTokens: %v", err)
	}
	want := []Token{{TokenTagOpen, "span"}, {TokenWord, "ok"}}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("got %+v", tokens)
	}
}

func TestLoadTokens_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	data := `[{"kind":"tag_open","value":"a"},{"kind":"bogus","value":"x"},{"kind":"attribute","value":"href=/"}]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	tokens, err := LoadTokens(path)
	if err != nil {
		t.Fatalf("LoadTokens: %v", err)
	}
	want := []Token{{TokenTagOpen, "a"}, {TokenAttribute, "href=/"}}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("got %+v", tokens)
	}
}

func TestLoadTokens_Errors(t *testing.T) {
	if _, err := LoadTokens(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTokens(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
