package internal

import "testing"

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		tokens   []Token
		want     string
	}{
		{"explicit without scheme", "example.org", nil, "https://example.org"},
		{"explicit with scheme", "http://a.test", stream("o", "base", "a", "href=https://b.test/"), "http://a.test"},
		{"base href", "", stream("o", "base", "a", "href=https://a.test/x/"), "https://a.test/x/"},
		{
			"canonical origin", "",
			stream("o", "link", "a", "rel=canonical", "a", "href=https://b.test/page?q=1"),
			"https://b.test",
		},
		{
			"canonical needs rel", "",
			stream("o", "link", "a", "rel=stylesheet", "a", "href=/s.css"),
			DefaultBaseURL,
		},
		{"first absolute url", "", stream("w", "see https://c.test/foo for more"), "https://c.test"},
		{"fallback", "", stream("o", "p", "w", "nothing"), DefaultBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveBaseURL(tt.explicit, tt.tokens); got != tt.want {
				t.Errorf("ResolveBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"https://a.test/x/", "img.png", "https://a.test/x/img.png"},
		{"https://a.test/x/", "/root.css", "https://a.test/root.css"},
		{"https://a.test", "//cdn.test/a.js", "https://cdn.test/a.js"},
		{"https://a.test", "http://other.test/b.js", "http://other.test/b.js"},
	}
	for _, tt := range tests {
		got, err := resolveURL(tt.base, tt.ref)
		if err != nil {
			t.Errorf("resolveURL(%q, %q): %v", tt.base, tt.ref, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}
