package web

import (
	"io/fs"
	"testing"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates() error = %v", err)
	}
	if tmpl.Lookup("index.html") == nil {
		t.Fatal("index.html not parsed")
	}
}

func TestStaticServesStylesheet(t *testing.T) {
	b, err := fs.ReadFile(Static(), "site.css")
	if err != nil {
		t.Fatalf("read site.css: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("site.css is empty")
	}
}
