package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperifyio/bookmarkd/internal/store"
)

func sample() []store.Bookmark {
	return []store.Bookmark{
		{ID: "1", URL: "https://example.com/a", Title: "First [draft]", Tags: []string{"go", "web"}, Summary: "About Go."},
		{ID: "2", URL: "https://example.com/b", Summary: "Café notes."},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatJSON, "JSON": FormatJSON, "md": FormatMarkdown, "markdown": FormatMarkdown, "pdf": FormatPDF}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Fatal("expected error for docx")
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, "", sample()); err != nil {
		t.Fatal(err)
	}
	var got []store.Bookmark
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" {
		t.Fatalf("unexpected export: %+v", got)
	}

	buf.Reset()
	if err := Write(&buf, FormatJSON, "", nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("empty export should be [], got %q", buf.String())
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown("My links", sample())
	for _, want := range []string{
		"# My links\n",
		"## First (draft)\n",
		"[https://example.com/a](https://example.com/a)",
		"Tags: go, web",
		"About Go.",
		"## https://example.com/b\n",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("missing %q in:\n%s", want, md)
		}
	}
	if strings.Index(md, "example.com/a") > strings.Index(md, "example.com/b") {
		t.Fatal("order not preserved")
	}
}

func TestWrite_PDF(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatPDF, "Bookmarks", sample()); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
	if !bytes.Contains(buf.Bytes(), []byte("/URI")) {
		t.Fatal("expected a link annotation in the PDF")
	}
}
