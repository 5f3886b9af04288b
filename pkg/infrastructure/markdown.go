package infrastructure

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

//go:embed templates/resume.html
var templateFS embed.FS

// DocumentRenderer turns a Markdown resume into a standalone HTML page.
// Raw HTML inside the Markdown is dropped.
type DocumentRenderer struct {
	md  goldmark.Markdown
	tpl *template.Template
}

func NewDocumentRenderer() (*DocumentRenderer, error) {
	tpl, err := template.ParseFS(templateFS, "templates/resume.html")
	if err != nil {
		return nil, fmt.Errorf("parse resume template: %w", err)
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	return &DocumentRenderer{md: md, tpl: tpl}, nil
}

// Body converts markdown to an HTML fragment.
func (r *DocumentRenderer) Body(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// Page wraps the converted markdown into the print template.
func (r *DocumentRenderer) Page(title, markdown string) (string, error) {
	body, err := r.Body(markdown)
	if err != nil {
		return "", err
	}
	data := struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		// goldmark escapes raw HTML unless WithUnsafe is set.
		Body: template.HTML(body),
	}
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute resume template: %w", err)
	}
	return buf.String(), nil
}
