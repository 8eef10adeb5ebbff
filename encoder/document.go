package encoder

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8">
<style>
    body { font-family: sans-serif; margin: 40px; line-height: 1.6; }
    code { background: #f4f4f4; padding: 2px 6px; border-radius: 3px; }
    pre { background: #f4f4f4; padding: 16px; border-radius: 6px; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
</style>
</head>
<body>{{.}}</body>
</html>
`))

// RenderMarkdownHTML turns markdown (tables and fenced code included) into a
// standalone styled HTML page. Raw HTML in the source is dropped.
func RenderMarkdownHTML(src []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var page bytes.Buffer
	if err := pageTemplate.Execute(&page, template.HTML(body.String())); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return page.Bytes(), nil
}

// MarkdownToPDF renders markdown to HTML, then has the HTML renderer print it
func (c *Converter) MarkdownToPDF(ctx context.Context, data []byte) ([]byte, error) {
	if err := c.requireTool("markdown_to_pdf"); err != nil {
		return nil, err
	}
	html, err := RenderMarkdownHTML(data)
	if err != nil {
		return nil, err
	}
	return withWorkDir(func(dir string) ([]byte, error) {
		if err := os.WriteFile(filepath.Join(dir, "input.html"), html, 0o600); err != nil {
			return nil, err
		}
		if err := c.runWithTimeout(ctx, dir, c.cfg.PDFRenderer, "input.html", "output.pdf"); err != nil {
			return nil, err
		}
		return readOutput(dir, "output.pdf", c.cfg.PDFRenderer)
	})
}

// OfficeToPDF converts a word-processing document with a headless office suite
func (c *Converter) OfficeToPDF(ctx context.Context, data []byte) ([]byte, error) {
	if err := c.requireTool("office_to_pdf"); err != nil {
		return nil, err
	}
	return withWorkDir(func(dir string) ([]byte, error) {
		input := filepath.Join(dir, "input.docx")
		if err := os.WriteFile(input, data, 0o600); err != nil {
			return nil, err
		}
		err := c.runWithTimeout(ctx, dir, c.cfg.Office,
			"--headless", "--convert-to", "pdf", "--outdir", dir, input)
		if err != nil {
			return nil, err
		}
		return readOutput(dir, "input.pdf", c.cfg.Office)
	})
}

// PDFToMarkdown extracts the text layer page by page. Pages with text are
// kept; every page after the first is preceded by a horizontal rule.
func (c *Converter) PDFToMarkdown(ctx context.Context, data []byte) ([]byte, error) {
	if err := c.requireTool("pdf_to_markdown"); err != nil {
		return nil, err
	}
	return withWorkDir(func(dir string) ([]byte, error) {
		if err := os.WriteFile(filepath.Join(dir, "input.pdf"), data, 0o600); err != nil {
			return nil, err
		}
		if err := c.runWithTimeout(ctx, dir, c.cfg.PDFText, "-layout", "-enc", "UTF-8", "input.pdf", "output.txt"); err != nil {
			return nil, err
		}
		text, err := readOutput(dir, "output.txt", c.cfg.PDFText)
		if err != nil {
			return nil, err
		}
		return []byte(pagesToMarkdown(string(text))), nil
	})
}

// pagesToMarkdown splits extracted text on form feeds, one per page
func pagesToMarkdown(text string) string {
	pages := strings.Split(text, "\f")
	var parts []string
	for i, page := range pages {
		page = strings.TrimRight(page, " \t\r\n")
		if strings.TrimSpace(page) == "" {
			continue
		}
		if i > 0 {
			parts = append(parts, "\n---\n")
		}
		parts = append(parts, page)
	}
	return strings.Join(parts, "\n\n")
}

func readOutput(dir, name, tool string) ([]byte, error) {
	out, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s produced no output file %s", tool, name)
		}
		return nil, err
	}
	return out, nil
}
