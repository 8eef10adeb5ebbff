package encoder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fileconv/config"
)

type stubCall struct {
	dir  string
	name string
	args []string
}

// stubRunner stands in for external tools: it records each call and drops
// canned output files into the working directory.
type stubRunner struct {
	mu     sync.Mutex
	calls  []stubCall
	inputs map[string][]byte
	output map[string][]byte
	err    error
	block  bool
}

func (s *stubRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{dir: dir, name: name, args: args})
	s.inputs = map[string][]byte{}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		data, _ := os.ReadFile(filepath.Join(dir, e.Name()))
		s.inputs[e.Name()] = data
	}
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	for file, data := range s.output {
		if err := os.WriteFile(filepath.Join(dir, file), data, 0o600); err != nil {
			return err
		}
	}
	return s.err
}

func renderConfig() config.RenderConfig {
	return config.RenderConfig{
		Timeout:     time.Second,
		PDFRenderer: "weasyprint",
		Office:      "libreoffice",
		PDFText:     "pdftotext",
	}
}

func assertRemoved(t *testing.T, dir string) {
	t.Helper()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Work dir %s should be removed, stat err = %v", dir, err)
	}
}

func TestMarkdownToPDF(t *testing.T) {
	runner := &stubRunner{output: map[string][]byte{"output.pdf": []byte("%PDF-1.7 fake")}}
	c := New(runner, renderConfig())

	out, err := c.MarkdownToPDF(context.Background(), []byte("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
	if err != nil {
		t.Fatalf("MarkdownToPDF failed: %v", err)
	}
	if string(out) != "%PDF-1.7 fake" {
		t.Errorf("Unexpected output %q", out)
	}
	if len(runner.calls) != 1 || runner.calls[0].name != "weasyprint" {
		t.Fatalf("Expected one weasyprint call, got %+v", runner.calls)
	}
	html := string(runner.inputs["input.html"])
	if !strings.Contains(html, "<h1>Title</h1>") || !strings.Contains(html, "<table>") {
		t.Errorf("Renderer input is missing markup: %s", html)
	}
	assertRemoved(t, runner.calls[0].dir)
}

func TestOfficeToPDF(t *testing.T) {
	runner := &stubRunner{output: map[string][]byte{"input.pdf": []byte("%PDF-office")}}
	c := New(runner, renderConfig())

	out, err := c.OfficeToPDF(context.Background(), []byte("PK\x03\x04docx"))
	if err != nil {
		t.Fatalf("OfficeToPDF failed: %v", err)
	}
	if string(out) != "%PDF-office" {
		t.Errorf("Unexpected output %q", out)
	}

	call := runner.calls[0]
	want := []string{"--headless", "--convert-to", "pdf", "--outdir", call.dir, filepath.Join(call.dir, "input.docx")}
	if call.name != "libreoffice" || strings.Join(call.args, " ") != strings.Join(want, " ") {
		t.Errorf("Unexpected invocation %s %v", call.name, call.args)
	}
	if string(runner.inputs["input.docx"]) != "PK\x03\x04docx" {
		t.Error("Input document was not written to the work dir")
	}
	assertRemoved(t, call.dir)
}

func TestOfficeToPDFMissingOutput(t *testing.T) {
	runner := &stubRunner{}
	_, err := New(runner, renderConfig()).OfficeToPDF(context.Background(), []byte("docx"))
	if err == nil || !strings.Contains(err.Error(), "no output file") {
		t.Errorf("Expected missing output error, got %v", err)
	}
	assertRemoved(t, runner.calls[0].dir)
}

func TestToolFailureRemovesWorkDir(t *testing.T) {
	runner := &stubRunner{err: errors.New("exit status 77")}
	_, err := New(runner, renderConfig()).MarkdownToPDF(context.Background(), []byte("hi"))
	if err == nil || !strings.Contains(err.Error(), "exit status 77") {
		t.Errorf("Expected tool error, got %v", err)
	}
	assertRemoved(t, runner.calls[0].dir)
}

func TestToolTimeout(t *testing.T) {
	cfg := renderConfig()
	cfg.Timeout = 50 * time.Millisecond
	runner := &stubRunner{block: true}

	start := time.Now()
	_, err := New(runner, cfg).OfficeToPDF(context.Background(), []byte("docx"))
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("Expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Timeout not enforced, took %s", elapsed)
	}
	assertRemoved(t, runner.calls[0].dir)
}

func TestPDFToMarkdown(t *testing.T) {
	runner := &stubRunner{output: map[string][]byte{"output.txt": []byte("Page one\n\fPage two\n\f")}}
	out, err := New(runner, renderConfig()).PDFToMarkdown(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("PDFToMarkdown failed: %v", err)
	}
	if want := "Page one\n\n\n---\n\n\nPage two"; string(out) != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
	if runner.calls[0].name != "pdftotext" {
		t.Errorf("Expected pdftotext, got %s", runner.calls[0].name)
	}
}

func TestPagesToMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single page", "Only page\n\f", "Only page"},
		{"no text", "\f\f", ""},
		{"empty first page", "\fSecond\n", "\n---\n\n\nSecond"},
		{"blank middle page", "A\f  \fC", "A\n\n\n---\n\n\nC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pagesToMarkdown(tt.in); got != tt.want {
				t.Errorf("pagesToMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderMarkdownHTML(t *testing.T) {
	src := "Intro\n\n```go\nfmt.Println(\"<hi>\")\n```\n\n<script>alert(1)</script>\n"
	html, err := RenderMarkdownHTML([]byte(src))
	if err != nil {
		t.Fatalf("RenderMarkdownHTML failed: %v", err)
	}
	s := string(html)
	if !strings.HasPrefix(s, "<!DOCTYPE html>") {
		t.Error("Expected a full HTML document")
	}
	if !strings.Contains(s, `<pre><code class="language-go">`) {
		t.Errorf("Fenced code block not rendered: %s", s)
	}
	if !strings.Contains(s, "&lt;hi&gt;") {
		t.Error("Code content should be escaped")
	}
	if strings.Contains(s, "<script>") {
		t.Error("Raw HTML must not pass through")
	}
}

func TestExecRunnerHonoursContext(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := ExecRunner{WaitDelay: time.Second}.Run(ctx, t.TempDir(), "sh", "-c", "sleep 10")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Process was not killed on timeout")
	}
}

func TestExecRunnerReportsOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := ExecRunner{}.Run(context.Background(), t.TempDir(), "sh", "-c", "echo broken input >&2; exit 3")
	if err == nil || !strings.Contains(err.Error(), "broken input") {
		t.Errorf("Expected tool output in error, got %v", err)
	}
}

func TestMissingToolFailsFast(t *testing.T) {
	cfg := renderConfig()
	cfg.PDFRenderer = "fileconv-no-such-renderer"
	cfg.Office = "fileconv-no-such-office"
	cfg.PDFText = "fileconv-no-such-pdftotext"
	runner := &stubRunner{}
	c := New(runner, cfg)

	status := c.RegisterDefaults()
	for _, name := range []string{"markdown_to_pdf", "office_to_pdf", "pdf_to_markdown"} {
		if status[name] {
			t.Errorf("%s should be reported unavailable", name)
		}
	}
	if !status["image_convert"] {
		t.Error("Image strategies need no tool and are always ready")
	}

	ctx := context.Background()
	_, err := c.MarkdownToPDF(ctx, []byte("# hi"))
	if !errors.Is(err, ErrToolUnavailable) || !strings.Contains(err.Error(), "fileconv-no-such-renderer") {
		t.Errorf("Expected tool unavailable naming the command, got %v", err)
	}
	if _, err := c.OfficeToPDF(ctx, []byte("docx")); !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("Expected tool unavailable, got %v", err)
	}
	if _, err := c.PDFToMarkdown(ctx, []byte("%PDF")); !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("Expected tool unavailable, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("No tool should be spawned, got %d calls", len(runner.calls))
	}
}

func TestRegisterFoundCommandClearsMissing(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	runner := &stubRunner{output: map[string][]byte{"output.pdf": []byte("%PDF-1.7")}}
	c := New(runner, renderConfig())

	if c.Register("markdown_to_pdf", "fileconv-no-such-renderer") {
		t.Fatal("Register should report a missing command")
	}
	if !c.Register("markdown_to_pdf", "sh") {
		t.Fatal("Register should find sh")
	}
	if _, err := c.MarkdownToPDF(context.Background(), []byte("# hi")); err != nil {
		t.Errorf("Strategy should run once its tool is found, got %v", err)
	}
}
