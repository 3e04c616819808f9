package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// PDFExtractor turns PDF bytes into layout-preserving plain text.
type PDFExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// PDFToText shells out to poppler's pdftotext in layout mode.
type PDFToText struct {
	Binary  string
	Timeout time.Duration
}

func NewPDFToText() *PDFToText {
	return &PDFToText{Binary: "pdftotext", Timeout: 2 * time.Minute}
}

func (p *PDFToText) Extract(ctx context.Context, data []byte) (string, error) {
	if _, err := exec.LookPath(p.Binary); err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", p.Binary, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "tara_pdftotext_*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "in.pdf")
	outPath := filepath.Join(tmpDir, "out.txt")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}

	cmd := exec.CommandContext(callCtx, p.Binary, "-layout", "-enc", "UTF-8", "-q", inPath, outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return "", fmt.Errorf("pdftotext: %w; stderr=%s", err, s)
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}

	b, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read pdftotext output: %w", err)
	}
	return string(b), nil
}

var bulletPrefixes = []string{"•", "-", "*", "1.", "2.", "3."}

// NormalizeLayout pads structural lines so the splitter keeps headers and list items whole.
// Bullet and numbered lines get a blank line before them; ALL-CAPS or colon-bearing lines get
// blank lines on both sides. Pages (form feeds) are joined with a newline.
func NormalizeLayout(text string) string {
	pages := strings.Split(text, "\f")
	out := make([]string, 0, len(pages))
	for _, page := range pages {
		lines := strings.Split(page, "\n")
		formatted := make([]string, 0, len(lines))
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			switch {
			case hasAnyPrefix(trimmed, bulletPrefixes):
				formatted = append(formatted, "\n"+line)
			case isUpper(trimmed) || strings.Contains(line, ":"):
				formatted = append(formatted, "\n\n"+line+"\n")
			default:
				formatted = append(formatted, line)
			}
		}
		out = append(out, strings.Join(formatted, "\n"))
	}
	return strings.Join(out, "\n")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// isUpper is true when s has at least one letter and no lowercase letters.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
