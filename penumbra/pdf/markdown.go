package pdf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"penumbra/penumbra/papers"
	"strings"

	"github.com/gen2brain/go-fitz"
)

type ConvertOptions struct {
	// ForceOCR and OCRLanguage are accepted for config compatibility but not
	// implemented; the converter extracts the text layer only.
	ForceOCR    bool
	OCRLanguage string
}

// Converter renders pdf text layers into markdown files.
type Converter struct {
	dir  string
	opts ConvertOptions
}

func NewConverter(dir string, opts ConvertOptions) *Converter {
	if opts.ForceOCR {
		slog.Warn("ocr requested but not supported, extracting text layer only")
	}
	return &Converter{dir: dir, opts: opts}
}

// Convert writes <dir>/<filename base>.md from the pdf at pdfPath and returns
// the markdown path. An existing file is reused.
func (c *Converter) Convert(paper *papers.Paper, pdfPath string) (string, error) {
	target := filepath.Join(c.dir, paper.FilenameBase()+".md")

	if _, err := os.Stat(target); err == nil {
		slog.Info("markdown already exists", "path", target)
		return target, nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("error creating markdown dir: %w", err)
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("error opening pdf: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	if paper.Title != "" {
		sb.WriteString("# " + paper.Title + "\n\n")
	}

	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			return "", fmt.Errorf("error extracting text from page %d: %w", page, err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	if err := os.WriteFile(target, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("error writing markdown file: %w", err)
	}

	return target, nil
}
