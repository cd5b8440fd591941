// Package convert renders markdown reports into deliverable files.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

// Converter writes reports into a single output directory.
// The directory must exist; it is created at startup, not here.
type Converter struct {
	dir     string
	pdfFont string
}

var _ ports.Converter = (*Converter)(nil)

// Option configures a Converter.
type Option func(*Converter)

// WithPDFFont sets a UTF-8 TrueType font for PDF output.
// Without it PDFs use a core font limited to Western European text.
func WithPDFFont(path string) Option {
	return func(c *Converter) { c.pdfFont = path }
}

// New creates a converter writing into dir.
func New(dir string, opts ...Option) *Converter {
	c := &Converter{dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert implements ports.Converter.
func (c *Converter) Convert(ctx context.Context, markdown string, format domain.Format, stem string) (string, error) {
	if !format.Valid() {
		return "", &domain.UnsupportedFormatError{Format: string(format)}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(c.dir, stem+format.Ext())

	var err error
	switch format {
	case domain.FormatMarkdown:
		err = os.WriteFile(path, []byte(markdown), 0644)
	case domain.FormatPDF:
		err = writePDF(path, markdown, c.pdfFont)
	case domain.FormatDOCX:
		err = writeDOCX(path, markdown)
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", format, err)
	}
	return path, nil
}
