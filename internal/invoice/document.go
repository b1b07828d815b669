package invoice

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is the raw text of one uploaded invoice PDF plus page metadata.
// It is immutable once loaded and discarded after extraction.
type Document struct {
	Source string
	Pages  int
	Lines  []string
}

// Text returns the full document text with one line per extracted text row.
func (d *Document) Text() string {
	return strings.Join(d.Lines, "\n")
}

// Load validates the PDF at path and extracts its text lines. Validation is
// relaxed: vendor invoices are frequently produced by sloppy generators.
func Load(path string) (*Document, error) {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	if err := pdfapi.ValidateFile(path, conf); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	pages, err := pdfapi.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("page count %s: %w", path, err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("extract text from %s page %d: %w", path, i, err)
		}
		for _, row := range rows {
			var sb strings.Builder
			for _, word := range row.Content {
				sb.WriteString(word.S)
			}
			if s := strings.TrimSpace(sb.String()); s != "" {
				lines = append(lines, s)
			}
		}
	}

	return &Document{Source: path, Pages: pages, Lines: lines}, nil
}
