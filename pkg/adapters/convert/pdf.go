package convert

import (
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pdfFamily     = "Helvetica"
	pdfUTF8Family = "report"
	bodySize      = 11
	lineHeight    = 6
)

var headingSizes = map[int]float64{1: 18, 2: 15, 3: 13}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	source []byte
}

func writePDF(path, markdown, fontPath string) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)

	w := &pdfWriter{pdf: doc, family: pdfFamily, source: []byte(markdown)}
	if fontPath != "" {
		doc.AddUTF8Font(pdfUTF8Family, "", fontPath)
		doc.AddUTF8Font(pdfUTF8Family, "B", fontPath)
		w.family = pdfUTF8Family
		w.tr = func(s string) string { return s }
	} else {
		w.tr = doc.UnicodeTranslatorFromDescriptor("")
	}

	doc.AddPage()
	doc.SetFont(w.family, "", bodySize)

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(w.source))
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, 0)
	}

	if err := doc.Error(); err != nil {
		return err
	}
	return doc.OutputFileAndClose(path)
}

func (w *pdfWriter) block(n ast.Node, depth int) {
	switch node := n.(type) {
	case *ast.Heading:
		size, ok := headingSizes[node.Level]
		if !ok {
			size = bodySize + 1
		}
		w.pdf.Ln(2)
		w.pdf.SetFont(w.family, "B", size)
		w.pdf.MultiCell(0, size*0.5, w.tr(inlineText(node, w.source)), "", "L", false)
		w.pdf.SetFont(w.family, "", bodySize)
		w.pdf.Ln(2)
	case *ast.Paragraph, *ast.TextBlock:
		w.paragraph(inlineText(node, w.source), depth)
	case *ast.List:
		i := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "- "
			if node.IsOrdered() {
				marker = strconv.Itoa(i) + ". "
				i++
			}
			w.listItem(item, marker, depth)
		}
		w.pdf.Ln(1)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.pdf.SetFont("Courier", "", bodySize-1)
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line := strings.TrimRight(string(seg.Value(w.source)), "\n")
			w.pdf.MultiCell(0, lineHeight-1, w.tr(line), "", "L", false)
		}
		w.pdf.SetFont(w.family, "", bodySize)
		w.pdf.Ln(2)
	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c, depth+1)
		}
	case *ast.ThematicBreak:
		x, y := w.pdf.GetXY()
		pageW, _ := w.pdf.GetPageSize()
		_, _, right, _ := w.pdf.GetMargins()
		w.pdf.Line(x, y+2, pageW-right, y+2)
		w.pdf.Ln(5)
	case *east.Table:
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, inlineText(cell, w.source))
			}
			style := ""
			if _, header := row.(*east.TableHeader); header {
				style = "B"
			}
			w.pdf.SetFont(w.family, style, bodySize-1)
			w.pdf.MultiCell(0, lineHeight, w.tr(strings.Join(cells, " | ")), "B", "L", false)
		}
		w.pdf.SetFont(w.family, "", bodySize)
		w.pdf.Ln(2)
	default:
		if t := inlineText(node, w.source); t != "" {
			w.paragraph(t, depth)
		}
	}
}

func (w *pdfWriter) listItem(item ast.Node, marker string, depth int) {
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			w.indent(depth + 1)
			w.pdf.MultiCell(0, lineHeight, w.tr(marker+inlineText(c, w.source)), "", "L", false)
			marker = "  "
		default:
			w.block(c, depth+1)
		}
	}
}

func (w *pdfWriter) paragraph(s string, depth int) {
	w.indent(depth)
	w.pdf.MultiCell(0, lineHeight, w.tr(s), "", "L", false)
	w.pdf.Ln(2)
}

func (w *pdfWriter) indent(depth int) {
	left, _, _, _ := w.pdf.GetMargins()
	w.pdf.SetX(left + float64(depth)*5)
}

// inlineText flattens the inline children of a node.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tt, ok := cc.(*ast.Text); ok {
					b.Write(tt.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
