package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/techtrends/pkg/domain"
)

var errInterrupted = errors.New("interrupted")

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Prompter collects run parameters interactively.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", errInterrupted
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "q" || line == "quit" || line == "exit" {
		return "", errInterrupted
	}
	return line, nil
}

// choose asks for one option by number, defaulting to def on an empty answer.
func (p *Prompter) choose(title string, options []string, def int) (int, error) {
	for {
		fmt.Fprintf(p.out, "\n%s\n", title)
		for i, o := range options {
			marker := " "
			if i == def {
				marker = "*"
			}
			fmt.Fprintf(p.out, " %s %d. %s\n", marker, i+1, o)
		}
		fmt.Fprintf(p.out, "> ")

		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if line == "" {
			return def, nil
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(options))
	}
}

// Fields asks for one to domain.MaxFields tags, as space or comma separated numbers.
func (p *Prompter) Fields() ([]string, error) {
	for {
		fmt.Fprintf(p.out, "\nSelect up to %d technology fields (e.g. 1 3):\n", domain.MaxFields)
		for i, t := range domain.Tags {
			fmt.Fprintf(p.out, "   %d. %s\n", i+1, t.Label())
		}
		fmt.Fprintf(p.out, "> ")

		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		fields, err := parseFieldChoice(line)
		if err == nil {
			return fields, nil
		}
		fmt.Fprintf(p.out, "%v\n", err)
	}
}

func parseFieldChoice(line string) ([]string, error) {
	parts := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) == 0 {
		return nil, errors.New("select at least one field")
	}
	if len(parts) > domain.MaxFields {
		return nil, fmt.Errorf("select at most %d fields", domain.MaxFields)
	}

	seen := make(map[string]bool, len(parts))
	var fields []string
	for _, part := range parts {
		var tag string
		if n, err := strconv.Atoi(part); err == nil && n >= 1 && n <= len(domain.Tags) {
			tag = string(domain.Tags[n-1])
		} else if t, err := domain.ParseTag(part); err == nil {
			tag = string(t)
		} else {
			return nil, fmt.Errorf("unknown field %q", part)
		}
		if !seen[tag] {
			seen[tag] = true
			fields = append(fields, tag)
		}
	}
	return fields, nil
}

// Collect asks every question and returns the answers as overrides of defaults.
// RAG is offered only when documents are registered.
func (p *Prompter) Collect(defaults domain.Params, documents int) (domain.Overrides, error) {
	var o domain.Overrides

	fields, err := p.Fields()
	if err != nil {
		return o, err
	}
	o.Fields = fields

	formatNames := make([]string, len(domain.Formats))
	def := 0
	for i, f := range domain.Formats {
		formatNames[i] = string(f)
		if f == defaults.Format {
			def = i
		}
	}
	i, err := p.choose("Output format:", formatNames, def)
	if err != nil {
		return o, err
	}
	o.Format = formatNames[i]

	languages := []domain.Language{domain.LanguageKorean, domain.LanguageEnglish}
	def = 0
	if defaults.Language == domain.LanguageEnglish {
		def = 1
	}
	i, err = p.choose("Report language:", []string{"Korean", "English"}, def)
	if err != nil {
		return o, err
	}
	o.Language = string(languages[i])

	depths := []domain.Depth{domain.DepthStandard, domain.DepthDeep}
	def = 0
	if defaults.Depth == domain.DepthDeep {
		def = 1
	}
	i, err = p.choose("Analysis depth:", []string{"standard", "deep"}, def)
	if err != nil {
		return o, err
	}
	o.Depth = string(depths[i])

	if documents > 0 {
		i, err = p.choose(fmt.Sprintf("Use the %d registered reference document(s)?", documents), []string{"no", "yes"}, 0)
		if err != nil {
			return o, err
		}
		o.RAGEnabled = i == 1
	}
	return o, nil
}
