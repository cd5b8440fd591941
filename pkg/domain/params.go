package domain

import (
	"errors"
	"fmt"
)

const (
	// MaxFields bounds how many tags one report covers.
	MaxFields = 3
	// MaxDocuments bounds the reference documents used for retrieval.
	MaxDocuments = 2
)

// Params holds the arguments of a workflow setup.
type Params struct {
	Fields       []Tag
	Format       Format
	Language     Language
	Depth        Depth
	RAGEnabled   bool
	RAGDocuments []string
	Progress     ProgressFunc
}

// Validate enforces the input rules applied before a state is constructed.
func (p Params) Validate() error {
	if len(p.Fields) == 0 {
		return errors.New("at least one field is required")
	}
	if len(p.Fields) > MaxFields {
		return fmt.Errorf("at most %d fields can be selected, got %d", MaxFields, len(p.Fields))
	}
	seen := make(map[Tag]bool, len(p.Fields))
	for _, f := range p.Fields {
		if !f.Valid() {
			return fmt.Errorf("unknown field %q", f)
		}
		if seen[f] {
			return fmt.Errorf("duplicate field %q", f)
		}
		seen[f] = true
	}
	if !p.Format.Valid() {
		return &UnsupportedFormatError{Format: string(p.Format)}
	}
	if !p.Language.Valid() {
		return fmt.Errorf("unknown language %q", p.Language)
	}
	if !p.Depth.Valid() {
		return fmt.Errorf("unknown depth %q", p.Depth)
	}
	if p.RAGEnabled && len(p.RAGDocuments) > MaxDocuments {
		return fmt.Errorf("at most %d reference documents are allowed, got %d", MaxDocuments, len(p.RAGDocuments))
	}
	return nil
}

// Overrides are raw, user supplied values layered over configured defaults.
// Empty strings keep the default.
type Overrides struct {
	Fields     []string `json:"fields" mapstructure:"fields"`
	Format     string   `json:"format,omitempty" mapstructure:"format"`
	Language   string   `json:"language,omitempty" mapstructure:"language"`
	Depth      string   `json:"depth,omitempty" mapstructure:"depth"`
	RAGEnabled bool     `json:"rag_enabled,omitempty" mapstructure:"rag_enabled"`
}

// Apply parses o over defaults and validates the result.
// Reference documents always come from defaults.
func (o Overrides) Apply(defaults Params) (Params, error) {
	p := Params{
		Format:       defaults.Format,
		Language:     defaults.Language,
		Depth:        defaults.Depth,
		RAGEnabled:   o.RAGEnabled || defaults.RAGEnabled,
		RAGDocuments: defaults.RAGDocuments,
		Progress:     defaults.Progress,
	}
	for _, f := range o.Fields {
		tag, err := ParseTag(f)
		if err != nil {
			return p, err
		}
		p.Fields = append(p.Fields, tag)
	}

	var err error
	if o.Format != "" {
		if p.Format, err = ParseFormat(o.Format); err != nil {
			return p, err
		}
	}
	if o.Language != "" {
		if p.Language, err = ParseLanguage(o.Language); err != nil {
			return p, err
		}
	}
	if o.Depth != "" {
		if p.Depth, err = ParseDepth(o.Depth); err != nil {
			return p, err
		}
	}
	return p, p.Validate()
}
