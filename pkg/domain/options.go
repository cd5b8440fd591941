package domain

import (
	"fmt"
	"strings"
)

// Tag is a recognized technology field.
type Tag string

const (
	TagAI       Tag = "ai"
	TagRobotics Tag = "robotics"
	TagEnergy   Tag = "energy"
	TagBiotech  Tag = "biotech"
)

// Tags lists every recognized tag in display order.
var Tags = []Tag{TagAI, TagRobotics, TagEnergy, TagBiotech}

var tagLabels = map[Tag]string{
	TagAI:       "Artificial Intelligence",
	TagRobotics: "Robotics",
	TagEnergy:   "Energy Technology",
	TagBiotech:  "Biotechnology",
}

// Valid reports whether t belongs to the recognized set.
func (t Tag) Valid() bool {
	_, ok := tagLabels[t]
	return ok
}

// Label returns the human readable name of the field.
func (t Tag) Label() string {
	if l, ok := tagLabels[t]; ok {
		return l
	}
	return string(t)
}

// ParseTag normalizes and validates a tag.
func ParseTag(s string) (Tag, error) {
	t := Tag(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown field %q (supported: %s)", s, joinTags(Tags))
	}
	return t, nil
}

func joinTags(tags []Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// Format is the deliverable file format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatMarkdown, FormatPDF, FormatDOCX}

// Valid reports whether f is a supported output format.
func (f Format) Valid() bool {
	switch f {
	case FormatMarkdown, FormatPDF, FormatDOCX:
		return true
	}
	return false
}

// Ext returns the file extension (with leading dot) for the format.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatPDF:
		return ".pdf"
	case FormatDOCX:
		return ".docx"
	}
	return ""
}

// ParseFormat accepts the canonical names plus the "md" shorthand.
func ParseFormat(s string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "md" {
		return FormatMarkdown, nil
	}
	f := Format(v)
	if !f.Valid() {
		return "", &UnsupportedFormatError{Format: s}
	}
	return f, nil
}

// Language is the language the report is written in.
type Language string

const (
	LanguageKorean  Language = "ko"
	LanguageEnglish Language = "en"
)

// Valid reports whether l is a supported report language.
func (l Language) Valid() bool {
	return l == LanguageKorean || l == LanguageEnglish
}

// Name returns the language name used inside prompts.
func (l Language) Name() string {
	switch l {
	case LanguageKorean:
		return "Korean"
	case LanguageEnglish:
		return "English"
	}
	return string(l)
}

// ParseLanguage validates a language code.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown language %q (supported: ko, en)", s)
	}
	return l, nil
}

// Depth controls how thorough the analysis is.
type Depth string

const (
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// Valid reports whether d is a supported analysis depth.
func (d Depth) Valid() bool {
	return d == DepthStandard || d == DepthDeep
}

// ParseDepth validates an analysis depth.
func ParseDepth(s string) (Depth, error) {
	d := Depth(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown depth %q (supported: standard, deep)", s)
	}
	return d, nil
}
