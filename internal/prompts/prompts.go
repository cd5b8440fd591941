// Package prompts renders the text sent to the language model by each stage.
//
// Defaults are embedded in the binary. A directory of markdown documents can
// override any of them; the frontmatter identifies the prompt being replaced:
//
//	---
//	id: report
//	stage: report
//	description: shorter executive report
//	---
//	Write a one page report about {{join .Fields ", "}}.
package prompts

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/aretw0/loam"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// Names of the prompts used by the pipeline.
const (
	PlanSystem     = "plan_system"
	Plan           = "plan"
	ResearchSystem = "research_system"
	Research       = "research"
	Trend          = "trend"
	ReportSystem   = "report_system"
	Report         = "report"
)

// Source tells where the active version of a prompt comes from.
type Source string

const (
	SourceEmbedded Source = "embedded"
	SourceOverride Source = "override"
)

// Metadata is the frontmatter of an override document.
type Metadata struct {
	ID          string `mapstructure:"id" json:"id"`
	Stage       string `mapstructure:"stage" json:"stage"`
	Description string `mapstructure:"description" json:"description"`
}

// Vars is the data every template is rendered with.
type Vars struct {
	Fields       []string
	Language     string
	LanguageName string
	Depth        string
	RAGDocuments []string
	RAGContext   string

	SearchSummary string
	RAGSummary    string
	TrendAnalysis string
	ResearchData  string
}

// Info describes an available prompt.
type Info struct {
	Name        string `json:"name"`
	Source      Source `json:"source"`
	Stage       string `json:"stage,omitempty"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path,omitempty"`
}

type entry struct {
	tmpl *template.Template
	info Info
}

// Library holds parsed templates. It is safe for concurrent rendering once built.
type Library struct {
	entries map[string]entry
	funcMap template.FuncMap
}

// New parses the embedded defaults.
func New() (*Library, error) {
	l := &Library{
		entries: make(map[string]entry),
		funcMap: funcMap(),
	}

	files, err := embedded.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	for _, f := range files {
		name := strings.TrimSuffix(f.Name(), ".tmpl")
		raw, err := embedded.ReadFile("templates/" + f.Name())
		if err != nil {
			return nil, err
		}
		if err := l.add(name, string(raw), Info{Name: name, Source: SourceEmbedded}); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// MustNew is like New but panics if the embedded templates are broken.
func MustNew() *Library {
	l, err := New()
	if err != nil {
		panic(err)
	}
	return l
}

// LoadOverrides replaces embedded prompts with the documents found in dir.
// Only known prompt names can be overridden. It returns the number of prompts replaced.
func (l *Library) LoadOverrides(ctx context.Context, dir string) (int, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("invalid path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize loam: %w", err)
	}
	typed := loam.NewTypedRepository[Metadata](repo)

	docs, err := typed.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	count := 0
	for _, listed := range docs {
		// List does not carry the body.
		doc, err := typed.Get(ctx, listed.ID)
		if err != nil {
			return count, fmt.Errorf("loam get failed for %s: %w", listed.ID, err)
		}

		name := doc.Data.ID
		if name == "" {
			name = doc.ID
		}
		name = trimExtension(filepath.ToSlash(name))

		if _, ok := l.entries[name]; !ok {
			return count, fmt.Errorf("unknown prompt %q in %s", name, doc.ID)
		}
		if existing, ok := seen[name]; ok {
			return count, fmt.Errorf("collision detected: prompt '%s' is defined in both '%s' and '%s'", name, existing, doc.ID)
		}
		seen[name] = doc.ID

		info := Info{
			Name:        name,
			Source:      SourceOverride,
			Stage:       doc.Data.Stage,
			Description: doc.Data.Description,
			Path:        filepath.Join(absPath, doc.ID),
		}
		if err := l.add(name, doc.Content, info); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (l *Library) add(name, text string, info Info) error {
	tmpl, err := template.New(name).Funcs(l.funcMap).Option("missingkey=error").Parse(text)
	if err != nil {
		return fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	l.entries[name] = entry{tmpl: tmpl, info: info}
	return nil
}

// Render executes the named template.
func (l *Library) Render(name string, vars Vars) (string, error) {
	e, ok := l.entries[name]
	if !ok {
		return "", fmt.Errorf("prompt not found: %s", name)
	}
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// List returns every available prompt sorted by name.
func (l *Library) List() []Info {
	out := make([]Info, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"join":  strings.Join,
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": cases.Title(language.English).String,
		"trim":  strings.TrimSpace,
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext == "" {
		return id
	}
	return strings.TrimSuffix(id, ext)
}
