package prompts_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/techtrends/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVars() prompts.Vars {
	return prompts.Vars{
		Fields:       []string{"Artificial Intelligence", "Robotics"},
		Language:     "en",
		LanguageName: "English",
		Depth:        "standard",
	}
}

func TestNew_RendersEmbeddedDefaults(t *testing.T) {
	lib, err := prompts.New()
	require.NoError(t, err)

	names := []string{
		prompts.PlanSystem, prompts.Plan,
		prompts.ResearchSystem, prompts.Research, prompts.Trend,
		prompts.ReportSystem, prompts.Report,
	}
	for _, name := range names {
		out, err := lib.Render(name, sampleVars())
		require.NoError(t, err, name)
		assert.NotEmpty(t, out, name)
	}

	plan, err := lib.Render(prompts.Plan, sampleVars())
	require.NoError(t, err)
	assert.Contains(t, plan, "Artificial Intelligence, Robotics")
	assert.Contains(t, plan, "Report language: English")
	assert.NotContains(t, plan, "deep analysis")
}

func TestRender_DeepDepthAddsInstructions(t *testing.T) {
	lib := prompts.MustNew()
	v := sampleVars()
	v.Depth = "deep"

	plan, err := lib.Render(prompts.Plan, v)
	require.NoError(t, err)
	assert.Contains(t, plan, "deep analysis")
}

func TestRender_ResearchIncludesReferenceContext(t *testing.T) {
	lib := prompts.MustNew()
	v := sampleVars()

	out, err := lib.Render(prompts.Research, v)
	require.NoError(t, err)
	assert.NotContains(t, out, "Reference documents:")

	v.RAGDocuments = []string{"roadmap.pdf"}
	v.RAGContext = "Solid state batteries ship in 2027."
	out, err = lib.Render(prompts.Research, v)
	require.NoError(t, err)
	assert.Contains(t, out, "Reference documents: roadmap.pdf")
	assert.Contains(t, out, "Solid state batteries ship in 2027.")
}

func TestRender_UnknownPrompt(t *testing.T) {
	lib := prompts.MustNew()
	_, err := lib.Render("nope", sampleVars())
	assert.ErrorContains(t, err, "prompt not found")
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"short-report.md": `---
id: report
stage: report
description: one page summary
---
Summarize {{join .Fields " and "}} in {{.LanguageName}}.`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	lib := prompts.MustNew()
	n, err := lib.LoadOverrides(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err := lib.Render(prompts.Report, sampleVars())
	require.NoError(t, err)
	assert.Equal(t, "Summarize Artificial Intelligence and Robotics in English.", out)

	var found bool
	for _, info := range lib.List() {
		if info.Name == prompts.Report {
			found = true
			assert.Equal(t, prompts.SourceOverride, info.Source)
			assert.Equal(t, "one page summary", info.Description)
		} else {
			assert.Equal(t, prompts.SourceEmbedded, info.Source)
		}
	}
	assert.True(t, found)
}

func TestLoadOverrides_RejectsUnknownPrompt(t *testing.T) {
	dir := t.TempDir()
	content := "---\nid: summary\n---\nhello"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary.md"), []byte(content), 0644))

	lib := prompts.MustNew()
	_, err := lib.LoadOverrides(context.Background(), dir)
	assert.ErrorContains(t, err, `unknown prompt "summary"`)
}

func TestLoadOverrides_Collision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\nid: plan\n---\nfirst"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("---\nid: plan\n---\nsecond"), 0644))

	lib := prompts.MustNew()
	_, err := lib.LoadOverrides(context.Background(), dir)
	assert.ErrorContains(t, err, "collision detected: prompt 'plan'")
}
