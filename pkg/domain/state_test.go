package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() domain.Params {
	return domain.Params{
		Fields:   []domain.Tag{domain.TagAI},
		Format:   domain.FormatMarkdown,
		Language: domain.LanguageKorean,
		Depth:    domain.DepthStandard,
	}
}

func TestNewState_CopiesInputs(t *testing.T) {
	p := validParams()
	p.Fields = []domain.Tag{domain.TagAI, domain.TagEnergy}
	p.RAGEnabled = true
	p.RAGDocuments = []string{"a.pdf"}

	s := domain.NewState("run-1", p)
	p.Fields[0] = domain.TagBiotech
	p.RAGDocuments[0] = "mutated"

	assert.Equal(t, []domain.Tag{domain.TagAI, domain.TagEnergy}, s.Fields)
	assert.Equal(t, []string{"a.pdf"}, s.RAGDocuments)
	assert.Equal(t, domain.StatusInitialized, s.Status)
	assert.False(t, s.HasError())
	assert.Equal(t, "run-1", s.RunID)
}

func TestSnapshot_IsIndependent(t *testing.T) {
	s := domain.NewState("run-1", validParams())
	s.AnalysisPlan = &domain.AnalysisPlan{Fields: []domain.Tag{domain.TagAI}, Plan: "PLAN"}
	s.History = []domain.StageName{domain.StagePlan}

	c := s.Snapshot()
	c.Fields[0] = domain.TagRobotics
	c.AnalysisPlan.Plan = "changed"
	c.AnalysisPlan.Fields[0] = domain.TagRobotics
	c.History[0] = domain.StageReport

	assert.Equal(t, domain.TagAI, s.Fields[0])
	assert.Equal(t, "PLAN", s.AnalysisPlan.Plan)
	assert.Equal(t, domain.TagAI, s.AnalysisPlan.Fields[0])
	assert.Equal(t, domain.StagePlan, s.History[0])
}

func TestFail_RecordsStage(t *testing.T) {
	s := domain.NewState("run-1", validParams())
	failed := s.Fail(domain.StageResearch, errors.New("boom"))

	assert.True(t, failed.HasError())
	assert.Equal(t, domain.StatusError, failed.Status)
	assert.Equal(t, domain.StageResearch, failed.FailedStage)
	assert.Equal(t, "boom", failed.Error)
	assert.False(t, s.HasError(), "original value must be untouched")
}

func TestProgress_NilCallbackIsSafe(t *testing.T) {
	s := domain.NewState("run-1", validParams())
	assert.NotPanics(t, func() { s.Progress("hello") })

	var got []string
	s.ProgressCallback = func(m string) { got = append(got, m) }
	s.Progress("hello")
	assert.Equal(t, []string{"hello"}, got)
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Params)
		wantErr string
	}{
		{name: "valid", mutate: func(p *domain.Params) {}},
		{name: "no fields", mutate: func(p *domain.Params) { p.Fields = nil }, wantErr: "at least one field"},
		{name: "too many fields", mutate: func(p *domain.Params) {
			p.Fields = []domain.Tag{domain.TagAI, domain.TagRobotics, domain.TagEnergy, domain.TagBiotech}
		}, wantErr: "at most 3 fields"},
		{name: "unknown field", mutate: func(p *domain.Params) { p.Fields = []domain.Tag{"quantum"} }, wantErr: "unknown field"},
		{name: "duplicate field", mutate: func(p *domain.Params) { p.Fields = []domain.Tag{domain.TagAI, domain.TagAI} }, wantErr: "duplicate field"},
		{name: "bad format", mutate: func(p *domain.Params) { p.Format = "xml" }, wantErr: "unsupported format"},
		{name: "bad language", mutate: func(p *domain.Params) { p.Language = "fr" }, wantErr: "unknown language"},
		{name: "bad depth", mutate: func(p *domain.Params) { p.Depth = "shallow" }, wantErr: "unknown depth"},
		{name: "too many documents", mutate: func(p *domain.Params) {
			p.RAGEnabled = true
			p.RAGDocuments = []string{"a", "b", "c"}
		}, wantErr: "at most 2 reference documents"},
		{name: "documents ignored without rag", mutate: func(p *domain.Params) {
			p.RAGDocuments = []string{"a", "b", "c"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := domain.ParseFormat("md")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatMarkdown, f)

	f, err = domain.ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatPDF, f)

	_, err = domain.ParseFormat("xml")
	var ufe *domain.UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "xml", ufe.Format)
}

func TestStageName_Done(t *testing.T) {
	assert.Equal(t, domain.StatusPlanDone, domain.StagePlan.Done())
	assert.Equal(t, domain.StatusResearchDone, domain.StageResearch.Done())
	assert.Equal(t, domain.StatusReportDone, domain.StageReport.Done())
	assert.Equal(t, domain.StatusCompleted, domain.StageConvert.Done())
	assert.Equal(t, domain.Status(""), domain.StageHandleError.Done())
}

func TestErrors_Matching(t *testing.T) {
	assert.ErrorIs(t, &domain.NotInitializedError{}, domain.ErrNotInitialized)
	assert.ErrorIs(t, &domain.ConfigurationError{Key: "OPENAI_API_KEY"}, domain.ErrConfiguration)

	cause := errors.New("quota exceeded")
	ce := &domain.CollaboratorError{Stage: domain.StagePlan, Collaborator: "generation", Err: cause}
	assert.ErrorIs(t, ce, cause)
	assert.Equal(t, "plan stage: generation: quota exceeded", ce.Error())

	re := &domain.RunError{Stage: domain.StagePlan, Message: ce.Error()}
	assert.Equal(t, ce.Error(), re.Error())
}

func TestOverrides_Apply(t *testing.T) {
	defaults := validParams()
	defaults.RAGDocuments = []string{"data/rag/a.pdf"}

	p, err := domain.Overrides{Fields: []string{" Energy ", "AI"}, Format: "md", Depth: "deep"}.Apply(defaults)
	require.NoError(t, err)
	assert.Equal(t, []domain.Tag{domain.TagEnergy, domain.TagAI}, p.Fields)
	assert.Equal(t, domain.FormatMarkdown, p.Format)
	assert.Equal(t, domain.LanguageKorean, p.Language)
	assert.Equal(t, domain.DepthDeep, p.Depth)
	assert.Equal(t, []string{"data/rag/a.pdf"}, p.RAGDocuments)

	_, err = domain.Overrides{Fields: []string{"ai"}, Format: "xml"}.Apply(defaults)
	var ufe *domain.UnsupportedFormatError
	assert.ErrorAs(t, err, &ufe)

	_, err = domain.Overrides{Fields: []string{"quantum"}}.Apply(defaults)
	assert.ErrorContains(t, err, "unknown field")

	_, err = domain.Overrides{}.Apply(defaults)
	assert.ErrorContains(t, err, "at least one field")
}

func TestProgress_RecoversFromCallbackPanic(t *testing.T) {
	p := validParams()
	var got []string
	p.Progress = func(msg string) {
		got = append(got, msg)
		panic("ui gone")
	}
	s := domain.NewState("run-1", p)

	assert.NotPanics(t, func() { s.Progress("Planning...") })
	assert.NotPanics(t, func() { s.Progress("Researching...") })
	assert.Equal(t, []string{"Planning...", "Researching..."}, got)
}
