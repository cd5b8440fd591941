package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/techtrends/internal/metrics"
	"github.com/aretw0/techtrends/pkg/domain"
)

func TestHooks_RecordStagesAndOutcome(t *testing.T) {
	m := metrics.New(false)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StagePlan})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))

	hooks.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StagePlan, Duration: 2 * time.Second})
	hooks.OnStageEnter(ctx, &domain.StageEvent{Stage: domain.StageResearch})
	hooks.OnStageLeave(ctx, &domain.StageEvent{Stage: domain.StageResearch, IsError: true})
	hooks.OnTerminate(ctx, &domain.TerminateEvent{Status: domain.StatusError, Succeeded: false})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRuns.WithLabelValues("plan", metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRuns.WithLabelValues("research", metrics.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Workflows.WithLabelValues(metrics.OutcomeError, "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := metrics.New(false)
	m.Hooks().OnTerminate(context.Background(), &domain.TerminateEvent{Status: domain.StatusCompleted, Succeeded: true})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `techtrends_workflows_total{outcome="success",status="completed"} 1`)
}
