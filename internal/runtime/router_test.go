package runtime_test

import (
	"math/rand"
	"testing"

	"github.com/aretw0/techtrends/internal/runtime"
	"github.com/aretw0/techtrends/pkg/domain"
)

var statuses = []domain.Status{
	domain.StatusInitialized, domain.StatusPlanDone, domain.StatusResearchDone,
	domain.StatusReportDone, domain.StatusCompleted, domain.StatusError, "",
}

func randomString(r *rand.Rand) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz :/._-"
	n := r.Intn(24)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}

func randomState(r *rand.Rand) domain.WorkflowState {
	s := domain.WorkflowState{
		RunID:          randomString(r),
		Format:         domain.Formats[r.Intn(len(domain.Formats))],
		Language:       domain.Language(randomString(r)),
		Depth:          domain.Depth(randomString(r)),
		RAGEnabled:     r.Intn(2) == 0,
		ResearchResult: randomString(r),
		Report:         randomString(r),
		OutputPath:     randomString(r),
		Status:         statuses[r.Intn(len(statuses))],
		Terminated:     r.Intn(2) == 0,
	}
	for i := 0; i < r.Intn(4); i++ {
		s.Fields = append(s.Fields, domain.Tags[r.Intn(len(domain.Tags))])
	}
	if r.Intn(2) == 0 {
		s.AnalysisPlan = &domain.AnalysisPlan{Plan: randomString(r)}
	}
	if r.Intn(2) == 0 {
		s.Error = randomString(r)
	}
	return s
}

// Route must depend on the error field alone.
func TestRoute_Property(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 5000; i++ {
		s := randomState(r)

		want := domain.RouteContinue
		if s.Error != "" {
			want = domain.RouteError
		}
		if got := runtime.Route(s); got != want {
			t.Fatalf("iteration %d: Route(error=%q, status=%q) = %q, want %q", i, s.Error, s.Status, got, want)
		}

		// Changing any other field must not change the decision.
		other := randomState(r)
		other.Error = s.Error
		if got := runtime.Route(other); got != want {
			t.Fatalf("iteration %d: decision changed with unrelated fields: got %q, want %q", i, got, want)
		}
	}
}

func TestRoute_Examples(t *testing.T) {
	if got := runtime.Route(domain.WorkflowState{}); got != domain.RouteContinue {
		t.Errorf("empty state: got %q", got)
	}
	if got := runtime.Route(domain.WorkflowState{Error: "x", Status: domain.StatusCompleted}); got != domain.RouteError {
		t.Errorf("completed with error: got %q", got)
	}
	if got := runtime.Route(domain.WorkflowState{Status: domain.StatusError}); got != domain.RouteContinue {
		t.Errorf("error status without message: got %q", got)
	}
}
