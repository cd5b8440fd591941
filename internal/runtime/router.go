package runtime

import "github.com/aretw0/techtrends/pkg/domain"

// Route decides where the workflow goes after a stage.
// It looks at the error field only.
func Route(state domain.WorkflowState) domain.Route {
	if state.Error != "" {
		return domain.RouteError
	}
	return domain.RouteContinue
}
