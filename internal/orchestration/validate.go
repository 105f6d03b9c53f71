package orchestration

import (
	"fmt"
	"strings"

	"github.com/hearthline/hearth-core/internal/capability"
)

// ValidationError reports why a plan was rejected before dispatch. Each
// reason is user-presentable.
type ValidationError struct {
	PlanID  string
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("orchestration: plan %s rejected: %s", e.PlanID, strings.Join(e.Reasons, "; "))
}

// Validate checks a plan against the dispatch safety gates and returns
// every violated rule. An empty slice means the plan may be dispatched.
func Validate(plan *capability.ExecutionPlan) []string {
	var reasons []string

	if len(plan.Steps) == 0 {
		reasons = append(reasons, "plan has no executable steps")
	}
	if len(plan.Triggers) == 0 && len(plan.Schedules) == 0 {
		reasons = append(reasons, "plan has no trigger or schedule to start it")
	}

	for _, step := range plan.Steps {
		if step.Safety == capability.SafetyRestricted {
			reasons = append(reasons,
				fmt.Sprintf("step %s (%s) is safety-restricted and cannot run unattended", step.ID, step.Action))
		}
		if step.Privacy == capability.PrivacySensitive {
			reasons = append(reasons,
				fmt.Sprintf("step %s (%s) touches sensitive data and needs explicit consent", step.ID, step.Action))
		}
	}

	return reasons
}
