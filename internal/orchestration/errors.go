package orchestration

import "errors"

var (
	// ErrPlanNotBuildable indicates a card cannot be turned into a plan.
	ErrPlanNotBuildable = errors.New("orchestration: plan not buildable")

	// ErrExecutionNotFound indicates no execution record exists for the id.
	ErrExecutionNotFound = errors.New("orchestration: execution not found")

	// ErrDispatchFailed indicates the plan could not be handed to the
	// external executor.
	ErrDispatchFailed = errors.New("orchestration: dispatch failed")
)
