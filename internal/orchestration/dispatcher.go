package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
	"github.com/hearthline/hearth-core/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher is the broker surface the dispatcher needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// ResultHandler receives the outcome of a dispatched plan.
type ResultHandler func(planID string, success bool, errMsg string)

// planResult is the wire form an external executor reports back with.
type planResult struct {
	PlanID  string `json:"plan_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Dispatcher hands validated plans to the external executor over MQTT
// and records their lifecycle in the execution history.
type Dispatcher struct {
	broker   Publisher
	repo     Repository
	topics   mqtt.Topics
	logger   Logger
	now      func() time.Time
	onResult ResultHandler
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(broker Publisher, repo Repository) *Dispatcher {
	return &Dispatcher{
		broker: broker,
		repo:   repo,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetClock overrides the time source. Intended for tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// SetOnResult registers a callback invoked after each plan result has
// been recorded. Used to feed execution outcomes into the learning loop.
func (d *Dispatcher) SetOnResult(handler ResultHandler) {
	d.onResult = handler
}

// Start subscribes to plan result topics. Call once after the broker
// connection is up.
func (d *Dispatcher) Start() error {
	return d.broker.Subscribe(d.topics.AllPlanResults(), 1, d.handleResult)
}

// Dispatch validates, publishes, and records an execution plan.
//
// Returns:
//   - *Execution: the recorded dispatch entry
//   - error: *ValidationError when the plan fails the safety gates,
//     ErrDispatchFailed when the broker publish fails
func (d *Dispatcher) Dispatch(ctx context.Context, plan *capability.ExecutionPlan) (*Execution, error) {
	if reasons := Validate(plan); len(reasons) > 0 {
		return nil, &ValidationError{PlanID: plan.ID, Reasons: reasons}
	}

	payload, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encoding plan %s: %w", plan.ID, err)
	}

	if err := d.broker.Publish(d.topics.PlanDispatch(plan.ID), payload, 1, false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	exec := &Execution{
		ID:               capability.NewID("exec"),
		PlanID:           plan.ID,
		UserID:           plan.UserID,
		RecommendationID: plan.RecommendationID,
		Status:           StatusDispatched,
		DispatchedAt:     d.now().UTC(),
	}
	if err := d.repo.InsertExecution(ctx, exec); err != nil {
		return nil, err
	}

	d.logger.Info("plan dispatched",
		"plan_id", plan.ID,
		"user_id", plan.UserID,
		"steps", len(plan.Steps),
		"estimated_duration", plan.EstimatedDuration,
	)
	return exec, nil
}

// handleResult processes one executor report from the result topic.
func (d *Dispatcher) handleResult(topic string, payload []byte) error {
	var result planResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return fmt.Errorf("decoding plan result on %s: %w", topic, err)
	}
	if result.PlanID == "" {
		result.PlanID = lastTopicSegment(topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.repo.CompleteExecution(ctx, result.PlanID, result.Success, result.Error, d.now().UTC()); err != nil {
		d.logger.Warn("could not record plan result",
			"plan_id", result.PlanID,
			"error", err,
		)
		return err
	}

	d.logger.Info("plan result recorded",
		"plan_id", result.PlanID,
		"success", result.Success,
	)

	if d.onResult != nil {
		d.onResult(result.PlanID, result.Success, result.Error)
	}
	return nil
}

func lastTopicSegment(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
