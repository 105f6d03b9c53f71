package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
	"github.com/hearthline/hearth-core/internal/evaluate"
	"github.com/hearthline/hearth-core/internal/infrastructure/config"
	"github.com/hearthline/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearthline/hearth-core/internal/ingest"
	"github.com/hearthline/hearth-core/internal/orchestration"
	"github.com/hearthline/hearth-core/internal/powerset"
	"github.com/hearthline/hearth-core/internal/recommend"
)

// Stage names for the suggestion pipeline state machine.
const (
	StagePending     = "pending"
	StageIngest      = "ingest"
	StageGenerate    = "generate_combinations"
	StageEvaluate    = "evaluate"
	StagePackage     = "package"
	StageLLMFallback = "llm_fallback"
	StageCompleted   = "completed"
	StageFailed      = "failed"
	StagePartial     = "partial"
)

// Logger defines the logging interface used by the Engine.
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

// FeedbackService is the learning-loop surface the engine depends on.
type FeedbackService interface {
	Record(ctx context.Context, record *capability.FeedbackRecord, source *capability.CombinationCandidate) error
	Overlay(ctx context.Context, userID string) (*capability.UserOverlay, error)
	RunMaintenance(ctx context.Context) error
}

// Dispatcher is the plan-dispatch surface the engine depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, plan *capability.ExecutionPlan) (*orchestration.Execution, error)
	SetOnResult(handler orchestration.ResultHandler)
}

// Metrics is the telemetry sink. All methods are fire-and-forget.
type Metrics interface {
	WritePipelineMetrics(requestID string, stage string, durationMS int64, itemCount int)
	WriteFeedbackMetric(feedbackType string, success bool)
	WriteInventoryMetric(deviceCount int, serviceCount int)
}

// EventPublisher broadcasts engine events to interested clients.
type EventPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// LLMFallback proposes recommendation cards when combinatorial
// generation yields nothing feasible.
type LLMFallback interface {
	Propose(ctx context.Context, graph *ingest.Graph, snap capability.ContextSnapshot) ([]capability.RecommendationCard, error)
}

// Status is the externally visible state of one suggestion request.
type Status struct {
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id"`
	Stage     string    `json:"stage"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// Result is a finished suggestion run.
type Result struct {
	RequestID string                          `json:"request_id"`
	UserID    string                          `json:"user_id"`
	Stage     string                          `json:"stage"` // completed, partial, failed
	Cards     []capability.RecommendationCard `json:"cards"`
	WhatIf    []capability.WhatIfItem         `json:"what_if,omitempty"`

	// Warnings carry non-fatal degradations (empty inventory, missing
	// overlay); Errors carry stage errors the run survived.
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`

	// LLMGenerated marks cards that came from the fallback proposer
	// rather than combinatorial generation.
	LLMGenerated bool `json:"llm_generated,omitempty"`

	ProcessingTimeMS int64     `json:"processing_time_ms"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Request carries one suggestion run's parameters. UserID is required;
// every other field is optional and falls back to the configured engine
// defaults when unset.
type Request struct {
	UserID    string            `json:"user_id"`
	SessionID string            `json:"session_id,omitempty"`
	Hints     capability.Params `json:"hints,omitempty"`

	// Preferences shade the scoring overlay for this run only. The
	// stored overlay is never modified.
	Preferences *Preferences `json:"preferences,omitempty"`

	// DiscoveryWidth overrides the largest combination tier explored.
	DiscoveryWidth int `json:"discovery_width,omitempty"`

	// MaxRecommendations overrides the card cap for this run.
	MaxRecommendations int `json:"max_recommendations,omitempty"`

	// IncludeWhatIf, when explicitly false, drops the what-if list.
	IncludeWhatIf *bool `json:"include_what_if,omitempty"`

	// EnableLLMFallback overrides the configured fallback switch.
	EnableLLMFallback *bool `json:"enable_llm_fallback,omitempty"`
}

// Preferences are per-request bias overrides, each in [0,1] with 0.5
// neutral. Nil fields leave the stored bias in place.
type Preferences struct {
	EnergyVsComfort        *float64 `json:"energy_vs_comfort,omitempty"`
	SafetyVsConvenience    *float64 `json:"safety_vs_convenience,omitempty"`
	PrivacyVsFunctionality *float64 `json:"privacy_vs_functionality,omitempty"`
}

// runOptions are the request options after defaulting against config.
type runOptions struct {
	discoveryWidth     int
	maxRecommendations int
	includeWhatIf      bool
	enableFallback     bool
}

func (e *Engine) resolveOptions(req Request) runOptions {
	opts := runOptions{
		discoveryWidth:     e.cfg.MaxCombinationSize,
		maxRecommendations: e.cfg.MaxRecommendations,
		includeWhatIf:      true,
		enableFallback:     e.cfg.EnableLLMFallback,
	}
	if req.DiscoveryWidth > 0 {
		opts.discoveryWidth = req.DiscoveryWidth
	}
	if req.MaxRecommendations > 0 {
		opts.maxRecommendations = req.MaxRecommendations
	}
	if req.IncludeWhatIf != nil {
		opts.includeWhatIf = *req.IncludeWhatIf
	}
	if req.EnableLLMFallback != nil {
		opts.enableFallback = *req.EnableLLMFallback
	}
	return opts
}

type inflight struct {
	status Status
	cancel context.CancelFunc
}

// Engine runs the suggestion pipeline end to end: ingest, generate,
// evaluate, package, with an optional LLM fallback, and routes feedback
// and execution requests back through the learning and orchestration
// layers.
type Engine struct {
	cfg       config.EngineConfig
	ingestor  *ingest.Ingestor
	generator *powerset.Generator
	evaluator *evaluate.Evaluator
	packager  *recommend.Packager
	feedback  FeedbackService
	builder   *orchestration.Builder
	dispatch  Dispatcher
	metrics   Metrics
	events    EventPublisher
	llm       LLMFallback
	logger    Logger
	now       func() time.Time
	topics    mqtt.Topics

	mu       sync.RWMutex
	requests map[string]*inflight

	// results and cards retain only the most recent finished runs;
	// storeResult evicts oldest-first past the configured cap so the
	// engine holds no unbounded per-session state.
	results     map[string]*Result
	resultOrder []string

	// cards indexes every retained card, so feedback and execution
	// requests can resolve a recommendation id back to its source.
	cards map[string]*cardRef

	// planIndex maps dispatched plan ids back to their recommendation
	// for result-to-feedback routing. Entries clear when the executor
	// reports back, with an oldest-first cap for plans that never do.
	planIndex map[string]planRef
	planOrder []string
}

type cardRef struct {
	userID string
	card   capability.RecommendationCard
}

// Options collects the engine's collaborators. Ingestor, Feedback, and
// Dispatcher are required; Metrics, Events, and LLM may be nil.
type Options struct {
	Config     config.EngineConfig
	Source     ingest.Source
	Feedback   FeedbackService
	Dispatcher Dispatcher
	Metrics    Metrics
	Events     EventPublisher
	LLM        LLMFallback
}

// New creates an engine from its collaborators.
func New(opts Options) *Engine {
	e := &Engine{
		cfg:      opts.Config,
		ingestor: ingest.NewIngestor(opts.Source),
		generator: powerset.NewGenerator(powerset.Config{
			MinSize:         opts.Config.MinCombinationSize,
			MaxSize:         opts.Config.MaxCombinationSize,
			MaxCombinations: opts.Config.MaxCombinations,
		}),
		evaluator: evaluate.NewEvaluator(),
		packager:  recommend.NewPackager(),
		feedback:  opts.Feedback,
		builder:   orchestration.NewBuilder(),
		dispatch:  opts.Dispatcher,
		metrics:   opts.Metrics,
		events:    opts.Events,
		llm:       opts.LLM,
		logger:    noopLogger{},
		now:       time.Now,
		requests:  make(map[string]*inflight),
		results:   make(map[string]*Result),
		cards:     make(map[string]*cardRef),
		planIndex: make(map[string]planRef),
	}

	if e.dispatch != nil {
		e.dispatch.SetOnResult(e.handleExecutionResult)
	}
	return e
}

// SetLogger sets the logger for the engine and its pipeline stages.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
	e.ingestor.SetLogger(logger)
	e.generator.SetLogger(logger)
	e.evaluator.SetLogger(logger)
	e.packager.SetLogger(logger)
}

// SetClock overrides the time source. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// GenerateSuggestions runs the full pipeline for one user and returns
// the packaged result. Cancellation is honoured at stage boundaries:
// a cancelled request finishes its current stage, then stops.
func (e *Engine) GenerateSuggestions(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}

	requestID := capability.NewID("req")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.register(requestID, req.UserID, cancel)
	defer e.unregister(requestID)

	started := e.now()
	run := &pipelineRun{
		engine:    e,
		requestID: requestID,
		req:       req,
		opts:      e.resolveOptions(req),
	}
	result, err := run.execute(ctx)
	if err != nil {
		e.setStage(requestID, StageFailed, err.Error())
		e.logger.Error("suggestion run failed",
			"request_id", requestID,
			"user_id", req.UserID,
			"error", err,
		)
		return nil, err
	}
	result.ProcessingTimeMS = e.now().Sub(started).Milliseconds()

	e.storeResult(result)
	e.publishEvent("suggestion.completed", result)

	e.logger.Info("suggestion run finished",
		"request_id", requestID,
		"user_id", req.UserID,
		"stage", result.Stage,
		"cards", len(result.Cards),
	)
	return result, nil
}

// Cancel aborts an in-flight request. The pipeline stops at the next
// stage boundary.
func (e *Engine) Cancel(requestID string) error {
	e.mu.RLock()
	req, ok := e.requests[requestID]
	e.mu.RUnlock()
	if !ok {
		return ErrRequestNotFound
	}
	req.cancel()
	return nil
}

// Status returns the current stage of a request, finished or not.
func (e *Engine) Status(requestID string) (*Status, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if req, ok := e.requests[requestID]; ok {
		status := req.status
		return &status, nil
	}
	if result, ok := e.results[requestID]; ok {
		return &Status{
			RequestID: result.RequestID,
			UserID:    result.UserID,
			Stage:     result.Stage,
			StartedAt: result.GeneratedAt,
			UpdatedAt: result.GeneratedAt,
		}, nil
	}
	return nil, ErrRequestNotFound
}

// Recommendation returns a previously issued card by id.
func (e *Engine) Recommendation(recommendationID string) (*capability.RecommendationCard, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ref, ok := e.cards[recommendationID]
	if !ok {
		return nil, ErrRecommendationNotFound
	}
	card := ref.card
	return &card, nil
}

// RecordFeedback applies one user reaction to a previously issued card.
func (e *Engine) RecordFeedback(ctx context.Context, record *capability.FeedbackRecord) error {
	e.mu.RLock()
	ref, ok := e.cards[record.RecommendationID]
	e.mu.RUnlock()

	var source *capability.CombinationCandidate
	if ok {
		source = ref.card.Source
	}

	if err := e.feedback.Record(ctx, record, source); err != nil {
		return err
	}
	if e.metrics != nil {
		success := record.Success != nil && *record.Success
		e.metrics.WriteFeedbackMetric(string(record.Type), success)
	}
	e.publishEvent("feedback.recorded", record)
	return nil
}

// ExecuteSuggestion builds an execution plan for an accepted card and
// dispatches it. The execution outcome arrives asynchronously and is
// recorded as execute feedback.
func (e *Engine) ExecuteSuggestion(ctx context.Context, userID, recommendationID string) (*orchestration.Execution, error) {
	e.mu.RLock()
	ref, ok := e.cards[recommendationID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrRecommendationNotFound
	}
	if ref.userID != userID {
		return nil, ErrRecommendationNotFound
	}

	plan, err := e.builder.BuildPlan(&ref.card, userID)
	if err != nil {
		return nil, err
	}

	exec, err := e.dispatch.Dispatch(ctx, plan)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.trackPlan(exec.PlanID, planRef{recommendationID: recommendationID, userID: userID})
	e.mu.Unlock()

	e.publishEvent("plan.dispatched", exec)
	return exec, nil
}

type planRef struct {
	recommendationID string
	userID           string
}

// handleExecutionResult converts an executor outcome into execute
// feedback so the learning loop sees real-world success and failure.
func (e *Engine) handleExecutionResult(planID string, success bool, errMsg string) {
	e.mu.Lock()
	ref, ok := e.planIndex[planID]
	delete(e.planIndex, planID)
	e.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record := &capability.FeedbackRecord{
		UserID:           ref.userID,
		RecommendationID: ref.recommendationID,
		Type:             capability.FeedbackExecute,
		Success:          &success,
	}
	if errMsg != "" {
		record.Data = capability.Params{"error": errMsg}
	}
	if err := e.RecordFeedback(ctx, record); err != nil {
		e.logger.Error("could not record execution feedback",
			"plan_id", planID,
			"error", err,
		)
	}
}

// StartMaintenance runs decay and retention cleanup on a timer until ctx
// is cancelled.
func (e *Engine) StartMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.feedback.RunMaintenance(ctx); err != nil {
					e.logger.Error("maintenance run failed", "error", err)
				}
			}
		}
	}()
}

func (e *Engine) register(requestID, userID string, cancel context.CancelFunc) {
	now := e.now().UTC()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests[requestID] = &inflight{
		status: Status{
			RequestID: requestID,
			UserID:    userID,
			Stage:     StagePending,
			StartedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
	}
}

func (e *Engine) unregister(requestID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.requests, requestID)
}

func (e *Engine) setStage(requestID, stage, errMsg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	req, ok := e.requests[requestID]
	if !ok {
		return
	}
	req.status.Stage = stage
	req.status.UpdatedAt = e.now().UTC()
	if errMsg != "" {
		req.status.Error = errMsg
	}
}

// Retention caps, applied when the config leaves them unset. Evicted
// results take their cards with them, so the card index cannot outgrow
// the retained results.
const (
	defaultMaxRetainedResults = 256
	maxTrackedPlans           = 512
)

func (e *Engine) storeResult(result *Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[result.RequestID] = result
	e.resultOrder = append(e.resultOrder, result.RequestID)
	for _, card := range result.Cards {
		e.cards[card.ID] = &cardRef{userID: result.UserID, card: card}
	}

	max := e.cfg.MaxRetainedResults
	if max <= 0 {
		max = defaultMaxRetainedResults
	}
	for len(e.resultOrder) > max {
		oldest := e.resultOrder[0]
		e.resultOrder = e.resultOrder[1:]
		if old, ok := e.results[oldest]; ok {
			for _, card := range old.Cards {
				delete(e.cards, card.ID)
			}
			delete(e.results, oldest)
		}
	}
}

// trackPlan records a dispatched plan for result-to-feedback routing,
// evicting the oldest outstanding entries past the cap. Callers hold
// e.mu.
func (e *Engine) trackPlan(planID string, ref planRef) {
	e.planIndex[planID] = ref
	e.planOrder = append(e.planOrder, planID)
	for len(e.planOrder) > 0 {
		oldest := e.planOrder[0]
		if _, ok := e.planIndex[oldest]; !ok {
			// Already resolved by an execution result.
			e.planOrder = e.planOrder[1:]
			continue
		}
		if len(e.planIndex) <= maxTrackedPlans {
			break
		}
		delete(e.planIndex, oldest)
		e.planOrder = e.planOrder[1:]
	}
}

func (e *Engine) publishEvent(eventType string, payload any) {
	if e.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := e.events.Publish(e.topics.Event(eventType), data, 0, false); err != nil {
		e.logger.Debug("event publish failed", "event", eventType, "error", err)
	}
}
