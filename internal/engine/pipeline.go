package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
	"github.com/hearthline/hearth-core/internal/powerset"
)

// pipelineRun carries one request through the pipeline stages.
type pipelineRun struct {
	engine    *Engine
	requestID string
	req       Request
	opts      runOptions

	warnings []string
	errs     []string
}

// execute advances through the stages, checking for cancellation at each
// boundary. A stage that has started always runs to completion.
func (r *pipelineRun) execute(ctx context.Context) (*Result, error) {
	e := r.engine

	// Ingest.
	if err := r.checkpoint(ctx); err != nil {
		return nil, err
	}
	e.setStage(r.requestID, StageIngest, "")
	start := e.now()
	ingested, err := e.ingestor.Ingest(ctx, r.requestID, r.req.Hints)
	if err != nil {
		return nil, fmt.Errorf("ingest stage: %w", err)
	}
	devices := len(ingested.Graph.Devices)
	services := len(ingested.Graph.Services)
	r.report(StageIngest, start, devices+services)
	if e.metrics != nil {
		e.metrics.WriteInventoryMetric(devices, services)
	}

	// Generate combinations, bounded by the time budget.
	if err := r.checkpoint(ctx); err != nil {
		return nil, err
	}
	e.setStage(r.requestID, StageGenerate, "")
	start = e.now()
	budget := time.Duration(e.cfg.TimeBudgetMS) * time.Millisecond
	candidates := r.generator().Generate(ctx, ingested.Graph, ingested.Context, budget)
	r.report(StageGenerate, start, len(candidates))

	// Evaluate against the user's overlay.
	if err := r.checkpoint(ctx); err != nil {
		return nil, err
	}
	e.setStage(r.requestID, StageEvaluate, "")
	start = e.now()
	overlay, err := e.feedback.Overlay(ctx, r.req.UserID)
	if err != nil {
		e.logger.Warn("overlay unavailable, scoring with neutral preferences",
			"user_id", r.req.UserID,
			"error", err,
		)
		r.warnings = append(r.warnings, "user overlay unavailable, scored with neutral preferences")
		overlay = nil
	}
	evaluated := e.evaluator.Evaluate(candidates, ingested.Context, r.scoringOverlay(overlay))
	r.report(StageEvaluate, start, len(evaluated.Feasible))

	stage := StageCompleted
	llmGenerated := false
	var fallbackCards []capability.RecommendationCard

	// An empty combination set is not an error: try the fallback
	// proposer when enabled, and degrade to a partial result when it
	// yields nothing either.
	if len(candidates) == 0 {
		if r.opts.enableFallback && e.llm != nil {
			if err := r.checkpoint(ctx); err != nil {
				return nil, err
			}
			e.setStage(r.requestID, StageLLMFallback, "")
			start = e.now()
			cards, err := e.llm.Propose(ctx, ingested.Graph, ingested.Context)
			if err != nil {
				e.logger.Warn("llm fallback failed", "request_id", r.requestID, "error", err)
				r.errs = append(r.errs, "llm fallback failed: "+err.Error())
			} else {
				fallbackCards = cards
			}
			r.report(StageLLMFallback, start, len(fallbackCards))
		}
		if len(fallbackCards) > 0 {
			llmGenerated = true
			stage = StagePartial
		} else {
			stage = StagePartial
			r.warnings = append(r.warnings, "no device combinations could be generated from the current inventory")
		}
	}

	// Package.
	if err := r.checkpoint(ctx); err != nil {
		return nil, err
	}
	e.setStage(r.requestID, StagePackage, "")
	start = e.now()
	pkg := e.packager.Build(evaluated.Feasible, evaluated.MissingCapabilities)
	cards := append(pkg.Cards, fallbackCards...)
	if max := r.opts.maxRecommendations; max > 0 && len(cards) > max {
		cards = cards[:max]
	}
	whatIf := pkg.WhatIf
	if !r.opts.includeWhatIf {
		whatIf = nil
	}
	r.report(StagePackage, start, len(cards))

	e.setStage(r.requestID, stage, "")
	return &Result{
		RequestID:    r.requestID,
		UserID:       r.req.UserID,
		Stage:        stage,
		Cards:        cards,
		WhatIf:       whatIf,
		Warnings:     r.warnings,
		Errors:       r.errs,
		LLMGenerated: llmGenerated,
		GeneratedAt:  e.now().UTC(),
	}, nil
}

// generator returns the engine's shared generator, or a request-scoped
// one when the request widens or narrows discovery.
func (r *pipelineRun) generator() *powerset.Generator {
	e := r.engine
	if r.opts.discoveryWidth == e.cfg.MaxCombinationSize {
		return e.generator
	}
	gen := powerset.NewGenerator(powerset.Config{
		MinSize:         e.cfg.MinCombinationSize,
		MaxSize:         r.opts.discoveryWidth,
		MaxCombinations: e.cfg.MaxCombinations,
	})
	gen.SetLogger(e.logger)
	return gen
}

// scoringOverlay applies any per-request bias overrides to a copy of the
// stored overlay. The stored overlay itself is never touched.
func (r *pipelineRun) scoringOverlay(overlay *capability.UserOverlay) *capability.UserOverlay {
	p := r.req.Preferences
	if p == nil {
		return overlay
	}
	if overlay == nil {
		overlay = capability.NewUserOverlay(r.req.UserID)
	} else {
		overlay = overlay.DeepCopy()
	}
	if p.EnergyVsComfort != nil {
		overlay.EnergyVsComfort = capability.ClampUnit(*p.EnergyVsComfort)
	}
	if p.SafetyVsConvenience != nil {
		overlay.SafetyVsConvenience = capability.ClampUnit(*p.SafetyVsConvenience)
	}
	if p.PrivacyVsFunctionality != nil {
		overlay.PrivacyVsFunctionality = capability.ClampUnit(*p.PrivacyVsFunctionality)
	}
	return overlay
}

// checkpoint enforces stage-boundary cancellation.
func (r *pipelineRun) checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrRequestCancelled, ctx.Err())
	default:
		return nil
	}
}

// report records one stage's timing and volume.
func (r *pipelineRun) report(stage string, start time.Time, items int) {
	e := r.engine
	elapsed := e.now().Sub(start)
	e.logger.Debug("pipeline stage finished",
		"request_id", r.requestID,
		"stage", stage,
		"duration_ms", elapsed.Milliseconds(),
		"items", items,
	)
	if e.metrics != nil {
		e.metrics.WritePipelineMetrics(r.requestID, stage, elapsed.Milliseconds(), items)
	}
}
