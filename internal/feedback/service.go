package feedback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
)

// Affinity deltas per feedback type. Rooms move at half the device rate
// so area-level preferences build up more slowly than device-level ones.
const (
	acceptDeviceDelta = 0.1
	acceptRoomDelta   = 0.05
	rejectDeviceDelta = -0.1
	rejectRoomDelta   = -0.05
)

// Pattern strengths per feedback type. Execution outcomes speak louder
// than a tap on a card.
const (
	acceptStrength         = 1.0
	rejectStrength         = 1.0
	snoozeStrength         = 0.5
	editStrength           = 0.7
	executeSuccessStrength = 1.5
	executeFailureStrength = 0.3
)

// Logger defines the logging interface used by the Service.
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

// Config holds the learning-loop tunables.
type Config struct {
	// DecayFactor is the per-day multiplier applied to pattern strengths.
	DecayFactor float64

	// StrengthFloor prunes pattern entries once their strength decays
	// below it.
	StrengthFloor float64

	// RetentionDays bounds how long raw feedback records are kept.
	RetentionDays int
}

// DefaultConfig returns the standard learning-loop settings.
func DefaultConfig() Config {
	return Config{
		DecayFactor:   0.95,
		StrengthFloor: 0.1,
		RetentionDays: 90,
	}
}

// Service applies user feedback to overlays and maintains the records.
//
// All overlay mutation for one user is serialised through a per-user
// lock, so concurrent feedback for the same user never interleaves a
// read-modify-write.
type Service struct {
	repo   Repository
	cfg    Config
	logger Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a feedback service.
func NewService(repo Repository, cfg Config) *Service {
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: noopLogger{},
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetClock overrides the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Record validates and persists one feedback record, then applies its
// learning effect to the user's overlay. The source candidate (when the
// recommendation still resolves to one) supplies the devices and rooms
// whose affinities move.
func (s *Service) Record(ctx context.Context, record *capability.FeedbackRecord, source *capability.CombinationCandidate) error {
	if record == nil || record.UserID == "" || record.RecommendationID == "" {
		return fmt.Errorf("%w: user and recommendation ids are required", ErrInvalidFeedback)
	}
	if !record.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidFeedback, record.Type)
	}
	if record.Type == capability.FeedbackExecute && record.Success == nil {
		return fmt.Errorf("%w: execute feedback requires a success flag", ErrInvalidFeedback)
	}

	if record.ID == "" {
		record.ID = capability.NewID("fb")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}

	lock := s.userLock(record.UserID)
	lock.Lock()
	defer lock.Unlock()

	overlay, err := s.loadOrCreateOverlay(ctx, record.UserID)
	if err != nil {
		return err
	}

	s.apply(overlay, record, source)
	overlay.UpdatedAt = s.now().UTC()

	if err := s.repo.SaveOverlay(ctx, overlay); err != nil {
		return err
	}
	if err := s.repo.InsertFeedback(ctx, record); err != nil {
		return err
	}

	s.logger.Info("feedback recorded",
		"user_id", record.UserID,
		"recommendation_id", record.RecommendationID,
		"type", record.Type,
	)
	return nil
}

// Overlay returns the user's overlay, or nil when none exists yet.
// Callers treat nil as the neutral baseline.
func (s *Service) Overlay(ctx context.Context, userID string) (*capability.UserOverlay, error) {
	overlay, err := s.repo.GetOverlay(ctx, userID)
	if errors.Is(err, ErrOverlayNotFound) {
		return nil, nil
	}
	return overlay, err
}

// History returns the user's recent feedback records.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]capability.FeedbackRecord, error) {
	return s.repo.ListFeedback(ctx, userID, limit)
}

func (s *Service) loadOrCreateOverlay(ctx context.Context, userID string) (*capability.UserOverlay, error) {
	overlay, err := s.repo.GetOverlay(ctx, userID)
	if errors.Is(err, ErrOverlayNotFound) {
		return capability.NewUserOverlay(userID), nil
	}
	return overlay, err
}

// apply routes one record to its feedback-type handler.
func (s *Service) apply(overlay *capability.UserOverlay, record *capability.FeedbackRecord, source *capability.CombinationCandidate) {
	entry := capability.PatternEntry{
		Timestamp: record.CreatedAt,
	}
	if source != nil {
		entry.PatternKey = source.Signature
	} else {
		entry.PatternKey = record.RecommendationID
	}
	if record.Context != nil {
		entry.Context = capability.Params{
			"time_of_day":    record.Context.TimeOfDay,
			"is_weekend":     record.Context.IsWeekend,
			"is_quiet_hours": record.Context.IsQuietHours,
		}
	}

	switch record.Type {
	case capability.FeedbackAccept:
		adjustAffinities(overlay, source, acceptDeviceDelta, acceptRoomDelta)
		entry.Strength = acceptStrength
		overlay.AcceptedPatterns = append(overlay.AcceptedPatterns, entry)

	case capability.FeedbackReject:
		adjustAffinities(overlay, source, rejectDeviceDelta, rejectRoomDelta)
		entry.Strength = rejectStrength
		if reason, ok := record.Data["reason"].(string); ok {
			entry.Reason = reason
		}
		overlay.RejectedPatterns = append(overlay.RejectedPatterns, entry)

	case capability.FeedbackSnooze:
		// Snooze is a weak rejection: no affinity movement, just a
		// low-strength rejected pattern.
		entry.Strength = snoozeStrength
		overlay.RejectedPatterns = append(overlay.RejectedPatterns, entry)

	case capability.FeedbackEdit:
		entry.Strength = editStrength
		entry.Reason = "edited before accepting"
		overlay.AcceptedPatterns = append(overlay.AcceptedPatterns, entry)
		applyBiasOverrides(overlay, record.Data)

	case capability.FeedbackExecute:
		if record.Success != nil && *record.Success {
			entry.Strength = executeSuccessStrength
			overlay.AcceptedPatterns = append(overlay.AcceptedPatterns, entry)
		} else {
			entry.Strength = executeFailureStrength
			entry.Reason = "execution failed"
			overlay.RejectedPatterns = append(overlay.RejectedPatterns, entry)
		}
	}
}

func adjustAffinities(overlay *capability.UserOverlay, source *capability.CombinationCandidate, deviceDelta, roomDelta float64) {
	if source == nil {
		return
	}
	for _, d := range source.Devices {
		overlay.AdjustDeviceAffinity(d.DeviceID, deviceDelta)
	}
	for _, room := range source.Rooms() {
		overlay.AdjustRoomAffinity(room, roomDelta)
	}
}

// applyBiasOverrides copies explicit bias values out of edit-feedback
// data. Only known keys are honoured and values are clamped.
func applyBiasOverrides(overlay *capability.UserOverlay, data capability.Params) {
	if v, ok := floatParam(data, "energy_vs_comfort"); ok {
		overlay.EnergyVsComfort = capability.ClampUnit(v)
	}
	if v, ok := floatParam(data, "safety_vs_convenience"); ok {
		overlay.SafetyVsConvenience = capability.ClampUnit(v)
	}
	if v, ok := floatParam(data, "privacy_vs_functionality"); ok {
		overlay.PrivacyVsFunctionality = capability.ClampUnit(v)
	}
	if v, ok := data["quiet_hours_start"].(string); ok {
		overlay.QuietHoursStart = v
	}
	if v, ok := data["quiet_hours_end"].(string); ok {
		overlay.QuietHoursEnd = v
	}
}

func floatParam(data capability.Params, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// ApplyDecay decays a user's pattern strengths based on each entry's age
// and prunes entries below the strength floor. Decay is computed from the
// entry timestamp, so re-running it at the same instant changes nothing.
func (s *Service) ApplyDecay(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	overlay, err := s.repo.GetOverlay(ctx, userID)
	if errors.Is(err, ErrOverlayNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	now := s.now().UTC()
	before := len(overlay.AcceptedPatterns) + len(overlay.RejectedPatterns)
	overlay.AcceptedPatterns = s.decayPatterns(overlay.AcceptedPatterns, now)
	overlay.RejectedPatterns = s.decayPatterns(overlay.RejectedPatterns, now)
	after := len(overlay.AcceptedPatterns) + len(overlay.RejectedPatterns)

	overlay.UpdatedAt = now
	if err := s.repo.SaveOverlay(ctx, overlay); err != nil {
		return err
	}

	if pruned := before - after; pruned > 0 {
		s.logger.Debug("pruned decayed patterns", "user_id", userID, "pruned", pruned)
	}
	return nil
}

// decayPatterns applies age decay to each entry's stored strength and
// advances its timestamp to the decay instant, dropping entries that
// fall below the floor. The decayed value is persisted so overlay
// readers see the same strengths the evaluator scores with; restarting
// the clock from the write keeps a re-run at the same instant a no-op.
func (s *Service) decayPatterns(entries []capability.PatternEntry, now time.Time) []capability.PatternEntry {
	kept := entries[:0]
	for _, e := range entries {
		days := now.Sub(e.Timestamp).Hours() / 24
		if days < 0 {
			days = 0
		}
		e.Strength *= math.Pow(s.cfg.DecayFactor, days)
		if e.Strength < s.cfg.StrengthFloor {
			continue
		}
		e.Timestamp = now
		kept = append(kept, e)
	}
	return kept
}

// RunMaintenance decays every user's overlay and purges feedback records
// past the retention window. Intended to run on a timer.
func (s *Service) RunMaintenance(ctx context.Context) error {
	userIDs, err := s.repo.ListOverlayUserIDs(ctx)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if err := s.ApplyDecay(ctx, userID); err != nil {
			s.logger.Error("overlay decay failed", "user_id", userID, "error", err)
		}
	}

	cutoff := s.now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	purged, err := s.repo.PurgeFeedbackBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Info("purged expired feedback records", "purged", purged)
	}
	return nil
}
