package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smehta/migraine-server/internal/apperr"
	"github.com/smehta/migraine-server/internal/cache"
	"github.com/smehta/migraine-server/internal/covariates"
	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/filter"
	"github.com/smehta/migraine-server/internal/forecast"
	"github.com/smehta/migraine-server/internal/intervention"
	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/metrics"
	"github.com/smehta/migraine-server/internal/privacy"
	"github.com/smehta/migraine-server/internal/protocol"
	"github.com/smehta/migraine-server/internal/queue"
	"github.com/smehta/migraine-server/internal/risk"
	"github.com/smehta/migraine-server/internal/timer"
	"github.com/smehta/migraine-server/pkg/config"
)

// Service is the vulnerability engine facade. Every API operation
// goes through here. Reads work from a cache/DB snapshot; mutations
// for one user are serialized through the handle manager.
type Service struct {
	cfg        *config.Config
	db         *database.DB
	states     *cache.StateCache
	producer   *queue.Producer
	manager    *Manager
	scheduler  *timer.Scheduler
	anonymizer *privacy.Anonymizer
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// NewService creates the engine service
func NewService(
	cfg *config.Config,
	db *database.DB,
	states *cache.StateCache,
	producer *queue.Producer,
	manager *Manager,
	scheduler *timer.Scheduler,
	anonymizer *privacy.Anonymizer,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		db:         db,
		states:     states,
		producer:   producer,
		manager:    manager,
		scheduler:  scheduler,
		anonymizer: anonymizer,
		metrics:    m,
		log:        log,
	}
}

// StartEviction schedules the recurring idle handle sweep
func (s *Service) StartEviction() {
	s.scheduleEviction()
}

func (s *Service) scheduleEviction() {
	err := s.scheduler.Schedule("handle-eviction", time.Now().Add(s.cfg.Engine.EvictionInterval), func() {
		evicted := s.manager.EvictIdle(s.cfg.Engine.HandleIdleTTL)
		if len(evicted) > 0 {
			s.log.Debug("evicted idle user handles", "count", len(evicted))
		}
		s.scheduleEviction()
	})
	if err != nil {
		// Scheduler is stopping; no further sweeps
		return
	}
}

// HandleStats reports the handle manager's occupancy
func (s *Service) HandleStats() ManagerStats {
	return s.manager.Stats()
}

// CreateUser registers a profile. Omitted fields take population
// defaults. A default alert rule is created alongside.
func (s *Service) CreateUser(req *protocol.CreateUserRequest) (*covariates.UserProfile, error) {
	userID := req.UserID
	if userID == "" {
		userID = uuid.New().String()
	} else {
		parsed, err := protocol.ParseUserID(userID)
		if err != nil {
			return nil, err
		}
		userID = parsed
	}

	p := &covariates.UserProfile{
		UserID:            userID,
		Age:               covariates.DefaultAge,
		Sex:               covariates.DefaultSex,
		PersonalThreshold: covariates.DefaultThreshold,
	}
	applyProfileFields(p, req.Age, req.Sex, req.MigraineHistoryYears, req.AverageMigraineFrequency, req.PersonalThreshold)

	if err := covariates.ValidateProfile(p); err != nil {
		return nil, err
	}
	if err := s.db.CreateUserProfile(p); err != nil {
		return nil, err
	}
	if err := s.db.CreateDefaultAlertRule(userID, s.cfg.Alerting.DefaultMargin, s.cfg.Alerting.ConsecutiveRequired); err != nil {
		s.log.Warn("failed to create default alert rule", "user_id", userID, "error", err)
	}

	s.log.Info("user created", "user_id", userID)
	return p, nil
}

// GetUser returns a profile or a not-found error
func (s *Service) GetUser(userID string) (*covariates.UserProfile, error) {
	p, err := s.db.GetUserProfile(userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &apperr.NotFoundError{Resource: "user", ID: userID}
	}
	return p, nil
}

// UpdateUser applies a partial profile update. The latent state is
// untouched; a changed threshold only shifts future projections.
func (s *Service) UpdateUser(userID string, req *protocol.UpdateUserRequest) (*covariates.UserProfile, error) {
	p, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	applyProfileFields(p, req.Age, req.Sex, req.MigraineHistoryYears, req.AverageMigraineFrequency, req.PersonalThreshold)

	if err := covariates.ValidateProfile(p); err != nil {
		return nil, err
	}
	if err := s.db.UpdateUserProfile(p); err != nil {
		return nil, err
	}

	s.log.Info("user updated", "user_id", userID)
	return p, nil
}

func applyProfileFields(p *covariates.UserProfile, age *int, sex *string, years, freq, threshold *float64) {
	if age != nil {
		p.Age = *age
	}
	if sex != nil {
		p.Sex = *sex
	}
	if years != nil {
		p.MigraineHistoryYears = *years
	}
	if freq != nil {
		p.AverageMigraineFrequency = *freq
	}
	if threshold != nil {
		p.PersonalThreshold = *threshold
	}
}

// SubmitLog folds one daily observation into the user's latent state:
// normalize, transition, measurement update, persist, publish. Two
// submissions for the same user run one at a time.
func (s *Service) SubmitLog(ctx context.Context, userID string, sub *protocol.LogSubmission) (*protocol.LogAccepted, error) {
	log, err := sub.ToDailyLog(userID)
	if err != nil {
		return nil, s.rejectLog("validation", err)
	}

	handle, err := s.manager.Acquire(userID)
	if err != nil {
		return nil, s.rejectLog("capacity", err)
	}
	defer s.manager.Release(handle)

	profile, err := s.GetUser(userID)
	if err != nil {
		return nil, s.rejectLog("not_found", err)
	}

	features, warnings, err := covariates.Normalize(log)
	if err != nil {
		return nil, s.rejectLog("validation", err)
	}
	warnings = append(warnings, covariates.QualityWarnings(log)...)

	state, err := s.loadState(ctx, profile)
	if err != nil {
		return nil, err
	}

	next, err := filter.Update(state, profile.PersonalThreshold, log, features)
	if err != nil {
		s.log.Error("state update failed", "user_id", userID, "error", err)
		return nil, s.rejectLog("computation", err)
	}

	if err := s.db.InsertDailyLog(log); err != nil {
		return nil, s.rejectLog("conflict", err)
	}
	if err := s.persistState(ctx, userID, &next); err != nil {
		return nil, err
	}

	est := risk.Project(next.Mean, next.Variance, profile.PersonalThreshold)
	s.publishEstimate(ctx, userID, log, &next, est)

	s.metrics.LogsIngested.Inc()
	s.log.Info("log accepted",
		"user_id", userID,
		"date", log.Date.Format(protocol.DateFormat),
		"occurred", log.MigraineOccurred,
		"score", est.Score,
	)

	return &protocol.LogAccepted{
		Date:               log.Date.Format(protocol.DateFormat),
		VulnerabilityScore: est.Score,
		Confidence:         est.Confidence,
		Warnings:           warnings,
	}, nil
}

func (s *Service) rejectLog(reason string, err error) error {
	s.metrics.IngestRejected.WithLabelValues(reason).Inc()
	return err
}

// ListLogs returns the user's most recent logs, newest first
func (s *Service) ListLogs(userID string, limit int) ([]covariates.DailyLog, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	return s.db.ListRecentLogs(userID, limit)
}

// Vulnerability projects the user's current latent state. Users with
// no logs get their prior, so this never 404s for a known user.
func (s *Service) Vulnerability(ctx context.Context, userID string) (*risk.Estimate, error) {
	profile, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadState(ctx, profile)
	if err != nil {
		return nil, err
	}

	est := risk.Project(state.Mean, state.Variance, profile.PersonalThreshold)
	return &est, nil
}

// History returns the persisted estimates for the trailing window
func (s *Service) History(userID string, days int) ([]*database.RiskHistoryEntry, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	return s.db.ListRiskHistory(userID, days)
}

// Simulate runs a what-if trajectory from the user's current state
func (s *Service) Simulate(ctx context.Context, userID string, req *protocol.SimulationRequest) (*forecast.Result, error) {
	profile, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadState(ctx, profile)
	if err != nil {
		return nil, err
	}

	explicit := make([]covariates.DailyLog, 0, len(req.BaselineLogs))
	for i := range req.BaselineLogs {
		log, err := req.BaselineLogs[i].ToBaselineLog()
		if err != nil {
			return nil, err
		}
		explicit = append(explicit, *log)
	}

	persisted, err := s.db.LatestLog(userID)
	if err != nil {
		return nil, err
	}

	baseline := forecast.ResolveBaseline(explicit, persisted)
	result, err := forecast.Simulate(state, profile.PersonalThreshold, baseline, req.HypotheticalModifications)
	if err != nil {
		return nil, err
	}

	s.metrics.SimulationsRun.Inc()
	return result, nil
}

// Interventions ranks the intervention catalog for the user
func (s *Service) Interventions(ctx context.Context, userID string) ([]intervention.Ranked, error) {
	profile, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadState(ctx, profile)
	if err != nil {
		return nil, err
	}

	latest, err := s.db.LatestLog(userID)
	if err != nil {
		return nil, err
	}

	return intervention.Rank(state, profile.PersonalThreshold, latest)
}

// RebuildState replays every stored log from the prior and replaces
// the persisted state. Recovery path for cache or write skew.
func (s *Service) RebuildState(ctx context.Context, userID string) (*risk.Estimate, error) {
	handle, err := s.manager.Acquire(userID)
	if err != nil {
		return nil, err
	}
	defer s.manager.Release(handle)

	profile, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	logs, err := s.db.ListLogsAscending(userID)
	if err != nil {
		return nil, err
	}

	state, err := filter.Replay(profile, logs)
	if err != nil {
		s.log.Error("state rebuild failed", "user_id", userID, "error", err)
		return nil, err
	}

	if err := s.persistState(ctx, userID, &state); err != nil {
		return nil, err
	}

	s.log.Info("state rebuilt", "user_id", userID, "logs", len(logs))
	est := risk.Project(state.Mean, state.Variance, profile.PersonalThreshold)
	return &est, nil
}

// ExportAnonymized returns the user's logs with identifiers replaced
// by stable pseudonyms
func (s *Service) ExportAnonymized(userID string) ([]privacy.AnonymizedLog, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}

	logs, err := s.db.ListLogsAscending(userID)
	if err != nil {
		return nil, err
	}

	return s.anonymizer.AnonymizeLogs(userID, logs), nil
}

// loadState resolves the user's current state: Redis snapshot, then
// the Postgres row, then the profile prior for a user with no logs.
func (s *Service) loadState(ctx context.Context, profile *covariates.UserProfile) (filter.State, error) {
	cached, err := s.states.Get(ctx, profile.UserID)
	if err != nil {
		s.log.Warn("state cache read failed", "user_id", profile.UserID, "error", err)
	}
	if cached != nil {
		s.metrics.StateCacheHits.Inc()
		return *cached, nil
	}
	s.metrics.StateCacheMisses.Inc()

	rec, err := s.db.GetLatentState(profile.UserID)
	if err != nil {
		return filter.State{}, fmt.Errorf("failed to load latent state: %w", err)
	}
	if rec != nil {
		state := filter.State{
			Mean:      rec.Mean,
			Variance:  rec.Variance,
			LogsCount: rec.LogsCount,
		}
		if rec.LastLogDate != nil {
			state.LastLogDate = *rec.LastLogDate
		}
		if err := s.states.Set(ctx, profile.UserID, &state); err != nil {
			s.log.Warn("state cache write failed", "user_id", profile.UserID, "error", err)
		}
		return state, nil
	}

	return filter.NewPrior(profile), nil
}

// persistState writes the state row and refreshes the cache snapshot
func (s *Service) persistState(ctx context.Context, userID string, state *filter.State) error {
	rec := &database.LatentStateRecord{
		UserID:    userID,
		Mean:      state.Mean,
		Variance:  state.Variance,
		LogsCount: state.LogsCount,
	}
	if !state.LastLogDate.IsZero() {
		rec.LastLogDate = &state.LastLogDate
	}

	if err := s.db.UpsertLatentState(rec); err != nil {
		return fmt.Errorf("failed to persist latent state: %w", err)
	}

	if err := s.states.Set(ctx, userID, state); err != nil {
		s.log.Warn("state cache write failed", "user_id", userID, "error", err)
	}
	return nil
}

// publishEstimate emits the estimate event. The log and state are
// already committed at this point; a publish failure is logged, not
// returned to the client.
func (s *Service) publishEstimate(ctx context.Context, userID string, log *covariates.DailyLog, state *filter.State, est risk.Estimate) {
	event := protocol.NewEstimateEvent(userID, log.Date, est.Score, est.Confidence, state.Mean, state.Variance, log.MigraineOccurred)
	data, err := protocol.EncodeEstimateEvent(event)
	if err != nil {
		s.log.Error("failed to encode estimate event", "user_id", userID, "error", err)
		return
	}
	if err := s.producer.Publish(ctx, userID, data); err != nil {
		s.log.Error("failed to publish estimate event", "user_id", userID, "error", err)
		return
	}
	s.metrics.EstimatesPublished.Inc()
}
