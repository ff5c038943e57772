// Package scheduler dispatches unattended generation runs on the
// configured cadence. At most one scheduled generation runs process-wide
// at any time, enforced through durable TTL locks rather than in-process
// mutexes so overlapping invocations from separate processes stay safe.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	generationLockName   = "scheduled_generation"
	planningLockName     = "trigger_planning"
	nextTriggerMarker    = "next_trigger"
	handledMarkerPrefix  = "trigger_handled:"
	handledMarkerTTL     = time.Hour
	triggerMarkerPadding = time.Hour
)

// Service is the cron-driven scheduler.
type Service struct {
	pipeline interfaces.PipelineService
	queue    interfaces.QueueStore
	locks    interfaces.LockStore
	settings interfaces.SettingsService
	ledger   interfaces.LedgerService
	client   interfaces.AIClient
	config   *common.Config
	logger   arbor.ILogger

	cron *cron.Cron
	now  func() time.Time

	mu       sync.Mutex
	lastRun  *time.Time
	lastGate string
}

var _ interfaces.SchedulerService = (*Service)(nil)

// NewService creates the scheduler.
func NewService(
	pipeline interfaces.PipelineService,
	queue interfaces.QueueStore,
	locks interfaces.LockStore,
	settings interfaces.SettingsService,
	ledger interfaces.LedgerService,
	client interfaces.AIClient,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		pipeline: pipeline,
		queue:    queue,
		locks:    locks,
		settings: settings,
		ledger:   ledger,
		client:   client,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Start arms the next trigger and begins the minute tick that fires due
// triggers.
func (s *Service) Start() error {
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.armNextTrigger(context.Background())

	s.cron = cron.New()
	if _, err := s.cron.AddFunc("* * * * *", func() {
		common.SafeGo(s.logger, "scheduler-tick", func() {
			s.tick(context.Background())
		})
	}); err != nil {
		return fmt.Errorf("failed to register scheduler tick: %w", err)
	}
	s.cron.Start()

	s.logger.Info().Msg("Scheduler started")
	return nil
}

// Stop halts the tick. In-flight runs finish; their durable locks expire
// on their own if the process dies first.
func (s *Service) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// tick fires the armed trigger once its time arrives.
func (s *Service) tick(ctx context.Context) {
	trigger, err := s.armedTrigger(ctx)
	if err != nil {
		s.armNextTrigger(ctx)
		return
	}
	if s.now().Before(trigger) {
		return
	}
	if err := s.RunScheduledGeneration(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled generation failed")
	}
}

// RunScheduledGeneration acquires the process-wide generation lock, runs
// one gated generation attempt with the lock released on every exit path,
// then recomputes and re-arms the next trigger.
func (s *Service) RunScheduledGeneration(ctx context.Context) error {
	ttl := common.ParseDuration(s.config.Scheduler.GenerationLockTTL, common.DefaultGenerationLockTTL)
	held, err := s.locks.Acquire(ctx, generationLockName, ttl)
	if err != nil {
		return err
	}
	if !held {
		s.logger.Debug().Msg("Generation lock held elsewhere, skipping run")
		return nil
	}

	func() {
		defer func() {
			if err := s.locks.Release(ctx, generationLockName); err != nil {
				s.logger.Error().Err(err).Msg("Failed to release generation lock")
			}
		}()
		s.attempt(ctx)
	}()

	s.armNextTrigger(ctx)
	return nil
}

// attempt runs the ordered eligibility gates, then claims one topic and
// drives it through the pipeline. Gate outcomes are logged, never
// surfaced; the scheduled path has no human to report to.
func (s *Service) attempt(ctx context.Context) {
	now := s.now().In(s.settings.Timezone())

	gate := s.evaluateGates(ctx, now)
	s.mu.Lock()
	s.lastGate = gate
	s.mu.Unlock()
	if gate != "" {
		s.logger.Info().Str("gate", gate).Msg("Scheduled generation not eligible")
		return
	}

	topic, err := s.queue.ClaimNext(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Queue claim failed")
		return
	}
	if topic == nil {
		s.logger.Info().Msg("No claimable topic in queue")
		return
	}

	s.logger.Info().
		Str("topic_id", topic.ID).
		Str("topic", topic.Topic).
		Msg("Running scheduled generation")
	s.runClaimedTopic(ctx, topic)

	runAt := s.now()
	s.mu.Lock()
	s.lastRun = &runAt
	s.mu.Unlock()
}

// evaluateGates returns the name of the first failing gate, or "" when
// all pass. The order is fixed; evaluation short-circuits on the first
// failure.
func (s *Service) evaluateGates(ctx context.Context, now time.Time) string {
	if !s.settings.ScheduleEnabled() {
		return "schedule_disabled"
	}

	// Cooldown after a settings change, overridden when we are already
	// inside the tolerance window of the configured schedule time.
	if s.inCooldown(now) && !s.withinScheduleTolerance(now) {
		return "settings_cooldown"
	}

	if err := s.client.VerifyCredentials(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Credential verification failed")
		return "credentials"
	}

	posts, err := s.ledger.PostsToday(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Daily post count lookup failed")
		return "ledger_error"
	}
	if limit := s.settings.DailyCap(); limit > 0 && posts >= limit {
		return "daily_cap"
	}

	within, err := s.ledger.WithinBudget(ctx, s.settings.MonthlyBudget())
	if err != nil {
		s.logger.Error().Err(err).Msg("Budget check failed")
		return "ledger_error"
	}
	if !within {
		return "monthly_budget"
	}

	if s.settings.Frequency() != models.FrequencyHourly && !s.withinScheduleTolerance(now) {
		return "outside_schedule_window"
	}
	return ""
}

// inCooldown reports whether a schedule-affecting setting changed within
// the cooldown window.
func (s *Service) inCooldown(now time.Time) bool {
	changedAt := s.settings.SettingsChangedAt()
	if changedAt.IsZero() {
		return false
	}
	cooldown := common.ParseDuration(s.config.Scheduler.CooldownWindow, common.DefaultCooldownWindow)
	return now.Sub(changedAt) < cooldown
}

// withinScheduleTolerance reports whether now falls inside the tolerance
// window around the configured time-of-day. Hourly schedules have no
// time-of-day, so every instant qualifies.
func (s *Service) withinScheduleTolerance(now time.Time) bool {
	if s.settings.Frequency() == models.FrequencyHourly {
		return true
	}

	tolerance := common.ParseDuration(s.config.Scheduler.TimeTolerance, common.DefaultTimeTolerance)
	hour, minute := parseTimeOfDay(s.settings.TimeOfDay())
	loc := s.settings.Timezone()
	now = now.In(loc)

	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	diff := now.Sub(at)
	if diff < 0 {
		diff = -diff
	}
	if s.settings.Frequency() == models.FrequencyTwiceDaily {
		second := now.Sub(at.Add(12 * time.Hour))
		if second < 0 {
			second = -second
		}
		if second < diff {
			diff = second
		}
	}
	return diff <= tolerance
}

// runClaimedTopic drives one claimed topic through the pipeline and
// releases the claim with the outcome.
func (s *Service) runClaimedTopic(ctx context.Context, topic *models.QueueTopic) {
	jobID, err := s.pipeline.CreateJob(ctx, topic.Topic, models.JobOptions{
		Model:         s.settings.Model(),
		WordCount:     s.settings.WordCount(),
		Keywords:      topic.Keywords,
		Publish:       s.settings.PublishImmediately(),
		GenerateImage: s.settings.ImageEnabled(),
		GenerateSEO:   s.settings.SEOEnabled(),
		HumanizeLevel: s.settings.HumanizeLevel(),
		CategoryRef:   topic.CategoryRef,
		Source:        string(models.TopicSourceScheduled),
		QueueTopicID:  topic.ID,
	})
	if err != nil {
		s.releaseClaim(ctx, topic.ID, interfaces.ReleaseResult{Error: err.Error()})
		return
	}

	job, err := s.pipeline.RunToCompletion(ctx, jobID)
	if err != nil {
		s.releaseClaim(ctx, topic.ID, interfaces.ReleaseResult{Error: err.Error()})
		return
	}

	if job.Status == models.JobStatusCompleted {
		s.releaseClaim(ctx, topic.ID, interfaces.ReleaseResult{Success: true, ContentRef: job.ContentRef})
		return
	}
	s.releaseClaim(ctx, topic.ID, interfaces.ReleaseResult{Error: job.Error})
}

func (s *Service) releaseClaim(ctx context.Context, topicID string, result interfaces.ReleaseResult) {
	if err := s.queue.Release(ctx, topicID, result); err != nil {
		s.logger.Error().Err(err).Str("topic_id", topicID).Msg("Failed to release queue claim")
	}
}

// armNextTrigger computes and stores the next trigger instant. The
// short-lived planning lock serializes the computation across overlapping
// invocations.
func (s *Service) armNextTrigger(ctx context.Context) {
	planningTTL := common.ParseDuration(s.config.Scheduler.PlanningLockTTL, common.DefaultPlanningLockTTL)
	held, err := s.locks.Acquire(ctx, planningLockName, planningTTL)
	if err != nil || !held {
		return
	}
	defer func() {
		_ = s.locks.Release(ctx, planningLockName)
	}()

	next := NextRun(s.settings.Frequency(), s.settings.TimeOfDay(), s.now(), s.settings.Timezone())
	ttl := time.Until(next) + triggerMarkerPadding
	if err := s.locks.SetMarker(ctx, nextTriggerMarker, next.Format(time.RFC3339), ttl); err != nil {
		s.logger.Error().Err(err).Msg("Failed to arm next trigger")
		return
	}

	s.logger.Debug().
		Str("frequency", string(s.settings.Frequency())).
		Str("next_run", next.Format(time.RFC3339)).
		Msg("Next trigger armed")
}

func (s *Service) armedTrigger(ctx context.Context) (time.Time, error) {
	value, err := s.locks.GetMarker(ctx, nextTriggerMarker)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// CheckMissedRun is the crash-recovery fallback invoked on external
// triggers. If the armed trigger passed recently (inside the grace
// window) and has not yet been handled, it fires the run directly. A
// handled-trigger marker keyed on the exact trigger timestamp stops two
// near-simultaneous checks from double-firing.
func (s *Service) CheckMissedRun(ctx context.Context) error {
	trigger, err := s.armedTrigger(ctx)
	if err != nil {
		s.armNextTrigger(ctx)
		return nil
	}

	now := s.now()
	if !now.After(trigger) {
		return nil
	}

	grace := common.ParseDuration(s.config.Scheduler.MissedRunGrace, common.DefaultMissedRunGrace)
	if now.Sub(trigger) >= grace {
		// Too stale to fire retroactively; just move the schedule forward.
		s.armNextTrigger(ctx)
		return nil
	}

	// Insert-if-absent, so exactly one concurrent check wins the recovery.
	handled, err := s.locks.Acquire(ctx, handledMarkerPrefix+trigger.Format(time.RFC3339), handledMarkerTTL)
	if err != nil {
		return err
	}
	if !handled {
		return nil
	}

	s.logger.Warn().
		Str("trigger", trigger.Format(time.RFC3339)).
		Msg("Missed trigger detected, recovering")
	return s.RunScheduledGeneration(ctx)
}

// Status reports the externally visible scheduler state.
func (s *Service) Status(ctx context.Context) (*interfaces.SchedulerStatus, error) {
	status := &interfaces.SchedulerStatus{Running: s.cron != nil}

	if trigger, err := s.armedTrigger(ctx); err == nil {
		status.NextRun = &trigger
	}

	s.mu.Lock()
	status.LastRun = s.lastRun
	status.LastGate = s.lastGate
	s.mu.Unlock()
	return status, nil
}
