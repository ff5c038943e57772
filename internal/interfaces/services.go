package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// ContentStore creates the content entity for a finished job. Used exactly
// once per job, at finalize.
type ContentStore interface {
	Create(ctx context.Context, doc *models.Document) (string, error)
}

// SEOFieldWriter applies generated SEO fields to a created content entity.
// Implementations are polymorphic over whichever SEO integration is active.
type SEOFieldWriter interface {
	Name() string
	Apply(ctx context.Context, contentRef string, fields models.SEOFields) error
}

// MediaStore fetches a generated image and attaches it to a content entity.
type MediaStore interface {
	FetchAndAttach(ctx context.Context, url string, filename string, contentRef string) (string, error)
}

// SettingsService exposes every user tunable as a typed accessor over the
// key/value store. Writes to schedule-affecting keys record a change
// timestamp that drives the scheduler cooldown gate.
type SettingsService interface {
	ScheduleEnabled() bool
	Frequency() models.Frequency
	TimeOfDay() string
	Timezone() *time.Location
	DailyCap() int
	MonthlyBudget() float64
	Model() string
	ImageModel() string
	WordCount() int
	HumanizeLevel() int
	SEOEnabled() bool
	ImageEnabled() bool
	PublishImmediately() bool
	Author() string
	SettingsChangedAt() time.Time

	Get(key string) (string, error)
	Set(key string, value string) error
	All() (map[string]string, error)
}

// LedgerService wraps the cost ledger with the gate computations the
// scheduler needs.
type LedgerService interface {
	Append(ctx context.Context, entry *models.CostEntry) error
	Stats(ctx context.Context) (*models.LedgerStats, error)
	WithinBudget(ctx context.Context, limit float64) (bool, error)
	PostsToday(ctx context.Context) (int, error)
}

// StepOutcome is the result of advancing a job by one step.
type StepOutcome struct {
	NextStep models.StepType `json:"next_step"`
	Status   models.JobStatus `json:"job_status"`
}

// PipelineService drives one generation job through its ordered steps.
type PipelineService interface {
	CreateJob(ctx context.Context, topic string, options models.JobOptions) (string, error)
	ProcessStep(ctx context.Context, jobID string, step models.StepType) (*StepOutcome, error)
	Finalize(ctx context.Context, jobID string) (*StepOutcome, error)
	CompleteWithImage(ctx context.Context, jobID string) (*StepOutcome, error)
	RunToCompletion(ctx context.Context, jobID string) (*models.GenerationJob, error)
	GetJob(ctx context.Context, jobID string) (*models.GenerationJob, error)
}

// SchedulerStatus is the externally visible scheduler state.
type SchedulerStatus struct {
	Running  bool       `json:"running"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	LastGate string     `json:"last_gate,omitempty"`
}

// SchedulerService is the timer-driven dispatcher for unattended generation.
type SchedulerService interface {
	Start() error
	Stop() error
	RunScheduledGeneration(ctx context.Context) error
	CheckMissedRun(ctx context.Context) error
	Status(ctx context.Context) (*SchedulerStatus, error)
}
