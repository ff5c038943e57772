// -----------------------------------------------------------------------
// Generation Job - resumable state machine for one content generation run
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// StepType identifies one stage of the generation pipeline.
type StepType string

const (
	StepOutline  StepType = "outline"
	StepContent  StepType = "content"
	StepHumanize StepType = "humanize"
	StepSEO      StepType = "seo"
	StepFinalize StepType = "finalize"
	StepImage    StepType = "image"
	StepComplete StepType = "complete"
)

// StepSkips controls which optional steps the transition table bypasses.
// Humanize is skipped when the configured intensity is below threshold,
// SEO and Image when the corresponding toggles are off.
type StepSkips struct {
	Humanize bool
	SEO      bool
	Image    bool
}

// NextStep returns the step that follows current in the fixed pipeline order,
// applying the optional skips. StepComplete is terminal and returns itself.
func NextStep(current StepType, skips StepSkips) StepType {
	switch current {
	case StepOutline:
		return StepContent
	case StepContent:
		if skips.Humanize {
			return NextStep(StepHumanize, skips)
		}
		return StepHumanize
	case StepHumanize:
		if skips.SEO {
			return StepFinalize
		}
		return StepSEO
	case StepSEO:
		return StepFinalize
	case StepFinalize:
		if skips.Image {
			return StepComplete
		}
		return StepImage
	case StepImage:
		return StepComplete
	default:
		return StepComplete
	}
}

// Prerequisite returns the step whose output must exist before the given
// step may run. Outline has no prerequisite.
func Prerequisite(step StepType) StepType {
	switch step {
	case StepContent:
		return StepOutline
	case StepHumanize, StepSEO, StepFinalize:
		return StepContent
	case StepImage:
		return StepFinalize
	default:
		return ""
	}
}

// JobOptions is the immutable configuration snapshot taken at job creation.
type JobOptions struct {
	Model         string   `json:"model"`
	WordCount     int      `json:"word_count" validate:"omitempty,min=100,max=10000"`
	Keywords      []string `json:"keywords"`
	Publish       bool     `json:"publish"`
	GenerateImage bool     `json:"generate_image"`
	GenerateSEO   bool     `json:"generate_seo"`
	HumanizeLevel int      `json:"humanize_level" validate:"min=0,max=10"`
	CategoryRef   string   `json:"category_ref"`
	Source        string   `json:"source"`
	QueueTopicID  string   `json:"queue_topic_id"`
}

// SEOFields holds the generated SEO metadata applied at finalize.
type SEOFields struct {
	MetaDescription string `json:"meta_description"`
	FocusKeyword    string `json:"focus_keyword"`
	SEOTitle        string `json:"seo_title"`
}

// ImageResult holds the output of the image step.
type ImageResult struct {
	URL      string  `json:"url"`
	AssetRef string  `json:"asset_ref,omitempty"`
	CostUSD  float64 `json:"cost_usd"`
}

// StepData accumulates the per-step outputs of a job. One field per
// producing step; a field is zero until its step has run.
type StepData struct {
	Outline   string       `json:"outline,omitempty"`
	Content   string       `json:"content,omitempty"`
	Humanized string       `json:"humanized,omitempty"`
	SEO       *SEOFields   `json:"seo,omitempty"`
	Image     *ImageResult `json:"image,omitempty"`
}

// BestContent returns the most refined textual content available.
func (d *StepData) BestContent() string {
	if d.Humanized != "" {
		return d.Humanized
	}
	return d.Content
}

// GenerationJob is one resumable attempt to turn a topic into published
// content. Jobs are stored with a TTL and mutated exclusively by the
// pipeline engine; abandonment is implicit via expiry.
type GenerationJob struct {
	ID             string     `json:"id"`
	Topic          string     `json:"topic"`
	Options        JobOptions `json:"options"`
	Status         JobStatus  `json:"status"`
	CurrentStep    StepType   `json:"current_step"`
	StepsCompleted []StepType `json:"steps_completed"`
	Data           StepData   `json:"data"`
	Usage          TokenUsage `json:"token_usage"`
	ContentRef     string     `json:"content_ref,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewGenerationJob creates a pending job positioned at the outline step.
func NewGenerationJob(topic string, options JobOptions) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:          "job_" + uuid.New().String(),
		Topic:       topic,
		Options:     options,
		Status:      JobStatusPending,
		CurrentStep: StepOutline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkStepDone records a completed step and advances CurrentStep.
func (j *GenerationJob) MarkStepDone(step StepType, next StepType) {
	j.StepsCompleted = append(j.StepsCompleted, step)
	j.CurrentStep = next
	j.UpdatedAt = time.Now()
	if next == StepComplete {
		j.Status = JobStatusCompleted
	} else {
		j.Status = JobStatusInProgress
	}
}

// Fail moves the job to its terminal error state with the given reason.
func (j *GenerationJob) Fail(reason string) {
	j.Status = JobStatusError
	j.Error = reason
	j.UpdatedAt = time.Now()
}

// IsTerminal reports whether the job can no longer advance.
func (j *GenerationJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}

// HasStepOutput reports whether the named step has stored its output.
func (j *GenerationJob) HasStepOutput(step StepType) bool {
	switch step {
	case StepOutline:
		return j.Data.Outline != ""
	case StepContent:
		return j.Data.Content != ""
	case StepHumanize:
		return j.Data.Humanized != ""
	case StepSEO:
		return j.Data.SEO != nil
	case StepFinalize:
		return j.ContentRef != ""
	case StepImage:
		return j.Data.Image != nil
	default:
		return false
	}
}
