// Package pipeline drives one generation job through its ordered steps.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	defaultTemperature = 0.7
	minContentLength   = 200
)

// Dependencies are the collaborators the engine needs. The queue store is
// only touched when a job originated from a queue topic.
type Dependencies struct {
	Jobs      interfaces.JobStore
	Client    interfaces.AIClient
	Content   interfaces.ContentStore
	SEOWriter interfaces.SEOFieldWriter
	Media     interfaces.MediaStore
	Queue     interfaces.QueueStore
	Ledger    interfaces.LedgerService
	Settings  interfaces.SettingsService
}

// Engine is the generation job state machine. Each step performs exactly
// one provider call; jobs survive between invocations in the job store, so
// a full run may span several calls.
type Engine struct {
	deps     Dependencies
	config   *common.Config
	validate *validator.Validate
	logger   arbor.ILogger
}

var _ interfaces.PipelineService = (*Engine)(nil)

// NewEngine creates the pipeline engine.
func NewEngine(deps Dependencies, config *common.Config, logger arbor.ILogger) *Engine {
	return &Engine{
		deps:     deps,
		config:   config,
		validate: validator.New(),
		logger:   logger,
	}
}

// skips derives the optional-step bypasses from the job's option snapshot.
func (e *Engine) skips(job *models.GenerationJob) models.StepSkips {
	return models.StepSkips{
		Humanize: job.Options.HumanizeLevel < e.config.Pipeline.HumanizeThreshold,
		SEO:      !job.Options.GenerateSEO,
		Image:    !job.Options.GenerateImage,
	}
}

// CreateJob allocates and durably stores a new job at the outline step.
func (e *Engine) CreateJob(ctx context.Context, topic string, options models.JobOptions) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	if options.Model == "" {
		options.Model = e.config.AI.Model
	}
	if options.WordCount == 0 {
		options.WordCount = 1200
	}
	if err := e.validate.Struct(options); err != nil {
		return "", fmt.Errorf("invalid job options: %w", err)
	}

	job := models.NewGenerationJob(topic, options)
	if err := e.deps.Jobs.SaveJob(ctx, job); err != nil {
		return "", err
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("topic", topic).
		Str("model", options.Model).
		Str("source", options.Source).
		Msg("Generation job created")
	return job.ID, nil
}

// GetJob loads a job by id.
func (e *Engine) GetJob(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	return e.deps.Jobs.GetJob(ctx, jobID)
}

// ProcessStep advances a job by one generating step. It refuses to run a
// step whose prerequisite output is absent (a caller error, not a job
// failure), calls the provider exactly once, accumulates usage and
// computes the next step from the transition table. A step's own failure
// moves the job to its terminal error state without retrying here; retries
// already happened inside the provider client.
func (e *Engine) ProcessStep(ctx context.Context, jobID string, step models.StepType) (*interfaces.StepOutcome, error) {
	job, err := e.deps.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return nil, fmt.Errorf("job %s is already %s", jobID, job.Status)
	}

	if pre := models.Prerequisite(step); pre != "" && !job.HasStepOutput(pre) {
		return nil, fmt.Errorf("step %s requires %s output which is absent", step, pre)
	}

	switch step {
	case models.StepOutline:
		err = e.runOutline(ctx, job)
	case models.StepContent:
		err = e.runContent(ctx, job)
	case models.StepHumanize:
		err = e.runHumanize(ctx, job)
	case models.StepSEO:
		err = e.runSEO(ctx, job)
	case models.StepImage:
		err = e.runImage(ctx, job)
	default:
		return nil, fmt.Errorf("step %s is not processed here", step)
	}
	if err != nil {
		return nil, e.failJob(ctx, job, fmt.Sprintf("step %s failed: %v", step, err))
	}

	if step == models.StepImage {
		// The image step's bookkeeping happens in CompleteWithImage so the
		// ledger entry carries the final merged cost.
		if err := e.deps.Jobs.SaveJob(ctx, job); err != nil {
			return nil, err
		}
		return &interfaces.StepOutcome{NextStep: models.StepComplete, Status: job.Status}, nil
	}

	next := models.NextStep(step, e.skips(job))
	job.MarkStepDone(step, next)
	if err := e.deps.Jobs.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("step", string(step)).
		Str("next_step", string(next)).
		Float64("cost_usd", job.Usage.TotalCost()).
		Msg("Pipeline step completed")
	return &interfaces.StepOutcome{NextStep: next, Status: job.Status}, nil
}

func (e *Engine) runOutline(ctx context.Context, job *models.GenerationJob) error {
	result, err := e.generate(ctx, job, outlinePrompt(job.Topic, job.Options.Keywords))
	if err != nil {
		return err
	}
	job.Data.Outline = result.Content
	return nil
}

func (e *Engine) runContent(ctx context.Context, job *models.GenerationJob) error {
	result, err := e.generate(ctx, job, contentPrompt(job.Topic, job.Data.Outline, job.Options.WordCount, job.Options.Keywords))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(result.Content)) < minContentLength {
		return fmt.Errorf("generated content too short (%d chars)", len(result.Content))
	}
	job.Data.Content = result.Content
	return nil
}

func (e *Engine) runHumanize(ctx context.Context, job *models.GenerationJob) error {
	result, err := e.generate(ctx, job, humanizePrompt(job.Data.Content, job.Options.HumanizeLevel))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(result.Content)) < minContentLength {
		return fmt.Errorf("humanized content too short (%d chars)", len(result.Content))
	}
	job.Data.Humanized = result.Content
	return nil
}

func (e *Engine) runSEO(ctx context.Context, job *models.GenerationJob) error {
	result, err := e.generate(ctx, job, seoPrompt(job.Topic, job.Data.BestContent()))
	if err != nil {
		return err
	}
	meta, keyword, title := parseSEOResponse(result.Content)
	if meta == "" && keyword == "" && title == "" {
		return fmt.Errorf("seo output contained none of the expected fields")
	}
	job.Data.SEO = &models.SEOFields{
		MetaDescription: meta,
		FocusKeyword:    keyword,
		SEOTitle:        title,
	}
	return nil
}

func (e *Engine) runImage(ctx context.Context, job *models.GenerationJob) error {
	model := e.deps.Settings.ImageModel()
	title := extractTitle(job.Data.Outline, job.Topic)

	result, err := e.deps.Client.GenerateImage(ctx, interfaces.ImageRequest{
		Prompt: imagePrompt(job.Topic, title),
		Model:  model,
	})
	if err != nil {
		return err
	}

	assetRef, err := e.deps.Media.FetchAndAttach(ctx, result.URL, "featured.png", job.ContentRef)
	if err != nil {
		return err
	}

	job.Data.Image = &models.ImageResult{
		URL:      result.URL,
		AssetRef: assetRef,
		CostUSD:  result.CostUSD,
	}
	return nil
}

// generate makes one text call and folds its usage into the job total.
func (e *Engine) generate(ctx context.Context, job *models.GenerationJob, prompt string) (*interfaces.TextResult, error) {
	result, err := e.deps.Client.GenerateText(ctx, interfaces.TextRequest{
		Prompt:       prompt,
		SystemPrompt: writerSystemPrompt,
		Model:        job.Options.Model,
		MaxTokens:    e.config.AI.MaxTokens,
		Temperature:  defaultTemperature,
	})
	if err != nil {
		return nil, err
	}
	job.Usage.Add(models.TokenUsage{
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		CostUSD:          result.CostUSD,
	})
	return result, nil
}

// Finalize turns the job's best content into block markup, creates the
// content entity, applies SEO fields and tags, and either advances to the
// image step or completes the job with its ledger entry.
func (e *Engine) Finalize(ctx context.Context, jobID string) (*interfaces.StepOutcome, error) {
	job, err := e.deps.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return nil, fmt.Errorf("job %s is already %s", jobID, job.Status)
	}
	if !job.HasStepOutput(models.StepContent) {
		return nil, fmt.Errorf("finalize requires content output which is absent")
	}

	markup, err := toBlocks(job.Data.BestContent())
	if err != nil {
		return nil, e.failJob(ctx, job, fmt.Sprintf("finalize failed: %v", err))
	}

	title := extractTitle(job.Data.Outline, job.Topic)

	status := models.DocumentStatusDraft
	if job.Options.Publish {
		status = models.DocumentStatusPublish
	}

	doc := &models.Document{
		Title:       title,
		Body:        markup,
		Status:      status,
		Author:      e.deps.Settings.Author(),
		CategoryRef: job.Options.CategoryRef,
		Tags:        deriveTags(job.Options.Keywords, job.Topic, markup),
		Metadata: map[string]string{
			"job_id":       job.ID,
			"source":       job.Options.Source,
			"model":        job.Options.Model,
			"generated_at": time.Now().Format(time.RFC3339),
		},
	}

	contentRef, err := e.deps.Content.Create(ctx, doc)
	if err != nil {
		// Nothing partially created may remain published.
		return nil, e.failJob(ctx, job, fmt.Sprintf("content store write failed: %v", err))
	}
	job.ContentRef = contentRef

	if job.Data.SEO != nil {
		if err := e.deps.SEOWriter.Apply(ctx, contentRef, *job.Data.SEO); err != nil {
			e.logger.Warn().Err(err).
				Str("job_id", job.ID).
				Str("content_ref", contentRef).
				Msg("SEO field application failed, content kept without SEO fields")
		}
	}

	next := models.NextStep(models.StepFinalize, e.skips(job))
	job.MarkStepDone(models.StepFinalize, next)
	if err := e.deps.Jobs.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	if next == models.StepComplete {
		if err := e.deps.Ledger.Append(ctx, models.NewCostEntry(job)); err != nil {
			e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Cost ledger append failed")
		}
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("content_ref", contentRef).
		Str("title", title).
		Str("next_step", string(next)).
		Msg("Job finalized")
	return &interfaces.StepOutcome{NextStep: next, Status: job.Status}, nil
}

// CompleteWithImage merges the image step's cost into the job total,
// records the final ledger entry, marks the job complete and, when the job
// came from a queue topic, completes that topic.
func (e *Engine) CompleteWithImage(ctx context.Context, jobID string) (*interfaces.StepOutcome, error) {
	job, err := e.deps.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return nil, fmt.Errorf("job %s is already %s", jobID, job.Status)
	}
	if job.Data.Image == nil {
		return nil, fmt.Errorf("complete_with_image requires image output which is absent")
	}

	job.Usage.Add(models.TokenUsage{ImageCostUSD: job.Data.Image.CostUSD})
	job.MarkStepDone(models.StepImage, models.StepComplete)
	if err := e.deps.Jobs.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	if err := e.deps.Ledger.Append(ctx, models.NewCostEntry(job)); err != nil {
		e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Cost ledger append failed")
	}

	if job.Options.QueueTopicID != "" {
		if err := e.deps.Queue.MarkCompleted(ctx, job.Options.QueueTopicID, job.ContentRef); err != nil {
			e.logger.Warn().Err(err).
				Str("job_id", job.ID).
				Str("topic_id", job.Options.QueueTopicID).
				Msg("Queue topic completion update failed")
		}
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("content_ref", job.ContentRef).
		Float64("total_cost_usd", job.Usage.TotalCost()).
		Msg("Job completed with image")
	return &interfaces.StepOutcome{NextStep: models.StepComplete, Status: job.Status}, nil
}

// RunToCompletion drives a job from its current step to a terminal state.
// A step failure ends the run with the job in its error state; the job is
// returned either way so callers can inspect the outcome. The returned
// error covers infrastructure failures only.
func (e *Engine) RunToCompletion(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	for {
		job, err := e.deps.Jobs.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.IsTerminal() {
			return job, nil
		}

		switch job.CurrentStep {
		case models.StepFinalize:
			_, err = e.Finalize(ctx, jobID)
		case models.StepImage:
			if _, err = e.ProcessStep(ctx, jobID, models.StepImage); err == nil {
				_, err = e.CompleteWithImage(ctx, jobID)
			}
		default:
			_, err = e.ProcessStep(ctx, jobID, job.CurrentStep)
		}

		if err != nil {
			final, loadErr := e.deps.Jobs.GetJob(ctx, jobID)
			if loadErr == nil && final.Status == models.JobStatusError {
				return final, nil
			}
			return nil, err
		}
	}
}

// failJob moves a job to its terminal error state, persists it and writes
// the failed-run ledger entry with whatever usage had accrued.
func (e *Engine) failJob(ctx context.Context, job *models.GenerationJob, reason string) error {
	job.Fail(reason)
	if err := e.deps.Jobs.SaveJob(ctx, job); err != nil {
		e.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist job failure")
	}
	if err := e.deps.Ledger.Append(ctx, models.NewCostEntry(job)); err != nil {
		e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Cost ledger append failed")
	}

	e.logger.Error().
		Str("job_id", job.ID).
		Str("topic", job.Topic).
		Str("reason", reason).
		Msg("Generation job failed")
	return fmt.Errorf("%s", reason)
}
