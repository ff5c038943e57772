// Package ai implements the client for the external generation provider,
// including retry, backoff, model capability handling and cost accounting.
package ai

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

// ModelCapabilities describes one model family's request shape and pricing.
// Rates are USD per million tokens.
type ModelCapabilities struct {
	Prefix              string  `yaml:"prefix"`
	InputRate           float64 `yaml:"input_rate"`
	OutputRate          float64 `yaml:"output_rate"`
	SupportsTemperature bool    `yaml:"supports_temperature"`
	SupportsSystemRole  bool    `yaml:"supports_system_role"`
	TokenLimitField     string  `yaml:"token_limit_field"`
}

// ImageModelPricing prices one image model per generated size.
type ImageModelPricing struct {
	Model      string             `yaml:"model"`
	SupportsHD bool               `yaml:"supports_hd"`
	Sizes      map[string]float64 `yaml:"sizes"`
}

type registryFile struct {
	Models      []ModelCapabilities `yaml:"models"`
	ImageModels []ImageModelPricing `yaml:"image_models"`
}

// Registry is the immutable model capability and pricing table loaded from
// the embedded registry file.
type Registry struct {
	models []ModelCapabilities
	images map[string]ImageModelPricing
}

// NewRegistry parses the embedded registry data.
func NewRegistry() (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(modelsYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model registry: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("model registry is empty")
	}

	images := make(map[string]ImageModelPricing, len(file.ImageModels))
	for _, img := range file.ImageModels {
		images[img.Model] = img
	}
	return &Registry{models: file.Models, images: images}, nil
}

// Capabilities resolves the capability entry for a model id by longest
// matching prefix. Unknown models get a conservative default shape with
// zero rates, so unknown-model cost contributions are zero rather than
// guessed.
func (r *Registry) Capabilities(model string) ModelCapabilities {
	best := ModelCapabilities{
		Prefix:              "",
		SupportsTemperature: true,
		SupportsSystemRole:  true,
		TokenLimitField:     "max_tokens",
	}
	for _, caps := range r.models {
		if strings.HasPrefix(model, caps.Prefix) && len(caps.Prefix) > len(best.Prefix) {
			best = caps
		}
	}
	return best
}

// TextCost computes the USD cost of a text completion, rounded to 6
// decimal places.
func (r *Registry) TextCost(model string, promptTokens, completionTokens int) float64 {
	caps := r.Capabilities(model)
	cost := float64(promptTokens)/1e6*caps.InputRate + float64(completionTokens)/1e6*caps.OutputRate
	return models.RoundCost(cost)
}

// ImageCost looks up the fixed per-image cost for a model and size. The hd
// quality tier doubles the cost on models that support it.
func (r *Registry) ImageCost(model, size, quality string) (float64, error) {
	pricing, ok := r.images[model]
	if !ok {
		return 0, fmt.Errorf("unknown image model: %s", model)
	}
	cost, ok := pricing.Sizes[size]
	if !ok {
		return 0, fmt.Errorf("unsupported size %s for model %s", size, model)
	}
	if strings.EqualFold(quality, "hd") && pricing.SupportsHD {
		cost *= 2
	}
	return models.RoundCost(cost), nil
}
