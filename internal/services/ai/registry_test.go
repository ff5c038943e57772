package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCapabilitiesPrefixResolution(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		model               string
		wantPrefix          string
		wantTemperature     bool
		wantSystemRole      bool
		wantTokenLimitField string
	}{
		{"gpt-4o-mini", "gpt-4o-mini", true, true, "max_tokens"},
		{"gpt-4o-mini-2024-07-18", "gpt-4o-mini", true, true, "max_tokens"},
		{"gpt-4o", "gpt-4o", true, true, "max_tokens"},
		{"gpt-4o-2024-11-20", "gpt-4o", true, true, "max_tokens"},
		{"gpt-4.1-mini", "gpt-4.1-mini", true, true, "max_tokens"},
		{"o1", "o1", false, false, "max_completion_tokens"},
		{"o1-mini", "o1-mini", false, false, "max_completion_tokens"},
		{"o1-preview", "o1", false, false, "max_completion_tokens"},
		{"o3-mini", "o3-mini", false, false, "max_completion_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			caps := registry.Capabilities(tt.model)
			assert.Equal(t, tt.wantPrefix, caps.Prefix)
			assert.Equal(t, tt.wantTemperature, caps.SupportsTemperature)
			assert.Equal(t, tt.wantSystemRole, caps.SupportsSystemRole)
			assert.Equal(t, tt.wantTokenLimitField, caps.TokenLimitField)
		})
	}
}

func TestRegistryUnknownModelDefaults(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	caps := registry.Capabilities("some-future-model")
	assert.True(t, caps.SupportsTemperature)
	assert.True(t, caps.SupportsSystemRole)
	assert.Equal(t, "max_tokens", caps.TokenLimitField)
	assert.Zero(t, caps.InputRate)
	assert.Zero(t, caps.OutputRate)
	assert.Zero(t, registry.TextCost("some-future-model", 1000, 1000))
}

func TestRegistryTextCostFormula(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	// cost = round(prompt/1e6*input + completion/1e6*output, 6)
	tests := []struct {
		model      string
		prompt     int
		completion int
		want       float64
	}{
		{"gpt-4o-mini", 1_000_000, 1_000_000, 0.75},
		{"gpt-4o-mini", 1000, 2000, 0.00135},
		{"gpt-4o", 500_000, 100_000, 2.25},
		{"gpt-4.1", 1000, 1000, 0.01},
		{"o1", 100_000, 50_000, 4.5},
		{"gpt-4o-mini", 0, 0, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, registry.TextCost(tt.model, tt.prompt, tt.completion), 1e-9,
			"model %s prompt %d completion %d", tt.model, tt.prompt, tt.completion)
	}
}

func TestRegistryImageCost(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	cost, err := registry.ImageCost("dall-e-3", "1024x1024", "standard")
	require.NoError(t, err)
	assert.Equal(t, 0.04, cost)

	// hd doubles the cost on models that support the tier.
	cost, err = registry.ImageCost("dall-e-3", "1024x1792", "hd")
	require.NoError(t, err)
	assert.Equal(t, 0.16, cost)

	// dall-e-2 has no hd tier, so the quality flag changes nothing.
	cost, err = registry.ImageCost("dall-e-2", "1024x1024", "hd")
	require.NoError(t, err)
	assert.Equal(t, 0.02, cost)

	_, err = registry.ImageCost("unknown-model", "1024x1024", "standard")
	assert.Error(t, err)

	_, err = registry.ImageCost("dall-e-3", "4096x4096", "standard")
	assert.Error(t, err)
}
