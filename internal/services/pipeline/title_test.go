package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		outline string
		topic   string
		want    string
	}{
		{
			name: "quoted title label",
			outline: `Title: "Why Go Modules Changed Dependency Management"

1. Introduction
   - The pre-module era
2. How modules work`,
			topic: "go modules",
			want:  "Why Go Modules Changed Dependency Management",
		},
		{
			name: "unquoted title label",
			outline: `Title: Ten Habits of Effective Code Reviewers

1. Introduction
2. The habits`,
			topic: "code review",
			want:  "Ten Habits of Effective Code Reviewers",
		},
		{
			name: "bold title label",
			outline: `**Title:** "Understanding Context Cancellation"

**Introduction**
- Why cancellation matters`,
			topic: "context cancellation",
			want:  "Understanding Context Cancellation",
		},
		{
			name: "label on its own line",
			outline: `Title:
A Practical Guide to Structured Logging

1. Why structure matters`,
			topic: "structured logging",
			want:  "A Practical Guide to Structured Logging",
		},
		{
			name: "bold span when no label",
			outline: `**Caching Strategies for Read-Heavy Services**

1. **Introduction**
   - Setting the scene
2. Cache-aside`,
			topic: "caching strategies",
			want:  "Caching Strategies for Read-Heavy Services",
		},
		{
			name: "bold generic labels are skipped",
			outline: `**Outline**

1. **Introduction**
2. **Designing Resilient Webhooks at Scale**
3. **Conclusion**`,
			topic: "webhooks",
			want:  "Designing Resilient Webhooks at Scale",
		},
		{
			name: "top level heading",
			outline: `# The Hidden Costs of Microservices

## Section 1
Some bullets`,
			topic: "microservices",
			want:  "The Hidden Costs of Microservices",
		},
		{
			name:    "fallback to capitalized topic",
			outline: "1. some section\n2. another section",
			topic:   "kubernetes operators explained",
			want:    "Kubernetes Operators Explained",
		},
		{
			name:    "empty outline falls back",
			outline: "",
			topic:   "empty outline topic",
			want:    "Empty Outline Topic",
		},
		{
			name: "too short candidates rejected",
			outline: `Title: "Go"

# Ab`,
			topic: "short title handling",
			want:  "Short Title Handling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTitle(tt.outline, tt.topic))
		})
	}
}

func TestValidateTitle(t *testing.T) {
	_, ok := validateTitle("  Introduction  ")
	assert.False(t, ok, "generic label alone is not a title")

	_, ok = validateTitle("Ti")
	assert.False(t, ok, "too short")

	title, ok := validateTitle(`"A Proper Title"`)
	assert.True(t, ok)
	assert.Equal(t, "A Proper Title", title)
}
