package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBlocks(t *testing.T) {
	markdown := `## Getting Started

Go modules changed how dependencies are resolved.

- reproducible builds
- semantic import versioning

> Upgrading is a one-line change.

---

Final thoughts on adoption.`

	markup, err := toBlocks(markdown)
	require.NoError(t, err)

	assert.Contains(t, markup, `<!-- block:heading {"level":2} -->`)
	assert.Contains(t, markup, "<h2>Getting Started</h2>")
	assert.Contains(t, markup, "<!-- block:paragraph -->")
	assert.Contains(t, markup, "<p>Go modules changed how dependencies are resolved.</p>")
	assert.Contains(t, markup, "<!-- block:list -->")
	assert.Contains(t, markup, "<li>reproducible builds</li>")
	assert.Contains(t, markup, "<!-- block:quote -->")
	assert.Contains(t, markup, "<!-- block:separator -->")
	assert.Contains(t, markup, "<!-- /block:paragraph -->")
}

func TestToBlocksOrderedList(t *testing.T) {
	markup, err := toBlocks("1. first step\n2. second step")
	require.NoError(t, err)

	assert.Contains(t, markup, `<!-- block:list {"ordered":true} -->`)
	assert.Contains(t, markup, "<li>first step</li>")
}

func TestToBlocksPreservesOrder(t *testing.T) {
	markup, err := toBlocks("## First\n\nMiddle paragraph.\n\n## Last")
	require.NoError(t, err)

	first := strings.Index(markup, "<h2>First</h2>")
	middle := strings.Index(markup, "Middle paragraph.")
	last := strings.Index(markup, "<h2>Last</h2>")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, middle)
	require.NotEqual(t, -1, last)
	assert.Less(t, first, middle)
	assert.Less(t, middle, last)
}

func TestToBlocksEmptyInput(t *testing.T) {
	_, err := toBlocks("   \n\n  ")
	assert.Error(t, err)
}
