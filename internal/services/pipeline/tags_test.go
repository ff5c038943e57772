package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTags(t *testing.T) {
	markup := `<!-- block:paragraph -->
<p>Teams adopting <strong>observability</strong> often start with **distributed tracing** and **metrics pipelines** before touching logs.</p>
<!-- /block:paragraph -->`

	tags := deriveTags(
		[]string{"golang", "observability"},
		"how to monitor production services",
		markup,
	)

	// Caller keywords come through.
	assert.Contains(t, tags, "golang")
	assert.Contains(t, tags, "observability")
	// Topic tokens longer than 3 letters that are not stop words.
	assert.Contains(t, tags, "monitor")
	assert.Contains(t, tags, "production")
	assert.Contains(t, tags, "services")
	// Emphasized phrases from the markup.
	assert.Contains(t, tags, "distributed tracing")
	assert.Contains(t, tags, "metrics pipelines")
	// Stop words never become tags.
	assert.NotContains(t, tags, "how")
	assert.NotContains(t, tags, "to")
}

func TestDeriveTagsDeduplicatesCaseInsensitive(t *testing.T) {
	tags := deriveTags([]string{"Kubernetes", "kubernetes", "KUBERNETES"}, "kubernetes basics", "")

	count := 0
	for _, tag := range tags {
		if strings.EqualFold(tag, "kubernetes") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDeriveTagsLengthBounds(t *testing.T) {
	long := strings.Repeat("x", 50)
	tags := deriveTags([]string{"ok", long, "fine"}, "", "")

	assert.NotContains(t, tags, "ok", "below minimum length")
	assert.NotContains(t, tags, long, "above maximum length")
	assert.Contains(t, tags, "fine")
}

func TestDeriveTagsCap(t *testing.T) {
	keywords := []string{
		"alpha", "bravo", "charlie", "delta", "echo", "foxtrot",
		"golf", "hotel", "india", "juliett", "kilo", "lima",
	}
	tags := deriveTags(keywords, "", "")
	assert.Len(t, tags, maxTags)
}

func TestDeriveTagsEmphasizedLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<p>")
	for _, phrase := range []string{"one two", "three four", "five six", "seven eight", "nine ten", "eleven twelve", "thirteen"} {
		b.WriteString("**" + phrase + "** ")
	}
	b.WriteString("</p>")

	tags := deriveTags(nil, "", b.String())
	assert.Len(t, tags, maxEmphasizedTags, "only the first five emphasized phrases are taken")
	assert.NotContains(t, tags, "eleven twelve")
}
