package pipeline

import (
	"regexp"
	"strings"
	"unicode"
)

// Title extraction is a best-effort heuristic over generated outline text.
// Generators phrase the suggested title inconsistently, so candidates are
// tried in order of specificity and each is validated before use.

const minTitleLength = 4

var (
	// Title: "Quoted Title" / Title: Unquoted title
	titleLabelRe = regexp.MustCompile(`(?im)^\s*(?:\*\*|#+\s*)?title\s*:?\*{0,2}\s*[:\-]?\s*["“]?([^"”\n]+?)["”]?\s*$`)
	// A bare "Title:" label with the title on the following line.
	titleLabelOnlyRe = regexp.MustCompile(`(?im)^\s*(?:\*\*)?title\s*:?\s*(?:\*\*)?\s*$`)
	boldSpanRe       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	topHeadingRe     = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// genericLabels are outline section names that look like titles but never
// are.
var genericLabels = map[string]bool{
	"title":        true,
	"introduction": true,
	"intro":        true,
	"conclusion":   true,
	"outline":      true,
	"summary":      true,
	"overview":     true,
	"sections":     true,
	"body":         true,
	"references":   true,
}

// extractTitle derives an article title from outline text, falling back to
// the capitalized topic when nothing in the outline validates.
func extractTitle(outline, topic string) string {
	if title, ok := titleFromLabel(outline); ok {
		return title
	}
	if title, ok := titleFromLabelNextLine(outline); ok {
		return title
	}
	if title, ok := titleFromBoldSpan(outline); ok {
		return title
	}
	if title, ok := titleFromHeading(outline); ok {
		return title
	}
	return capitalizeTopic(topic)
}

func titleFromLabel(outline string) (string, bool) {
	match := titleLabelRe.FindStringSubmatch(outline)
	if match == nil {
		return "", false
	}
	return validateTitle(match[1])
}

func titleFromLabelNextLine(outline string) (string, bool) {
	lines := strings.Split(outline, "\n")
	for i, line := range lines {
		if !titleLabelOnlyRe.MatchString(line) || i+1 >= len(lines) {
			continue
		}
		if title, ok := validateTitle(lines[i+1]); ok {
			return title, true
		}
	}
	return "", false
}

func titleFromBoldSpan(outline string) (string, bool) {
	for _, match := range boldSpanRe.FindAllStringSubmatch(outline, -1) {
		if title, ok := validateTitle(match[1]); ok {
			return title, true
		}
	}
	return "", false
}

func titleFromHeading(outline string) (string, bool) {
	match := topHeadingRe.FindStringSubmatch(outline)
	if match == nil {
		return "", false
	}
	return validateTitle(match[1])
}

// validateTitle cleans a candidate and rejects the ones that are too short
// or are themselves just a section label.
func validateTitle(candidate string) (string, bool) {
	title := strings.TrimSpace(candidate)
	title = strings.Trim(title, `"“”*_#`)
	title = strings.TrimSpace(title)
	title = strings.TrimSuffix(title, ":")

	if len(title) < minTitleLength {
		return "", false
	}
	key := strings.ToLower(strings.TrimSuffix(title, ":"))
	if genericLabels[key] {
		return "", false
	}
	return title, true
}

// capitalizeTopic upper-cases the first letter of each word in the topic.
func capitalizeTopic(topic string) string {
	words := strings.Fields(topic)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
