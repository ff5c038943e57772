package pipeline

import (
	"regexp"
	"strings"
)

const (
	maxTags             = 10
	minTagLength        = 3
	maxTagLength        = 49
	maxEmphasizedTags   = 5
	maxEmphasizedLength = 29
)

// stopWords is the closed set excluded from topic-token tags.
var stopWords = map[string]bool{
	"about": true, "after": true, "also": true, "back": true, "been": true,
	"best": true, "both": true, "could": true, "does": true, "down": true,
	"even": true, "every": true, "from": true, "guide": true, "have": true,
	"here": true, "how": true, "into": true, "just": true, "like": true,
	"make": true, "more": true, "most": true, "much": true, "need": true,
	"only": true, "over": true, "should": true, "some": true, "such": true,
	"than": true, "that": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "tips": true,
	"ways": true, "well": true, "what": true, "when": true, "where": true,
	"which": true, "will": true, "with": true, "your": true,
}

var (
	topicTokenRe = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)
	emphasisRe   = regexp.MustCompile(`\*\*?([^*\n]+)\*\*?`)
)

// deriveTags builds the tag set for a finished article: caller keywords,
// significant topic tokens, and the first few emphasized phrases from the
// generated markup. Deduplicated case-insensitively and capped.
func deriveTags(keywords []string, topic, markup string) []string {
	var tags []string
	seen := make(map[string]bool)

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if len(tag) < minTagLength || len(tag) > maxTagLength {
			return
		}
		key := strings.ToLower(tag)
		if seen[key] {
			return
		}
		seen[key] = true
		tags = append(tags, tag)
	}

	for _, kw := range keywords {
		add(kw)
	}

	for _, token := range topicTokenRe.FindAllString(topic, -1) {
		if len(token) > 3 && !stopWords[strings.ToLower(token)] {
			add(strings.ToLower(token))
		}
	}

	emphasized := 0
	for _, match := range emphasisRe.FindAllStringSubmatch(markup, -1) {
		if emphasized >= maxEmphasizedTags {
			break
		}
		phrase := strings.TrimSpace(match[1])
		if len(phrase) >= minTagLength && len(phrase) <= maxEmphasizedLength {
			add(phrase)
			emphasized++
		}
	}

	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}
