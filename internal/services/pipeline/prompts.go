package pipeline

import (
	"fmt"
	"strings"
)

// Prompt builders for each generating step. Prompts are deliberately plain
// text; the provider client handles model-specific request shaping.

const writerSystemPrompt = "You are an experienced long-form writer. Produce clear, well-structured prose in markdown. Follow the instructions exactly and do not add commentary about the task."

func outlinePrompt(topic string, keywords []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed article outline for the topic: %s\n\n", topic)
	b.WriteString("Start with a suggested title on its own line in the form:\nTitle: \"...\"\n\n")
	b.WriteString("Then list 5-8 numbered sections with 2-3 bullet points each.")
	if len(keywords) > 0 {
		fmt.Fprintf(&b, "\n\nWork these themes in naturally: %s.", strings.Join(keywords, ", "))
	}
	return b.String()
}

func contentPrompt(topic, outline string, wordCount int, keywords []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a complete article about %q following this outline:\n\n%s\n\n", topic, outline)
	if wordCount > 0 {
		fmt.Fprintf(&b, "Target length: about %d words. ", wordCount)
	}
	b.WriteString("Use markdown with ## section headings. Do not repeat the outline or the title line; start directly with the article body.")
	if len(keywords) > 0 {
		fmt.Fprintf(&b, " Include these keywords where they fit naturally: %s.", strings.Join(keywords, ", "))
	}
	return b.String()
}

func humanizePrompt(content string, level int) string {
	var b strings.Builder
	b.WriteString("Rewrite the following article so it reads naturally, as if written by a person. ")
	switch {
	case level >= 8:
		b.WriteString("Be aggressive: vary sentence length heavily, use contractions, add light asides, break formal patterns. ")
	case level >= 5:
		b.WriteString("Moderately vary sentence rhythm, prefer contractions and direct phrasing. ")
	default:
		b.WriteString("Make only light touch-ups to stiff or repetitive phrasing. ")
	}
	b.WriteString("Preserve every heading, all factual claims and the markdown structure. Return only the rewritten article.\n\n")
	b.WriteString(content)
	return b.String()
}

func seoPrompt(topic, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the article below about %q, produce exactly three lines:\n", topic)
	b.WriteString("META: <a meta description under 160 characters>\n")
	b.WriteString("KEYWORD: <the single best focus keyword or phrase>\n")
	b.WriteString("TITLE: <an SEO title under 60 characters>\n\n")
	b.WriteString("Article:\n\n")
	// The lead of the article is enough signal; sending the whole body
	// wastes tokens on long pieces.
	if len(content) > 4000 {
		content = content[:4000]
	}
	b.WriteString(content)
	return b.String()
}

// parseSEOResponse extracts the three labelled lines from the seo step's
// output, tolerating markdown decoration around the labels.
func parseSEOResponse(raw string) (meta, keyword, title string) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*_`"))
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "META:"):
			meta = strings.TrimSpace(line[len("META:"):])
		case strings.HasPrefix(upper, "KEYWORD:"):
			keyword = strings.TrimSpace(line[len("KEYWORD:"):])
		case strings.HasPrefix(upper, "TITLE:"):
			title = strings.TrimSpace(line[len("TITLE:"):])
		}
	}
	return meta, keyword, title
}

func imagePrompt(topic, title string) string {
	subject := title
	if subject == "" {
		subject = topic
	}
	return fmt.Sprintf("A clean, professional illustration for an article titled %q. No text or lettering in the image.", subject)
}
