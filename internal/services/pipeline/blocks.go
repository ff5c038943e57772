package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// toBlocks converts generated markdown into the block-structured markup
// the content store expects: each top-level element becomes one delimited
// block wrapping its rendered HTML.
func toBlocks(markdown string) (string, error) {
	source := []byte(markdown)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if node.Kind() == ast.KindThematicBreak {
			b.WriteString("<!-- block:separator -->\n<hr>\n<!-- /block:separator -->\n\n")
			continue
		}

		snippet := nodeSource(node, source)
		if strings.TrimSpace(snippet) == "" {
			continue
		}

		var buf bytes.Buffer
		if err := md.Convert([]byte(snippet), &buf); err != nil {
			return "", fmt.Errorf("failed to render block: %w", err)
		}
		html := strings.TrimSpace(buf.String())
		if html == "" {
			continue
		}

		name, attrs := blockInfo(node)
		fmt.Fprintf(&b, "<!-- block:%s%s -->\n%s\n<!-- /block:%s -->\n\n", name, attrs, html, name)
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", fmt.Errorf("markdown produced no blocks")
	}
	return result + "\n", nil
}

// nodeSource recovers the raw source span of one top-level node, widened
// to the start of its first line so list markers and quote prefixes
// survive the round trip.
func nodeSource(n ast.Node, source []byte) string {
	start, stop := -1, -1
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		lines := child.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if start == -1 || seg.Start < start {
				start = seg.Start
			}
			if seg.Stop > stop {
				stop = seg.Stop
			}
		}
		return ast.WalkContinue, nil
	})
	if start == -1 {
		return ""
	}

	for start > 0 && source[start-1] != '\n' {
		start--
	}
	return string(source[start:stop])
}

func blockInfo(n ast.Node) (name, attrs string) {
	switch node := n.(type) {
	case *ast.Heading:
		return "heading", fmt.Sprintf(` {"level":%d}`, node.Level)
	case *ast.List:
		if node.IsOrdered() {
			return "list", ` {"ordered":true}`
		}
		return "list", ""
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return "code", ""
	case *ast.Blockquote:
		return "quote", ""
	default:
		return "paragraph", ""
	}
}
