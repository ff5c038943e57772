package models

import "time"

// DocumentStatus is the publication state of a created content document.
type DocumentStatus string

const (
	DocumentStatusDraft   DocumentStatus = "draft"
	DocumentStatusPublish DocumentStatus = "publish"
)

// Document is the content entity created once per job at finalize.
// The body is block-structured markup produced from the generated markdown.
type Document struct {
	ID          string            `badgerhold:"key" json:"id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Status      DocumentStatus    `badgerhold:"index" json:"status"`
	Author      string            `json:"author,omitempty"`
	CategoryRef string            `json:"category_ref,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	SEO         *SEOFields        `json:"seo,omitempty"`
	AssetRefs   []string          `json:"asset_refs,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
