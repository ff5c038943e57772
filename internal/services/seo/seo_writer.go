// Package seo applies generated SEO metadata to created content. Writers
// are polymorphic so different SEO integrations can be swapped in.
package seo

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// DocumentWriter stores SEO fields directly on the document record.
type DocumentWriter struct {
	documents interfaces.DocumentStore
	logger    arbor.ILogger
}

// NewDocumentWriter creates the document-backed SEO writer.
func NewDocumentWriter(documents interfaces.DocumentStore, logger arbor.ILogger) interfaces.SEOFieldWriter {
	return &DocumentWriter{documents: documents, logger: logger}
}

func (w *DocumentWriter) Name() string {
	return "document"
}

// Apply writes the fields onto the referenced document.
func (w *DocumentWriter) Apply(ctx context.Context, contentRef string, fields models.SEOFields) error {
	doc, err := w.documents.GetDocument(ctx, contentRef)
	if err != nil {
		return fmt.Errorf("failed to load content %s for SEO fields: %w", contentRef, err)
	}

	doc.SEO = &models.SEOFields{
		MetaDescription: fields.MetaDescription,
		FocusKeyword:    fields.FocusKeyword,
		SEOTitle:        fields.SEOTitle,
	}
	if err := w.documents.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store SEO fields: %w", err)
	}

	w.logger.Debug().
		Str("content_ref", contentRef).
		Str("focus_keyword", fields.FocusKeyword).
		Msg("SEO fields applied")
	return nil
}

// NoopWriter is the writer used when no SEO integration is active.
type NoopWriter struct{}

func (NoopWriter) Name() string {
	return "none"
}

func (NoopWriter) Apply(ctx context.Context, contentRef string, fields models.SEOFields) error {
	return nil
}
