// Package content implements the content store the pipeline writes
// finished documents into.
package content

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

type service struct {
	documents interfaces.DocumentStore
	logger    arbor.ILogger
}

// NewService creates the document-backed content store.
func NewService(documents interfaces.DocumentStore, logger arbor.ILogger) interfaces.ContentStore {
	return &service{documents: documents, logger: logger}
}

// Create persists the document and returns its reference. Nothing is left
// behind on failure, so an aborted finalize never publishes partial
// content.
func (s *service) Create(ctx context.Context, doc *models.Document) (string, error) {
	if doc.Title == "" {
		return "", fmt.Errorf("document title is required")
	}
	if doc.ID == "" {
		doc.ID = common.NewContentID()
	}

	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to create content: %w", err)
	}

	s.logger.Info().
		Str("content_ref", doc.ID).
		Str("title", doc.Title).
		Str("status", string(doc.Status)).
		Int("tags", len(doc.Tags)).
		Msg("Content created")
	return doc.ID, nil
}
