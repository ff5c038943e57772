// Package media fetches generated images and attaches them to content.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

type service struct {
	documents  interfaces.DocumentStore
	imagesDir  string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewService creates the filesystem-backed media store.
func NewService(documents interfaces.DocumentStore, imagesDir string, logger arbor.ILogger) interfaces.MediaStore {
	return &service{
		documents:  documents,
		imagesDir:  imagesDir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// FetchAndAttach downloads the image at url into the images directory and
// records the asset against the content entity. Provider image URLs are
// short-lived, so the fetch happens immediately after generation.
func (s *service) FetchAndAttach(ctx context.Context, url string, filename string, contentRef string) (string, error) {
	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	assetRef := common.NewAssetID()
	path := filepath.Join(s.imagesDir, assetRef+"_"+sanitizeFilename(filename))

	if err := s.download(ctx, url, path); err != nil {
		return "", err
	}

	doc, err := s.documents.GetDocument(ctx, contentRef)
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to load content %s for attachment: %w", contentRef, err)
	}
	doc.AssetRefs = append(doc.AssetRefs, assetRef)
	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to record attachment: %w", err)
	}

	s.logger.Info().
		Str("asset_ref", assetRef).
		Str("content_ref", contentRef).
		Str("path", path).
		Msg("Image fetched and attached")
	return assetRef, nil
}

func (s *service) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image fetch returned HTTP %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

// sanitizeFilename strips path separators and whitespace from a
// caller-supplied filename.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "image.png"
	}
	return name
}
