package common

import (
	"github.com/google/uuid"
)

// NewContentID generates a unique content document ID.
// Format: content_<uuid>
func NewContentID() string {
	return "content_" + uuid.New().String()
}

// NewAssetID generates a unique media asset ID.
// Format: asset_<uuid>
func NewAssetID() string {
	return "asset_" + uuid.New().String()
}
