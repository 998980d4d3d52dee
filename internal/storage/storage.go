package storage

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the object storage operations used for exercise videos.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows a PUT
	// of objectKey directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// PublicURL is the stable URL the object is served from once uploaded.
	PublicURL(objectKey string) string

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

var allowedVideoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".webm": {}, ".m4v": {},
}

// VideoObjectKey returns a fresh key under exercises/<id>/ keeping the
// file's extension when it is a known video type.
func VideoObjectKey(exerciseID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if _, ok := allowedVideoExtensions[ext]; !ok {
		ext = ".mp4"
	}
	return path.Join("exercises", exerciseID, uuid.NewString()+ext)
}

// VideoObjectKeyFromURL recovers the object key from a public URL built by
// PublicURL, or "" when the URL points elsewhere.
func VideoObjectKeyFromURL(publicBaseURL, videoURL string) string {
	base := strings.TrimSuffix(publicBaseURL, "/") + "/"
	if publicBaseURL == "" || !strings.HasPrefix(videoURL, base) {
		return ""
	}
	key := strings.TrimPrefix(videoURL, base)
	if !strings.HasPrefix(key, "exercises/") {
		return ""
	}
	return key
}
