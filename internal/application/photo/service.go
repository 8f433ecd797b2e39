package photo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/matching-sms-api/internal/domain"
)

// MaxSize is the largest accepted photo, in bytes.
const MaxSize = 5 << 20

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

type UploadInput struct {
	Reader io.Reader
	UserID string
}

type Service interface {
	// Upload stores the user's profile photo and returns its public URL.
	// An existing photo for the same user is replaced.
	Upload(ctx context.Context, in UploadInput) (string, error)
}

type service struct {
	store ObjectStore
}

func NewService(store ObjectStore) Service {
	return &service{store: store}
}

func (s *service) Upload(ctx context.Context, in UploadInput) (string, error) {
	owner := sanitizeSegment(in.UserID)
	if owner == "" {
		return "", fmt.Errorf("userId is required: %w", domain.ErrValidation)
	}
	if in.Reader == nil {
		return "", fmt.Errorf("photo is required: %w", domain.ErrValidation)
	}

	data, err := io.ReadAll(io.LimitReader(in.Reader, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("read photo: %v: %w", err, domain.ErrValidation)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("photo is empty: %w", domain.ErrValidation)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("photo exceeds %d bytes: %w", MaxSize, domain.ErrValidation)
	}

	mime := mimetype.Detect(data)
	ext, ok := extensions[mime.String()]
	if !ok {
		return "", fmt.Errorf("unsupported photo type %s: %w", mime.String(), domain.ErrValidation)
	}

	key := fmt.Sprintf("%s/profile.%s", owner, ext)
	url, err := s.store.Upload(ctx, key, bytes.NewReader(data), mime.String())
	if err != nil {
		return "", fmt.Errorf("upload photo: %v: %w", err, domain.ErrPersistence)
	}
	slog.Info("profile photo uploaded", "user_id", in.UserID, "key", key, "bytes", len(data))
	return url, nil
}

// sanitizeSegment keeps alphanumerics, dash and underscore so the user id
// cannot escape its key prefix.
func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
