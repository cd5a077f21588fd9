package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"regexp"

	"github.com/msomdec/task-manager/internal/domain"
	"golang.org/x/image/draw"
)

const (
	MaxAvatarSize = 1_000_000 // bytes, before processing
	AvatarSide    = 250       // pixels
	// AvatarContentType is the format every stored avatar is encoded in.
	AvatarContentType = "image/png"

	maxAvatarPixels = 40_000_000
)

var avatarFilename = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)$`)

// AvatarRejectedMessage is the message clients see for oversized or wrongly
// typed uploads.
const AvatarRejectedMessage = "Please upload an image that is less than 1MB"

// AvatarService validates, normalizes and stores profile pictures.
type AvatarService struct {
	users domain.UserRepository
	files domain.FileStore
}

// NewAvatarService creates a new AvatarService.
func NewAvatarService(users domain.UserRepository, files domain.FileStore) *AvatarService {
	return &AvatarService{users: users, files: files}
}

// CheckUpload rejects uploads by size and filename before any decoding.
func CheckUpload(filename string, size int64) error {
	if size > MaxAvatarSize || !avatarFilename.MatchString(filename) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, AvatarRejectedMessage)
	}
	return nil
}

// Set replaces the user's avatar with the normalized form of data.
func (s *AvatarService) Set(ctx context.Context, user *domain.User, filename string, data []byte) error {
	if err := CheckUpload(filename, int64(len(data))); err != nil {
		return err
	}

	normalized, err := NormalizeAvatar(data)
	if err != nil {
		return err
	}

	key := avatarKey(user.ID)
	if err := s.files.Save(ctx, key, normalized); err != nil {
		return fmt.Errorf("save avatar: %w", err)
	}

	if user.AvatarKey != key {
		if err := s.users.SetAvatarKey(ctx, user.ID, key); err != nil {
			return fmt.Errorf("set avatar key: %w", err)
		}
		user.AvatarKey = key
	}
	return nil
}

// Clear removes the user's avatar. Clearing a missing avatar succeeds.
func (s *AvatarService) Clear(ctx context.Context, user *domain.User) error {
	if !user.HasAvatar() {
		return nil
	}

	if err := s.files.Delete(ctx, user.AvatarKey); err != nil {
		return fmt.Errorf("delete avatar: %w", err)
	}

	if err := s.users.SetAvatarKey(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("set avatar key: %w", err)
	}
	user.AvatarKey = ""
	return nil
}

// Get returns the stored PNG bytes for a user, or domain.ErrNotFound when
// the user or the avatar does not exist.
func (s *AvatarService) Get(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasAvatar() {
		return nil, domain.ErrNotFound
	}

	data, err := s.files.Get(ctx, user.AvatarKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get avatar: %w", err)
	}
	return data, nil
}

// NormalizeAvatar decodes a JPEG or PNG, crops the centred square out of it,
// scales that to AvatarSide and re-encodes it as PNG.
func NormalizeAvatar(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported image", domain.ErrInvalidInput)
	}
	if cfg.Width*cfg.Height > maxAvatarPixels {
		return nil, fmt.Errorf("%w: image dimensions too large", domain.ErrInvalidInput)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported image", domain.ErrInvalidInput)
	}

	dst := image.NewRGBA(image.Rect(0, 0, AvatarSide, AvatarSide))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, centerSquare(src.Bounds()), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// centerSquare is the largest square centred in r.
func centerSquare(r image.Rectangle) image.Rectangle {
	side := min(r.Dx(), r.Dy())
	x0 := r.Min.X + (r.Dx()-side)/2
	y0 := r.Min.Y + (r.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

func avatarKey(userID string) string {
	return "avatars/" + userID
}
