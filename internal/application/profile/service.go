package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/campus-connect/api/internal/domain"
	"github.com/campus-connect/api/internal/pkg/validate"
)

// avatarURLTTL is how long a presigned avatar link stays valid. The client
// refetches the profile often enough that a day is plenty.
const avatarURLTTL = 24 * time.Hour

type CreateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
}

// Store is the profile row store. MarkEmailVerified is not here: the
// verification subsystem flips that flag transactionally through its own store.
type Store interface {
	Put(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// ObjectStore is the avatar object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service interface {
	Create(ctx context.Context, userID string, req CreateProfileRequest) (*domain.Profile, error)
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error)
	UploadAvatar(ctx context.Context, userID string, r io.Reader, contentType string) (*domain.Profile, error)
}

type service struct {
	store   Store
	objects ObjectStore
}

func NewService(store Store, objects ObjectStore) Service {
	return &service{store: store, objects: objects}
}

// Create provisions the profile row for a freshly registered account.
// Called by the identity provider's signup hook; verification state starts false.
func (s *service) Create(ctx context.Context, userID string, req CreateProfileRequest) (*domain.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user id: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.store.Get(ctx, userID); err == nil {
		return nil, fmt.Errorf("profile already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	p := &domain.Profile{
		UserID:    userID,
		FullName:  req.FullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.attachAvatarURL(ctx, p)
	return p, nil
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Campus != nil {
		updates["campus"] = *req.Campus
	}
	if req.YearOfStudy != nil {
		updates["year_of_study"] = *req.YearOfStudy
	}
	if req.Interests != nil {
		updates["interests"] = *req.Interests
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}

	// Ensure the row exists before the blind update; UpdateItem would
	// otherwise create a half-empty profile.
	if _, err := s.store.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, userID, updates); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.attachAvatarURL(ctx, p)
	return p, nil
}

// UploadAvatar stores the image and points the profile at it. A previously
// stored avatar object is removed once the profile row points elsewhere.
func (s *service) UploadAvatar(ctx context.Context, userID string, r io.Reader, contentType string) (*domain.Profile, error) {
	ext, ok := avatarExt(contentType)
	if !ok {
		return nil, fmt.Errorf("unsupported avatar content type %q: %w", contentType, domain.ErrBadRequest)
	}

	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%d%s", userID, time.Now().UnixMilli(), ext)
	if err := s.objects.Upload(ctx, key, r, contentType); err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	if err := s.store.Update(ctx, userID, map[string]interface{}{"avatar_key": key}); err != nil {
		return nil, fmt.Errorf("save avatar reference: %w", err)
	}

	if p.AvatarKey != "" && p.AvatarKey != key {
		if err := s.objects.Delete(ctx, p.AvatarKey); err != nil {
			slog.Warn("failed to delete previous avatar", "user_id", userID, "key", p.AvatarKey, "err", err)
		}
	}

	p, err = s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.attachAvatarURL(ctx, p)
	return p, nil
}

func (s *service) attachAvatarURL(ctx context.Context, p *domain.Profile) {
	if p.AvatarKey == "" {
		return
	}
	url, err := s.objects.PresignedURL(ctx, p.AvatarKey, avatarURLTTL)
	if err != nil {
		slog.Warn("failed to presign avatar url", "user_id", p.UserID, "err", err)
		return
	}
	p.AvatarURL = url
}

func avatarExt(contentType string) (string, bool) {
	switch contentType {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "image/webp":
		return ".webp", true
	default:
		return "", false
	}
}
