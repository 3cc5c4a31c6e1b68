package user

import (
	"context"
	"strings"

	"luckycards-service/internal/config"
	"luckycards-service/internal/model"
	appErr "luckycards-service/pkg/errors"
	"luckycards-service/pkg/logger"
	"luckycards-service/pkg/utils/random"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
)

// SessionUpdater lets profile edits route through an active table
// session so they serialize with round mutations.
type SessionUpdater interface {
	ApplyUserUpdate(userID int64, fn func(u *model.User)) bool
}

type Service struct {
	db       *gorm.DB
	sessions SessionUpdater
}

type UpdateSettingsRequest struct {
	SoundEnabled      *bool
	AnimationsEnabled *bool
	Theme             *string
}

type ListUsersFilter struct {
	Page            int
	Size            int
	UsernameKeyword string
}

type ListUsersResult struct {
	Items []model.User
	Total int64
}

func NewService(db *gorm.DB, sessions SessionUpdater) *Service {
	return &Service{db: db, sessions: sessions}
}

// GetProfile loads a user. A row persisted under an older schema version
// is treated as absent and replaced with fresh defaults, keeping the id
// and username.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}

	if user.SchemaVersion != model.CurrentUserSchema {
		logger.Log.Warn("incompatible user schema, resetting to defaults",
			zap.Int64("userID", user.ID),
			zap.Int("storedVersion", user.SchemaVersion),
		)
		return s.replaceWithDefaults(ctx, &user, user.Username)
	}
	return &user, nil
}

// UpdateSettings applies a partial settings update.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, req UpdateSettingsRequest) (*model.User, error) {
	if req.Theme != nil {
		theme := strings.ToLower(strings.TrimSpace(*req.Theme))
		if theme != "dark" && theme != "light" {
			return nil, appErr.ErrInvalidSettings
		}
		req.Theme = &theme
	}

	apply := func(u *model.User) {
		if req.SoundEnabled != nil {
			u.SoundEnabled = *req.SoundEnabled
		}
		if req.AnimationsEnabled != nil {
			u.AnimationsEnabled = *req.AnimationsEnabled
		}
		if req.Theme != nil {
			u.Theme = *req.Theme
		}
	}

	if s.sessions != nil && s.sessions.ApplyUserUpdate(userID, apply) {
		return s.GetProfile(ctx, userID)
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	apply(user)
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ResetProfile re-initializes the user to defaults under a new random
// guest name.
func (s *Service) ResetProfile(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}
	return s.replaceWithDefaults(ctx, &user, random.GuestName())
}

func (s *Service) replaceWithDefaults(ctx context.Context, user *model.User, username string) (*model.User, error) {
	fresh := model.NewDefaultUser(username, config.GlobalConfig.Game.StartingWallet)
	fresh.ID = user.ID
	fresh.CreatedAt = user.CreatedAt
	if err := s.db.WithContext(ctx).Save(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

func (f *ListUsersFilter) sanitize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Size <= 0 {
		f.Size = defaultListPageSize
	}
	if f.Size > maxListPageSize {
		f.Size = maxListPageSize
	}
	f.UsernameKeyword = strings.TrimSpace(f.UsernameKeyword)
}

// ListUsers serves the admin surface.
func (s *Service) ListUsers(ctx context.Context, filter ListUsersFilter) (*ListUsersResult, error) {
	filter.sanitize()

	query := s.db.WithContext(ctx).Model(&model.User{})
	if filter.UsernameKeyword != "" {
		query = query.Where("username LIKE ?", "%"+filter.UsernameKeyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.User
	offset := (filter.Page - 1) * filter.Size
	if err := query.Order("id ASC").Offset(offset).Limit(filter.Size).Find(&items).Error; err != nil {
		return nil, err
	}

	return &ListUsersResult{Items: items, Total: total}, nil
}
