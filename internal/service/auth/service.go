package auth

import (
	"context"
	"time"

	"luckycards-service/internal/config"
	"luckycards-service/internal/model"
	pkgAuth "luckycards-service/pkg/auth"
	appErr "luckycards-service/pkg/errors"
	"luckycards-service/pkg/logger"
	netutil "luckycards-service/pkg/utils/net"
	"luckycards-service/pkg/utils/random"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	guestNameAttempts  = 5
	guestNameLockTTL   = 10 * time.Second
	guestNameKeyPrefix = "luckycards:guestname:"

	// Guest accounts are free coins; cap signups per /24 to keep one
	// host from farming wallets.
	guestLimitKeyPrefix = "luckycards:guestlimit:"
	guestLimitWindow    = time.Hour
	guestLimitPerSubnet = 30
)

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

type LoginResult struct {
	Token    string     `json:"token"`
	ExpireAt time.Time  `json:"expireAt"`
	User     model.User `json:"user"`
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

// GuestLogin creates a fresh default profile under a random guest name
// and issues a token for it. No credentials: the game is anonymous.
func (s *Service) GuestLogin(ctx context.Context, clientIP string) (*LoginResult, error) {
	if err := s.checkSignupLimit(ctx, clientIP); err != nil {
		return nil, err
	}

	user, err := s.createGuest(ctx)
	if err != nil {
		return nil, err
	}

	token, err := pkgAuth.GenerateUserToken(user.ID)
	if err != nil {
		return nil, err
	}
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)

	logger.Log.Info("guest logged in",
		zap.Int64("userID", user.ID),
		zap.String("username", user.Username),
	)
	return &LoginResult{Token: token, ExpireAt: expireAt, User: *user}, nil
}

// Refresh re-issues a token for an existing user.
func (s *Service) Refresh(ctx context.Context, userID int64) (*LoginResult, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}

	token, err := pkgAuth.GenerateUserToken(user.ID)
	if err != nil {
		return nil, err
	}
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)
	return &LoginResult{Token: token, ExpireAt: expireAt, User: user}, nil
}

func (s *Service) checkSignupLimit(ctx context.Context, clientIP string) error {
	if s.rdb == nil {
		return nil
	}
	subnet := netutil.Subnet24(clientIP)
	if subnet == "" {
		return nil
	}

	key := guestLimitKeyPrefix + subnet
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		// Redis being down should not block logins.
		logger.Log.Warn("guest signup limiter unavailable", zap.Error(err))
		return nil
	}
	if count == 1 {
		s.rdb.Expire(ctx, key, guestLimitWindow)
	}
	if count > guestLimitPerSubnet {
		logger.Log.Warn("guest signup limit hit", zap.String("subnet", subnet))
		return appErr.ErrTooManyGuests
	}
	return nil
}

func (s *Service) createGuest(ctx context.Context) (*model.User, error) {
	var lastErr error
	for i := 0; i < guestNameAttempts; i++ {
		name := random.GuestName()

		// Reserve the name briefly so two concurrent logins don't race
		// to the same guest number; the unique index is the backstop.
		if s.rdb != nil {
			ok, err := s.rdb.SetNX(ctx, guestNameKeyPrefix+name, 1, guestNameLockTTL).Result()
			if err == nil && !ok {
				continue
			}
		}

		user := model.NewDefaultUser(name, config.GlobalConfig.Game.StartingWallet)
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			lastErr = err
			continue
		}
		return &user, nil
	}
	if lastErr == nil {
		lastErr = appErr.ErrUsernameTaken
	}
	return nil, lastErr
}
