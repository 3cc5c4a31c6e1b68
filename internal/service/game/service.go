package game

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"luckycards-service/internal/config"
	"luckycards-service/internal/model"
	"luckycards-service/internal/service/leaderboard"
	appErr "luckycards-service/pkg/errors"
	"luckycards-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const hookTimeout = 5 * time.Second

// Service owns the per-user table sessions. A user plays at most one
// table at a time; entering a table replaces any previous session.
type Service struct {
	db *gorm.DB
	lb *leaderboard.Service

	roundSeconds  int
	resultSeconds int
	rng           func(n int) int

	mu       sync.Mutex
	sessions map[int64]*TableSession
}

func NewService(db *gorm.DB, lb *leaderboard.Service) *Service {
	cfg := config.GlobalConfig.Game
	return &Service{
		db:            db,
		lb:            lb,
		roundSeconds:  cfg.RoundSeconds,
		resultSeconds: cfg.ResultSeconds,
		rng:           rand.IntN,
		sessions:      make(map[int64]*TableSession),
	}
}

// EnterTable creates a fresh session for the user at the given mode.
// Any previous session is discarded first, stakes unrefunded.
func (s *Service) EnterTable(ctx context.Context, userID int64, modeID string) (*TableSession, error) {
	mode, ok := ModeByID(modeID)
	if !ok {
		return nil, appErr.ErrModeNotFound
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}

	session := newTableSession(&user, mode, s.roundSeconds, s.resultSeconds, s.rng, s.hooks())

	s.mu.Lock()
	if old, ok := s.sessions[userID]; ok {
		old.Close()
	}
	s.sessions[userID] = session
	s.mu.Unlock()

	session.Start()
	return session, nil
}

// LeaveTable discards the user's session, if any.
func (s *Service) LeaveTable(userID int64) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
	}
	s.mu.Unlock()

	if ok {
		session.Close()
	}
}

func (s *Service) Session(userID int64) (*TableSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, appErr.ErrTableNotEntered
	}
	return session, nil
}

// ApplyUserUpdate routes a user mutation through the active session so
// it serializes with round mutations. Returns false when the user has
// no session and the caller must mutate the store directly.
func (s *Service) ApplyUserUpdate(userID int64, fn func(u *model.User)) bool {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	s.mu.Unlock()

	if !ok {
		return false
	}
	session.ApplyUserUpdate(fn)
	return true
}

// TopUp credits coins through the active session, if any. Returns false
// when the user is not at a table.
func (s *Service) TopUp(userID, amount int64) bool {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	s.mu.Unlock()

	if !ok {
		return false
	}
	return session.TopUp(amount) == nil
}

func (s *Service) hooks() Hooks {
	return Hooks{
		SaveUser:    s.saveUser,
		RecordCoins: s.recordCoins,
		RecordRound: s.recordRound,
	}
}

func (s *Service) saveUser(user *model.User) {
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		logger.Log.Warn("failed to persist user, in-memory state stays authoritative",
			zap.Int64("userID", user.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) recordCoins(userID int64, kind string, delta, balanceAfter int64) {
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()
	entry := model.CoinLog{
		UserID:       userID,
		Type:         kind,
		Delta:        delta,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.Log.Warn("failed to write coin log",
			zap.Int64("userID", userID),
			zap.String("type", kind),
			zap.Error(err),
		)
	}
}

func (s *Service) recordRound(rec RoundRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()

	entry := model.RoundLog{
		ExternalID:     uuid.NewString(),
		UserID:         rec.UserID,
		Mode:           rec.Mode,
		RoundNo:        rec.RoundNo,
		WinningOutcome: rec.WinningOutcome,
		TotalStaked:    rec.TotalStaked,
		Payout:         rec.Payout,
		BetsJSON:       mustJSON(rec.Bets),
		CreatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.Log.Warn("failed to write round log",
			zap.Int64("userID", rec.UserID),
			zap.Error(err),
		)
	}

	if s.lb != nil && rec.CoinsWon > 0 {
		if err := s.lb.BumpCoinsWon(ctx, rec.UserID, rec.CoinsWon); err != nil {
			logger.Log.Warn("failed to bump leaderboard",
				zap.Int64("userID", rec.UserID),
				zap.Error(err),
			)
		}
	}
}

func mustJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
