package wallet

import (
	"context"
	"fmt"
	"time"

	"luckycards-service/internal/config"
	"luckycards-service/internal/model"
	appErr "luckycards-service/pkg/errors"

	"gorm.io/gorm"
)

// SessionFunds is the slice of the game service the wallet needs: when
// the user sits at a table, wallet mutations must go through the live
// session so they serialize with round mutations.
type SessionFunds interface {
	ApplyUserUpdate(userID int64, fn func(u *model.User)) bool
	TopUp(userID, amount int64) bool
}

type Service struct {
	db       *gorm.DB
	sessions SessionFunds
}

type Summary struct {
	UserID        int64 `json:"userId,string"`
	Balance       int64 `json:"balance"`
	TotalCoinsWon int64 `json:"totalCoinsWon"`
}

func NewService(db *gorm.DB, sessions SessionFunds) *Service {
	return &Service{db: db, sessions: sessions}
}

func (s *Service) GetWallet(ctx context.Context, userID int64) (*Summary, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}
	return &Summary{UserID: user.ID, Balance: user.Wallet, TotalCoinsWon: user.TotalCoinsWon}, nil
}

// TopUp grants the free-coins reward. The grant size is fixed by config,
// not chosen by the client.
func (s *Service) TopUp(ctx context.Context, userID int64) (*Summary, error) {
	grant := config.GlobalConfig.Game.TopUpGrant
	if err := s.credit(ctx, userID, grant, "topup"); err != nil {
		return nil, err
	}
	return s.GetWallet(ctx, userID)
}

// AdminAdjust sets the wallet to an absolute non-negative value.
func (s *Service) AdminAdjust(ctx context.Context, userID int64, balance int64) (*Summary, error) {
	if balance < 0 {
		return nil, fmt.Errorf("%w: balance must be >= 0", appErr.ErrInvalidWalletPayload)
	}

	applied := s.sessions != nil && s.sessions.ApplyUserUpdate(userID, func(u *model.User) {
		u.Wallet = balance
	})
	if !applied {
		res := s.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", userID).
			Update("wallet", balance)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, appErr.ErrUserNotFound
		}
	}

	s.log(ctx, userID, "adjust", balance)
	return s.GetWallet(ctx, userID)
}

func (s *Service) credit(ctx context.Context, userID, amount int64, kind string) error {
	if amount <= 0 {
		return appErr.ErrInvalidAmount
	}

	// Active table session owns the in-memory record; it persists and
	// audit-logs the credit itself.
	if s.sessions != nil && s.sessions.TopUp(userID, amount) {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("wallet", gorm.Expr("wallet + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appErr.ErrUserNotFound
	}

	var after model.User
	if err := s.db.WithContext(ctx).First(&after, userID).Error; err == nil {
		entry := model.CoinLog{
			UserID:       userID,
			Type:         kind,
			Delta:        amount,
			BalanceAfter: after.Wallet,
			CreatedAt:    time.Now(),
		}
		s.db.WithContext(ctx).Create(&entry)
	}
	return nil
}

func (s *Service) log(ctx context.Context, userID int64, kind string, balanceAfter int64) {
	entry := model.CoinLog{
		UserID:       userID,
		Type:         kind,
		Delta:        0,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now(),
	}
	s.db.WithContext(ctx).Create(&entry)
}
