package service

import (
	"context"

	"luckycards-service/internal/service/admin"
	"luckycards-service/internal/service/auth"
	"luckycards-service/internal/service/game"
	"luckycards-service/internal/service/leaderboard"
	"luckycards-service/internal/service/user"
	"luckycards-service/internal/service/wallet"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Auth        *auth.Service
	User        *user.Service
	Wallet      *wallet.Service
	Game        *game.Service
	Leaderboard *leaderboard.Service
	Admin       *admin.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	lb := leaderboard.NewService(db, rdb)
	games := game.NewService(db, lb)
	return &Container{
		Auth:        auth.NewService(db, rdb),
		User:        user.NewService(db, games),
		Wallet:      wallet.NewService(db, games),
		Game:        games,
		Leaderboard: lb,
		Admin:       admin.NewService(db),
	}
}

func (c *Container) Start(ctx context.Context) error {
	if err := c.Admin.EnsureDefaultAdmin(ctx); err != nil {
		return err
	}
	return c.Leaderboard.Rebuild(ctx)
}
