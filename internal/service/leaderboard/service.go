package leaderboard

import (
	"context"
	"strconv"

	"luckycards-service/internal/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const coinsWonKey = "luckycards:leaderboard:coins_won"

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

type Entry struct {
	UserID   int64  `json:"userId,string"`
	Username string `json:"username"`
	CoinsWon int64  `json:"coinsWon"`
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

// BumpCoinsWon adds a settled round's net win to the standings.
func (s *Service) BumpCoinsWon(ctx context.Context, userID int64, coinsWon int64) error {
	if coinsWon <= 0 {
		return nil
	}
	member := strconv.FormatInt(userID, 10)
	return s.rdb.ZIncrBy(ctx, coinsWonKey, float64(coinsWon), member).Err()
}

// Top returns the highest earners, usernames resolved from the store.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	raw, err := s.rdb.ZRevRangeWithScores(ctx, coinsWonKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raw))
	ids := make([]int64, 0, len(raw))
	for _, z := range raw {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		entries = append(entries, Entry{UserID: id, CoinsWon: int64(z.Score)})
	}

	if len(ids) == 0 {
		return entries, nil
	}

	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	nameByID := make(map[int64]string, len(users))
	for _, u := range users {
		nameByID[u.ID] = u.Username
	}
	for i := range entries {
		entries[i].Username = nameByID[entries[i].UserID]
	}
	return entries, nil
}

// Rebuild recomputes the standings from the user table. Used after a
// redis flush.
func (s *Service) Rebuild(ctx context.Context) error {
	var users []model.User
	if err := s.db.WithContext(ctx).Where("total_coins_won > 0").Find(&users).Error; err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, coinsWonKey).Err(); err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(users))
	for _, u := range users {
		members = append(members, redis.Z{
			Score:  float64(u.TotalCoinsWon),
			Member: strconv.FormatInt(u.ID, 10),
		})
	}
	return s.rdb.ZAdd(ctx, coinsWonKey, members...).Err()
}
