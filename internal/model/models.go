package model

import (
	"time"

	"gorm.io/datatypes"
)

// CurrentUserSchema is bumped when the persisted user shape changes in an
// incompatible way. Rows carrying an older version are treated as absent
// and replaced with defaults on load.
const CurrentUserSchema = 1

// 2.1 User & Admin

// NewDefaultUser builds a fresh guest profile: sound and animations on,
// dark theme, zeroed stats.
func NewDefaultUser(username string, wallet int64) User {
	return User{
		Username:          username,
		Wallet:            wallet,
		SchemaVersion:     CurrentUserSchema,
		SoundEnabled:      true,
		AnimationsEnabled: true,
		Theme:             "dark",
		PreferredMode:     "None",
	}
}

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	Wallet       int64  `gorm:"not null;default:0"`
	SchemaVersion int   `gorm:"not null;default:1"`

	// Settings
	SoundEnabled      bool   `gorm:"not null;default:true"`
	AnimationsEnabled bool   `gorm:"not null;default:true"`
	Theme             string `gorm:"default:dark"` // dark/light

	// Stats
	TotalWins     int64  `gorm:"not null;default:0"`
	TotalRounds   int64  `gorm:"not null;default:0"`
	TotalCoinsWon int64  `gorm:"not null;default:0"`
	PreferredMode string `gorm:"default:None"` // None/2X/10X

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// 2.2 Round & coin audit

// RoundLog records one settled round for one player.
type RoundLog struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	ExternalID     string `gorm:"unique;not null"` // uuid
	UserID         int64  `gorm:"index;not null"`
	Mode           string `gorm:"not null"` // 2X/10X
	RoundNo        int64  `gorm:"not null"`
	WinningOutcome string `gorm:"not null"`
	TotalStaked    int64  `gorm:"not null"`
	Payout         int64  `gorm:"not null"`
	BetsJSON       datatypes.JSON `gorm:"type:jsonb"` // outcomeId -> stake
	CreatedAt      time.Time
}

// CoinLog is an append-only trail of wallet movements.
type CoinLog struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	UserID       int64  `gorm:"index;not null"`
	Type         string `gorm:"not null"` // stake/clear/rebet/double/payout/topup/adjust
	Delta        int64  `gorm:"not null"`
	BalanceAfter int64  `gorm:"not null"`
	RoundLogID   *int64
	MetaJSON     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
}
