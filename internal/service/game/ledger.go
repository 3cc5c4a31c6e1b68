package game

import (
	"luckycards-service/internal/model"
	appErr "luckycards-service/pkg/errors"
)

// userLedger is the only mutator of a session's user record. Debit fails
// closed: the wallet is checked before any mutation and never goes
// negative.
type userLedger struct {
	user *model.User
}

func (l userLedger) Balance() int64 {
	return l.user.Wallet
}

func (l userLedger) Credit(amount int64) {
	if amount <= 0 {
		return
	}
	l.user.Wallet += amount
}

func (l userLedger) Debit(amount int64) error {
	if amount <= 0 {
		return appErr.ErrInvalidAmount
	}
	if l.user.Wallet < amount {
		return appErr.ErrInsufficientBalance
	}
	l.user.Wallet -= amount
	return nil
}

func (l userLedger) AddWin(coinsWon int64) {
	l.user.TotalWins++
	if coinsWon > 0 {
		l.user.TotalCoinsWon += coinsWon
	}
}

func (l userLedger) FinishRound(mode string) {
	l.user.TotalRounds++
	l.user.PreferredMode = mode
}

// betBook maps outcome ids to staked amounts for the current round.
type betBook map[string]int64

func (b betBook) total() int64 {
	var sum int64
	for _, v := range b {
		sum += v
	}
	return sum
}

func (b betBook) clone() betBook {
	out := make(betBook, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (b betBook) export() map[string]int64 {
	return map[string]int64(b.clone())
}
