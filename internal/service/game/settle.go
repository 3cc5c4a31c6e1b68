package game

// RoundRecord is the settlement delta handed to the audit/leaderboard
// hooks once per round.
type RoundRecord struct {
	UserID         int64
	Mode           string
	RoundNo        int64
	WinningOutcome string
	TotalStaked    int64
	StakeOnWinner  int64
	Payout         int64
	CoinsWon       int64
	Bets           map[string]int64
}

// settleLocked draws the winner and reconciles wallet and stats. Invoked
// exactly once per round, at the BETTING to RESULT transition. The draw
// is uniform over the mode's outcome set; stakes do not bias it.
func (s *TableSession) settleLocked() {
	idx := s.rng(len(s.mode.Outcomes))
	if idx < 0 || idx >= len(s.mode.Outcomes) {
		idx = 0
	}
	winner := s.mode.Outcomes[idx].ID

	totalStaked := s.bets.total()
	stakeOnWinner := s.bets[winner]
	payout := stakeOnWinner * s.mode.Multiplier

	// A round with zero bets must not overwrite the rebet slot.
	if totalStaked > 0 {
		s.prevBets = s.bets.clone()
	}

	coinsWon := int64(0)
	if payout > 0 {
		coinsWon = payout - totalStaked
		if coinsWon < 0 {
			coinsWon = 0
		}
		s.ledger.Credit(payout)
		s.ledger.AddWin(coinsWon)
		s.recordCoinsLocked("payout", payout)
		s.emitSignalLocked(SignalWin, winner, payout)
	} else if totalStaked > 0 {
		s.emitSignalLocked(SignalLose, winner, 0)
	}

	s.ledger.FinishRound(s.mode.ID)

	s.winning = winner
	s.phase = PhaseResult

	if s.hooks.RecordRound != nil {
		s.hooks.RecordRound(RoundRecord{
			UserID:         s.userID,
			Mode:           s.mode.ID,
			RoundNo:        s.roundID,
			WinningOutcome: winner,
			TotalStaked:    totalStaked,
			StakeOnWinner:  stakeOnWinner,
			Payout:         payout,
			CoinsWon:       coinsWon,
			Bets:           s.bets.export(),
		})
	}
	s.saveLocked()
}
