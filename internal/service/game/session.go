package game

import (
	"sync"
	"time"

	"luckycards-service/internal/model"
	appErr "luckycards-service/pkg/errors"
	"luckycards-service/pkg/logger"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseBetting Phase = "BETTING"
	PhaseResult  Phase = "RESULT"
)

// lastCallSeconds is the countdown threshold below which the audio layer
// is nudged every second.
const lastCallSeconds = 3

type Signal string

const (
	SignalTick  Signal = "tick"
	SignalWin   Signal = "win"
	SignalLose  Signal = "lose"
	SignalClick Signal = "click"
)

// SignalEvent is a fire-and-forget cue for the audio/visual collaborator.
// Enabled is resolved from the user's sound setting before delivery.
type SignalEvent struct {
	Type      Signal `json:"type"`
	Enabled   bool   `json:"enabled"`
	OutcomeID string `json:"outcomeId,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
}

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

type StatsState struct {
	TotalWins     int64  `json:"totalWins"`
	TotalRounds   int64  `json:"totalRounds"`
	TotalCoinsWon int64  `json:"totalCoinsWon"`
	PreferredMode string `json:"preferredMode"`
}

// SessionState is the immutable snapshot the presentation layer reads.
type SessionState struct {
	Mode           string           `json:"mode"`
	Phase          Phase            `json:"phase"`
	TimeLeft       int              `json:"timeLeft"`
	RoundID        int64            `json:"roundId"`
	WinningOutcome string           `json:"winningOutcome,omitempty"`
	History        []string         `json:"history"`
	Bets           map[string]int64 `json:"bets"`
	TotalStaked    int64            `json:"totalStaked"`
	PrevBetsTotal  int64            `json:"prevBetsTotal"`
	Wallet         int64            `json:"wallet"`
	Username       string           `json:"username"`
	Stats          StatsState       `json:"stats"`
}

// Hooks are the session's outward collaborators. All of them are
// best-effort: a hook failure must never affect round state, so hooks
// swallow and log their own errors.
type Hooks struct {
	SaveUser    func(user *model.User)
	RecordCoins func(userID int64, kind string, delta, balanceAfter int64)
	RecordRound func(rec RoundRecord)
}

// TableSession runs the betting round lifecycle for one user at one
// table mode. All mutations (ticks, bet actions, settlement) are
// serialized through the mutex; the timer chain is the only autonomous
// event producer.
type TableSession struct {
	userID int64
	mode   Mode
	user   *model.User
	ledger userLedger

	phase    Phase
	timeLeft int
	roundID  int64
	winning  string
	history  []string

	bets     betBook
	prevBets betBook

	roundSeconds  int
	resultSeconds int
	rng           func(n int) int
	hooks         Hooks

	seq         int64
	nextConnID  int64
	subscribers map[int64]chan OutgoingMessage
	timer       *time.Timer
	closed      bool

	mu sync.Mutex
}

func newTableSession(user *model.User, mode Mode, roundSeconds, resultSeconds int, rng func(n int) int, hooks Hooks) *TableSession {
	return &TableSession{
		userID:        user.ID,
		mode:          mode,
		user:          user,
		ledger:        userLedger{user: user},
		phase:         PhaseBetting,
		timeLeft:      roundSeconds,
		roundID:       1,
		history:       []string{},
		bets:          betBook{},
		roundSeconds:  roundSeconds,
		resultSeconds: resultSeconds,
		rng:           rng,
		hooks:         hooks,
		subscribers:   make(map[int64]chan OutgoingMessage),
	}
}

func (s *TableSession) UserID() int64 { return s.userID }
func (s *TableSession) ModeID() string { return s.mode.ID }

// Start arms the one-second tick chain. Tests drive onTick directly and
// never call Start.
func (s *TableSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.armTimerLocked(time.Second, s.onTick)
}

// Close stops the clock and drops all subscribers. Coins already staked
// this round stay debited: leaving mid-round does not refund.
func (s *TableSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelTimerLocked()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *TableSession) Subscribe() (int64, chan OutgoingMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextConnID++
	id := s.nextConnID
	ch := make(chan OutgoingMessage, 64)
	s.subscribers[id] = ch
	s.pushLocked(ch, OutgoingMessage{Type: "state", Seq: s.nextSeqLocked(), Data: s.snapshotLocked()})
	return id, ch
}

func (s *TableSession) Unsubscribe(connID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[connID]; ok {
		delete(s.subscribers, connID)
		close(ch)
	}
}

// Snapshot returns the session state for the presentation layer.
func (s *TableSession) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Stake wagers amount on one outcome. Outside BETTING it is a silent
// no-op. An uncovered stake is rejected whole with no mutation.
func (s *TableSession) Stake(outcomeID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseBetting {
		return nil
	}
	if !s.mode.HasOutcome(outcomeID) {
		return appErr.ErrOutcomeNotFound
	}
	if amount <= 0 {
		return appErr.ErrInvalidAmount
	}
	if err := s.ledger.Debit(amount); err != nil {
		s.emitSignalLocked(SignalLose, "", 0)
		return err
	}
	s.bets[outcomeID] += amount
	s.recordCoinsLocked("stake", -amount)
	s.emitSignalLocked(SignalClick, outcomeID, amount)
	s.saveLocked()
	s.broadcastStateLocked()
	return nil
}

// ClearBets refunds every stake of the current round.
func (s *TableSession) ClearBets() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseBetting {
		return nil
	}
	total := s.bets.total()
	if total == 0 {
		return nil
	}
	s.ledger.Credit(total)
	s.bets = betBook{}
	s.recordCoinsLocked("clear", total)
	s.emitSignalLocked(SignalClick, "", 0)
	s.saveLocked()
	s.broadcastStateLocked()
	return nil
}

// Rebet re-applies the previous round's bet pattern. Only meaningful on
// an empty book with a non-empty previous round.
func (s *TableSession) Rebet() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseBetting {
		return nil
	}
	if s.bets.total() > 0 {
		return nil
	}
	prevTotal := s.prevBets.total()
	if prevTotal == 0 {
		return nil
	}
	// Unlike a rejected stake, a failed rebet carries no sound cue.
	if err := s.ledger.Debit(prevTotal); err != nil {
		return err
	}
	s.bets = s.prevBets.clone()
	s.recordCoinsLocked("rebet", -prevTotal)
	s.emitSignalLocked(SignalClick, "", 0)
	s.saveLocked()
	s.broadcastStateLocked()
	return nil
}

// DoubleAll doubles every entry, which costs the current total again.
func (s *TableSession) DoubleAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseBetting {
		return nil
	}
	total := s.bets.total()
	if total == 0 {
		return nil
	}
	if err := s.ledger.Debit(total); err != nil {
		return err
	}
	for id := range s.bets {
		s.bets[id] *= 2
	}
	s.recordCoinsLocked("double", -total)
	s.emitSignalLocked(SignalClick, "", 0)
	s.saveLocked()
	s.broadcastStateLocked()
	return nil
}

// TopUp credits free coins. Allowed in any phase; the wallet is not
// gated by the round clock.
func (s *TableSession) TopUp(amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return appErr.ErrTableNotEntered
	}
	if amount <= 0 {
		return appErr.ErrInvalidAmount
	}
	s.ledger.Credit(amount)
	s.recordCoinsLocked("topup", amount)
	s.saveLocked()
	s.broadcastStateLocked()
	return nil
}

// ApplyUserUpdate runs fn on the session's user record under the session
// lock, so profile/settings edits stay consistent with round mutations.
func (s *TableSession) ApplyUserUpdate(fn func(u *model.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	fn(s.user)
	s.saveLocked()
	s.broadcastStateLocked()
}

func (s *TableSession) onTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseBetting {
		return
	}
	if s.timeLeft > 0 {
		s.timeLeft--
	}
	if s.timeLeft > 0 {
		if s.timeLeft <= lastCallSeconds {
			s.emitSignalLocked(SignalTick, "", 0)
		}
		s.armTimerLocked(time.Second, s.onTick)
		s.broadcastStateLocked()
		return
	}

	s.settleLocked()
	s.armTimerLocked(time.Duration(s.resultSeconds)*time.Second, s.onResultDone)
	s.broadcastStateLocked()
}

func (s *TableSession) onResultDone() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != PhaseResult {
		return
	}
	s.bets = betBook{}
	s.winning = ""
	s.timeLeft = s.roundSeconds
	s.roundID++
	s.phase = PhaseBetting
	s.armTimerLocked(time.Second, s.onTick)
	s.broadcastStateLocked()
}

func (s *TableSession) snapshotLocked() SessionState {
	state := SessionState{
		Mode:           s.mode.ID,
		Phase:          s.phase,
		TimeLeft:       s.timeLeft,
		RoundID:        s.roundID,
		WinningOutcome: s.winning,
		History:        append([]string(nil), s.history...),
		Bets:           s.bets.export(),
		TotalStaked:    s.bets.total(),
		PrevBetsTotal:  s.prevBets.total(),
		Wallet:         s.user.Wallet,
		Username:       s.user.Username,
		Stats: StatsState{
			TotalWins:     s.user.TotalWins,
			TotalRounds:   s.user.TotalRounds,
			TotalCoinsWon: s.user.TotalCoinsWon,
			PreferredMode: s.user.PreferredMode,
		},
	}
	return state
}

func (s *TableSession) emitSignalLocked(sig Signal, outcomeID string, amount int64) {
	event := SignalEvent{
		Type:      sig,
		Enabled:   s.user.SoundEnabled,
		OutcomeID: outcomeID,
		Amount:    amount,
	}
	msg := OutgoingMessage{Type: "signal", Seq: s.nextSeqLocked(), Data: event}
	for _, ch := range s.subscribers {
		s.pushLocked(ch, msg)
	}
}

func (s *TableSession) broadcastStateLocked() {
	msg := OutgoingMessage{Type: "state", Seq: s.nextSeqLocked(), Data: s.snapshotLocked()}
	for _, ch := range s.subscribers {
		s.pushLocked(ch, msg)
	}
}

func (s *TableSession) pushLocked(ch chan OutgoingMessage, msg OutgoingMessage) {
	select {
	case ch <- msg:
	default:
		logger.Log.Warn("session subscriber channel full",
			zap.Int64("userID", s.userID),
			zap.String("mode", s.mode.ID),
		)
	}
}

func (s *TableSession) nextSeqLocked() int64 {
	s.seq++
	return s.seq
}

func (s *TableSession) saveLocked() {
	if s.hooks.SaveUser != nil {
		s.hooks.SaveUser(s.user)
	}
}

func (s *TableSession) recordCoinsLocked(kind string, delta int64) {
	if s.hooks.RecordCoins != nil {
		s.hooks.RecordCoins(s.userID, kind, delta, s.user.Wallet)
	}
}

func (s *TableSession) armTimerLocked(d time.Duration, fn func()) {
	s.cancelTimerLocked()
	s.timer = time.AfterFunc(d, fn)
}

func (s *TableSession) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
