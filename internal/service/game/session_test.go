package game

import (
	"errors"
	"testing"

	"luckycards-service/internal/model"
	appErr "luckycards-service/pkg/errors"
)

func fixedRNG(idx int) func(n int) int {
	return func(n int) int {
		if idx >= n {
			return n - 1
		}
		return idx
	}
}

func newTestSession(t *testing.T, modeID string, wallet int64, rng func(n int) int) (*TableSession, *model.User) {
	t.Helper()

	mode, ok := ModeByID(modeID)
	if !ok {
		t.Fatalf("unknown mode %q", modeID)
	}
	user := model.NewDefaultUser("Guest4242", wallet)
	user.ID = 1
	session := newTableSession(&user, mode, 10, 3, rng, Hooks{})
	return session, &user
}

func (s *TableSession) drainBettingPhase(t *testing.T) {
	t.Helper()
	for i := 0; i < s.roundSeconds; i++ {
		s.onTick()
	}
	if s.phase != PhaseResult {
		t.Fatalf("expected RESULT after %d ticks, got %s", s.roundSeconds, s.phase)
	}
}

func TestInitialState(t *testing.T) {
	session, _ := newTestSession(t, Mode2X, 1000, fixedRNG(0))

	state := session.Snapshot()
	if state.Phase != PhaseBetting {
		t.Fatalf("expected BETTING, got %s", state.Phase)
	}
	if state.TimeLeft != 10 {
		t.Fatalf("expected timeLeft=10, got %d", state.TimeLeft)
	}
	if state.RoundID != 1 {
		t.Fatalf("expected roundId=1, got %d", state.RoundID)
	}
	if state.WinningOutcome != "" {
		t.Fatalf("expected no winner yet, got %q", state.WinningOutcome)
	}
}

func TestTickCountdownAndRoundCycle(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 1000, fixedRNG(0))

	session.onTick()
	if got := session.Snapshot().TimeLeft; got != 9 {
		t.Fatalf("expected timeLeft=9 after one tick, got %d", got)
	}

	for i := 0; i < 9; i++ {
		session.onTick()
	}
	state := session.Snapshot()
	if state.Phase != PhaseResult {
		t.Fatalf("expected RESULT at timeLeft=0, got %s", state.Phase)
	}
	if state.WinningOutcome == "" {
		t.Fatal("expected a winning outcome in RESULT")
	}
	if user.TotalRounds != 1 {
		t.Fatalf("expected totalRounds=1 even with no bets, got %d", user.TotalRounds)
	}

	session.onResultDone()
	state = session.Snapshot()
	if state.Phase != PhaseBetting || state.TimeLeft != 10 || state.RoundID != 2 {
		t.Fatalf("unexpected fresh round state: %+v", state)
	}
	if state.WinningOutcome != "" {
		t.Fatalf("winner should be cleared, got %q", state.WinningOutcome)
	}
	if len(state.Bets) != 0 {
		t.Fatalf("bets should be cleared, got %v", state.Bets)
	}
}

func TestScenarioAWinOnRed(t *testing.T) {
	// 2X table, wallet 1000, 100 on red, draw red.
	session, user := newTestSession(t, Mode2X, 1000, fixedRNG(0))

	if err := session.Stake("red", 100); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if user.Wallet != 900 {
		t.Fatalf("expected wallet=900 after stake, got %d", user.Wallet)
	}

	session.drainBettingPhase(t)

	if got := session.Snapshot().WinningOutcome; got != "red" {
		t.Fatalf("expected red to win, got %q", got)
	}
	if user.Wallet != 1100 {
		t.Fatalf("expected wallet=1100 (1000-100+200), got %d", user.Wallet)
	}
	if user.TotalWins != 1 {
		t.Fatalf("expected totalWins=1, got %d", user.TotalWins)
	}
	if user.TotalCoinsWon != 100 {
		t.Fatalf("expected totalCoinsWon=100, got %d", user.TotalCoinsWon)
	}
	if user.TotalRounds != 1 {
		t.Fatalf("expected totalRounds=1, got %d", user.TotalRounds)
	}
	if user.PreferredMode != Mode2X {
		t.Fatalf("expected preferredMode=2X, got %q", user.PreferredMode)
	}
}

func TestScenarioBLoseOnTen(t *testing.T) {
	// 10X table, wallet 500, 50 on "3", draw "7" (index 6).
	session, user := newTestSession(t, Mode10X, 500, fixedRNG(6))

	if err := session.Stake("3", 50); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)

	if got := session.Snapshot().WinningOutcome; got != "7" {
		t.Fatalf("expected 7 to win, got %q", got)
	}
	if user.Wallet != 450 {
		t.Fatalf("expected wallet=450, got %d", user.Wallet)
	}
	if user.TotalWins != 0 {
		t.Fatalf("expected totalWins unchanged, got %d", user.TotalWins)
	}
	if user.TotalRounds != 1 {
		t.Fatalf("expected totalRounds=1, got %d", user.TotalRounds)
	}
}

func TestScenarioCInsufficientFunds(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 30, fixedRNG(0))

	err := session.Stake("red", 50)
	if !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if user.Wallet != 30 {
		t.Fatalf("wallet must be untouched, got %d", user.Wallet)
	}
	if len(session.Snapshot().Bets) != 0 {
		t.Fatal("bet book must be untouched")
	}
}

func TestScenarioDRebetInsufficient(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 90, fixedRNG(1))

	// Build a previous round: 20 on red, 30 on black, then lose both.
	if err := session.Stake("red", 20); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if err := session.Stake("black", 30); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)
	session.onResultDone()

	// black won (idx 1): payout 30*2=60. Wallet: 90-50+60 = 100.
	if user.Wallet != 100 {
		t.Fatalf("expected wallet=100, got %d", user.Wallet)
	}

	// Drop wallet below the previous total (50) and attempt a rebet.
	if err := session.ledger.Debit(60); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	err := session.Rebet()
	if !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if user.Wallet != 40 {
		t.Fatalf("wallet must be untouched at 40, got %d", user.Wallet)
	}
	if len(session.Snapshot().Bets) != 0 {
		t.Fatal("bet book must stay empty after rejected rebet")
	}
}

func TestScenarioEDoubleAll(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 140, fixedRNG(0))

	if err := session.Stake("red", 40); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if err := session.DoubleAll(); err != nil {
		t.Fatalf("double failed: %v", err)
	}
	state := session.Snapshot()
	if user.Wallet != 60 {
		t.Fatalf("expected wallet=60, got %d", user.Wallet)
	}
	if state.Bets["red"] != 80 {
		t.Fatalf("expected red=80, got %d", state.Bets["red"])
	}
}

func TestRebetRestoresPreviousPattern(t *testing.T) {
	session, user := newTestSession(t, Mode10X, 1000, fixedRNG(0))

	if err := session.Stake("2", 20); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if err := session.Stake("5", 30); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)
	session.onResultDone()

	walletBefore := user.Wallet
	if err := session.Rebet(); err != nil {
		t.Fatalf("rebet failed: %v", err)
	}
	state := session.Snapshot()
	if state.Bets["2"] != 20 || state.Bets["5"] != 30 {
		t.Fatalf("unexpected rebet pattern: %v", state.Bets)
	}
	if user.Wallet != walletBefore-50 {
		t.Fatalf("expected wallet debited by 50, got %d -> %d", walletBefore, user.Wallet)
	}
}

func TestZeroBetRoundKeepsRebetSlot(t *testing.T) {
	session, _ := newTestSession(t, Mode2X, 1000, fixedRNG(0))

	if err := session.Stake("red", 25); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)
	session.onResultDone()

	// Round with no bets must not overwrite the slot.
	session.drainBettingPhase(t)
	session.onResultDone()

	if err := session.Rebet(); err != nil {
		t.Fatalf("rebet failed: %v", err)
	}
	if got := session.Snapshot().Bets["red"]; got != 25 {
		t.Fatalf("expected rebet to restore 25 on red, got %d", got)
	}
}

func TestRebetIsNoOpWithBetsPlaced(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 1000, fixedRNG(0))

	if err := session.Stake("red", 25); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)
	session.onResultDone()

	if err := session.Stake("black", 10); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	walletBefore := user.Wallet
	if err := session.Rebet(); err != nil {
		t.Fatalf("rebet should be a silent no-op, got %v", err)
	}
	if user.Wallet != walletBefore {
		t.Fatalf("wallet must be untouched, got %d", user.Wallet)
	}
	if got := session.Snapshot().Bets["black"]; got != 10 {
		t.Fatalf("existing bets must be untouched, got %v", session.Snapshot().Bets)
	}
}

func TestPhaseExclusivity(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 1000, fixedRNG(0))

	session.drainBettingPhase(t)
	walletBefore := user.Wallet

	if err := session.Stake("red", 100); err != nil {
		t.Fatalf("stake in RESULT must be a silent no-op, got %v", err)
	}
	if err := session.ClearBets(); err != nil {
		t.Fatalf("clear in RESULT must be a silent no-op, got %v", err)
	}
	if err := session.DoubleAll(); err != nil {
		t.Fatalf("double in RESULT must be a silent no-op, got %v", err)
	}
	if err := session.Rebet(); err != nil {
		t.Fatalf("rebet in RESULT must be a silent no-op, got %v", err)
	}
	if user.Wallet != walletBefore {
		t.Fatalf("wallet mutated during RESULT: %d -> %d", walletBefore, user.Wallet)
	}
	if len(session.Snapshot().Bets) != 0 {
		t.Fatal("bet book mutated during RESULT")
	}
}

func TestCoinConservation(t *testing.T) {
	session, user := newTestSession(t, Mode10X, 1000, fixedRNG(3))

	const start = int64(1000)
	check := func(step string) {
		t.Helper()
		staked := session.Snapshot().TotalStaked
		if user.Wallet+staked != start {
			t.Fatalf("%s: wallet %d + staked %d != %d", step, user.Wallet, staked, start)
		}
	}

	if err := session.Stake("1", 100); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	check("after stake")
	if err := session.Stake("9", 50); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	check("after second stake")
	if err := session.DoubleAll(); err != nil {
		t.Fatalf("double failed: %v", err)
	}
	check("after double")
	if err := session.ClearBets(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	check("after clear")
	if err := session.Stake("4", 75); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	check("after restake")
}

func TestClearRefundsEverything(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 500, fixedRNG(0))

	if err := session.Stake("red", 120); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if err := session.Stake("black", 80); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if err := session.ClearBets(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if user.Wallet != 500 {
		t.Fatalf("expected full refund to 500, got %d", user.Wallet)
	}
	if len(session.Snapshot().Bets) != 0 {
		t.Fatal("bet book should be empty after clear")
	}
}

func TestStakeOnUnknownOutcome(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 500, fixedRNG(0))

	err := session.Stake("joker", 10)
	if !errors.Is(err, appErr.ErrOutcomeNotFound) {
		t.Fatalf("expected ErrOutcomeNotFound, got %v", err)
	}
	if user.Wallet != 500 {
		t.Fatalf("wallet must be untouched, got %d", user.Wallet)
	}
}

func TestCloseDoesNotRefund(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 300, fixedRNG(0))

	if err := session.Stake("red", 100); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.Close()
	if user.Wallet != 200 {
		t.Fatalf("leaving mid-round must not refund, wallet=%d", user.Wallet)
	}
	if err := session.Stake("red", 10); err != nil {
		t.Fatalf("stake on closed session must be a no-op, got %v", err)
	}
	if user.Wallet != 200 {
		t.Fatalf("closed session mutated wallet, got %d", user.Wallet)
	}
}

func TestSignalsDelivered(t *testing.T) {
	session, _ := newTestSession(t, Mode2X, 1000, fixedRNG(0))
	_, ch := session.Subscribe()

	if err := session.Stake("red", 100); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)

	var sawClick, sawWin bool
	for len(ch) > 0 {
		msg := <-ch
		if msg.Type != "signal" {
			continue
		}
		event, ok := msg.Data.(SignalEvent)
		if !ok {
			t.Fatalf("unexpected signal payload: %#v", msg.Data)
		}
		if !event.Enabled {
			t.Fatal("sound enabled by default, signal should be enabled")
		}
		switch event.Type {
		case SignalClick:
			sawClick = true
		case SignalWin:
			sawWin = true
			if event.OutcomeID != "red" || event.Amount != 200 {
				t.Fatalf("unexpected win event: %+v", event)
			}
		}
	}
	if !sawClick || !sawWin {
		t.Fatalf("expected click and win signals, got click=%v win=%v", sawClick, sawWin)
	}
}

func TestLoseSignalOnLosingRound(t *testing.T) {
	session, _ := newTestSession(t, Mode2X, 1000, fixedRNG(1)) // black wins
	_, ch := session.Subscribe()

	if err := session.Stake("red", 100); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)

	var lose *SignalEvent
	for len(ch) > 0 {
		msg := <-ch
		if msg.Type != "signal" {
			continue
		}
		event := msg.Data.(SignalEvent)
		if event.Type == SignalWin {
			t.Fatalf("no win signal expected on a losing round: %+v", event)
		}
		if event.Type == SignalLose {
			lose = &event
		}
	}
	if lose == nil {
		t.Fatal("expected a lose signal on a staked losing round")
	}
	if lose.OutcomeID != "black" {
		t.Fatalf("lose signal should carry the winner, got %+v", lose)
	}
}

func TestNoOutcomeSignalOnUnstakedRound(t *testing.T) {
	session, _ := newTestSession(t, Mode2X, 1000, fixedRNG(0))
	_, ch := session.Subscribe()

	session.drainBettingPhase(t)

	for len(ch) > 0 {
		msg := <-ch
		if msg.Type != "signal" {
			continue
		}
		event := msg.Data.(SignalEvent)
		if event.Type == SignalWin || event.Type == SignalLose {
			t.Fatalf("settling an empty book should stay silent, got %+v", event)
		}
	}
}

func TestTickSignalOnlyInLastSeconds(t *testing.T) {
	session, _ := newTestSession(t, Mode2X, 1000, fixedRNG(0))
	_, ch := session.Subscribe()

	ticksAt := map[int]bool{}
	for i := 0; i < session.roundSeconds; i++ {
		session.onTick()
		timeLeft := session.Snapshot().TimeLeft
		for len(ch) > 0 {
			msg := <-ch
			if msg.Type != "signal" {
				continue
			}
			if msg.Data.(SignalEvent).Type == SignalTick {
				ticksAt[timeLeft] = true
			}
		}
	}

	if len(ticksAt) != lastCallSeconds {
		t.Fatalf("expected tick signals at the last %d seconds, got %v", lastCallSeconds, ticksAt)
	}
	for s := 1; s <= lastCallSeconds; s++ {
		if !ticksAt[s] {
			t.Fatalf("expected a tick signal at timeLeft=%d, got %v", s, ticksAt)
		}
	}
}

func TestRejectionSignals(t *testing.T) {
	session, user := newTestSession(t, Mode2X, 100, fixedRNG(1)) // black wins
	if err := session.Stake("red", 100); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)
	session.onResultDone()
	session.haltClock()

	_, ch := session.Subscribe()
	drainSignals := func() []Signal {
		var out []Signal
		for len(ch) > 0 {
			msg := <-ch
			if msg.Type != "signal" {
				continue
			}
			out = append(out, msg.Data.(SignalEvent).Type)
		}
		return out
	}
	drainSignals()

	// A rejected stake plays the lose cue.
	if err := session.Stake("red", user.Wallet+1); !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	sigs := drainSignals()
	if len(sigs) != 1 || sigs[0] != SignalLose {
		t.Fatalf("rejected stake should emit exactly one lose signal, got %v", sigs)
	}

	// A rejected rebet stays silent.
	user.Wallet = 50 // below the 100 rebet cost
	if err := session.Rebet(); !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if sigs := drainSignals(); len(sigs) != 0 {
		t.Fatalf("rejected rebet should emit no signals, got %v", sigs)
	}

	// So does a rejected double.
	if err := session.Stake("red", 40); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	drainSignals()
	if err := session.DoubleAll(); !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if sigs := drainSignals(); len(sigs) != 0 {
		t.Fatalf("rejected double should emit no signals, got %v", sigs)
	}
}

func TestRoundRecordHook(t *testing.T) {
	mode, _ := ModeByID(Mode2X)
	user := model.NewDefaultUser("Guest1111", 1000)
	user.ID = 7

	var records []RoundRecord
	session := newTableSession(&user, mode, 10, 3, fixedRNG(0), Hooks{
		RecordRound: func(rec RoundRecord) { records = append(records, rec) },
	})

	if err := session.Stake("red", 60); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	session.drainBettingPhase(t)

	if len(records) != 1 {
		t.Fatalf("expected one round record, got %d", len(records))
	}
	rec := records[0]
	if rec.UserID != 7 || rec.Mode != Mode2X || rec.RoundNo != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.WinningOutcome != "red" || rec.TotalStaked != 60 || rec.Payout != 120 || rec.CoinsWon != 60 {
		t.Fatalf("unexpected settlement figures: %+v", rec)
	}
	if rec.Bets["red"] != 60 {
		t.Fatalf("unexpected bets snapshot: %v", rec.Bets)
	}
}
