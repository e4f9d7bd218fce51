package game

import (
	"go.uber.org/zap"

	"github.com/optcgsim/match-server-go/internal/game/rules"
	"github.com/optcgsim/match-server-go/internal/game/script"
)

// beginTurn runs the automatic REFRESH, DRAW and DON_GAIN phases for the
// new turn player and leaves the match in MAIN. The game's first turn
// skips the draw and gains a single DON!!.
func (m *Match) beginTurn(playerID string) error {
	p := m.state.player(playerID)
	turn := m.state.Turn.TurnNumber()

	// REFRESH: attached DON!! return to the active pool, everything
	// untaps.
	for _, s := range p.fieldSlots() {
		if s.AttachedDon > 0 {
			p.Don.DetachToActive(s.AttachedDon)
			s.AttachedDon = 0
		}
		s.Rested = false
	}
	p.Don.Refresh()
	m.publishPhase(playerID, rules.PhaseRefresh)

	// DRAW.
	m.state.Turn.AdvancePhase(playerID)
	m.publishPhase(playerID, rules.PhaseDraw)
	if turn > 1 {
		if len(p.Deck) == 0 {
			m.finish(m.state.opponentOf(playerID), "deck is empty at draw")
			return nil
		}
		if _, err := m.drawCard(p); err != nil {
			return err
		}
		m.checkTerminal()
		if m.state.Finished {
			return nil
		}
	}

	// DON_GAIN.
	m.state.Turn.AdvancePhase(playerID)
	gain := 2
	if turn == 1 {
		gain = 1
	}
	gained := p.Don.Gain(gain)
	ev := rules.NewEvent(rules.EventDonGained, playerID, "")
	ev.Amount = gained
	m.publish(ev)
	m.publishPhase(playerID, rules.PhaseDonGain)

	// MAIN.
	m.state.Turn.AdvancePhase(playerID)
	m.publishPhase(playerID, rules.PhaseMain)

	m.logger.Info("turn started",
		zap.String("player", playerID),
		zap.Int("turn", turn),
		zap.Int("donGained", gained),
	)
	return nil
}

// endMainPhase moves the turn from MAIN to END and resolves turn-end
// scripts, the turn player's first.
func (m *Match) endMainPhase(playerID string) error {
	if m.state.Turn.CurrentPhase() != rules.PhaseMain {
		return illegalf("the turn is in %s, not MAIN", m.state.Turn.CurrentPhase())
	}
	if m.state.Battle != nil {
		return illegalf("a battle is still in progress")
	}

	m.state.Turn.AdvancePhase(playerID)
	m.publishPhase(playerID, rules.PhaseEnd)

	m.enqueueFieldTriggers(playerID, script.TriggerTurnEnd)
	m.enqueueFieldTriggers(m.state.opponentOf(playerID), script.TriggerTurnEnd)
	m.state.Resume = resumeEndPhase
	return m.drainTriggerQueue()
}

// finishEndPhase expires turn-scoped effects once the end-phase trigger
// queue has drained: the turn player's slots first, then the opponent's,
// then both players' restriction flags.
func (m *Match) finishEndPhase() error {
	active := m.state.Turn.ActivePlayer()
	for _, id := range []string{active, m.state.opponentOf(active)} {
		for _, s := range m.state.player(id).fieldSlots() {
			s.expireMods(script.DurationTurn)
		}
	}
	for _, id := range []string{active, m.state.opponentOf(active)} {
		p := m.state.player(id)
		for flag := range p.Restrictions {
			delete(p.Restrictions, flag)
		}
	}
	return nil
}

// endTurn passes the turn and runs the opponent's automatic phases up to
// their MAIN.
func (m *Match) endTurn(playerID string) error {
	if m.state.Turn.CurrentPhase() != rules.PhaseEnd {
		return illegalf("the turn is in %s, not END", m.state.Turn.CurrentPhase())
	}

	m.publish(rules.NewEvent(rules.EventTurnEnded, playerID, ""))
	next := m.state.opponentOf(playerID)
	m.state.Turn.AdvancePhase(next)
	return m.beginTurn(next)
}

// fireResume continues whatever flow was waiting on the trigger queue and
// pending interactions to drain.
func (m *Match) fireResume() error {
	r := m.state.Resume
	m.state.Resume = resumeNone

	switch r {
	case resumeBlockStep:
		if m.state.Battle != nil {
			m.state.Battle.Step = rules.StepBlock
		}
		return nil
	case resumeCounterStep:
		if m.state.Battle != nil {
			m.state.Battle.Step = rules.StepCounter
		}
		return nil
	case resumeEndOfBattle:
		if m.state.Battle == nil {
			return nil
		}
		active := m.state.Turn.ActivePlayer()
		m.enqueueFieldTriggers(active, script.TriggerEndOfBattle)
		m.enqueueFieldTriggers(m.state.opponentOf(active), script.TriggerEndOfBattle)
		m.state.Resume = resumeBattleCleanup
		return m.drainTriggerQueue()
	case resumeBattleCleanup:
		if m.state.Battle == nil {
			return nil
		}
		return m.cleanupBattle()
	case resumeLifeDamage:
		if m.state.Battle == nil {
			return nil
		}
		return m.dealLifeDamage()
	case resumeEndPhase:
		return m.finishEndPhase()
	}
	return nil
}

func (m *Match) publishPhase(playerID string, phase rules.Phase) {
	ev := rules.NewEvent(rules.EventPhaseChanged, playerID, "")
	ev.Data = phase.String()
	m.publish(ev)
}
