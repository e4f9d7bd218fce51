package game

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optcgsim/match-server-go/internal/catalog"
	"github.com/optcgsim/match-server-go/internal/game/rules"
	"github.com/optcgsim/match-server-go/internal/game/script"
)

// declareAttack starts a battle. The attacker must be an active leader or
// character of the turn player, the target the opposing leader or a rested
// opposing character. Characters cannot attack the turn they entered play
// unless they have RUSH, and nobody attacks on the game's first turn.
func (m *Match) declareAttack(playerID, attackerID, targetID string) error {
	if m.state.Turn.CurrentPhase() != rules.PhaseMain {
		return illegalf("attacks are declared in the MAIN phase, not %s", m.state.Turn.CurrentPhase())
	}
	if m.state.Battle != nil {
		return illegalf("a battle is already in progress")
	}
	if m.state.Turn.IsFirstTurnFor(playerID) {
		return illegalf("no attacks on a player's first turn")
	}

	p := m.state.player(playerID)
	if p.Restrictions[RestrictionCannotAttack] {
		return illegalf("player %s cannot attack this turn", playerID)
	}

	attacker := p.slotFor(attackerID)
	if attacker == nil || attacker == p.Stage {
		return invalidTargetf("attacker %s is not a leader or character of %s", attackerID, playerID)
	}
	if attacker.Rested {
		return illegalf("attacker %s is rested", attackerID)
	}
	if attacker != p.Leader &&
		attacker.PlayedTurn == m.state.Turn.TurnNumber() &&
		!attacker.HasKeyword(catalog.KeywordRush) {
		return illegalf("character %s entered play this turn and has no RUSH", attackerID)
	}

	oppID := m.state.opponentOf(playerID)
	opp := m.state.player(oppID)
	target := opp.slotFor(targetID)
	if target == nil || target == opp.Stage {
		return invalidTargetf("target %s is not the opposing leader or a character", targetID)
	}
	isLeader := target == opp.Leader
	if !isLeader && !target.Rested {
		return invalidTargetf("character %s is not rested", targetID)
	}

	if err := m.state.Turn.BeginBattle(); err != nil {
		return m.corrupt(err)
	}
	m.restSlot(p, attacker)
	m.state.Battle = &BattleContext{
		Step:           rules.StepAttackDeclared,
		AttackerPlayer: playerID,
		DefenderPlayer: oppID,
		AttackerSlot:   attacker,
		TargetSlot:     target,
		TargetIsLeader: isLeader,
	}

	m.logger.Info("attack declared",
		zap.String("attacker", playerID),
		zap.String("instance", attackerID),
		zap.String("target", targetID),
		zap.Bool("leader", isLeader),
	)
	ev := rules.NewEvent(rules.EventAttackDeclared, playerID, targetID)
	ev.SourceID = attackerID
	m.publish(ev)

	m.enqueueTriggers(playerID, attacker.Instance, attacker, script.TriggerOnAttack)
	m.state.Resume = resumeBlockStep
	return m.drainTriggerQueue()
}

// declareBlocker redirects the attack to one of the defender's characters
// with the BLOCKER keyword. Blocking does not rest the blocker.
func (m *Match) declareBlocker(playerID, blockerID string) error {
	b := m.state.Battle
	if b == nil || b.Step != rules.StepBlock {
		return illegalf("no battle awaiting a block decision")
	}
	if playerID != b.DefenderPlayer {
		return illegalf("only the defender declares blockers")
	}

	p := m.state.player(playerID)
	if p.Restrictions[RestrictionCannotBlock] {
		return illegalf("player %s cannot block this turn", playerID)
	}
	blocker := p.slotFor(blockerID)
	if blocker == nil || blocker == p.Leader || blocker == p.Stage {
		return invalidTargetf("blocker %s is not a character of %s", blockerID, playerID)
	}
	if !blocker.HasKeyword(catalog.KeywordBlocker) {
		return invalidTargetf("character %s has no BLOCKER", blockerID)
	}
	if blocker.Rested {
		return illegalf("blocker %s is rested", blockerID)
	}

	b.TargetSlot = blocker
	b.TargetIsLeader = false
	b.BlockerID = blockerID

	m.logger.Info("blocker declared",
		zap.String("defender", playerID),
		zap.String("instance", blockerID),
	)
	m.publish(rules.NewEvent(rules.EventBlockerDeclared, playerID, blockerID))

	m.enqueueTriggers(playerID, blocker.Instance, blocker, script.TriggerOnBlock)
	m.state.Resume = resumeCounterStep
	return m.drainTriggerQueue()
}

// skipBlocker declines to block and advances to the counter step.
func (m *Match) skipBlocker(playerID string) error {
	b := m.state.Battle
	if b == nil || b.Step != rules.StepBlock {
		return illegalf("no battle awaiting a block decision")
	}
	if playerID != b.DefenderPlayer {
		return illegalf("only the defender skips the block step")
	}
	b.Step = rules.StepCounter
	return nil
}

// stageCounter provisionally applies a counter card from the defender's
// hand. Its power bonus and any counter scripts apply immediately, but the
// card stays in hand and every mutation is recorded so an unstage can
// reverse it exactly.
func (m *Match) stageCounter(playerID, cardID string) error {
	b := m.state.Battle
	if b == nil || b.Step != rules.StepCounter {
		return illegalf("no battle awaiting counters")
	}
	if playerID != b.DefenderPlayer {
		return illegalf("only the defender stages counters")
	}

	p := m.state.player(playerID)
	card := p.handCard(cardID)
	if card == nil {
		return invalidTargetf("card %s is not in the hand of %s", cardID, playerID)
	}
	for _, e := range m.state.StagedCounters {
		if e.Instance.ID == cardID {
			return illegalf("card %s is already staged", cardID)
		}
	}
	counterScripts := card.Def.ScriptsFor(script.TriggerCounter)
	if card.Def.Counter <= 0 && len(counterScripts) == 0 {
		return invalidTargetf("card %s has no counter value or counter effect", card.CardNumber)
	}

	entry := &StagedCounterEntry{Instance: card, PowerBonus: card.Def.Counter}
	fail := func(err error) error {
		if undoErr := m.undoAll(entry.Records); undoErr != nil {
			return m.corrupt(undoErr)
		}
		return err
	}

	if card.Def.Counter > 0 {
		entry.Records = append(entry.Records,
			m.applyPowerMod(p, b.TargetSlot, card.Def.Counter, script.DurationBattle))
	}
	for _, s := range counterScripts {
		if s.Cost > 0 {
			rec, err := m.payDon(p, s.Cost)
			if err != nil {
				return fail(err)
			}
			entry.Records = append(entry.Records, rec)
			entry.DonPaid += s.Cost
		}
		ctx := &execContext{
			controller: playerID,
			source:     card,
			recording:  &entry.Records,
		}
		if err := m.runScript(ctx, s); err != nil {
			if errors.Is(err, errSuspended) {
				err = scriptErrf("counter script on %s tried to suspend", card.CardNumber)
			}
			return fail(err)
		}
	}

	m.state.StagedCounters = append(m.state.StagedCounters, entry)
	m.logger.Debug("counter staged",
		zap.String("player", playerID),
		zap.String("card", card.CardNumber),
		zap.Int("bonus", entry.PowerBonus),
	)
	m.publish(rules.NewEvent(rules.EventCounterStaged, playerID, cardID))
	return nil
}

// unstageCounter reverses the most recently staged counter. Only the top
// of the stage stack can be unstaged; reversal is bit-exact.
func (m *Match) unstageCounter(playerID, cardID string) error {
	b := m.state.Battle
	if b == nil || b.Step != rules.StepCounter {
		return illegalf("no battle awaiting counters")
	}
	if playerID != b.DefenderPlayer {
		return illegalf("only the defender unstages counters")
	}
	n := len(m.state.StagedCounters)
	if n == 0 {
		return illegalf("no counters staged")
	}
	top := m.state.StagedCounters[n-1]
	if top.Instance.ID != cardID {
		return illegalf("only the most recently staged counter can be unstaged")
	}

	if err := m.undoAll(top.Records); err != nil {
		return m.corrupt(err)
	}
	m.state.StagedCounters = m.state.StagedCounters[:n-1]
	m.publish(rules.NewEvent(rules.EventCounterUnstaged, playerID, cardID))
	return nil
}

// confirmCounters commits the staged counters. Staged cards go to the
// trash in stage order and the battle proceeds to damage.
func (m *Match) confirmCounters(playerID string) error {
	b := m.state.Battle
	if b == nil || b.Step != rules.StepCounter {
		return illegalf("no battle awaiting counters")
	}
	if playerID != b.DefenderPlayer {
		return illegalf("only the defender confirms counters")
	}

	p := m.state.player(playerID)
	for _, e := range m.state.StagedCounters {
		if _, err := m.moveCard(p, e.Instance, ZoneHand, ZoneTrash, false); err != nil {
			return m.corrupt(err)
		}
	}
	m.state.StagedCounters = nil
	return m.resolveDamage()
}

// skipCounters declines to counter. Rejected while counters are staged.
func (m *Match) skipCounters(playerID string) error {
	b := m.state.Battle
	if b == nil || b.Step != rules.StepCounter {
		return illegalf("no battle awaiting counters")
	}
	if playerID != b.DefenderPlayer {
		return illegalf("only the defender skips the counter step")
	}
	if len(m.state.StagedCounters) > 0 {
		return illegalf("counters are staged; confirm or unstage them first")
	}
	return m.resolveDamage()
}

// resolveDamage compares final powers and applies the outcome. The attack
// hits when attacker power is at least the target's power.
func (m *Match) resolveDamage() error {
	b := m.state.Battle
	b.Step = rules.StepDamage

	atk := b.AttackerSlot.CurrentPower()
	def := b.TargetSlot.CurrentPower()

	m.logger.Info("damage resolved",
		zap.String("attacker", b.AttackerPlayer),
		zap.Int("attackPower", atk),
		zap.Int("targetPower", def),
		zap.Bool("hit", atk >= def),
	)
	ev := rules.NewEvent(rules.EventBattleResolved, b.AttackerPlayer, b.TargetSlot.Instance.ID)
	ev.SourceID = b.AttackerSlot.Instance.ID
	ev.Amount = atk - def
	m.publish(ev)

	if atk < def {
		return m.beginEndOfBattle()
	}

	if b.TargetIsLeader {
		damage := 1
		if b.AttackerSlot.HasKeyword(catalog.KeywordDoubleAttack) {
			damage++
		}
		b.DamageLeft = damage
		return m.dealLifeDamage()
	}

	defender := m.state.player(b.DefenderPlayer)
	banish := b.AttackerSlot.HasKeyword(catalog.KeywordBanish)
	m.koCharacter(defender, b.TargetSlot, banish)
	return m.beginEndOfBattle()
}

// dealLifeDamage reveals life cards one at a time until the pending damage
// is spent. A revealed card with a life trigger suspends for the owner's
// activation choice before the next card is revealed.
func (m *Match) dealLifeDamage() error {
	b := m.state.Battle
	defender := m.state.player(b.DefenderPlayer)
	if len(defender.Life) == 0 {
		m.finish(b.AttackerPlayer, "opponent has no life remaining")
		return nil
	}

	for b.DamageLeft > 0 {
		if len(defender.Life) == 0 {
			m.finish(b.AttackerPlayer, "opponent has no life remaining")
			return nil
		}

		top := defender.Life[0]
		b.DamageLeft--
		ev := rules.NewEvent(rules.EventLifeTaken, b.DefenderPlayer, top.ID)
		ev.Amount = len(defender.Life) - 1
		m.publish(ev)

		if len(top.Def.ScriptsFor(script.TriggerLife)) > 0 {
			m.state.Pending = &PendingSelection{
				ID:       uuid.NewString(),
				Kind:     PendingLifeTrigger,
				PlayerID: b.DefenderPlayer,
				SourceID: top.ID,
				Min:      1,
				Max:      1,
				LegalIDs: []string{ChoiceActivate, ChoiceTake},
				lifeCard: top,
			}
			m.state.Resume = resumeLifeDamage
			m.publish(rules.NewEvent(rules.EventLifeTrigger, b.DefenderPlayer, top.ID))
			return nil
		}

		if err := m.takeLifeCard(defender, top); err != nil {
			return err
		}
		if m.state.Finished {
			return nil
		}
	}
	return m.beginEndOfBattle()
}

// takeLifeCard moves a dealt life card to the owner's hand, or to the
// trash when an effect forbids life cards going to hand. Losing the last
// life card ends the match.
func (m *Match) takeLifeCard(p *PlayerState, card *CardInstance) error {
	to := ZoneHand
	if p.Restrictions[RestrictionNoLifeToHand] {
		to = ZoneTrash
	}
	if _, err := m.moveCard(p, card, ZoneLife, to, false); err != nil {
		return m.corrupt(err)
	}
	if len(p.Life) == 0 {
		m.finish(m.state.opponentOf(p.ID), "opponent has no life remaining")
	}
	return nil
}

// resolveLifeTrigger applies the owner's choice for a revealed life card.
// ACTIVATE trashes the card and runs its life scripts; TAKE moves it to
// hand (or trash under a restriction).
func (m *Match) resolveLifeTrigger(pending *PendingSelection, choice string) error {
	b := m.state.Battle
	if b == nil {
		return m.corrupt(errors.New("life trigger pending without a battle"))
	}
	defender := m.state.player(pending.PlayerID)
	card := pending.lifeCard

	switch choice {
	case ChoiceTake:
		if err := m.takeLifeCard(defender, card); err != nil {
			return err
		}
	case ChoiceActivate:
		if _, err := m.moveCard(defender, card, ZoneLife, ZoneTrash, false); err != nil {
			return m.corrupt(err)
		}
		if len(defender.Life) == 0 {
			m.finish(b.AttackerPlayer, "opponent has no life remaining")
			return nil
		}
		// The card's life scripts run through the trigger queue, which
		// already survives a suspension in any one of them and asks the
		// owner to order several.
		m.enqueueTriggers(pending.PlayerID, card, nil, script.TriggerLife)
	default:
		return illegalf("life trigger choice must be %s or %s", ChoiceActivate, ChoiceTake)
	}

	if m.state.Finished {
		return nil
	}
	return m.drainTriggerQueue()
}

// koCharacter removes a character from the field. Attached DON!! return to
// the owner's rested pool, a fresh identity of the card is minted into the
// trash (or the banished zone), and its KO scripts are queued.
func (m *Match) koCharacter(p *PlayerState, slot *Slot, banish bool) {
	to := ZoneTrash
	if banish {
		to = ZoneBanished
	}
	fresh := m.leaveField(p, slot, to)

	m.logger.Info("character KO'd",
		zap.String("player", p.ID),
		zap.String("card", fresh.CardNumber),
		zap.Bool("banished", banish),
	)
	m.publish(rules.NewEvent(rules.EventCardKOed, p.ID, fresh.ID))

	if !banish {
		m.enqueueTriggers(p.ID, fresh, nil, script.TriggerOnKO)
	}
}

// leaveField takes a card off the field: attached DON!! go to the owner's
// rested pool, the slot is removed, and a fresh instance identity is
// appended to the destination zone. Modifiers die with the old identity.
func (m *Match) leaveField(p *PlayerState, slot *Slot, to ZoneID) *CardInstance {
	if slot.AttachedDon > 0 {
		p.Don.DetachToRested(slot.AttachedDon)
		slot.AttachedDon = 0
	}

	switch {
	case slot == p.Stage:
		p.Stage = nil
	default:
		for i, s := range p.Characters {
			if s == slot {
				p.Characters = append(p.Characters[:i], p.Characters[i+1:]...)
				break
			}
		}
	}

	fresh := newInstance(slot.Instance.Def)
	list := p.zoneList(to)
	*list = append(*list, fresh)

	ev := rules.NewEvent(rules.EventCardMoved, p.ID, fresh.ID)
	ev.Data = string(to)
	m.publish(ev)
	return fresh
}

// beginEndOfBattle queues end-of-battle scripts and defers cleanup until
// they resolve.
func (m *Match) beginEndOfBattle() error {
	m.state.Battle.Step = rules.StepEndOfBattle
	m.state.Resume = resumeEndOfBattle
	return m.drainTriggerQueue()
}

// cleanupBattle expires battle-scoped modifiers on every slot, discards
// the battle context and returns the turn to the MAIN phase.
func (m *Match) cleanupBattle() error {
	for _, id := range m.state.Order {
		for _, s := range m.state.player(id).fieldSlots() {
			s.expireMods(script.DurationBattle)
		}
	}
	m.state.Battle = nil
	if err := m.state.Turn.EndBattle(); err != nil {
		return m.corrupt(err)
	}
	return nil
}
