package game

import (
	"errors"

	"go.uber.org/zap"

	"github.com/optcgsim/match-server-go/internal/catalog"
	"github.com/optcgsim/match-server-go/internal/game/rules"
	"github.com/optcgsim/match-server-go/internal/game/script"
)

// playCharacter pays a character's cost and places it in the character
// area. With a full area the player names an existing character to trash
// first; its attached DON!! go to the rested pool.
func (m *Match) playCharacter(playerID, cardID, trashID string) error {
	p := m.state.player(playerID)
	card := p.handCard(cardID)
	if card == nil {
		return invalidTargetf("card %s is not in the hand of %s", cardID, playerID)
	}
	if card.Def.Type != catalog.TypeCharacter {
		return illegalf("card %s is a %s, not a character", card.CardNumber, card.Def.Type)
	}

	var evict *Slot
	if len(p.Characters) >= MaxCharacters {
		if trashID == "" {
			return illegalf("character area is full; name a character to trash")
		}
		evict = p.slotFor(trashID)
		if evict == nil || evict == p.Leader || evict == p.Stage {
			return invalidTargetf("%s is not a character of %s", trashID, playerID)
		}
	} else if trashID != "" {
		return illegalf("character area is not full; nothing to trash")
	}

	if _, err := m.payDon(p, card.Def.Cost); err != nil {
		return err
	}
	if evict != nil {
		m.leaveField(p, evict, ZoneTrash)
	}

	p.removeFromHand(card)
	inst := newInstance(card.Def)
	slot := newSlot(inst, m.state.Turn.TurnNumber())
	p.Characters = append(p.Characters, slot)

	m.logger.Info("character played",
		zap.String("player", playerID),
		zap.String("card", card.CardNumber),
		zap.Int("cost", card.Def.Cost),
	)
	m.publish(rules.NewEvent(rules.EventCardPlayed, playerID, inst.ID))

	m.enqueueTriggers(playerID, inst, slot, script.TriggerOnPlay)
	return m.drainTriggerQueue()
}

// playEvent pays an event's cost, trashes it, then runs its on-play
// scripts from the trash.
func (m *Match) playEvent(playerID, cardID string) error {
	p := m.state.player(playerID)
	card := p.handCard(cardID)
	if card == nil {
		return invalidTargetf("card %s is not in the hand of %s", cardID, playerID)
	}
	if card.Def.Type != catalog.TypeEvent {
		return illegalf("card %s is a %s, not an event", card.CardNumber, card.Def.Type)
	}

	if _, err := m.payDon(p, card.Def.Cost); err != nil {
		return err
	}
	if _, err := m.moveCard(p, card, ZoneHand, ZoneTrash, false); err != nil {
		return m.corrupt(err)
	}

	m.logger.Info("event played",
		zap.String("player", playerID),
		zap.String("card", card.CardNumber),
	)
	m.publish(rules.NewEvent(rules.EventCardPlayed, playerID, card.ID))

	m.enqueueTriggers(playerID, card, nil, script.TriggerOnPlay)
	return m.drainTriggerQueue()
}

// playStage pays a stage card's cost and places it in the stage slot.
// An occupied stage slot rejects the play.
func (m *Match) playStage(playerID, cardID string) error {
	p := m.state.player(playerID)
	card := p.handCard(cardID)
	if card == nil {
		return invalidTargetf("card %s is not in the hand of %s", cardID, playerID)
	}
	if card.Def.Type != catalog.TypeStage {
		return illegalf("card %s is a %s, not a stage", card.CardNumber, card.Def.Type)
	}
	if p.Stage != nil {
		return illegalf("stage slot is occupied by %s", p.Stage.Instance.CardNumber)
	}

	if _, err := m.payDon(p, card.Def.Cost); err != nil {
		return err
	}

	p.removeFromHand(card)
	inst := newInstance(card.Def)
	slot := newSlot(inst, m.state.Turn.TurnNumber())
	p.Stage = slot

	m.logger.Info("stage played",
		zap.String("player", playerID),
		zap.String("card", card.CardNumber),
	)
	m.publish(rules.NewEvent(rules.EventCardPlayed, playerID, inst.ID))

	m.enqueueTriggers(playerID, inst, slot, script.TriggerOnPlay)
	return m.drainTriggerQueue()
}

// attachDonTo moves active DON!! onto a leader or character slot.
func (m *Match) attachDonTo(playerID, targetID string, count int) error {
	if count <= 0 {
		count = 1
	}
	p := m.state.player(playerID)
	slot := p.slotFor(targetID)
	if slot == nil || slot == p.Stage {
		return invalidTargetf("%s is not a leader or character of %s", targetID, playerID)
	}
	_, err := m.attachDon(p, slot, count)
	return err
}

// detachDonFrom returns attached DON!! from a slot to the active pool.
func (m *Match) detachDonFrom(playerID, targetID string, count int) error {
	if count <= 0 {
		count = 1
	}
	p := m.state.player(playerID)
	slot := p.slotFor(targetID)
	if slot == nil {
		return invalidTargetf("%s is not on the field of %s", targetID, playerID)
	}
	_, err := m.detachDon(p, slot, count)
	return err
}

// activateAbility invokes an activated-ability script on a card in play.
// Conditions are checked before the cost is paid, so a rejected activation
// leaves no trace.
func (m *Match) activateAbility(playerID, cardID string, index int) error {
	p := m.state.player(playerID)
	slot := p.slotFor(cardID)
	if slot == nil {
		return invalidTargetf("%s is not on the field of %s", cardID, playerID)
	}
	scripts := slot.Instance.Def.ScriptsFor(script.TriggerActivated)
	if index < 0 || index >= len(scripts) {
		return invalidTargetf("card %s has no activated ability %d", slot.Instance.CardNumber, index)
	}
	s := scripts[index]

	ctx := &execContext{controller: playerID, source: slot.Instance, sourceSlot: slot}
	for _, cond := range s.Conditions {
		ok, err := m.evalCondition(ctx, cond)
		if err != nil {
			return err
		}
		if !ok {
			return illegalf("activation condition not met for %s", slot.Instance.CardNumber)
		}
	}
	if s.Cost > 0 {
		if _, err := m.payDon(p, s.Cost); err != nil {
			return err
		}
	}

	err := m.runActions(ctx, s.Actions)
	if errors.Is(err, errSuspended) {
		return nil
	}
	if err != nil {
		return err
	}
	m.publish(rules.NewEvent(rules.EventScriptResolved, playerID, slot.Instance.ID))
	return m.drainTriggerQueue()
}

// removeFromHand splices a card out of the hand without an undo record.
// Used on the play path, where the instance identity is retired anyway.
func (p *PlayerState) removeFromHand(card *CardInstance) {
	for i, c := range p.Hand {
		if c.ID == card.ID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return
		}
	}
}
