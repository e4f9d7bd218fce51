package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/optcgsim/match-server-go/internal/game/rules"
	"github.com/optcgsim/match-server-go/internal/game/script"
)

// ActionRecordKind identifies which primitive produced a record.
type ActionRecordKind string

const (
	recordPowerMod    ActionRecordKind = "POWER_MOD"
	recordAttachDon   ActionRecordKind = "ATTACH_DON"
	recordDetachDon   ActionRecordKind = "DETACH_DON"
	recordPayDon      ActionRecordKind = "PAY_DON"
	recordKeyword     ActionRecordKind = "KEYWORD"
	recordRestriction ActionRecordKind = "RESTRICTION"
	recordMoveCard    ActionRecordKind = "MOVE_CARD"
	recordRestSlot    ActionRecordKind = "REST_SLOT"
)

// ActionRecord captures one applied mutation together with the previous
// values needed to reverse it exactly. Records are undone strictly in
// reverse order of application.
type ActionRecord struct {
	Kind     ActionRecordKind
	PlayerID string

	slot     *Slot
	delta    int
	duration script.Duration

	keyword     string
	prevGranted bool
	prevExpiry  script.Duration

	flag     string
	prevFlag bool

	donCount int

	instance  *CardInstance
	fromZone  ZoneID
	fromIndex int
	toZone    ZoneID

	prevRested bool
}

// --- Action DSL primitives -------------------------------------------------
//
// These are the only functions that mutate board state. Every primitive
// validates its inputs, appends a structured log entry, publishes a match
// event, and returns a record sufficient to reverse the mutation.

// applyPowerMod adds a temporary power delta to a slot.
func (m *Match) applyPowerMod(p *PlayerState, slot *Slot, delta int, dur script.Duration) *ActionRecord {
	slot.Mods = append(slot.Mods, PowerMod{Delta: delta, Duration: dur})

	m.logger.Debug("power modified",
		zap.String("player", p.ID),
		zap.String("instance", slot.Instance.ID),
		zap.Int("delta", delta),
		zap.String("duration", string(dur)),
		zap.Int("power", slot.CurrentPower()),
	)
	ev := rules.NewEvent(rules.EventPowerChanged, p.ID, slot.Instance.ID)
	ev.Amount = delta
	m.publish(ev)

	return &ActionRecord{Kind: recordPowerMod, PlayerID: p.ID, slot: slot, delta: delta, duration: dur}
}

// attachDon moves n DON!! from the player's active pool onto a slot.
func (m *Match) attachDon(p *PlayerState, slot *Slot, n int) (*ActionRecord, error) {
	if n <= 0 {
		return nil, insufficientf("attach count must be positive, got %d", n)
	}
	if !p.Don.Attach(n) {
		return nil, insufficientf("player %s has %d active DON, needs %d", p.ID, p.Don.Active, n)
	}
	slot.AttachedDon += n

	m.logger.Debug("DON attached",
		zap.String("player", p.ID),
		zap.String("instance", slot.Instance.ID),
		zap.Int("count", n),
	)
	ev := rules.NewEvent(rules.EventDonAttached, p.ID, slot.Instance.ID)
	ev.Amount = n
	m.publish(ev)

	return &ActionRecord{Kind: recordAttachDon, PlayerID: p.ID, slot: slot, donCount: n}, nil
}

// detachDon returns n DON!! from a slot to the player's active pool.
func (m *Match) detachDon(p *PlayerState, slot *Slot, n int) (*ActionRecord, error) {
	if n <= 0 || n > slot.AttachedDon {
		return nil, insufficientf("slot %s has %d attached DON, cannot detach %d", slot.Instance.ID, slot.AttachedDon, n)
	}
	if !p.Don.DetachToActive(n) {
		return nil, corruptionf("DON pool rejects detach of %d for %s", n, p.ID)
	}
	slot.AttachedDon -= n

	m.logger.Debug("DON detached",
		zap.String("player", p.ID),
		zap.String("instance", slot.Instance.ID),
		zap.Int("count", n),
	)
	ev := rules.NewEvent(rules.EventDonDetached, p.ID, slot.Instance.ID)
	ev.Amount = n
	m.publish(ev)

	return &ActionRecord{Kind: recordDetachDon, PlayerID: p.ID, slot: slot, donCount: n}, nil
}

// payDon rests n active DON!! to pay a cost.
func (m *Match) payDon(p *PlayerState, n int) (*ActionRecord, error) {
	if n == 0 {
		return &ActionRecord{Kind: recordPayDon, PlayerID: p.ID, donCount: 0}, nil
	}
	if !p.Don.Pay(n) {
		return nil, insufficientf("player %s has %d active DON, cost is %d", p.ID, p.Don.Active, n)
	}

	m.logger.Debug("cost paid",
		zap.String("player", p.ID),
		zap.Int("don", n),
	)
	ev := rules.NewEvent(rules.EventDonPaid, p.ID, "")
	ev.Amount = n
	m.publish(ev)

	return &ActionRecord{Kind: recordPayDon, PlayerID: p.ID, donCount: n}, nil
}

// setKeyword grants a keyword flag on a slot with an expiry scope.
func (m *Match) setKeyword(p *PlayerState, slot *Slot, keyword string, dur script.Duration) *ActionRecord {
	prev, granted := slot.Keywords[keyword]
	slot.Keywords[keyword] = dur

	m.logger.Debug("keyword set",
		zap.String("player", p.ID),
		zap.String("instance", slot.Instance.ID),
		zap.String("keyword", keyword),
		zap.String("duration", string(dur)),
	)
	ev := rules.NewEvent(rules.EventKeywordChanged, p.ID, slot.Instance.ID)
	ev.Data = keyword
	m.publish(ev)

	return &ActionRecord{
		Kind: recordKeyword, PlayerID: p.ID, slot: slot,
		keyword: keyword, prevGranted: granted, prevExpiry: prev,
	}
}

// setRestriction toggles an effect-restriction flag on a player.
func (m *Match) setRestriction(p *PlayerState, flag string, on bool) *ActionRecord {
	prev := p.Restrictions[flag]
	if on {
		p.Restrictions[flag] = true
	} else {
		delete(p.Restrictions, flag)
	}

	m.logger.Debug("restriction toggled",
		zap.String("player", p.ID),
		zap.String("flag", flag),
		zap.Bool("on", on),
	)
	ev := rules.NewEvent(rules.EventFlagChanged, p.ID, "")
	ev.Data = flag
	m.publish(ev)

	return &ActionRecord{Kind: recordRestriction, PlayerID: p.ID, flag: flag, prevFlag: prev}
}

// restSlot rests a slot (or leaves it rested).
func (m *Match) restSlot(p *PlayerState, slot *Slot) *ActionRecord {
	rec := &ActionRecord{Kind: recordRestSlot, PlayerID: p.ID, slot: slot, prevRested: slot.Rested}
	slot.Rested = true

	m.logger.Debug("slot rested",
		zap.String("player", p.ID),
		zap.String("instance", slot.Instance.ID),
	)
	return rec
}

// moveCard moves a card instance between the ordered list zones (deck,
// hand, trash, life, banished). Field transitions are handled by the
// placement and KO paths, which mint or retire instance identities.
func (m *Match) moveCard(p *PlayerState, inst *CardInstance, from, to ZoneID, toTop bool) (*ActionRecord, error) {
	if from.inPlay() || to.inPlay() {
		return nil, corruptionf("moveCard cannot cross the play boundary (%s -> %s)", from, to)
	}

	list := p.zoneList(from)
	idx := -1
	for i, c := range *list {
		if c.ID == inst.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, invalidTargetf("card %s not in %s of %s", inst.ID, from, p.ID)
	}
	*list = append((*list)[:idx], (*list)[idx+1:]...)

	dest := p.zoneList(to)
	if toTop {
		*dest = append([]*CardInstance{inst}, *dest...)
	} else {
		*dest = append(*dest, inst)
	}

	m.logger.Debug("card moved",
		zap.String("player", p.ID),
		zap.String("instance", inst.ID),
		zap.String("card", inst.CardNumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	ev := rules.NewEvent(rules.EventCardMoved, p.ID, inst.ID)
	ev.Data = fmt.Sprintf("%s->%s", from, to)
	m.publish(ev)

	return &ActionRecord{
		Kind: recordMoveCard, PlayerID: p.ID,
		instance: inst, fromZone: from, fromIndex: idx, toZone: to,
	}, nil
}

// drawCard moves the top deck card to hand. Deck-out is terminal and is
// checked by the caller via checkTerminal.
func (m *Match) drawCard(p *PlayerState) (*ActionRecord, error) {
	if len(p.Deck) == 0 {
		return nil, illegalf("player %s has no cards left to draw", p.ID)
	}
	top := p.Deck[0]
	rec, err := m.moveCard(p, top, ZoneDeck, ZoneHand, false)
	if err != nil {
		return nil, err
	}
	m.publish(rules.NewEvent(rules.EventCardDrawn, p.ID, ""))
	return rec, nil
}

// zoneList maps a list zone to its backing slice.
func (p *PlayerState) zoneList(z ZoneID) *[]*CardInstance {
	switch z {
	case ZoneDeck:
		return &p.Deck
	case ZoneHand:
		return &p.Hand
	case ZoneTrash:
		return &p.Trash
	case ZoneLife:
		return &p.Life
	case ZoneBanished:
		return &p.Banished
	}
	return nil
}

// undo reverses a single action record. Records must be undone in reverse
// order of application; the counter-unstage path depends on this being an
// exact inverse.
func (m *Match) undo(rec *ActionRecord) error {
	p := m.state.player(rec.PlayerID)
	if p == nil {
		return corruptionf("undo: unknown player %s", rec.PlayerID)
	}

	switch rec.Kind {
	case recordPowerMod:
		mods := rec.slot.Mods
		for i := len(mods) - 1; i >= 0; i-- {
			if mods[i].Delta == rec.delta && mods[i].Duration == rec.duration {
				rec.slot.Mods = append(mods[:i], mods[i+1:]...)
				return nil
			}
		}
		return corruptionf("undo: power mod %+d not found on %s", rec.delta, rec.slot.Instance.ID)

	case recordAttachDon:
		if rec.slot.AttachedDon < rec.donCount || !p.Don.DetachToActive(rec.donCount) {
			return corruptionf("undo: cannot detach %d DON from %s", rec.donCount, rec.slot.Instance.ID)
		}
		rec.slot.AttachedDon -= rec.donCount
		return nil

	case recordDetachDon:
		if !p.Don.Attach(rec.donCount) {
			return corruptionf("undo: cannot re-attach %d DON for %s", rec.donCount, p.ID)
		}
		rec.slot.AttachedDon += rec.donCount
		return nil

	case recordPayDon:
		if rec.donCount == 0 {
			return nil
		}
		if !p.Don.Refund(rec.donCount) {
			return corruptionf("undo: cannot refund %d DON for %s", rec.donCount, p.ID)
		}
		return nil

	case recordKeyword:
		if rec.prevGranted {
			rec.slot.Keywords[rec.keyword] = rec.prevExpiry
		} else {
			delete(rec.slot.Keywords, rec.keyword)
		}
		return nil

	case recordRestriction:
		if rec.prevFlag {
			p.Restrictions[rec.flag] = true
		} else {
			delete(p.Restrictions, rec.flag)
		}
		return nil

	case recordRestSlot:
		rec.slot.Rested = rec.prevRested
		return nil

	case recordMoveCard:
		dest := p.zoneList(rec.toZone)
		idx := -1
		for i, c := range *dest {
			if c.ID == rec.instance.ID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return corruptionf("undo: card %s not in %s", rec.instance.ID, rec.toZone)
		}
		*dest = append((*dest)[:idx], (*dest)[idx+1:]...)

		src := p.zoneList(rec.fromZone)
		if rec.fromIndex > len(*src) {
			return corruptionf("undo: index %d out of range for %s", rec.fromIndex, rec.fromZone)
		}
		*src = append(*src, nil)
		copy((*src)[rec.fromIndex+1:], (*src)[rec.fromIndex:])
		(*src)[rec.fromIndex] = rec.instance
		return nil
	}
	return corruptionf("undo: unknown record kind %s", rec.Kind)
}

// undoAll reverses a record list in reverse order.
func (m *Match) undoAll(records []*ActionRecord) error {
	for i := len(records) - 1; i >= 0; i-- {
		if err := m.undo(records[i]); err != nil {
			return err
		}
	}
	return nil
}
