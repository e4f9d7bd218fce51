package game

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optcgsim/match-server-go/internal/game/rules"
	"github.com/optcgsim/match-server-go/internal/game/script"
	"github.com/optcgsim/match-server-go/internal/game/targeting"
)

// errSuspended signals that script execution stopped for a player
// interaction. The pending selection carries the continuation.
var errSuspended = errors.New("script suspended")

// execContext carries the execution environment of one script.
type execContext struct {
	controller string
	source     *CardInstance
	sourceSlot *Slot // nil when the source is not in play (events, life cards)
	selected   []string

	// recording collects action records during counter staging so the
	// whole script can be reversed on unstage. While recording, actions
	// that cannot be reversed or that would suspend are script errors.
	recording *[]*ActionRecord
}

func (m *Match) record(ctx *execContext, rec *ActionRecord) {
	if ctx.recording != nil && rec != nil {
		*ctx.recording = append(*ctx.recording, rec)
	}
}

// runScript evaluates a script's activation conditions and runs its
// actions. The script's DON cost must already be paid by the caller.
func (m *Match) runScript(ctx *execContext, s script.Script) error {
	for _, cond := range s.Conditions {
		ok, err := m.evalCondition(ctx, cond)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return m.runActions(ctx, s.Actions)
}

// runActions executes actions strictly in declaration order. A failed
// guard skips only its guarded action. Suspension composes: when a nested
// action suspends, the outer remainder is appended to the continuation.
func (m *Match) runActions(ctx *execContext, actions []script.Action) error {
	for i := range actions {
		a := actions[i]
		if a.Guard != nil {
			ok, err := m.evalCondition(ctx, *a.Guard)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}

		err := m.runAction(ctx, a)
		if errors.Is(err, errSuspended) {
			if m.state.Pending != nil {
				m.state.Pending.remaining = append(m.state.Pending.remaining, actions[i+1:]...)
			}
			return err
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Match) runAction(ctx *execContext, a script.Action) error {
	switch a.Kind {
	case script.ActionPowerMod:
		dur := a.Duration
		if dur == "" {
			dur = script.DurationTurn
		}
		for _, ref := range m.resolveTargets(ctx, a.Target) {
			m.record(ctx, m.applyPowerMod(ref.player, ref.slot, a.Amount, dur))
		}
		return nil

	case script.ActionDraw:
		n := a.Amount
		if n <= 0 {
			n = 1
		}
		p := m.state.player(ctx.controller)
		for i := 0; i < n; i++ {
			rec, err := m.drawCard(p)
			if err != nil {
				return nil // drawing from an empty deck resolves as far as possible
			}
			m.record(ctx, rec)
			m.checkTerminal()
			if m.state.Finished {
				return nil
			}
		}
		return nil

	case script.ActionMoveZone:
		if ctx.recording != nil {
			return scriptErrf("MOVE_ZONE is not allowed in counter scripts")
		}
		to := ZoneID(a.ToZone)
		if to == "" {
			to = ZoneTrash
		}
		for _, id := range ctx.selected {
			if err := m.moveSelectedTo(id, to); err != nil {
				return err
			}
		}
		return nil

	case script.ActionAttachDon:
		n := a.Amount
		if n <= 0 {
			n = 1
		}
		for _, ref := range m.resolveTargets(ctx, a.Target) {
			rec, err := m.attachDon(ref.player, ref.slot, n)
			if err != nil {
				continue // not enough active DON: apply as much as possible
			}
			m.record(ctx, rec)
		}
		return nil

	case script.ActionSetKeyword:
		dur := a.Duration
		if dur == "" {
			dur = script.DurationTurn
		}
		for _, ref := range m.resolveTargets(ctx, a.Target) {
			m.record(ctx, m.setKeyword(ref.player, ref.slot, a.Keyword, dur))
		}
		return nil

	case script.ActionSetFlag:
		target := ctx.controller
		if string(a.Target) == string(script.SideOpponent) {
			target = m.state.opponentOf(ctx.controller)
		}
		p := m.state.player(target)
		m.record(ctx, m.setRestriction(p, a.Flag, true))
		return nil

	case script.ActionRestSlot:
		for _, ref := range m.resolveTargets(ctx, a.Target) {
			m.record(ctx, m.restSlot(ref.player, ref.slot))
		}
		return nil

	case script.ActionSubBlock:
		return m.runActions(ctx, a.Actions)

	case script.ActionSelectTargets:
		return m.suspendSelect(ctx, a)

	case script.ActionSearchDeck:
		return m.suspendSearch(ctx, a)
	}
	return scriptErrf("unknown action kind %q", a.Kind)
}

// evalCondition evaluates a predicate against current match state.
func (m *Match) evalCondition(ctx *execContext, c script.Condition) (bool, error) {
	target := ctx.controller
	if c.Side == script.SideOpponent {
		target = m.state.opponentOf(ctx.controller)
	}
	p := m.state.player(target)

	var observed int
	switch c.Kind {
	case script.ConditionDonCount:
		observed = p.Don.InPlay()
	case script.ConditionLifeCount:
		observed = len(p.Life)
	case script.ConditionBoardCount:
		observed = len(p.Characters)
	case script.ConditionRestrictionFlag:
		if p.Restrictions[c.Flag] {
			observed = 1
		}
	default:
		return false, scriptErrf("unknown condition kind %q", c.Kind)
	}

	switch c.Compare {
	case script.CompAtMost:
		return observed <= c.Value, nil
	case script.CompExactly:
		return observed == c.Value, nil
	default: // AT_LEAST
		return observed >= c.Value, nil
	}
}

// slotRef pairs a slot with its owner.
type slotRef struct {
	player *PlayerState
	slot   *Slot
}

// resolveTargets maps a target reference to concrete slots.
func (m *Match) resolveTargets(ctx *execContext, ref script.TargetRef) []slotRef {
	self := m.state.player(ctx.controller)
	opp := m.state.player(m.state.opponentOf(ctx.controller))

	switch ref {
	case script.TargetSelf, "":
		if ctx.sourceSlot != nil {
			return []slotRef{{self, ctx.sourceSlot}}
		}
		return nil
	case script.TargetOwnLeader:
		return []slotRef{{self, self.Leader}}
	case script.TargetOpposingLeader:
		return []slotRef{{opp, opp.Leader}}
	case script.TargetAttacker:
		if b := m.state.Battle; b != nil {
			return []slotRef{{m.state.player(b.AttackerPlayer), b.AttackerSlot}}
		}
		return nil
	case script.TargetDefender:
		if b := m.state.Battle; b != nil {
			return []slotRef{{m.state.player(b.DefenderPlayer), b.TargetSlot}}
		}
		return nil
	case script.TargetSelected:
		var refs []slotRef
		for _, id := range ctx.selected {
			for _, pid := range m.state.Order {
				p := m.state.player(pid)
				if s := p.slotFor(id); s != nil {
					refs = append(refs, slotRef{p, s})
				}
			}
		}
		return refs
	}
	return nil
}

// moveSelectedTo moves a selected instance to a list zone. Field cards
// leave play (identity retired), hand cards move directly.
func (m *Match) moveSelectedTo(id string, to ZoneID) error {
	for _, pid := range m.state.Order {
		p := m.state.player(pid)
		if s := p.slotFor(id); s != nil {
			if s == p.Leader {
				return invalidTargetf("leader cannot leave the field")
			}
			m.leaveField(p, s, to)
			return nil
		}
		if c := p.handCard(id); c != nil {
			_, err := m.moveCard(p, c, ZoneHand, to, false)
			return err
		}
	}
	return invalidTargetf("selected card %s not found", id)
}

// --- Interactive suspension ------------------------------------------------

// suspendSelect computes the legal target set for a selection action and
// suspends execution. When nothing can legally be selected and the minimum
// is zero, the action is skipped instead.
func (m *Match) suspendSelect(ctx *execContext, a script.Action) error {
	candidates := m.candidatesFor(ctx.controller, a.Filter)
	legal := targeting.LegalSet(candidates, a.Filter)
	if len(legal) == 0 {
		return nil // nothing to select: resolve as far as possible
	}
	if ctx.recording != nil {
		return scriptErrf("interactive selection is not allowed in counter scripts")
	}

	ids := make([]string, len(legal))
	for i, c := range legal {
		ids[i] = c.InstanceID
	}
	action := a
	m.state.Pending = &PendingSelection{
		ID:       uuid.NewString(),
		Kind:     PendingSelectTargets,
		PlayerID: ctx.controller,
		SourceID: ctx.source.ID,
		Min:      minInt(a.Min, len(legal)),
		Max:      a.Max,
		LegalIDs: ids,
		action:   &action,
		exec:     ctx,
		legal:    legal,
	}
	m.publish(rules.NewEvent(rules.EventSelectionAsked, ctx.controller, ctx.source.ID))
	return errSuspended
}

// suspendSearch lifts the top N deck cards into view and suspends for a
// selection among those matching the filter. Cards stay in the deck until
// the selection resolves.
func (m *Match) suspendSearch(ctx *execContext, a script.Action) error {
	if ctx.recording != nil {
		return scriptErrf("interactive selection is not allowed in counter scripts")
	}
	p := m.state.player(ctx.controller)
	n := a.Amount
	if n <= 0 || n > len(p.Deck) {
		n = len(p.Deck)
	}
	if n == 0 {
		return nil
	}

	looked := make([]*CardInstance, n)
	copy(looked, p.Deck[:n])

	var candidates []targeting.Candidate
	for _, c := range looked {
		candidates = append(candidates, candidateFromInstance(c))
	}
	legal := targeting.LegalSet(candidates, a.Filter)

	ids := make([]string, len(legal))
	for i, c := range legal {
		ids[i] = c.InstanceID
	}
	action := a
	m.state.Pending = &PendingSelection{
		ID:       uuid.NewString(),
		Kind:     PendingSearchDeck,
		PlayerID: ctx.controller,
		SourceID: ctx.source.ID,
		Min:      minInt(a.Min, len(legal)),
		Max:      a.Max,
		LegalIDs: ids,
		action:   &action,
		exec:     ctx,
		legal:    legal,
		lookedAt: looked,
	}
	m.publish(rules.NewEvent(rules.EventSelectionAsked, ctx.controller, ctx.source.ID))
	return errSuspended
}

// candidatesFor builds the candidate set a filter ranges over.
func (m *Match) candidatesFor(controller string, f *script.Filter) []targeting.Candidate {
	target := controller
	if f != nil && f.Side == script.SideOpponent {
		target = m.state.opponentOf(controller)
	}
	p := m.state.player(target)

	zone := ZoneCharacterArea
	if f != nil && f.Zone != "" {
		zone = ZoneID(f.Zone)
	}

	var out []targeting.Candidate
	switch zone {
	case ZoneCharacterArea:
		for _, s := range p.Characters {
			out = append(out, candidateFromSlot(s))
		}
	case ZoneHand:
		for _, c := range p.Hand {
			out = append(out, candidateFromInstance(c))
		}
	case ZoneTrash:
		for _, c := range p.Trash {
			out = append(out, candidateFromInstance(c))
		}
	}
	return out
}

func candidateFromSlot(s *Slot) targeting.Candidate {
	return targeting.Candidate{
		InstanceID: s.Instance.ID,
		CardNumber: s.Instance.CardNumber,
		Name:       s.Instance.Def.Name,
		Type:       string(s.Instance.Def.Type),
		Cost:       s.Instance.Def.Cost,
		Power:      s.CurrentPower(),
		Rested:     s.Rested,
	}
}

func candidateFromInstance(c *CardInstance) targeting.Candidate {
	return targeting.Candidate{
		InstanceID: c.ID,
		CardNumber: c.CardNumber,
		Name:       c.Def.Name,
		Type:       string(c.Def.Type),
		Cost:       c.Def.Cost,
		Power:      c.Def.Power,
	}
}

// resumeSelection continues a suspended SELECT_TARGETS / SEARCH_DECK after
// the player's choice has been validated.
func (m *Match) resumeSelection(pending *PendingSelection, chosen []string) error {
	ctx := pending.exec

	switch pending.Kind {
	case PendingSelectTargets:
		sub := &execContext{
			controller: ctx.controller,
			source:     ctx.source,
			sourceSlot: ctx.sourceSlot,
			selected:   chosen,
		}
		if err := m.runActions(sub, pending.action.Actions); err != nil {
			// A nested interactive action suspended again. The fresh
			// pending record must inherit this script's remaining
			// actions or they would be lost on the next resume.
			if errors.Is(err, errSuspended) && m.state.Pending != nil {
				m.state.Pending.remaining = append(m.state.Pending.remaining, pending.remaining...)
			}
			return err
		}

	case PendingSearchDeck:
		p := m.state.player(ctx.controller)
		chosenSet := make(map[string]bool, len(chosen))
		for _, id := range chosen {
			chosenSet[id] = true
		}
		// Chosen cards go to hand; the rest of the looked-at cards go to
		// the bottom of the deck in their original order.
		for _, inst := range pending.lookedAt {
			if chosenSet[inst.ID] {
				if _, err := m.moveCard(p, inst, ZoneDeck, ZoneHand, false); err != nil {
					return err
				}
			}
		}
		for _, inst := range pending.lookedAt {
			if !chosenSet[inst.ID] {
				if _, err := m.moveCard(p, inst, ZoneDeck, ZoneDeck, false); err != nil {
					return err
				}
			}
		}
	}

	// Continue the suspended script's remaining actions.
	return m.runActions(ctx, pending.remaining)
}

// --- Trigger queue ---------------------------------------------------------

// enqueueTriggers queues every script of the given trigger kind on a card.
func (m *Match) enqueueTriggers(playerID string, inst *CardInstance, slot *Slot, kind script.TriggerKind) {
	for _, s := range inst.Def.ScriptsFor(kind) {
		m.state.TriggerQueue = append(m.state.TriggerQueue, QueuedTrigger{
			ID:       uuid.NewString(),
			PlayerID: playerID,
			Source:   inst,
			Slot:     slot,
			Script:   s,
		})
	}
}

// enqueueFieldTriggers queues scripts of the given kind for every card a
// player has in play, in board order.
func (m *Match) enqueueFieldTriggers(playerID string, kind script.TriggerKind) {
	p := m.state.player(playerID)
	for _, s := range p.fieldSlots() {
		m.enqueueTriggers(playerID, s.Instance, s, kind)
	}
}

// drainTriggerQueue resolves queued triggers until the queue is empty or a
// player interaction suspends progress. The turn player's triggers all
// resolve before the opponent's begin; a player with several simultaneous
// triggers chooses their order one at a time.
func (m *Match) drainTriggerQueue() error {
	for len(m.state.TriggerQueue) > 0 && m.state.Pending == nil && !m.state.Finished {
		turnPlayer := m.state.Turn.ActivePlayer()

		var idxs []int
		for i, t := range m.state.TriggerQueue {
			if t.PlayerID == turnPlayer {
				idxs = append(idxs, i)
			}
		}
		if len(idxs) == 0 {
			for i := range m.state.TriggerQueue {
				idxs = append(idxs, i)
			}
		}

		owner := m.state.TriggerQueue[idxs[0]].PlayerID
		if len(idxs) > 1 {
			ids := make([]string, len(idxs))
			for i, idx := range idxs {
				ids[i] = m.state.TriggerQueue[idx].ID
			}
			m.state.Pending = &PendingSelection{
				ID:       uuid.NewString(),
				Kind:     PendingTriggerOrder,
				PlayerID: owner,
				Min:      1,
				Max:      1,
				LegalIDs: ids,
			}
			m.publish(rules.NewEvent(rules.EventSelectionAsked, owner, ""))
			return nil
		}

		t := m.takeTrigger(m.state.TriggerQueue[idxs[0]].ID)
		if err := m.fireTrigger(t); err != nil {
			return err
		}
	}

	if len(m.state.TriggerQueue) == 0 && m.state.Pending == nil && !m.state.Finished {
		return m.fireResume()
	}
	return nil
}

// takeTrigger removes a trigger from the queue by ID.
func (m *Match) takeTrigger(id string) QueuedTrigger {
	for i, t := range m.state.TriggerQueue {
		if t.ID == id {
			m.state.TriggerQueue = append(m.state.TriggerQueue[:i], m.state.TriggerQueue[i+1:]...)
			return t
		}
	}
	return QueuedTrigger{}
}

// fireTrigger resolves one queued trigger. Optional triggers suspend for
// an activation choice first. Script errors abort only the script.
func (m *Match) fireTrigger(t QueuedTrigger) error {
	if t.Source == nil {
		return nil
	}
	if t.Script.Optional {
		m.state.Pending = &PendingSelection{
			ID:       uuid.NewString(),
			Kind:     PendingActivation,
			PlayerID: t.PlayerID,
			SourceID: t.Source.ID,
			Min:      1,
			Max:      1,
			LegalIDs: []string{ChoiceActivate, ChoiceSkip},
		}
		m.pendingTrigger = &t
		m.publish(rules.NewEvent(rules.EventSelectionAsked, t.PlayerID, t.Source.ID))
		return nil
	}
	return m.executeTrigger(t)
}

// executeTrigger runs a trigger's script, paying its cost if possible.
func (m *Match) executeTrigger(t QueuedTrigger) error {
	p := m.state.player(t.PlayerID)
	if t.Script.Cost > 0 {
		if _, err := m.payDon(p, t.Script.Cost); err != nil {
			return nil // cannot pay: the trigger fizzles
		}
	}

	ctx := &execContext{controller: t.PlayerID, source: t.Source, sourceSlot: t.Slot}
	err := m.runScript(ctx, t.Script)
	if errors.Is(err, errSuspended) {
		return nil
	}
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.Kind == ErrScriptExecution {
			m.logger.Warn("script aborted",
				zap.String("player", t.PlayerID),
				zap.String("card", t.Source.CardNumber),
				zap.String("reason", cmdErr.Message),
			)
			ev := rules.NewEvent(rules.EventScriptFailed, t.PlayerID, t.Source.ID)
			ev.Data = cmdErr.Message
			m.publish(ev)
			return nil
		}
		return err
	}

	m.publish(rules.NewEvent(rules.EventScriptResolved, t.PlayerID, t.Source.ID))
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
