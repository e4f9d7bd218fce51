package game

// View projections are per-viewer: hidden zones (either hand, either life
// stack, both deck orders) redact to counts unless the viewer owns the
// zone, and life contents stay hidden even from their owner.

// CardView is a revealed card.
type CardView struct {
	InstanceID string `json:"instanceId"`
	CardNumber string `json:"cardNumber"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Cost       int    `json:"cost"`
	Power      int    `json:"power"`
	Counter    int    `json:"counter"`
}

// SlotView is a card in play with its live state.
type SlotView struct {
	InstanceID  string   `json:"instanceId"`
	CardNumber  string   `json:"cardNumber"`
	Name        string   `json:"name"`
	Power       int      `json:"power"`
	Rested      bool     `json:"rested"`
	AttachedDon int      `json:"attachedDon"`
	Keywords    []string `json:"keywords,omitempty"`
}

// DonView is a player's DON!! accounting.
type DonView struct {
	Deck     int `json:"deck"`
	Active   int `json:"active"`
	Rested   int `json:"rested"`
	Attached int `json:"attached"`
}

// PlayerView is one side of the board as a given viewer may see it.
type PlayerView struct {
	ID           string     `json:"id"`
	Leader       *SlotView  `json:"leader"`
	Characters   []SlotView `json:"characters"`
	Stage        *SlotView  `json:"stage,omitempty"`
	Hand         []CardView `json:"hand,omitempty"`
	HandCount    int        `json:"handCount"`
	DeckCount    int        `json:"deckCount"`
	LifeCount    int        `json:"lifeCount"`
	Trash        []CardView `json:"trash"`
	Banished     []CardView `json:"banished,omitempty"`
	Don          DonView    `json:"don"`
	Restrictions []string   `json:"restrictions,omitempty"`
}

// BattleView is the public state of an in-progress battle.
type BattleView struct {
	Step           string     `json:"step"`
	AttackerID     string     `json:"attackerId"`
	TargetID       string     `json:"targetId"`
	TargetIsLeader bool       `json:"targetIsLeader"`
	AttackerPower  int        `json:"attackerPower"`
	TargetPower    int        `json:"targetPower"`
	StagedCounters []CardView `json:"stagedCounters,omitempty"`
}

// PendingView describes a suspended interaction. The legal choice set is
// disclosed only to the player who must answer.
type PendingView struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	PlayerID string   `json:"playerId"`
	SourceID string   `json:"sourceId,omitempty"`
	Min      int      `json:"min"`
	Max      int      `json:"max"`
	LegalIDs []string `json:"legalIds,omitempty"`
}

// Snapshot is a complete per-viewer projection of match state.
type Snapshot struct {
	MatchID      string       `json:"matchId"`
	ViewerID     string       `json:"viewerId"`
	TurnNumber   int          `json:"turnNumber"`
	Phase        string       `json:"phase"`
	ActivePlayer string       `json:"activePlayer"`
	You          PlayerView   `json:"you"`
	Opponent     PlayerView   `json:"opponent"`
	Battle       *BattleView  `json:"battle,omitempty"`
	Pending      *PendingView `json:"pending,omitempty"`
	Finished     bool         `json:"finished"`
	Winner       string       `json:"winner,omitempty"`
}

// Snapshot projects the match for one viewer.
func (m *Match) Snapshot(viewerID string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state
	oppID := st.opponentOf(viewerID)

	snap := Snapshot{
		MatchID:      st.ID,
		ViewerID:     viewerID,
		TurnNumber:   st.Turn.TurnNumber(),
		Phase:        st.Turn.CurrentPhase().String(),
		ActivePlayer: st.Turn.ActivePlayer(),
		You:          projectPlayer(st.player(viewerID), true),
		Opponent:     projectPlayer(st.player(oppID), false),
		Finished:     st.Finished,
		Winner:       st.Winner,
	}

	if b := st.Battle; b != nil {
		bv := &BattleView{
			Step:           b.Step.String(),
			AttackerID:     b.AttackerSlot.Instance.ID,
			TargetID:       b.TargetSlot.Instance.ID,
			TargetIsLeader: b.TargetIsLeader,
			AttackerPower:  b.AttackerSlot.CurrentPower(),
			TargetPower:    b.TargetSlot.CurrentPower(),
		}
		for _, e := range st.StagedCounters {
			bv.StagedCounters = append(bv.StagedCounters, cardView(e.Instance))
		}
		snap.Battle = bv
	}

	if p := st.Pending; p != nil {
		pv := &PendingView{
			ID:       p.ID,
			Kind:     string(p.Kind),
			PlayerID: p.PlayerID,
			SourceID: p.SourceID,
			Min:      p.Min,
			Max:      p.Max,
		}
		if p.PlayerID == viewerID {
			pv.LegalIDs = append([]string(nil), p.LegalIDs...)
		}
		snap.Pending = pv
	}
	return snap
}

func projectPlayer(p *PlayerState, owner bool) PlayerView {
	v := PlayerView{
		ID:        p.ID,
		HandCount: len(p.Hand),
		DeckCount: len(p.Deck),
		LifeCount: len(p.Life),
		Don: DonView{
			Deck:     p.Don.Deck,
			Active:   p.Don.Active,
			Rested:   p.Don.Rested,
			Attached: p.Don.Attached,
		},
	}
	if p.Leader != nil {
		lv := slotView(p.Leader)
		v.Leader = &lv
	}
	for _, s := range p.Characters {
		v.Characters = append(v.Characters, slotView(s))
	}
	if p.Stage != nil {
		sv := slotView(p.Stage)
		v.Stage = &sv
	}
	if owner {
		for _, c := range p.Hand {
			v.Hand = append(v.Hand, cardView(c))
		}
	}
	for _, c := range p.Trash {
		v.Trash = append(v.Trash, cardView(c))
	}
	for _, c := range p.Banished {
		v.Banished = append(v.Banished, cardView(c))
	}
	for flag := range p.Restrictions {
		v.Restrictions = append(v.Restrictions, flag)
	}
	return v
}

func slotView(s *Slot) SlotView {
	v := SlotView{
		InstanceID:  s.Instance.ID,
		CardNumber:  s.Instance.CardNumber,
		Name:        s.Instance.Def.Name,
		Power:       s.CurrentPower(),
		Rested:      s.Rested,
		AttachedDon: s.AttachedDon,
	}
	for _, kw := range s.Instance.Def.Keywords {
		v.Keywords = append(v.Keywords, kw)
	}
	for kw := range s.Keywords {
		if !s.Instance.Def.HasKeyword(kw) {
			v.Keywords = append(v.Keywords, kw)
		}
	}
	return v
}

func cardView(c *CardInstance) CardView {
	return CardView{
		InstanceID: c.ID,
		CardNumber: c.CardNumber,
		Name:       c.Def.Name,
		Type:       string(c.Def.Type),
		Cost:       c.Def.Cost,
		Power:      c.Def.Power,
		Counter:    c.Def.Counter,
	}
}
