package game

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optcgsim/match-server-go/internal/catalog"
	"github.com/optcgsim/match-server-go/internal/game/don"
	"github.com/optcgsim/match-server-go/internal/game/rules"
	"github.com/optcgsim/match-server-go/internal/game/targeting"
)

// CommandType enumerates the closed command surface of a match.
type CommandType string

const (
	CmdPlayCharacter    CommandType = "PLAY_CHARACTER"
	CmdPlayEvent        CommandType = "PLAY_EVENT"
	CmdPlayStage        CommandType = "PLAY_STAGE"
	CmdAttachDon        CommandType = "ATTACH_DON"
	CmdDetachDon        CommandType = "DETACH_DON"
	CmdActivateAbility  CommandType = "ACTIVATE_ABILITY"
	CmdDeclareAttack    CommandType = "DECLARE_ATTACK"
	CmdDeclareBlocker   CommandType = "DECLARE_BLOCKER"
	CmdSkipBlocker      CommandType = "SKIP_BLOCKER"
	CmdStageCounter     CommandType = "STAGE_COUNTER"
	CmdUnstageCounter   CommandType = "UNSTAGE_COUNTER"
	CmdConfirmCounter   CommandType = "CONFIRM_COUNTER"
	CmdSkipCounter      CommandType = "SKIP_COUNTER"
	CmdResolveSelection CommandType = "RESOLVE_SELECTION"
	CmdEndMainPhase     CommandType = "END_MAIN_PHASE"
	CmdEndTurn          CommandType = "END_TURN"
)

// Command is one player action submitted to a match.
type Command struct {
	Type         CommandType `json:"type"`
	PlayerID     string      `json:"playerId"`
	CardID       string      `json:"cardId,omitempty"`
	TargetID     string      `json:"targetId,omitempty"`
	TrashID      string      `json:"trashId,omitempty"`
	Count        int         `json:"count,omitempty"`
	AbilityIndex int         `json:"abilityIndex,omitempty"`
	SelectionID  string      `json:"selectionId,omitempty"`
	Chosen       []string    `json:"chosen,omitempty"`
}

// Result reports whether a command applied and carries the public events
// it produced.
type Result struct {
	Success bool          `json:"success"`
	Reason  ErrorKind     `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
	Events  []rules.Event `json:"events"`
}

// PlayerConfig describes one side of a match: a leader card number and a
// deck of exactly DeckSize card numbers.
type PlayerConfig struct {
	ID     string   `json:"id"`
	Leader string   `json:"leader"`
	Deck   []string `json:"deck"`
}

// MatchConfig describes a match to create. The first player listed takes
// the first turn.
type MatchConfig struct {
	ID      string
	Players [2]PlayerConfig
	Seed    int64
}

// Match runs one game between two players. All commands are serialized on
// the match mutex; scripts and triggers run to quiescence (or to a pending
// player interaction) before a command returns.
type Match struct {
	mu      sync.Mutex
	state   *MatchState
	catalog catalog.Catalog
	rng     RandomSource
	logger  *zap.Logger
	bus     *rules.EventBus

	// collected accumulates events published while the current command
	// executes, for the command result.
	collected []rules.Event

	// pendingTrigger is the optional trigger awaiting its activation
	// choice while Pending is a PendingActivation.
	pendingTrigger *QueuedTrigger
}

// NewMatch validates both decks against the catalog and deals the opening
// state: shuffled deck, life cards from the top equal to the leader's life
// value, and an opening hand of InitialHand cards.
func NewMatch(cfg MatchConfig, cat catalog.Catalog, logger *zap.Logger) (*Match, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Players[0].ID == "" || cfg.Players[1].ID == "" || cfg.Players[0].ID == cfg.Players[1].ID {
		return nil, fmt.Errorf("match %s: two distinct player IDs required", cfg.ID)
	}

	m := &Match{
		catalog: cat,
		rng:     NewSeededSource(cfg.Seed),
		logger:  logger.With(zap.String("matchId", cfg.ID)),
		bus:     rules.NewEventBus(),
	}

	st := &MatchState{
		ID:      cfg.ID,
		Players: make(map[string]*PlayerState, 2),
		Order:   [2]string{cfg.Players[0].ID, cfg.Players[1].ID},
	}
	for _, pc := range cfg.Players {
		ps, err := m.buildPlayer(pc)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", cfg.ID, err)
		}
		st.Players[pc.ID] = ps
	}
	st.Turn = rules.NewTurnManager(cfg.Players[0].ID)
	m.state = st

	if err := st.checkInvariants(); err != nil {
		return nil, fmt.Errorf("match %s: %w", cfg.ID, err)
	}

	// The first turn's automatic phases run immediately; the match is
	// ready for MAIN-phase commands as soon as it exists.
	if err := m.beginTurn(cfg.Players[0].ID); err != nil {
		return nil, fmt.Errorf("match %s: %w", cfg.ID, err)
	}
	m.collected = nil

	m.logger.Info("match created",
		zap.String("player1", cfg.Players[0].ID),
		zap.String("player2", cfg.Players[1].ID),
		zap.Int64("seed", cfg.Seed),
	)
	return m, nil
}

// buildPlayer resolves a player config into dealt state.
func (m *Match) buildPlayer(pc PlayerConfig) (*PlayerState, error) {
	leaderDef, err := m.catalog.GetDefinition(pc.Leader)
	if err != nil {
		return nil, fmt.Errorf("player %s leader: %w", pc.ID, err)
	}
	if leaderDef.Type != catalog.TypeLeader {
		return nil, fmt.Errorf("player %s: %s is not a leader", pc.ID, pc.Leader)
	}
	if leaderDef.Life <= 0 {
		return nil, fmt.Errorf("player %s: leader %s has no life value", pc.ID, pc.Leader)
	}
	if len(pc.Deck) != DeckSize {
		return nil, fmt.Errorf("player %s: deck has %d cards, want %d", pc.ID, len(pc.Deck), DeckSize)
	}

	deck := make([]*CardInstance, 0, DeckSize)
	for _, number := range pc.Deck {
		def, err := m.catalog.GetDefinition(number)
		if err != nil {
			return nil, fmt.Errorf("player %s deck: %w", pc.ID, err)
		}
		if def.Type == catalog.TypeLeader {
			return nil, fmt.Errorf("player %s: leader %s cannot be in the deck", pc.ID, number)
		}
		deck = append(deck, newInstance(def))
	}
	m.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	p := &PlayerState{
		ID:           pc.ID,
		Leader:       newSlot(newInstance(leaderDef), 0),
		Deck:         deck,
		Don:          don.NewPool(),
		Restrictions: make(map[string]bool),
	}

	// Life comes off the top of the shuffled deck, face down, then the
	// opening hand.
	p.Life = append(p.Life, p.Deck[:leaderDef.Life]...)
	p.Deck = p.Deck[leaderDef.Life:]
	p.Hand = append(p.Hand, p.Deck[:InitialHand]...)
	p.Deck = p.Deck[InitialHand:]
	return p, nil
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.state.ID }

// Bus exposes the match event bus for transport subscriptions.
func (m *Match) Bus() *rules.EventBus { return m.bus }

// publish records an event for the current command's result and fans it
// out on the bus.
func (m *Match) publish(ev rules.Event) {
	m.collected = append(m.collected, ev)
	m.bus.Publish(ev)
}

// Execute applies one command. Commands are fully serialized; the returned
// result carries every public event the command produced.
func (m *Match) Execute(cmd Command) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collected = nil
	err := m.dispatch(cmd)
	events := m.collected

	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			if cmdErr.Kind == ErrStateCorruption {
				m.markCorrupted(cmdErr)
			}
			return Result{Reason: cmdErr.Kind, Message: cmdErr.Message, Events: events}
		}
		m.markCorrupted(err)
		return Result{Reason: ErrStateCorruption, Message: err.Error(), Events: m.collected}
	}

	if !m.state.Corrupted {
		if invErr := m.state.checkInvariants(); invErr != nil {
			m.markCorrupted(invErr)
			return Result{Reason: ErrStateCorruption, Message: invErr.Error(), Events: m.collected}
		}
	}
	return Result{Success: true, Events: events}
}

// dispatch routes a command after the global legality gates.
func (m *Match) dispatch(cmd Command) error {
	if m.state.Corrupted {
		return corruptionf("match %s is aborted", m.state.ID)
	}
	if m.state.Finished {
		return illegalf("match %s is over", m.state.ID)
	}
	if p := m.state.player(cmd.PlayerID); p == nil {
		return illegalf("unknown player %s", cmd.PlayerID)
	}

	if m.state.Pending != nil {
		if cmd.Type != CmdResolveSelection {
			return illegalf("a selection is pending for %s", m.state.Pending.PlayerID)
		}
		return m.resolveSelection(cmd)
	}
	if cmd.Type == CmdResolveSelection {
		return illegalf("no selection is pending")
	}

	switch cmd.Type {
	case CmdPlayCharacter, CmdPlayEvent, CmdPlayStage,
		CmdAttachDon, CmdDetachDon, CmdActivateAbility,
		CmdDeclareAttack, CmdEndMainPhase, CmdEndTurn:
		if cmd.PlayerID != m.state.Turn.ActivePlayer() {
			return illegalf("it is not the turn of %s", cmd.PlayerID)
		}
	}

	switch cmd.Type {
	case CmdPlayCharacter, CmdPlayEvent, CmdPlayStage, CmdAttachDon, CmdDetachDon, CmdActivateAbility:
		if m.state.Turn.CurrentPhase() != rules.PhaseMain {
			return illegalf("%s is only legal in the MAIN phase", cmd.Type)
		}
	}

	switch cmd.Type {
	case CmdPlayCharacter:
		return m.playCharacter(cmd.PlayerID, cmd.CardID, cmd.TrashID)
	case CmdPlayEvent:
		return m.playEvent(cmd.PlayerID, cmd.CardID)
	case CmdPlayStage:
		return m.playStage(cmd.PlayerID, cmd.CardID)
	case CmdAttachDon:
		return m.attachDonTo(cmd.PlayerID, cmd.TargetID, cmd.Count)
	case CmdDetachDon:
		return m.detachDonFrom(cmd.PlayerID, cmd.TargetID, cmd.Count)
	case CmdActivateAbility:
		return m.activateAbility(cmd.PlayerID, cmd.CardID, cmd.AbilityIndex)
	case CmdDeclareAttack:
		return m.declareAttack(cmd.PlayerID, cmd.CardID, cmd.TargetID)
	case CmdDeclareBlocker:
		return m.declareBlocker(cmd.PlayerID, cmd.CardID)
	case CmdSkipBlocker:
		return m.skipBlocker(cmd.PlayerID)
	case CmdStageCounter:
		return m.stageCounter(cmd.PlayerID, cmd.CardID)
	case CmdUnstageCounter:
		return m.unstageCounter(cmd.PlayerID, cmd.CardID)
	case CmdConfirmCounter:
		return m.confirmCounters(cmd.PlayerID)
	case CmdSkipCounter:
		return m.skipCounters(cmd.PlayerID)
	case CmdEndMainPhase:
		return m.endMainPhase(cmd.PlayerID)
	case CmdEndTurn:
		return m.endTurn(cmd.PlayerID)
	}
	return illegalf("unknown command type %q", cmd.Type)
}

// resolveSelection answers the pending player interaction.
func (m *Match) resolveSelection(cmd Command) error {
	pending := m.state.Pending
	if cmd.PlayerID != pending.PlayerID {
		return illegalf("the pending selection belongs to %s", pending.PlayerID)
	}
	if cmd.SelectionID != "" && cmd.SelectionID != pending.ID {
		return illegalf("selection %s is not pending", cmd.SelectionID)
	}

	switch pending.Kind {
	case PendingSelectTargets, PendingSearchDeck:
		if err := targeting.ValidateSelection(pending.legal, cmd.Chosen, pending.Min, pending.Max); err != nil {
			return invalidTargetf("%v", err)
		}
		m.state.Pending = nil
		err := m.resumeSelection(pending, cmd.Chosen)
		if errors.Is(err, errSuspended) {
			return nil
		}
		if err != nil {
			return err
		}
		return m.drainTriggerQueue()

	case PendingTriggerOrder:
		if len(cmd.Chosen) != 1 || !contains(pending.LegalIDs, cmd.Chosen[0]) {
			return invalidTargetf("choose exactly one queued trigger")
		}
		m.state.Pending = nil
		t := m.takeTrigger(cmd.Chosen[0])
		if err := m.fireTrigger(t); err != nil {
			return err
		}
		return m.drainTriggerQueue()

	case PendingActivation:
		if len(cmd.Chosen) != 1 || (cmd.Chosen[0] != ChoiceActivate && cmd.Chosen[0] != ChoiceSkip) {
			return invalidTargetf("choose %s or %s", ChoiceActivate, ChoiceSkip)
		}
		t := m.pendingTrigger
		m.pendingTrigger = nil
		m.state.Pending = nil
		if t != nil && cmd.Chosen[0] == ChoiceActivate {
			if err := m.executeTrigger(*t); err != nil {
				return err
			}
		}
		return m.drainTriggerQueue()

	case PendingLifeTrigger:
		if len(cmd.Chosen) != 1 {
			return invalidTargetf("choose %s or %s", ChoiceActivate, ChoiceTake)
		}
		m.state.Pending = nil
		return m.resolveLifeTrigger(pending, cmd.Chosen[0])
	}
	return corruptionf("unknown pending kind %s", pending.Kind)
}

// ResolveTimeout forces progress when a player stalls: pending selections
// resolve to their least-committal legal answer, an unanswered block step
// skips, and an unanswered counter step confirms.
func (m *Match) ResolveTimeout() Result {
	m.mu.Lock()
	pending := m.state.Pending
	var cmd Command
	switch {
	case pending != nil:
		cmd = Command{
			Type:        CmdResolveSelection,
			PlayerID:    pending.PlayerID,
			SelectionID: pending.ID,
			Chosen:      defaultChoice(pending),
		}
	case m.state.Battle != nil && m.state.Battle.Step == rules.StepBlock:
		cmd = Command{Type: CmdSkipBlocker, PlayerID: m.state.Battle.DefenderPlayer}
	case m.state.Battle != nil && m.state.Battle.Step == rules.StepCounter:
		cmd = Command{Type: CmdConfirmCounter, PlayerID: m.state.Battle.DefenderPlayer}
	default:
		m.mu.Unlock()
		return Result{Success: true}
	}
	m.mu.Unlock()
	return m.Execute(cmd)
}

// defaultChoice picks the timeout answer for a pending interaction.
func defaultChoice(p *PendingSelection) []string {
	switch p.Kind {
	case PendingSelectTargets, PendingSearchDeck:
		n := p.Min
		if n > len(p.LegalIDs) {
			n = len(p.LegalIDs)
		}
		return append([]string(nil), p.LegalIDs[:n]...)
	case PendingTriggerOrder:
		return p.LegalIDs[:1]
	case PendingActivation:
		return []string{ChoiceSkip}
	case PendingLifeTrigger:
		return []string{ChoiceTake}
	}
	return nil
}

// checkTerminal enforces the deck-out loss condition.
func (m *Match) checkTerminal() {
	if m.state.Finished {
		return
	}
	for _, id := range m.state.Order {
		if len(m.state.player(id).Deck) == 0 {
			m.finish(m.state.opponentOf(id), "opponent's deck is empty")
			return
		}
	}
}

// finish ends the match with a winner.
func (m *Match) finish(winner, reason string) {
	if m.state.Finished {
		return
	}
	m.state.Finished = true
	m.state.Winner = winner

	m.logger.Info("match ended",
		zap.String("winner", winner),
		zap.String("reason", reason),
	)
	ev := rules.NewEvent(rules.EventMatchEnded, winner, "")
	ev.Data = reason
	m.publish(ev)
}

// corrupt aborts the match after an unrecoverable internal inconsistency
// and returns the corruption error for the command result.
func (m *Match) corrupt(err error) error {
	m.markCorrupted(err)
	return corruptionf("%v", err)
}

func (m *Match) markCorrupted(err error) {
	if m.state.Corrupted {
		return
	}
	m.state.Corrupted = true
	m.state.Finished = true
	m.logger.Error("match aborted on state corruption", zap.Error(err))
	ev := rules.NewEvent(rules.EventMatchEnded, "", "")
	ev.Data = "state corruption"
	m.publish(ev)
}

// HasPlayer reports whether a player ID belongs to this match.
func (m *Match) HasPlayer(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.player(playerID) != nil
}

// Finished reports whether the match is over, and the winner if any.
func (m *Match) Finished() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Finished, m.state.Winner
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Engine owns the live matches of one server process.
type Engine struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	catalog catalog.Catalog
	matches map[string]*Match
}

// NewEngine creates an engine backed by a card catalog.
func NewEngine(cat catalog.Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:  logger,
		catalog: cat,
		matches: make(map[string]*Match),
	}
}

// CreateMatch validates the config, creates the match and registers it.
func (e *Engine) CreateMatch(cfg MatchConfig) (*Match, error) {
	m, err := NewMatch(cfg, e.catalog, e.logger)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.matches[m.ID()]; exists {
		return nil, fmt.Errorf("match %s already exists", m.ID())
	}
	e.matches[m.ID()] = m
	return m, nil
}

// GetMatch returns a registered match.
func (e *Engine) GetMatch(id string) (*Match, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.matches[id]
	return m, ok
}

// RemoveMatch drops a match from the registry.
func (e *Engine) RemoveMatch(id string) {
	e.mu.Lock()
	delete(e.matches, id)
	e.mu.Unlock()
}

// MatchCount returns how many matches are registered.
func (e *Engine) MatchCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.matches)
}
