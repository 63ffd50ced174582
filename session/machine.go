package session

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"

	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/metrics"
	"github.com/vocdoni/zkgames/randomness"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/util"
)

// DefaultTimeout is the inactivity bound after which a session expires.
const DefaultTimeout = 10 * time.Minute

var errNotExpired = errors.New("session not expired")

// Verifier checks a proof against the key registered for its circuit.
type Verifier interface {
	Verify(p *types.Proof) error
}

// Machine owns the sessions. Transitions of a session are serialized,
// different sessions proceed concurrently.
type Machine struct {
	stg      *storage.Storage
	verifier Verifier
	rules    map[types.GameKind]Rules
	timeout  time.Duration
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[types.SessionID]*sync.Mutex
}

// NewMachine returns a state machine for the given games. A non positive
// timeout selects DefaultTimeout.
func NewMachine(stg *storage.Storage, v Verifier, timeout time.Duration, rules ...Rules) *Machine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Machine{
		stg:      stg,
		verifier: v,
		rules:    make(map[types.GameKind]Rules, len(rules)),
		timeout:  timeout,
		now:      time.Now,
		locks:    make(map[types.SessionID]*sync.Mutex),
	}
	for _, r := range rules {
		m.rules[r.Game()] = r
	}
	return m
}

// Timeout returns the inactivity bound.
func (m *Machine) Timeout() time.Duration {
	return m.timeout
}

// Games returns the games the machine can play.
func (m *Machine) Games() []types.GameKind {
	games := make([]types.GameKind, 0, len(m.rules))
	for _, g := range []types.GameKind{types.GameArena, types.GameDuel, types.GamePoker, types.GameDeadMansDraw} {
		if _, ok := m.rules[g]; ok {
			games = append(games, g)
		}
	}
	return games
}

func (m *Machine) lock(id types.SessionID) func() {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.locksMu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Machine) gameRules(game types.GameKind) (Rules, error) {
	r, ok := m.rules[game]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	return r, nil
}

// Session returns a stored session.
func (m *Machine) Session(id types.SessionID) (*Session, error) {
	s := &Session{}
	if err := m.stg.Session(id, s); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return s, nil
}

// Create starts a new session of game with creator in slot 0.
func (m *Machine) Create(creator common.Address, game types.GameKind, options map[string]int64) (*Session, error) {
	r, err := m.gameRules(game)
	if err != nil {
		return nil, err
	}
	now := m.now().Unix()
	s := &Session{
		ID:    types.NewSessionID(),
		Game:  game,
		Phase: PhaseCreated,
		Participants: []*Participant{
			{Address: creator},
		},
		Options:   make(map[string]int64, len(options)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for k, v := range options {
		s.Options[k] = v
	}
	if err := r.Init(s); err != nil {
		return nil, err
	}
	s.Awaiting = []int{1}
	if err := m.stg.SetSession(s.ID, s); err != nil {
		return nil, err
	}
	metrics.SessionsCreated.WithLabelValues(string(game)).Inc()
	log.Infow("session created", "session", s.ID.String(), "game", string(game), "creator", creator.Hex())
	return s, nil
}

// Join adds the second participant and opens the commit phase.
func (m *Machine) Join(id types.SessionID, addr common.Address) (*Session, error) {
	return m.update(id, "join", func(s *Session, _ Rules) ([]Identifier, error) {
		if s.Phase != PhaseCreated {
			return nil, PhaseViolation("cannot join a session in phase %s", s.Phase)
		}
		if _, err := s.Slot(addr); err == nil {
			return nil, PhaseViolation("%s already joined", addr.Hex())
		}
		s.Participants = append(s.Participants, &Participant{Address: addr})
		s.Phase = PhaseCommit
		s.Awaiting = []int{0, 1}
		return nil, nil
	})
}

// Commit registers the randomness commitment of the caller together with
// its game setup.
func (m *Machine) Commit(id types.SessionID, addr common.Address, seedHash []byte, setup map[string]*types.BigInt) (*Session, error) {
	return m.update(id, "commit", func(s *Session, r Rules) ([]Identifier, error) {
		if s.Phase != PhaseCommit {
			return nil, PhaseViolation("cannot commit in phase %s", s.Phase)
		}
		slot, err := s.Slot(addr)
		if err != nil {
			return nil, err
		}
		p := s.Participant(slot)
		if err := p.Seed.Commit(seedHash); err != nil {
			if errors.Is(err, randomness.ErrAlreadyCommitted) {
				return nil, fmt.Errorf("%w: %v", ErrPhaseViolation, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		if err := r.Setup(s, slot, setup); err != nil {
			return nil, err
		}
		s.Awaiting = nil
		for i, p := range s.Participants {
			if p.Seed.State != randomness.Committed || !r.Ready(s, i) {
				s.Awaiting = append(s.Awaiting, i)
			}
		}
		if len(s.Awaiting) == 0 {
			s.Phase = PhaseReveal
			s.Awaiting = []int{0, 1}
		}
		return nil, nil
	})
}

// Reveal opens the seed of the caller. Once both seeds are revealed the
// shared seed is computed and the game starts.
func (m *Machine) Reveal(id types.SessionID, addr common.Address, seed []byte) (*Session, error) {
	return m.update(id, "reveal", func(s *Session, r Rules) ([]Identifier, error) {
		if s.Phase != PhaseReveal {
			return nil, PhaseViolation("cannot reveal in phase %s", s.Phase)
		}
		slot, err := s.Slot(addr)
		if err != nil {
			return nil, err
		}
		if err := s.Participant(slot).Seed.Reveal(seed); err != nil {
			switch {
			case errors.Is(err, randomness.ErrSeedMismatch):
				return nil, fmt.Errorf("%w: %v", ErrCommitmentMismatch, err)
			case errors.Is(err, randomness.ErrAlreadyRevealed):
				return nil, fmt.Errorf("%w: %v", ErrPhaseViolation, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		s.Awaiting = []int{Other(slot)}
		if s.Participant(Other(slot)).Seed.State != randomness.Revealed {
			return nil, nil
		}
		shared, err := randomness.SharedSeed(&s.Participants[0].Seed, &s.Participants[1].Seed)
		if err != nil {
			return nil, err
		}
		s.SharedSeed = shared
		s.Turn = randomness.StartingSlot(shared)
		s.Phase = PhaseInProgress
		if err := r.Start(s); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// SubmitProof applies a state transition proof of the caller. The
// transition is accepted only if the stage allows the circuit for the
// caller, the proof verifies, the commitments it references are the
// stored ones, its public parameters match the session and the
// identifiers it consumes are unused. Otherwise nothing changes. A proof
// referencing replaced commitments, or the last one accepted from the
// caller, is an ErrCommitmentMismatch whatever the stage.
func (m *Machine) SubmitProof(id types.SessionID, addr common.Address, p *types.Proof) (*Session, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil proof", ErrInvalidAction)
	}
	digest := p.Digest()
	return m.update(id, p.Circuit.String(), func(s *Session, r Rules) ([]Identifier, error) {
		slot, err := s.Slot(addr)
		if err != nil {
			return nil, err
		}
		player := s.Participant(slot)
		if bytes.Equal(player.LastProof, digest) {
			return nil, fmt.Errorf("%w: %s transition already applied", ErrCommitmentMismatch, p.Circuit)
		}
		if s.Phase != PhaseInProgress {
			return nil, PhaseViolation("cannot submit %s proofs in phase %s", p.Circuit, s.Phase)
		}
		if err := r.Stale(s, slot, p); err != nil {
			return nil, err
		}
		if err := r.Allowed(s, slot, p.Circuit); err != nil {
			return nil, err
		}
		if err := m.verifier.Verify(p); err != nil {
			return nil, err
		}
		ids, err := r.ApplyProof(s, slot, p)
		if err != nil {
			return nil, err
		}
		player.LastProof = digest
		return ids, nil
	})
}

// SubmitAction applies a public action of the caller.
func (m *Machine) SubmitAction(id types.SessionID, addr common.Address, a *Action) (*Session, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	return m.update(id, a.Type, func(s *Session, r Rules) ([]Identifier, error) {
		if s.Phase != PhaseInProgress {
			return nil, PhaseViolation("cannot %s in phase %s", a.Type, s.Phase)
		}
		slot, err := s.Slot(addr)
		if err != nil {
			return nil, err
		}
		if a.Type == ActionForfeit {
			s.Finish(Other(slot), "forfeit")
			return nil, nil
		}
		return nil, r.ApplyAction(s, slot, a)
	})
}

// update runs fn over a copy of the session and stores the result together
// with the consumed identifiers in a single write.
func (m *Machine) update(id types.SessionID, action string, fn func(*Session, Rules) ([]Identifier, error)) (*Session, error) {
	unlock := m.lock(id)
	defer unlock()

	current, err := m.Session(id)
	if err != nil {
		return nil, err
	}
	r, err := m.gameRules(current.Game)
	if err != nil {
		return nil, err
	}
	s, err := current.Clone()
	if err != nil {
		return nil, err
	}
	ids, err := fn(s, r)
	if err == nil {
		err = m.store(s, r, ids)
	}
	metrics.Transitions.WithLabelValues(string(current.Game), action, metrics.Result(err)).Inc()
	if err != nil {
		log.Debugw("transition rejected",
			"session", id.String(),
			"action", action,
			"stage", current.Stage,
			"error", err.Error())
		return nil, err
	}
	log.Debugw("transition accepted",
		"session", id.String(),
		"action", action,
		"phase", s.Phase.String(),
		"stage", s.Stage,
		"sequence", s.Sequence,
		"consumedRoot", util.PrettyHex(s.ConsumedRoot.MathBigInt()))
	if s.Phase.Terminal() {
		metrics.SessionsFinished.WithLabelValues(string(s.Game), s.Phase.String()).Inc()
		log.Infow("session finished",
			"session", id.String(),
			"phase", s.Phase.String(),
			"winner", s.Outcome.Winner,
			"reason", s.Outcome.Reason)
	}
	return s, nil
}

func (m *Machine) store(s *Session, r Rules, ids []Identifier) error {
	s.Sequence++
	s.UpdatedAt = m.now().Unix()
	if s.Phase == PhaseInProgress {
		s.Awaiting = r.Awaiting(s)
	}
	return m.stg.WithWriteTx(func(wTx db.WriteTx) error {
		if len(ids) > 0 {
			keys := make([][]byte, len(ids))
			for i, id := range ids {
				k, err := id.Key()
				if err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidAction, err)
				}
				keys[i] = k
			}
			set, err := state.Open(m.stg.DB(), storage.ConsumedPrefix(s.ID))
			if err != nil {
				return err
			}
			root, err := set.ConsumeWithTx(wTx, keys...)
			if err != nil {
				if errors.Is(err, state.ErrConsumed) {
					return fmt.Errorf("%w: %v", ErrResourceAlreadyConsumed, err)
				}
				return err
			}
			s.ConsumedRoot = types.FromBigInt(root)
		}
		return storage.WriteSession(wTx, s.ID, s)
	})
}

// ConsumedProof returns the proof of an identifier against the consumed
// tree of the session. The proof has Existence set if it was consumed.
func (m *Machine) ConsumedProof(id types.SessionID, ident Identifier) (*state.Proof, error) {
	k, err := ident.Key()
	if err != nil {
		return nil, err
	}
	if ok, err := m.stg.HasSession(id); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	set, err := state.Open(m.stg.DB(), storage.ConsumedPrefix(id))
	if err != nil {
		return nil, err
	}
	return set.GenProof(k)
}

// ExpireInactive times out the sessions idle for longer than the timeout
// at now. The participants the session was waiting on forfeit: the other
// participant wins, or the session is drawn if both were awaited.
func (m *Machine) ExpireInactive(now time.Time) ([]types.SessionID, error) {
	ids, err := m.stg.ListSessions()
	if err != nil {
		return nil, err
	}
	expired := []types.SessionID{}
	for _, id := range ids {
		s, err := m.expire(id, now)
		if err != nil {
			return expired, err
		}
		if s != nil {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (m *Machine) expire(id types.SessionID, now time.Time) (*Session, error) {
	current, err := m.Session(id)
	if err != nil {
		return nil, err
	}
	if current.Phase.Terminal() || now.Sub(time.Unix(current.UpdatedAt, 0)) <= m.timeout {
		return nil, nil
	}
	s, err := m.update(id, "timeout", func(s *Session, _ Rules) ([]Identifier, error) {
		// checked again under the session lock
		if s.Phase.Terminal() || now.Sub(time.Unix(s.UpdatedAt, 0)) <= m.timeout {
			return nil, errNotExpired
		}
		winner := Draw
		if len(s.Awaiting) == 1 && len(s.Participants) == NumParticipants {
			winner = Other(s.Awaiting[0])
		}
		s.Finish(winner, "timeout")
		s.Phase = PhaseTimedOut
		return nil, nil
	})
	if errors.Is(err, errNotExpired) {
		return nil, nil
	}
	return s, err
}
