// Package arena implements the rules of the arena shooter. Every player
// keeps a private position and health behind commitments; the only public
// data are the spawn zones, the items layout, ammo, weapons, kills and the
// round counter.
//
// A match goes through these stages:
//
//	spawn    both players prove a spawn in their zone
//	combat   the active player moves, collects an item or shoots
//	shot     the target proves whether the shot hit its hidden position
//	damage   on a hit, the target proves the new health
//	respawn  a killed player proves a new spawn at the start of its turn
//	result   a limit was reached, anyone proves the winner
package arena

import (
	"math/big"

	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/circuits/arenawin"
	"github.com/vocdoni/zkgames/circuits/collect"
	"github.com/vocdoni/zkgames/randomness"
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/types"
)

// Stages of a match.
const (
	StageSpawn   = "spawn"
	StageCombat  = "combat"
	StageShot    = "shot"
	StageDamage  = "damage"
	StageRespawn = "respawn"
	StageResult  = "result"
)

// Public actions.
const (
	ActionShoot = "shoot"
)

// Session options and their defaults.
const (
	OptionKillLimit    = "killLimit"
	OptionRoundLimit   = "roundLimit"
	OptionMaxDistance  = "maxDistance"
	OptionPickupRadius = "pickupRadius"

	DefaultKillLimit    = 3
	DefaultRoundLimit   = 100
	DefaultMaxDistance  = 50
	DefaultPickupRadius = 10
)

// Commitments, counters and parameters kept in the session.
const (
	position = "position"
	health   = "health"

	ammo    = "ammo"
	weapon  = "weapon"
	kills   = "kills"
	deaths  = "deaths"
	dead    = "dead"
	spawned = "spawned"
	rounds  = "rounds"

	zoneMinX  = "zoneMinX"
	zoneMaxX  = "zoneMaxX"
	itemsRoot = "itemsRoot"
	aimX      = "aimX"
	aimY      = "aimY"
	aimZ      = "aimZ"
)

const (
	// NumItems is the number of items placed in the arena.
	NumItems = 1 << circuits.ItemsDepth
	// StartingAmmo is the ammo of a player at the start of the match.
	StartingAmmo = 10
	// AmmoPickup is the ammo given by an ammo item.
	AmmoPickup = 30
	// MaxWeapon is the best weapon level.
	MaxWeapon = 3
)

// Weapon is the damage and blast radius of a weapon level.
type Weapon struct {
	Damage int64
	Radius int64
}

// Weapons are the weapon levels, upgraded by collecting weapon items.
var Weapons = [MaxWeapon + 1]Weapon{
	{Damage: 15, Radius: 20},
	{Damage: 40, Radius: 10},
	{Damage: 60, Radius: 60},
	{Damage: 90, Radius: 5},
}

// Zone returns the spawn zone of slot: the arena is split along the X axis
// and the shared seed decides which half each player gets.
func Zone(shared []byte, slot int) (minX, maxX int64) {
	half := int64(circuits.ArenaSize / 2)
	lower := randomness.Intn(shared, "arena/zones", 0, 2)
	if slot == lower {
		return 0, half
	}
	return half, circuits.ArenaSize
}

// Items returns the item layout derived from the shared seed.
func Items(shared []byte) []collect.Item {
	items := make([]collect.Item, NumItems)
	for i := range items {
		n := uint64(i)
		items[i] = collect.Item{
			ID:   int64(i),
			Type: int64(randomness.Intn(shared, "arena/items/type", n, circuits.NumItemTypes)),
			Position: [3]int64{
				int64(randomness.Intn(shared, "arena/items/x", n, circuits.ArenaSize+1)),
				int64(randomness.Intn(shared, "arena/items/y", n, circuits.ArenaSize+1)),
				int64(randomness.Intn(shared, "arena/items/z", n, circuits.ArenaSize+1)),
			},
		}
	}
	return items
}

// Rules are the arena rules.
type Rules struct{}

// New returns the arena rules.
func New() *Rules {
	return &Rules{}
}

func (*Rules) Game() types.GameKind {
	return types.GameArena
}

func (*Rules) Init(s *session.Session) error {
	s.SetDefaultOption(OptionKillLimit, DefaultKillLimit)
	s.SetDefaultOption(OptionRoundLimit, DefaultRoundLimit)
	s.SetDefaultOption(OptionMaxDistance, DefaultMaxDistance)
	s.SetDefaultOption(OptionPickupRadius, DefaultPickupRadius)
	for _, o := range []string{OptionKillLimit, OptionRoundLimit} {
		if v := s.Option(o); !circuits.InRange(v, 1, 1<<circuits.StatBits-1) {
			return session.InvalidAction("option %s out of range: %d", o, v)
		}
	}
	for _, o := range []string{OptionMaxDistance, OptionPickupRadius} {
		if v := s.Option(o); !circuits.InRange(v, 0, circuits.ArenaSize) {
			return session.InvalidAction("option %s out of range: %d", o, v)
		}
	}
	return nil
}

// Setup accepts no setup: the initial state is proven by the spawn.
func (*Rules) Setup(_ *session.Session, _ int, setup map[string]*types.BigInt) error {
	if len(setup) > 0 {
		return session.InvalidAction("arena takes no setup")
	}
	return nil
}

func (*Rules) Ready(*session.Session, int) bool {
	return true
}

func (*Rules) Start(s *session.Session) error {
	tree, err := collect.ItemsTree(Items(s.SharedSeed))
	if err != nil {
		return err
	}
	s.SetParam(itemsRoot, tree.Root())
	for slot, p := range s.Participants {
		minX, maxX := Zone(s.SharedSeed, slot)
		p.SetParam(zoneMinX, big.NewInt(minX))
		p.SetParam(zoneMaxX, big.NewInt(maxX))
		p.SetCounter(ammo, StartingAmmo)
		p.SetCounter(weapon, 0)
		p.SetCounter(kills, 0)
		p.SetCounter(deaths, 0)
	}
	s.SetCounter(rounds, 0)
	s.Stage = StageSpawn
	return nil
}

func (*Rules) Stale(s *session.Session, slot int, p *types.Proof) error {
	player := s.Participant(slot)
	switch p.Circuit {
	case types.CircuitMove, types.CircuitShot:
		return session.CheckRefs(player, p, session.Ref{Signal: 0, Field: position})
	case types.CircuitCollect:
		return session.CheckRefs(player, p,
			session.Ref{Signal: 0, Field: position}, session.Ref{Signal: 1, Field: health})
	case types.CircuitDamage:
		return session.CheckRefs(player, p, session.Ref{Signal: 0, Field: health})
	}
	return nil
}

func (*Rules) Allowed(s *session.Session, slot int, circuit types.CircuitID) error {
	ok := false
	switch s.Stage {
	case StageSpawn:
		ok = circuit == types.CircuitSpawn && s.Participant(slot).Counter(spawned) == 0
	case StageCombat:
		ok = slot == s.Turn && (circuit == types.CircuitMove || circuit == types.CircuitCollect)
	case StageShot:
		ok = slot == session.Other(s.Turn) && circuit == types.CircuitShot
	case StageDamage:
		ok = slot == session.Other(s.Turn) && circuit == types.CircuitDamage
	case StageRespawn:
		ok = slot == s.Turn && circuit == types.CircuitSpawn
	case StageResult:
		ok = circuit == types.CircuitArenaWin
	}
	if !ok {
		return session.PhaseViolation("%s proof from slot %d not allowed in stage %s", circuit, slot, s.Stage)
	}
	return nil
}

func (r *Rules) ApplyProof(s *session.Session, slot int, p *types.Proof) ([]session.Identifier, error) {
	switch p.Circuit {
	case types.CircuitSpawn:
		return nil, r.spawn(s, slot, p)
	case types.CircuitMove:
		return nil, r.move(s, slot, p)
	case types.CircuitCollect:
		return r.collect(s, slot, p)
	case types.CircuitShot:
		return nil, r.shot(s, slot, p)
	case types.CircuitDamage:
		return nil, r.damage(s, slot, p)
	case types.CircuitArenaWin:
		return nil, r.result(s, p)
	}
	return nil, session.PhaseViolation("%s is not an arena circuit", p.Circuit)
}

func (*Rules) spawn(s *session.Session, slot int, p *types.Proof) error {
	signals, err := session.Signals(p, 4)
	if err != nil {
		return err
	}
	player := s.Participant(slot)
	if err := session.CheckParam(zoneMinX, player.Param(zoneMinX), signals[2]); err != nil {
		return err
	}
	if err := session.CheckParam(zoneMaxX, player.Param(zoneMaxX), signals[3]); err != nil {
		return err
	}
	player.SetCommitment(position, signals[0])
	player.SetCommitment(health, signals[1])
	if s.Stage == StageRespawn {
		player.SetCounter(dead, 0)
		s.Stage = StageCombat
		return nil
	}
	player.SetCounter(spawned, 1)
	for _, other := range s.Participants {
		if other.Counter(spawned) == 0 {
			return nil
		}
	}
	s.Stage = StageCombat
	return nil
}

func (*Rules) move(s *session.Session, slot int, p *types.Proof) error {
	signals, err := session.Signals(p, 3)
	if err != nil {
		return err
	}
	player := s.Participant(slot)
	if err := session.CheckCommitment(player, position, signals[0]); err != nil {
		return err
	}
	if err := session.CheckInt(OptionMaxDistance, s.Option(OptionMaxDistance), signals[2]); err != nil {
		return err
	}
	player.SetCommitment(position, signals[1])
	endTurn(s)
	return nil
}

func (*Rules) collect(s *session.Session, slot int, p *types.Proof) ([]session.Identifier, error) {
	signals, err := session.Signals(p, 7)
	if err != nil {
		return nil, err
	}
	player := s.Participant(slot)
	if err := session.CheckCommitment(player, position, signals[0]); err != nil {
		return nil, err
	}
	if err := session.CheckCommitment(player, health, signals[1]); err != nil {
		return nil, err
	}
	if err := session.CheckParam(itemsRoot, s.Param(itemsRoot), signals[3]); err != nil {
		return nil, err
	}
	item, err := session.Int("itemId", signals[4], NumItems-1)
	if err != nil {
		return nil, err
	}
	itemType, err := session.Int("itemType", signals[5], circuits.NumItemTypes-1)
	if err != nil {
		return nil, err
	}
	if err := session.CheckInt(OptionPickupRadius, s.Option(OptionPickupRadius), signals[6]); err != nil {
		return nil, err
	}
	player.SetCommitment(health, signals[2])
	switch itemType {
	case circuits.ItemAmmo:
		player.AddCounter(ammo, AmmoPickup)
	case circuits.ItemWeapon:
		player.SetCounter(weapon, min(player.Counter(weapon)+1, MaxWeapon))
	}
	endTurn(s)
	// items are shared by both players, so they are consumed under slot 0
	return []session.Identifier{{Kind: state.KindItem, ID: uint64(item)}}, nil
}

func (*Rules) shot(s *session.Session, slot int, p *types.Proof) error {
	signals, err := session.Signals(p, 6)
	if err != nil {
		return err
	}
	target := s.Participant(slot)
	if err := session.CheckCommitment(target, position, signals[0]); err != nil {
		return err
	}
	for i, name := range []string{aimX, aimY, aimZ} {
		if err := session.CheckParam(name, s.Param(name), signals[1+i]); err != nil {
			return err
		}
	}
	w := Weapons[s.Participant(s.Turn).Counter(weapon)]
	if err := session.CheckInt("radius", w.Radius, signals[4]); err != nil {
		return err
	}
	hit, err := session.Bool("hit", signals[5])
	if err != nil {
		return err
	}
	if hit {
		s.Stage = StageDamage
		return nil
	}
	clearAim(s)
	endTurn(s)
	return nil
}

func (*Rules) damage(s *session.Session, slot int, p *types.Proof) error {
	signals, err := session.Signals(p, 4)
	if err != nil {
		return err
	}
	target := s.Participant(slot)
	if err := session.CheckCommitment(target, health, signals[0]); err != nil {
		return err
	}
	shooter := s.Participant(s.Turn)
	if err := session.CheckInt("damage", Weapons[shooter.Counter(weapon)].Damage, signals[2]); err != nil {
		return err
	}
	isDead, err := session.Bool("isDead", signals[3])
	if err != nil {
		return err
	}
	target.SetCommitment(health, signals[1])
	if isDead {
		shooter.AddCounter(kills, 1)
		target.AddCounter(deaths, 1)
		target.SetCounter(dead, 1)
	}
	clearAim(s)
	endTurn(s)
	return nil
}

func (*Rules) result(s *session.Session, p *types.Proof) error {
	signals, err := session.Signals(p, 7)
	if err != nil {
		return err
	}
	a, b := s.Participant(0), s.Participant(1)
	expected := []int64{
		a.Counter(kills), b.Counter(kills),
		s.Option(OptionKillLimit), s.Counter(rounds), s.Option(OptionRoundLimit),
	}
	names := []string{"killsA", "killsB", OptionKillLimit, rounds, OptionRoundLimit}
	for i := range expected {
		if err := session.CheckInt(names[i], expected[i], signals[i]); err != nil {
			return err
		}
	}
	winner, err := session.Int("winner", signals[5], 2)
	if err != nil {
		return err
	}
	reason, err := session.Int("reason", signals[6], circuits.WinReasonRounds)
	if err != nil {
		return err
	}
	s.Finish(int(winner)-1, reasonName(reason))
	if winner == 0 {
		s.Outcome.Winner = session.Draw
	}
	return nil
}

func reasonName(reason int64) string {
	if reason == circuits.WinReasonRounds {
		return "roundLimit"
	}
	return "killLimit"
}

func (*Rules) ApplyAction(s *session.Session, slot int, a *session.Action) error {
	if a.Type != ActionShoot {
		return session.InvalidAction("unknown arena action %q", a.Type)
	}
	if s.Stage != StageCombat || slot != s.Turn {
		return session.PhaseViolation("cannot shoot in stage %s", s.Stage)
	}
	shooter := s.Participant(slot)
	if shooter.Counter(ammo) <= 0 {
		return session.InvalidAction("out of ammo")
	}
	for _, name := range []string{"x", "y", "z"} {
		v, err := a.Int(name)
		if err != nil {
			return err
		}
		if !circuits.InRange(v, 0, circuits.ArenaSize) {
			return session.InvalidAction("aim %s out of the arena: %d", name, v)
		}
	}
	shooter.AddCounter(ammo, -1)
	for name, param := range map[string]string{"x": aimX, "y": aimY, "z": aimZ} {
		v, _ := a.Big(name)
		s.SetParam(param, v)
	}
	s.Stage = StageShot
	return nil
}

func (*Rules) Awaiting(s *session.Session) []int {
	switch s.Stage {
	case StageSpawn:
		var slots []int
		for i, p := range s.Participants {
			if p.Counter(spawned) == 0 {
				slots = append(slots, i)
			}
		}
		return slots
	case StageShot, StageDamage:
		return []int{session.Other(s.Turn)}
	case StageResult:
		return []int{0, 1}
	}
	return []int{s.Turn}
}

// endTurn counts a round and passes the turn. A killed player starts its
// turn with a respawn.
func endTurn(s *session.Session) {
	n := s.AddCounter(rounds, 1)
	s.Turn = session.Other(s.Turn)
	if _, over := arenawin.Evaluate(
		s.Participant(0).Counter(kills), s.Participant(1).Counter(kills),
		s.Option(OptionKillLimit), n, s.Option(OptionRoundLimit),
	); over {
		s.Stage = StageResult
		return
	}
	if s.Participant(s.Turn).Counter(dead) == 1 {
		s.Stage = StageRespawn
		return
	}
	s.Stage = StageCombat
}

func clearAim(s *session.Session) {
	for _, name := range []string{aimX, aimY, aimZ} {
		s.DeleteParam(name)
	}
}
