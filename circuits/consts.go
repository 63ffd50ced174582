package circuits

// used across different circuits
const (
	// ArenaSize is the upper bound of every arena coordinate.
	ArenaSize = 1000
	// MaxHealth is the spawn health and the cap of health packs.
	MaxHealth = 100
	// MaxShieldedHealth is the cap of shield pickups.
	MaxShieldedHealth = 150
	// HealthPackBonus and ShieldBonus are the health effects of the
	// collectable items.
	HealthPackBonus = 25
	ShieldBonus     = 50

	// ItemsDepth is the depth of the arena items tree.
	ItemsDepth = 4
	// DeckDepth is the depth of a duel deck tree.
	DeckDepth = 4
	// HandSize is the number of hand slots of a duel player.
	HandSize = 5
	// CatalogDepth is the depth of the card catalog tree. Card ids are the
	// leaf indexes, 0 is reserved for the empty card.
	CatalogDepth = 5
	CatalogSize  = 1<<CatalogDepth - 1

	// PokerHandSize is the number of cards of a poker hand.
	PokerHandSize = 5
	// PokerDeckSize is the number of cards of a poker deck.
	PokerDeckSize = 52

	// DeadMansDeckDepth is the depth of a dead man's draw deck tree. The
	// deck holds DeadMansSuits suits of ranks 1 to DeadMansRanks.
	DeadMansDeckDepth = 6
	DeadMansSuits     = 4
	DeadMansRanks     = 10
	DeadMansDeckSize  = DeadMansSuits * DeadMansRanks

	// StatBits bounds health, damage, attack, defense and counters.
	StatBits = 16
	// CoordBits bounds coordinates and distances.
	CoordBits = 16
)

// Item types of the arena items tree.
const (
	ItemHealth = iota
	ItemShield
	ItemAmmo
	ItemWeapon
	NumItemTypes
)

// Arena win reasons.
const (
	WinReasonKills  = 0
	WinReasonRounds = 2
)
