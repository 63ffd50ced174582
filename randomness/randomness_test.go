package randomness

import (
	"sort"
	"testing"

	qt "github.com/frankban/quicktest"
)

func revealedPair(c *qt.C, seedA, seedB []byte, bFirst bool) []byte {
	a, b := &Seed{}, &Seed{}
	c.Assert(a.Commit(HashSeed(seedA)), qt.IsNil)
	c.Assert(b.Commit(HashSeed(seedB)), qt.IsNil)

	_, err := SharedSeed(a, b)
	c.Assert(err, qt.ErrorIs, ErrNotRevealed)

	if bFirst {
		c.Assert(b.Reveal(seedB), qt.IsNil)
		_, err := SharedSeed(a, b)
		c.Assert(err, qt.ErrorIs, ErrNotRevealed)
		c.Assert(a.Reveal(seedA), qt.IsNil)
	} else {
		c.Assert(a.Reveal(seedA), qt.IsNil)
		c.Assert(b.Reveal(seedB), qt.IsNil)
	}
	shared, err := SharedSeed(a, b)
	c.Assert(err, qt.IsNil)
	return shared
}

func TestSharedSeedRevealOrder(t *testing.T) {
	c := qt.New(t)
	seedA := []byte("alpha seed of participant one")
	seedB := []byte("beta seed of participant two")

	s1 := revealedPair(c, seedA, seedB, false)
	s2 := revealedPair(c, seedA, seedB, true)
	c.Assert(s1, qt.DeepEquals, s2)
	c.Assert(s1, qt.HasLen, 32)
	c.Assert(StartingSlot(s1), qt.Equals, StartingSlot(s2))
}

func TestSharedSeedFraming(t *testing.T) {
	c := qt.New(t)
	s1 := revealedPair(c, []byte("ab"), []byte("c"), false)
	s2 := revealedPair(c, []byte("a"), []byte("bc"), false)
	c.Assert(s1, qt.Not(qt.DeepEquals), s2)
	// swapping the slots changes the shared seed too
	s3 := revealedPair(c, []byte("c"), []byte("ab"), false)
	c.Assert(s1, qt.Not(qt.DeepEquals), s3)
}

func TestSeedLifecycle(t *testing.T) {
	c := qt.New(t)
	s := &Seed{}
	c.Assert(s.State, qt.Equals, Uncommitted)
	c.Assert(s.Reveal([]byte("x")), qt.ErrorIs, ErrNotCommitted)

	c.Assert(s.Commit([]byte("short")), qt.ErrorIs, ErrInvalidSeed)
	c.Assert(s.Commit(HashSeed([]byte("good"))), qt.IsNil)
	c.Assert(s.State, qt.Equals, Committed)
	c.Assert(s.Commit(HashSeed([]byte("other"))), qt.ErrorIs, ErrAlreadyCommitted)

	c.Assert(s.Reveal([]byte("bad")), qt.ErrorIs, ErrSeedMismatch)
	c.Assert(s.State, qt.Equals, Committed)
	c.Assert(s.Reveal([]byte("good")), qt.IsNil)
	c.Assert(s.State, qt.Equals, Revealed)
	c.Assert(s.Reveal([]byte("good")), qt.ErrorIs, ErrAlreadyRevealed)
}

func TestDerivations(t *testing.T) {
	c := qt.New(t)
	shared := HashSeed([]byte("shared"))

	c.Assert(Derive(shared, "spawn", 1).Cmp(Derive(shared, "spawn", 1)), qt.Equals, 0)
	c.Assert(Derive(shared, "spawn", 1).Cmp(Derive(shared, "spawn", 2)), qt.Not(qt.Equals), 0)
	c.Assert(Derive(shared, "spawn", 1).Cmp(Derive(shared, "items", 1)), qt.Not(qt.Equals), 0)

	for i := uint64(0); i < 50; i++ {
		v := Intn(shared, "dice", i, 6)
		c.Assert(v >= 0 && v < 6, qt.IsTrue)
	}

	p := Permutation(shared, "deck", 16)
	c.Assert(p, qt.DeepEquals, Permutation(shared, "deck", 16))
	sorted := append([]int{}, p...)
	sort.Ints(sorted)
	for i, v := range sorted {
		c.Assert(v, qt.Equals, i)
	}
	c.Assert(p, qt.Not(qt.DeepEquals), Permutation(shared, "deck/1", 16))
}
