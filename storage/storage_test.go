package storage

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zkgames/types"
)

type testSession struct {
	Game    string         `cbor:"0,keyasint"`
	Counter int            `cbor:"1,keyasint"`
	Root    *types.BigInt  `cbor:"2,keyasint"`
	Data    types.HexBytes `cbor:"3,keyasint"`
}

func TestSessions(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	id := types.NewSessionID()
	var out testSession
	c.Assert(stg.Session(id, &out), qt.ErrorIs, ErrNotFound)

	in := &testSession{Game: "arena", Counter: 3, Root: types.NewInt(42), Data: []byte{1, 2}}
	c.Assert(stg.SetSession(id, in), qt.IsNil)
	c.Assert(stg.Session(id, &out), qt.IsNil)
	c.Assert(out, qt.DeepEquals, *in)

	ok, err := stg.HasSession(id)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	other := types.NewSessionID()
	c.Assert(stg.SetSession(other, &testSession{Game: "duel"}), qt.IsNil)
	ids, err := stg.ListSessions()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 2)

	c.Assert(stg.DeleteSession(other), qt.IsNil)
	c.Assert(stg.DeleteSession(other), qt.ErrorIs, ErrNotFound)
	ids, err = stg.ListSessions()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []types.SessionID{id})
}

func TestWithWriteTx(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))
	id := types.NewSessionID()

	// a failing transaction writes nothing
	err := stg.WithWriteTx(func(wTx db.WriteTx) error {
		if err := WriteSession(wTx, id, &testSession{Counter: 1}); err != nil {
			return err
		}
		return ErrAlreadyExists
	})
	c.Assert(err, qt.ErrorIs, ErrAlreadyExists)
	ok, err := stg.HasSession(id)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	err = stg.WithWriteTx(func(wTx db.WriteTx) error {
		return WriteSession(wTx, id, &testSession{Counter: 2})
	})
	c.Assert(err, qt.IsNil)
	var out testSession
	c.Assert(stg.Session(id, &out), qt.IsNil)
	c.Assert(out.Counter, qt.Equals, 2)
}

func TestCircuitKeys(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.CircuitKeys(types.CircuitMove)
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	keys := &CircuitKeys{
		VerifyingKey:         []byte{0xaa, 0xbb},
		ConstraintSystemHash: []byte{0x01},
		ProvingKeyHash:       []byte{0x02},
	}
	c.Assert(stg.SetCircuitKeys(types.CircuitMove, keys), qt.IsNil)
	c.Assert(stg.SetCircuitKeys(types.CircuitMove, keys), qt.ErrorIs, ErrAlreadyExists)
	c.Assert(stg.SetCircuitKeys(types.CircuitDraw, &CircuitKeys{}), qt.IsNotNil)

	got, err := stg.CircuitKeys(types.CircuitMove)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, keys)

	c.Assert(stg.SetCircuitKeys(types.CircuitShowdown, &CircuitKeys{VerifyingKey: []byte{3}}), qt.IsNil)
	all, err := stg.ListCircuitKeys()
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.HasLen, 2)
	c.Assert(all[types.CircuitShowdown].VerifyingKey, qt.DeepEquals, types.HexBytes{3})
}

func TestConsumedPrefix(t *testing.T) {
	c := qt.New(t)
	a, b := types.NewSessionID(), types.NewSessionID()
	c.Assert(ConsumedPrefix(a), qt.Not(qt.DeepEquals), ConsumedPrefix(b))
	c.Assert(string(ConsumedPrefix(a)[:2]), qt.Equals, "n/")
}
