package ledger

import (
	"crypto/ecdsa"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
	"github.com/mosaicnetworks/gossipledger/src/hashgraph"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	key  *ecdsa.PrivateKey
	addr string
}

func newAccounts(t *testing.T, n int) []account {
	res := make([]account, n)
	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		require.NoError(t, err)
		res[i] = account{key, keys.PublicKeyHex(&key.PublicKey)}
	}
	return res
}

func signedPayload(t *testing.T, from account, to string, amount uint64) []byte {
	tx, err := NewTransaction(from.addr, to, amount)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(from.key))

	payload, err := tx.Marshal()
	require.NoError(t, err)
	return payload
}

func TestTransactionSignVerify(t *testing.T) {
	accs := newAccounts(t, 2)

	tx, err := NewTransaction(accs[0].addr, accs[1].addr, 10)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(accs[0].key))

	ok, err := tx.Verify()
	require.NoError(t, err)
	assert.True(t, ok)

	payload, err := tx.Marshal()
	require.NoError(t, err)

	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(payload))
	assert.Equal(t, *tx, decoded)

	ok, err = decoded.Verify()
	require.NoError(t, err)
	assert.True(t, ok)

	decoded.Body.Amount = 1000
	ok, err = decoded.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormaliseAddress(t *testing.T) {
	accs := newAccounts(t, 1)

	addr, err := NormaliseAddress(strings.ToLower(accs[0].addr))
	require.NoError(t, err)
	assert.Equal(t, accs[0].addr, addr)

	// a valid hex string that is not a point of the curve
	notOnCurve := "0X04" + strings.Repeat("01", 64)

	for _, bad := range []string{"", "0X", "hello", "0xabc", "0xabcdef", notOnCurve} {
		_, err := NormaliseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}

	_, err = NewTransaction("nope", accs[0].addr, 1)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewTransaction(accs[0].addr, "0XAB", 1)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestPayloadValidator(t *testing.T) {
	accs := newAccounts(t, 2)
	creator := accs[0]
	creatorPub := keys.FromPublicKey(&creator.key.PublicKey)

	forged, err := NewTransaction(accs[1].addr, creator.addr, 5)
	require.NoError(t, err)
	require.NoError(t, forged.Sign(creator.key))
	forgedPayload, err := forged.Marshal()
	require.NoError(t, err)

	fromOther := signedPayload(t, accs[1], creator.addr, 5)

	cases := []struct {
		name    string
		payload []byte
		err     error
	}{
		{"empty", nil, nil},
		{"valid", signedPayload(t, creator, accs[1].addr, 5), nil},
		{"zero amount", signedPayload(t, creator, accs[1].addr, 0), ErrZeroAmount},
		{"bad signature", forgedPayload, ErrBadSignature},
		{"other sender", fromOther, ErrWrongSender},
	}

	v := PayloadValidator{}
	for _, c := range cases {
		ev := hashgraph.NewEvent(c.payload, "", "", creatorPub)
		err := v.ValidatePayload(ev)
		if c.err == nil {
			assert.NoError(t, err, c.name)
		} else {
			assert.ErrorIs(t, err, c.err, c.name)
		}
	}

	ev := hashgraph.NewEvent([]byte("garbage"), "", "", creatorPub)
	assert.Error(t, v.ValidatePayload(ev))
}

func balances(t *testing.T, l *Ledger, accs []account) []uint64 {
	res := make([]uint64, len(accs))
	for i, a := range accs {
		acc, err := l.Account(a.addr)
		require.NoError(t, err)
		res[i] = acc.Balance
	}
	return res
}

func testLedger(t *testing.T, store Store) {
	l := NewLedger(store, common.NewTestEntry(t, logrus.DebugLevel))
	accs := newAccounts(t, 3)
	a, b, c := accs[0], accs[1], accs[2]

	require.NoError(t, l.Genesis([]string{a.addr, b.addr}, 100))
	assert.Equal(t, []uint64{100, 100, 0}, balances(t, l, accs))
	assert.Equal(t, -1, l.LastApplied())

	entries := []Entry{
		{Index: 0, Creator: a.addr, Payload: signedPayload(t, a, b.addr, 30), EventHash: "e0"},
		{Index: 1, Creator: b.addr, Payload: signedPayload(t, b, a.addr, 200), EventHash: "e1"},
		{Index: 2, Creator: c.addr, Payload: []byte("garbage"), EventHash: "e2"},
		{Index: 4, Creator: a.addr, Payload: signedPayload(t, a, c.addr, 10), EventHash: "e4"},
	}

	receipts, err := l.Apply(entries)
	require.NoError(t, err)
	require.Len(t, receipts, 4)

	assert.Equal(t, Applied, receipts[0].Status)
	assert.Equal(t, InsufficientFunds, receipts[1].Status)
	assert.Equal(t, Invalid, receipts[2].Status)
	assert.NotEmpty(t, receipts[2].Error)
	assert.Equal(t, Applied, receipts[3].Status)
	assert.Equal(t, c.addr, receipts[3].To)

	assert.Equal(t, []uint64{60, 130, 10}, balances(t, l, accs))
	assert.Equal(t, 4, l.LastApplied())

	r, err := l.Receipt(1)
	require.NoError(t, err)
	assert.Equal(t, receipts[1], r)

	_, err = l.Receipt(3)
	assert.True(t, common.IsStore(err, common.KeyNotFound))

	// Replaying the same entries changes nothing
	receipts, err = l.Apply(entries)
	require.NoError(t, err)
	assert.Empty(t, receipts)
	assert.Equal(t, []uint64{60, 130, 10}, balances(t, l, accs))

	// The same signed transaction carried by another event is not applied
	// twice
	dup := entries[0]
	dup.Index = 5
	dup.EventHash = "e5"

	receipts, err = l.Apply([]Entry{dup})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, Duplicate, receipts[0].Status)
	assert.Contains(t, receipts[0].Error, "index 0")
	assert.Equal(t, []uint64{60, 130, 10}, balances(t, l, accs))
	assert.Equal(t, 5, l.LastApplied())

	// Genesis is ignored once the ledger has history
	require.NoError(t, l.Genesis([]string{c.addr}, 1000))
	assert.Equal(t, []uint64{60, 130, 10}, balances(t, l, accs))

	all, err := l.Accounts()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Address, all[i].Address)
	}
}

func TestInmemLedger(t *testing.T) {
	testLedger(t, NewInmemStore(100))
}

func TestBadgerLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")

	store, err := NewBadgerStore(path, nil)
	require.NoError(t, err)
	testLedger(t, store)

	accounts, err := store.Accounts()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 5, reopened.LastApplied())

	restored, err := reopened.Accounts()
	require.NoError(t, err)
	assert.Equal(t, accounts, restored)

	r, err := reopened.GetReceipt(0)
	require.NoError(t, err)
	assert.Equal(t, Applied, r.Status)
	assert.Equal(t, uint64(30), r.Amount)

	index, err := reopened.GetTransaction(r.TxID)
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	_, err = reopened.GetTransaction("unknown")
	assert.True(t, common.IsStore(err, common.KeyNotFound))
}

func TestSelfTransfer(t *testing.T) {
	l := NewLedger(NewInmemStore(10), nil)
	accs := newAccounts(t, 1)
	require.NoError(t, l.Genesis([]string{accs[0].addr}, 50))

	receipts, err := l.Apply([]Entry{
		{Index: 0, Creator: accs[0].addr, Payload: signedPayload(t, accs[0], accs[0].addr, 20)},
	})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, Applied, receipts[0].Status)
	assert.Equal(t, []uint64{50}, balances(t, l, accs))
}

func TestTransferOverflow(t *testing.T) {
	l := NewLedger(NewInmemStore(10), nil)
	accs := newAccounts(t, 2)
	require.NoError(t, l.Genesis([]string{accs[0].addr, accs[1].addr}, math.MaxUint64))

	receipts, err := l.Apply([]Entry{
		{Index: 0, Creator: accs[0].addr, Payload: signedPayload(t, accs[0], accs[1].addr, 1)},
	})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, Overflow, receipts[0].Status)
	assert.Equal(t, []uint64{math.MaxUint64, math.MaxUint64}, balances(t, l, accs))
}

func TestReplayedEntryIsNotADuplicate(t *testing.T) {
	store := NewInmemStore(10)
	l := NewLedger(store, nil)
	accs := newAccounts(t, 2)
	require.NoError(t, l.Genesis([]string{accs[0].addr}, 50))

	entry := Entry{Index: 0, Creator: accs[0].addr, Payload: signedPayload(t, accs[0], accs[1].addr, 20)}

	// the transaction was recorded but the crash happened before the last
	// applied index was saved
	tx := new(Transaction)
	require.NoError(t, tx.Unmarshal(entry.Payload))
	require.NoError(t, store.AddTransaction(tx.Body.ID, 0))

	receipts, err := l.Apply([]Entry{entry})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, Applied, receipts[0].Status)
	assert.Equal(t, []uint64{30, 20}, balances(t, l, accs))
}

func TestEntriesFromEventsSkipsPendingEvents(t *testing.T) {
	accs := newAccounts(t, 1)
	pub := keys.FromPublicKey(&accs[0].key.PublicKey)

	events := []*hashgraph.Event{
		hashgraph.NewEvent(nil, "", "", pub),
		hashgraph.NewEvent([]byte("payload"), "", "", pub),
	}

	assert.Empty(t, EntriesFromEvents(events))
}
