package hashgraph

import (
	"crypto/ecdsa"
	"sort"
	"testing"

	"github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
)

/*
The consensus fixture is a hashgraph of 34 events created by 4 participants:
Alice, Bob, Carol and Dave. Events are referred to by their position in the
plays table, which is also their CreatedAt; events 0 to 3 are the genesis
events. Every other event is the record of a sync: its self-parent is the
creator's previous event and its other-parent is an event of the peer it synced
with.

Alice stays silent until Bob syncs her genesis event in event 12, and Carol
and Dave only hear about Bob through event 12. This keeps events 0 to 11 in
round 0 and lets event 12 strongly see events 1, 2 and 3 but not event 0.

Resulting rounds (witnesses in brackets):

	round 0: [0] [1] [2] [3] 4 5 6 7 8 9 10 11
	round 1: [12] [13] [14] 15 16 [17] 18
	round 2: [19] [20] 21 22 [23] 24 26
	round 3: [25] [27] [28] 29 [30] 31 32
	round 4: [33]

Fame: event 17, Dave's late round 1 witness, is seen by a single round 2
witness and is not famous. Rounds 3 and 4 are undecided. Every other witness
is famous. Rounds 0 to 2 are decided when event 33 arrives, which lets 16
events reach consensus.
*/

const (
	alice = iota
	bob
	carol
	dave
)

// play is an event of the fixture. Parents are positions in the plays table;
// genesis events have none.
type play struct {
	creator     int
	selfParent  int
	otherParent int
}

const none = -1

type fixtureNode struct {
	key *ecdsa.PrivateKey
	pub []byte
}

var fixturePlays = []play{
	{alice, none, none}, // 0
	{bob, none, none},   // 1
	{carol, none, none}, // 2
	{dave, none, none},  // 3
	{bob, 1, 3},         // 4
	{carol, 2, 3},       // 5
	{dave, 3, 5},        // 6
	{carol, 5, 6},       // 7
	{bob, 4, 2},         // 8
	{dave, 6, 7},        // 9
	{carol, 7, 9},       // 10
	{dave, 9, 10},       // 11
	{bob, 8, 0},         // 12
	{alice, 0, 12},      // 13
	{carol, 10, 13},     // 14
	{alice, 13, 12},     // 15
	{carol, 14, 12},     // 16
	{dave, 11, 15},      // 17
	{bob, 12, 17},       // 18
	{bob, 18, 16},       // 19
	{alice, 15, 16},     // 20
	{bob, 19, 17},       // 21
	{bob, 21, 20},       // 22
	{carol, 16, 20},     // 23
	{alice, 20, 23},     // 24
	{alice, 24, 22},     // 25
	{bob, 22, 17},       // 26
	{carol, 23, 25},     // 27
	{bob, 26, 25},       // 28
	{alice, 25, 27},     // 29
	{dave, 17, 27},      // 30
	{bob, 28, 30},       // 31
	{alice, 29, 27},     // 32
	{carol, 27, 31},     // 33
}

func initFixtureNodes(t testing.TB, n int) []fixtureNode {
	nodes := make([]fixtureNode, n)
	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		nodes[i] = fixtureNode{
			key: key,
			pub: keys.FromPublicKey(&key.PublicKey),
		}
	}
	return nodes
}

// playEvents creates and signs the events described by plays, in order. The
// event at position i has CreatedAt i.
func playEvents(t testing.TB, plays []play, nodes []fixtureNode) []*Event {
	events := make([]*Event, 0, len(plays))

	hash := func(pos int) string {
		if pos == none {
			return ""
		}
		return events[pos].Hex()
	}

	for i, p := range plays {
		ev := NewEvent(nil, hash(p.selfParent), hash(p.otherParent), nodes[p.creator].pub)
		ev.Body.CreatedAt = int64(i)

		if err := ev.Sign(nodes[p.creator].key); err != nil {
			t.Fatal(err)
		}

		events = append(events, ev)
	}

	return events
}

// initConsensusFixture indexes the fixture and returns the event hashes by
// position
func initConsensusFixture(t testing.TB) (*EventIndex, []string) {
	nodes := initFixtureNodes(t, 4)
	idx := NewEventIndex(1000)

	events := playEvents(t, fixturePlays, nodes)
	hashes := make([]string, len(events))

	for i, ev := range events {
		if _, err := idx.Insert(ev); err != nil {
			t.Fatalf("inserting event %d: %v", i, err)
		}
		hashes[i] = ev.Hex()
	}

	return idx, hashes
}

func getAt(t testing.TB, idx *EventIndex, hashes []string, pos int) *Event {
	ev, ok := idx.Get(hashes[pos])
	if !ok {
		t.Fatalf("event %d not found", pos)
	}
	return ev
}

/******************************************************************************/

func TestCanSee(t *testing.T) {
	idx, hashes := initConsensusFixture(t)

	for _, h := range hashes {
		if !CanSee(idx, h, h) {
			t.Fatalf("%s should see itself", h)
		}
	}

	for g := 0; g < 4; g++ {
		for pos, h := range hashes {
			if pos != g && CanSee(idx, hashes[g], h) {
				t.Fatalf("genesis event %d should not see event %d", g, pos)
			}
		}
	}

	expected := []struct {
		x, y int
		val  bool
	}{
		{12, 0, true},
		{11, 1, false},
		{8, 2, true},
		{8, 5, false},
		{14, 12, true},
		{17, 14, false},
		{19, 17, true},
		{20, 17, false},
		{23, 17, false},
		{30, 17, true},
		{33, 0, true},
		{1, 4, false},
	}

	for _, e := range expected {
		if res := CanSee(idx, hashes[e.x], hashes[e.y]); res != e.val {
			t.Fatalf("%d CanSee %d should be %v, not %v", e.x, e.y, e.val, res)
		}
	}

	if CanSee(idx, hashes[33], "0XUNKNOWN") {
		t.Fatal("an unknown event cannot be seen")
	}
}

func TestStronglySeeFrontier(t *testing.T) {
	idx, hashes := initConsensusFixture(t)

	cases := []struct {
		x        int
		expected []int
	}{
		// Dave is covered by event 3, the traversal stops there
		{12, []int{12, 8, 0, 4, 2, 1, 3}},
		// 11 has no ancestor from Alice or Bob; the traversal runs out of events
		{11, []int{11, 9, 10, 6, 7, 3, 5, 2}},
	}

	for _, c := range cases {
		visited := stronglySeeFrontier(idx, hashes[c.x], 4)
		if len(visited) != len(c.expected) {
			t.Fatalf("frontier of %d: visited %d events, expected %d", c.x, len(visited), len(c.expected))
		}

		for i, pos := range c.expected {
			if visited[i] != hashes[pos] {
				t.Fatalf("frontier of %d: visited[%d] should be event %d", c.x, i, pos)
			}
		}
	}
}

func TestCanStronglySee(t *testing.T) {
	idx, hashes := initConsensusFixture(t)

	expected := []struct {
		x, y int
		val  bool
	}{
		// 12 and 0 are the only events of 12's frontier that see 0
		{12, 0, false},
		{12, 1, true},
		{12, 2, true},
		{12, 3, true},
		{8, 2, false},
		{8, 3, true},
		{13, 0, true},
		{19, 12, true},
		{19, 17, true},
		{20, 17, false},
		{23, 17, false},
		{25, 19, true},
		{33, 25, true},
		{0, 0, false},
	}

	for _, e := range expected {
		if res := CanStronglySee(idx, hashes[e.x], hashes[e.y], 4); res != e.val {
			t.Fatalf("%d CanStronglySee %d should be %v, not %v", e.x, e.y, e.val, res)
		}
	}
}

func TestSuperMajority(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 4, 6: 4, 7: 5, 10: 7}
	for n, sm := range cases {
		if res := SuperMajority(n); res != sm {
			t.Fatalf("SuperMajority(%d) should be %d, not %d", n, sm, res)
		}
	}
}

var fixtureRoundSizes = []int{12, 7, 7, 7, 1}

var fixtureWitnesses = map[int][]int{
	0: {0, 1, 2, 3},
	1: {12, 13, 14, 17},
	2: {19, 20, 23},
	3: {25, 27, 28, 30},
	4: {33},
}

// expectedRound returns the round of the event at pos
func expectedRound(pos int) int {
	switch {
	case pos >= 33:
		return 4
	case pos == 25 || pos >= 27:
		return 3
	case pos >= 19:
		return 2
	case pos >= 12:
		return 1
	default:
		return 0
	}
}

func isFixtureWitness(pos int) bool {
	for _, ws := range fixtureWitnesses {
		for _, w := range ws {
			if w == pos {
				return true
			}
		}
	}
	return false
}

func checkRounds(t *testing.T, idx *EventIndex, hashes []string) {
	for pos := range hashes {
		ev := getAt(t, idx, hashes, pos)
		if ev.GetRound() == nil {
			t.Fatalf("%d has no round", pos)
		}
		if r := expectedRound(pos); *ev.GetRound() != r {
			t.Fatalf("%d round should be %d, not %d", pos, r, *ev.GetRound())
		}
		if w := isFixtureWitness(pos); ev.IsWitness() != w {
			t.Fatalf("%d witness should be %v", pos, w)
		}
	}
}

func TestDivideRounds(t *testing.T) {
	idx, hashes := initConsensusFixture(t)

	if err := DivideRounds(idx, 4); err != nil {
		t.Fatal(err)
	}

	checkRounds(t, idx, hashes)

	if ev := getAt(t, idx, hashes, 14); *ev.GetRound() != 1 || !ev.IsWitness() {
		t.Fatal("14 should be a round 1 witness")
	}
	if ev := getAt(t, idx, hashes, 11); *ev.GetRound() != 0 {
		t.Fatalf("11 should be in round 0, not %d", *ev.GetRound())
	}

	if idx.LastRound() != 4 {
		t.Fatalf("last round should be 4, not %d", idx.LastRound())
	}

	for r, ws := range fixtureWitnesses {
		ri := idx.Round(r)
		if len(ri.Witnesses) != len(ws) {
			t.Fatalf("round %d should have %d witnesses, not %d", r, len(ws), len(ri.Witnesses))
		}
		for _, w := range ws {
			if _, ok := ri.Witnesses[hashes[w]]; !ok {
				t.Fatalf("%d should be a witness of round %d", w, r)
			}
		}
	}

	for r, size := range fixtureRoundSizes {
		if n := len(idx.Round(r).Events); n != size {
			t.Fatalf("round %d should have %d events, not %d", r, size, n)
		}
	}
}

func TestDivideRoundsProperties(t *testing.T) {
	idx, _ := initConsensusFixture(t)

	if err := DivideRounds(idx, 4); err != nil {
		t.Fatal(err)
	}

	for _, h := range idx.Hashes() {
		ev, _ := idx.Get(h)

		if ev.IsGenesis() {
			if *ev.GetRound() != 0 || !ev.IsWitness() {
				t.Fatalf("genesis %s should be a round 0 witness", h)
			}
			continue
		}

		sp, _ := idx.Get(ev.SelfParent())
		op, _ := idx.Get(ev.OtherParent())

		if *ev.GetRound() < *sp.GetRound() || *ev.GetRound() < *op.GetRound() {
			t.Fatalf("%s round is lower than a parent's", h)
		}

		if ev.IsWitness() != (*ev.GetRound() > *sp.GetRound()) {
			t.Fatalf("%s witness flag does not match its self-parent's round", h)
		}
	}
}

func TestDivideRoundsIdempotent(t *testing.T) {
	idx, hashes := initConsensusFixture(t)

	if err := DivideRounds(idx, 4); err != nil {
		t.Fatal(err)
	}

	if err := DivideRounds(idx, 4); err != nil {
		t.Fatal(err)
	}

	checkRounds(t, idx, hashes)

	for r, size := range fixtureRoundSizes {
		if n := len(idx.Round(r).Events); n != size {
			t.Fatalf("round %d changed size on the second run: %d", r, n)
		}
	}
}

var fixtureFame = map[int]common.Trilean{
	0:  common.True,
	1:  common.True,
	2:  common.True,
	3:  common.True,
	12: common.True,
	13: common.True,
	14: common.True,
	17: common.False,
	19: common.True,
	20: common.True,
	23: common.True,
	25: common.Undefined,
	27: common.Undefined,
	28: common.Undefined,
	30: common.Undefined,
	33: common.Undefined,
}

func checkFame(t *testing.T, idx *EventIndex, hashes []string) {
	for pos, fame := range fixtureFame {
		ev := getAt(t, idx, hashes, pos)
		if ev.Famous() != fame {
			t.Fatalf("%d should be %v, not %v", pos, fame, ev.Famous())
		}
		if f := idx.Round(*ev.GetRound()).Fame(hashes[pos]); f != fame {
			t.Fatalf("round info of %d should say %v, not %v", pos, fame, f)
		}
	}

	// fame is only decided for witnesses
	for _, pos := range []int{7, 21} {
		if f := getAt(t, idx, hashes, pos).Famous(); f != common.Undefined {
			t.Fatalf("%d should be undefined, not %v", pos, f)
		}
	}
}

func TestDecideFame(t *testing.T) {
	idx, hashes := initConsensusFixture(t)

	if err := DivideRounds(idx, 4); err != nil {
		t.Fatal(err)
	}

	DecideFame(idx, 4)

	checkFame(t, idx, hashes)

	if idx.DecidedUpTo() != 2 {
		t.Fatalf("rounds should be decided up to 2, not %d", idx.DecidedUpTo())
	}

	// a second run must not change anything
	DecideFame(idx, 4)

	checkFame(t, idx, hashes)
}

type orderItem struct {
	pos           int
	roundReceived int
	timestamp     int64
}

var fixtureOrder = []orderItem{
	{0, 1, 12},
	{1, 1, 13},
	{2, 1, 8},
	{3, 1, 5},
	{4, 1, 13},
	{8, 1, 13},
	{5, 2, 18},
	{6, 2, 18},
	{7, 2, 18},
	{9, 2, 18},
	{10, 2, 18},
	{12, 2, 13},
	{13, 2, 14},
	{14, 2, 19},
	{15, 2, 18},
	{16, 2, 19},
}

func TestFindOrder(t *testing.T) {
	idx, hashes := initConsensusFixture(t)

	if err := DivideRounds(idx, 4); err != nil {
		t.Fatal(err)
	}
	DecideFame(idx, 4)

	received := FindOrder(idx, idx.Hashes())

	if len(received) != len(fixtureOrder) {
		t.Fatalf("%d events should be received, not %d", len(fixtureOrder), len(received))
	}

	for _, e := range fixtureOrder {
		ev := getAt(t, idx, hashes, e.pos)
		if ev.GetRoundReceived() == nil {
			t.Fatalf("%d should have a round-received", e.pos)
		}
		if *ev.GetRoundReceived() != e.roundReceived {
			t.Fatalf("%d round-received should be %d, not %d", e.pos, e.roundReceived, *ev.GetRoundReceived())
		}
		if *ev.GetConsensusTimestamp() != e.timestamp {
			t.Fatalf("%d timestamp should be %d, not %d", e.pos, e.timestamp, *ev.GetConsensusTimestamp())
		}
	}

	// 0 is received in round 1, whose famous witnesses are 12, 13 and 14. The
	// oldest self-ancestors that see 0 are 12 itself, 0 and 14 itself.
	first := getAt(t, idx, hashes, 0)
	if ts, created := *first.GetConsensusTimestamp(), getAt(t, idx, hashes, 12).Body.CreatedAt; ts != created {
		t.Fatalf("0 timestamp should be the creation time of 12 (%d), not %d", created, ts)
	}

	for _, pos := range []int{11, 17, 18, 19, 21, 25, 33} {
		if getAt(t, idx, hashes, pos).GetRoundReceived() != nil {
			t.Fatalf("%d should not be received yet", pos)
		}
	}

	if again := FindOrder(idx, idx.Hashes()); len(again) != 0 {
		t.Fatalf("a second run should not receive anything, got %d", len(again))
	}
}

func TestConsensusSorter(t *testing.T) {
	idx, hashes := initConsensusFixture(t)

	DivideRounds(idx, 4)
	DecideFame(idx, 4)
	received := FindOrder(idx, idx.Hashes())

	sorted := func(in []string) []string {
		events := make([]*Event, len(in))
		for i, h := range in {
			events[i], _ = idx.Get(h)
		}
		sort.Sort(NewConsensusSorter(idx, events))
		res := make([]string, len(events))
		for i, ev := range events {
			res[i] = ev.Hex()
		}
		return res
	}

	first := sorted(received)

	reversed := make([]string, len(received))
	for i, h := range received {
		reversed[len(received)-1-i] = h
	}
	second := sorted(reversed)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sorting is not stable at position %d", i)
		}
	}

	position := make(map[string]int)
	for i, h := range first {
		position[h] = i
	}

	// events sharing a round-received and a timestamp are ordered by their
	// whitened signatures, which change with every run
	groups := []struct {
		events   []int
		from, to int
	}{
		{[]int{3}, 0, 0},
		{[]int{2}, 1, 1},
		{[]int{0}, 2, 2},
		{[]int{1, 4, 8}, 3, 5},
		{[]int{12}, 6, 6},
		{[]int{13}, 7, 7},
		{[]int{5, 6, 7, 9, 10, 15}, 8, 13},
		{[]int{14, 16}, 14, 15},
	}

	for _, g := range groups {
		for _, pos := range g.events {
			p := position[hashes[pos]]
			if p < g.from || p > g.to {
				t.Fatalf("%d should be between %d and %d, not at %d", pos, g.from, g.to, p)
			}
		}
	}
}
