package ledger

import (
	"github.com/mosaicnetworks/gossipledger/src/hashgraph"
)

// Entry is a payload in the total order
type Entry struct {
	Payload   []byte
	Creator   string
	Timestamp int64
	Index     int
	EventHash string
}

// EntriesFromEvents converts consensus events into entries. Events without
// payload, or without a consensus index, are skipped.
func EntriesFromEvents(events []*hashgraph.Event) []Entry {
	entries := make([]Entry, 0, len(events))

	for _, ev := range events {
		if len(ev.Data()) == 0 || ev.GetIndex() == nil {
			continue
		}

		var ts int64
		if t := ev.GetConsensusTimestamp(); t != nil {
			ts = *t
		}

		entries = append(entries, Entry{
			Payload:   ev.Data(),
			Creator:   ev.Creator(),
			Timestamp: ts,
			Index:     *ev.GetIndex(),
			EventHash: ev.Hex(),
		})
	}

	return entries
}
