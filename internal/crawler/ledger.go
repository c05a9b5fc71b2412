package crawler

import (
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	ledgerEstimatedGames = 100000
	ledgerFalsePositive  = 0.001
)

// Ledger remembers the game ids whose detail and timeline were both fetched
// during this run. The bloom filter answers most "never seen" lookups without
// touching the map; the map settles the filter's false positives.
// It lives for one run only and is mutated by the run loop alone.
type Ledger struct {
	filter *bloom.BloomFilter
	games  map[int64]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		filter: bloom.NewWithEstimates(ledgerEstimatedGames, ledgerFalsePositive),
		games:  make(map[int64]struct{}),
	}
}

// Contains reports whether the game was already recorded.
func (l *Ledger) Contains(gameID int64) bool {
	if !l.filter.TestString(ledgerKey(gameID)) {
		return false
	}
	_, ok := l.games[gameID]
	return ok
}

// Record adds a game id. Recording the same id twice is a no-op.
func (l *Ledger) Record(gameID int64) {
	l.filter.AddString(ledgerKey(gameID))
	l.games[gameID] = struct{}{}
}

func (l *Ledger) Len() int { return len(l.games) }

func ledgerKey(gameID int64) string {
	return strconv.FormatInt(gameID, 10)
}
