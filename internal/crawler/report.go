package crawler

import (
	"fmt"
	"time"
)

// PlayerState is how far a league entry progressed through the chain.
type PlayerState int

const (
	PlayerPending PlayerState = iota
	PlayerSummonerFetched
	PlayerMatchListFetched
	PlayerProcessing
	PlayerDone
)

func (s PlayerState) String() string {
	switch s {
	case PlayerPending:
		return "pending"
	case PlayerSummonerFetched:
		return "summoner_fetched"
	case PlayerMatchListFetched:
		return "matchlist_fetched"
	case PlayerProcessing:
		return "processing"
	case PlayerDone:
		return "done"
	default:
		return "unknown"
	}
}

// PlayerOutcome records what happened to one league entry.
type PlayerOutcome struct {
	SummonerID string
	Name       string
	AccountID  int64

	// Reached is the last state entered before Done.
	Reached PlayerState
	State   PlayerState
	Skipped bool
	Err     error

	GamesWritten int
}

// Report summarises a run.
type Report struct {
	League    string
	Region    string
	QueueType string

	LeagueEntries int
	Players       []PlayerOutcome

	PlayersProcessed int
	PlayersSkipped   int

	GamesWritten   int
	GamesDuplicate int
	GamesFiltered  int
	GamesFailed    int

	Requests int
	Elapsed  time.Duration
}

// formatDuration formats a duration as HH:MM:SS
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ElapsedString returns the run time as HH:MM:SS.
func (r Report) ElapsedString() string { return formatDuration(r.Elapsed) }
