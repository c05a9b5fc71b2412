package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// League is the ranked tier whose roster seeds a crawl.
type League string

const (
	LeagueChallenger League = "CHALLENGER"
	LeagueMaster     League = "MASTER"
)

// Region is a Riot platform code.
type Region string

// QueueType is a ranked queue name accepted by the league endpoints.
type QueueType string

const (
	QueueRankedSolo        QueueType = "RANKED_SOLO_5x5"
	QueueTeamBuilderRanked QueueType = "TEAM_BUILDER_RANKED_SOLO"
	QueueRankedTeam        QueueType = "RANKED_TEAM_5x5"
)

var (
	ValidLeagues = []League{LeagueChallenger, LeagueMaster}

	ValidRegions = []Region{
		"BR1", "EUN1", "EUW1",
		"JP1", "KR", "LA1",
		"LA2", "NA1", "OC1",
		"TR1", "RU", "PBE1",
	}

	ValidQueueTypes = []QueueType{QueueRankedSolo, QueueTeamBuilderRanked, QueueRankedTeam}
)

// SupportedQueueIDs are the numeric match queues kept by the crawler:
// 4 = RANKED_SOLO_5x5, 420 = TEAM_BUILDER_RANKED_SOLO, 42 = RANKED_TEAM_5x5.
var SupportedQueueIDs = map[int]QueueType{
	4:   QueueRankedSolo,
	420: QueueTeamBuilderRanked,
	42:  QueueRankedTeam,
}

// IsSupportedQueue reports whether a match reference's queue id is crawled.
func IsSupportedQueue(queueID int) bool {
	_, ok := SupportedQueueIDs[queueID]
	return ok
}

var (
	_ pflag.Value = (*League)(nil)
	_ pflag.Value = (*Region)(nil)
	_ pflag.Value = (*QueueType)(nil)
)

func (l League) String() string { return string(l) }
func (l *League) Type() string  { return "league" }

func (l *League) Set(v string) error {
	parsed, err := ParseLeague(v)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (r Region) String() string { return string(r) }
func (r *Region) Type() string  { return "region" }

// Host returns the lowercase platform host prefix, e.g. "na1".
func (r Region) Host() string { return strings.ToLower(string(r)) }

func (r *Region) Set(v string) error {
	parsed, err := ParseRegion(v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (q QueueType) String() string { return string(q) }
func (q *QueueType) Type() string  { return "queue" }

func (q *QueueType) Set(v string) error {
	parsed, err := ParseQueueType(v)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func ParseLeague(v string) (League, error) {
	if l := League(v); slices.Contains(ValidLeagues, l) {
		return l, nil
	}
	return "", choiceError("league name", v, ValidLeagues)
}

func ParseRegion(v string) (Region, error) {
	if r := Region(v); slices.Contains(ValidRegions, r) {
		return r, nil
	}
	return "", choiceError("region name", v, ValidRegions)
}

func ParseQueueType(v string) (QueueType, error) {
	if q := QueueType(v); slices.Contains(ValidQueueTypes, q) {
		return q, nil
	}
	return "", choiceError("queue type", v, ValidQueueTypes)
}

func choiceError[T ~string](what, got string, choices []T) error {
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = string(c)
	}
	return fmt.Errorf("%s %q is invalid, use one of the following values: %s",
		what, got, strings.Join(names, ", "))
}
