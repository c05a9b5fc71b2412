package riot

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ranked-crawler/internal/config"
)

// Endpoints builds absolute v3 API URLs for one platform, api key included.
type Endpoints struct {
	prefix string // e.g. https://na1.api.riotgames.com/lol
	suffix string // ?api_key=...
}

// NewEndpoints targets https://{region}.api.riotgames.com/lol.
func NewEndpoints(region config.Region, apiKey string) Endpoints {
	return NewEndpointsWithBase(fmt.Sprintf("https://%s.api.riotgames.com/lol", region.Host()), apiKey)
}

// NewEndpointsWithBase uses an arbitrary base, which tests point at an httptest server.
func NewEndpointsWithBase(base, apiKey string) Endpoints {
	return Endpoints{
		prefix: strings.TrimRight(base, "/"),
		suffix: "?api_key=" + url.QueryEscape(apiKey),
	}
}

func (e Endpoints) build(path string) string {
	return e.prefix + path + e.suffix
}

// League returns the league listing URL for the tier and queue.
func (e Endpoints) League(league config.League, queue config.QueueType) string {
	switch league {
	case config.LeagueMaster:
		return e.build("/league/v3/masterleagues/by-queue/" + string(queue))
	default:
		return e.build("/league/v3/challengerleagues/by-queue/" + string(queue))
	}
}

func (e Endpoints) SummonerByID(summonerID string) string {
	return e.build("/summoner/v3/summoners/" + url.PathEscape(summonerID))
}

// SummonerByName is kept for completeness; names have inconsistent encoding so
// SummonerByID is preferred.
func (e Endpoints) SummonerByName(name string) string {
	return e.build("/summoner/v3/summoners/by-name/" + url.PathEscape(name))
}

// MatchList returns the match history URL. recent limits it to the last 20 games.
func (e Endpoints) MatchList(accountID int64, recent bool) string {
	path := "/match/v3/matchlists/by-account/" + strconv.FormatInt(accountID, 10)
	if recent {
		path += "/recent"
	}
	return e.build(path)
}

func (e Endpoints) Match(gameID int64) string {
	return e.build("/match/v3/matches/" + strconv.FormatInt(gameID, 10))
}

func (e Endpoints) Timeline(gameID int64) string {
	return e.build("/match/v3/timelines/by-match/" + strconv.FormatInt(gameID, 10))
}

func (e Endpoints) ShardStatus() string {
	return e.build("/status/v3/shard-data")
}
