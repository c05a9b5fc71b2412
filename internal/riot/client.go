package riot

import (
	"context"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"

	"ranked-crawler/internal/config"
)

// Response pairs a decoded DTO with the raw body it was decoded from.
// The raw body is what gets written to the output files.
type Response[T any] struct {
	Data T
	Raw  []byte
}

// Requester is satisfied by *Executor.
type Requester interface {
	Execute(ctx context.Context, url string) (Payload, error)
}

// Client is the typed Riot API v3 surface used by the crawler.
type Client struct {
	exec      Requester
	endpoints Endpoints
}

func NewClient(exec Requester, endpoints Endpoints) *Client {
	return &Client{exec: exec, endpoints: endpoints}
}

func (c *Client) Endpoints() Endpoints { return c.endpoints }

// GetLeague fetches the roster of the given tier for a queue.
func (c *Client) GetLeague(ctx context.Context, league config.League, queue config.QueueType) (*Response[LeagueList], error) {
	return fetch[LeagueList](ctx, c.exec, c.endpoints.League(league, queue))
}

// GetSummoner fetches a profile by summoner id.
func (c *Client) GetSummoner(ctx context.Context, summonerID string) (*Response[Summoner], error) {
	return fetch[Summoner](ctx, c.exec, c.endpoints.SummonerByID(summonerID))
}

// GetSummonerByName fetches a profile by display name.
func (c *Client) GetSummonerByName(ctx context.Context, name string) (*Response[Summoner], error) {
	return fetch[Summoner](ctx, c.exec, c.endpoints.SummonerByName(name))
}

// GetMatchList fetches the match history of an account.
func (c *Client) GetMatchList(ctx context.Context, accountID int64, recent bool) (*Response[MatchList], error) {
	return fetch[MatchList](ctx, c.exec, c.endpoints.MatchList(accountID, recent))
}

// GetMatch fetches match details
func (c *Client) GetMatch(ctx context.Context, gameID int64) (*Response[MatchDetail], error) {
	return fetch[MatchDetail](ctx, c.exec, c.endpoints.Match(gameID))
}

// GetTimeline fetches match timeline
func (c *Client) GetTimeline(ctx context.Context, gameID int64) (*Response[MatchTimeline], error) {
	return fetch[MatchTimeline](ctx, c.exec, c.endpoints.Timeline(gameID))
}

func fetch[T any](ctx context.Context, exec Requester, url string) (*Response[T], error) {
	payload, err := exec.Execute(ctx, url)
	if err != nil {
		return nil, err
	}

	var data T
	if err := json.Unmarshal(payload.Body, &data); err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "decode %T from %s", data, RedactURL(url)),
			ErrUnexpectedFormat,
		)
	}
	return &Response[T]{Data: data, Raw: payload.Body}, nil
}
