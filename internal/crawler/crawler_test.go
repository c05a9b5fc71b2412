package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ranked-crawler/internal/config"
	"ranked-crawler/internal/riot"
	"ranked-crawler/internal/storage"
)

var errExhausted = &riot.FetchError{Kind: riot.KindExhausted, URL: "https://na1.api.riotgames.com/lol/x?api_key=***", Attempts: 5, LastStatus: 503}

// fakeFetcher serves canned responses and records every call in order.
type fakeFetcher struct {
	entries   []riot.LeagueEntry
	leagueErr error

	summoners    map[string]int64 // summoner id -> account id
	summonerErr  map[string]error
	matchLists   map[int64][]riot.MatchReference
	matchListErr map[int64]error
	matchErr     map[int64]error
	timelineErr  map[int64]error

	calls  []string
	recent []bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		summoners:    map[string]int64{},
		summonerErr:  map[string]error{},
		matchLists:   map[int64][]riot.MatchReference{},
		matchListErr: map[int64]error{},
		matchErr:     map[int64]error{},
		timelineErr:  map[int64]error{},
	}
}

func (f *fakeFetcher) addPlayer(summonerID string, accountID int64, refs ...riot.MatchReference) {
	f.entries = append(f.entries, riot.LeagueEntry{PlayerOrTeamID: summonerID, PlayerOrTeamName: "player-" + summonerID})
	f.summoners[summonerID] = accountID
	f.matchLists[accountID] = refs
}

func raw[T any](v T) *riot.Response[T] {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &riot.Response[T]{Data: v, Raw: data}
}

func (f *fakeFetcher) GetLeague(ctx context.Context, league config.League, queue config.QueueType) (*riot.Response[riot.LeagueList], error) {
	f.calls = append(f.calls, fmt.Sprintf("league %s %s", league, queue))
	if f.leagueErr != nil {
		return nil, f.leagueErr
	}
	return raw(riot.LeagueList{Tier: string(league), Queue: string(queue), Entries: f.entries}), nil
}

func (f *fakeFetcher) GetSummoner(ctx context.Context, summonerID string) (*riot.Response[riot.Summoner], error) {
	f.calls = append(f.calls, "summoner "+summonerID)
	if err := f.summonerErr[summonerID]; err != nil {
		return nil, err
	}
	return raw(riot.Summoner{AccountID: f.summoners[summonerID], Name: "player-" + summonerID}), nil
}

func (f *fakeFetcher) GetMatchList(ctx context.Context, accountID int64, recent bool) (*riot.Response[riot.MatchList], error) {
	f.calls = append(f.calls, fmt.Sprintf("matchlist %d", accountID))
	f.recent = append(f.recent, recent)
	if err := f.matchListErr[accountID]; err != nil {
		return nil, err
	}
	refs := f.matchLists[accountID]
	return raw(riot.MatchList{Matches: refs, TotalGames: len(refs)}), nil
}

func (f *fakeFetcher) GetMatch(ctx context.Context, gameID int64) (*riot.Response[riot.MatchDetail], error) {
	f.calls = append(f.calls, fmt.Sprintf("match %d", gameID))
	if err := f.matchErr[gameID]; err != nil {
		return nil, err
	}
	return raw(riot.MatchDetail{GameID: gameID, QueueID: 420}), nil
}

func (f *fakeFetcher) GetTimeline(ctx context.Context, gameID int64) (*riot.Response[riot.MatchTimeline], error) {
	f.calls = append(f.calls, fmt.Sprintf("timeline %d", gameID))
	if err := f.timelineErr[gameID]; err != nil {
		return nil, err
	}
	return raw(riot.MatchTimeline{FrameInterval: 60000}), nil
}

func (f *fakeFetcher) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

type memorySink struct {
	info    storage.RunInfo
	records []storage.Record
	pending []storage.Record
	commits int
	closed  bool
}

func (m *memorySink) Write(rec storage.Record) error {
	m.pending = append(m.pending, rec)
	return nil
}

func (m *memorySink) Commit() error {
	m.records = append(m.records, m.pending...)
	m.pending = nil
	m.commits++
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func (m *memorySink) keys(category storage.Category) []string {
	var out []string
	for _, r := range m.records {
		if r.Category == category {
			out = append(out, r.Key)
		}
	}
	return out
}

func ref(gameID int64, queue int) riot.MatchReference {
	return riot.MatchReference{GameID: gameID, Queue: queue}
}

func testConfig() config.CrawlConfig {
	cfg := config.Default()
	cfg.Region = config.Region("NA1")
	return cfg
}

var fixedNow = func() time.Time { return time.Date(2018, 3, 14, 9, 30, 0, 0, time.UTC) }

func newTestCrawler(t *testing.T, cfg config.CrawlConfig, f *fakeFetcher) (*Crawler, **memorySink) {
	t.Helper()
	var sink *memorySink
	c, err := New(Options{
		Config:  cfg,
		Fetcher: f,
		OpenSink: func(info storage.RunInfo) (storage.Sink, error) {
			sink = &memorySink{info: info}
			return sink, nil
		},
		Now: fixedNow,
	})
	require.NoError(t, err)
	return c, &sink
}

func TestRun_SkipsFailedPlayerAndHonoursCaps(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(1, 420))
	f.addPlayer("B", 200, ref(2, 420), ref(3, 420))
	f.addPlayer("C", 300, ref(4, 420))
	f.summonerErr["A"] = errExhausted

	cfg := testConfig()
	cfg.MaxPlayers = 2
	cfg.MaxGamesPerPlayer = 1

	c, sinkRef := newTestCrawler(t, cfg, f)
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	sink := *sinkRef
	require.NotNil(t, sink)
	assert.True(t, sink.closed)
	assert.Equal(t, storage.RunInfo{League: "CHALLENGER", Region: "NA1", QueueType: "RANKED_SOLO_5x5", Date: "2018_03_14"}, sink.info)

	assert.Equal(t, []string{"200"}, sink.keys(storage.CategorySummoners))
	assert.Equal(t, []string{"200"}, sink.keys(storage.CategoryMatchList))
	assert.Equal(t, []string{"2"}, sink.keys(storage.CategoryEndpoints))
	assert.Equal(t, []string{"2"}, sink.keys(storage.CategoryTimelines))

	assert.Equal(t, []string{
		"league CHALLENGER RANKED_SOLO_5x5",
		"summoner A",
		"summoner B",
		"matchlist 200",
		"match 2",
		"timeline 2",
	}, f.calls)

	assert.Equal(t, 3, report.LeagueEntries)
	assert.Equal(t, 1, report.PlayersProcessed)
	assert.Equal(t, 1, report.PlayersSkipped)
	assert.Equal(t, 1, report.GamesWritten)
	require.Len(t, report.Players, 2)
	assert.True(t, report.Players[0].Skipped)
	assert.Equal(t, PlayerPending, report.Players[0].Reached)
	assert.True(t, errors.Is(report.Players[0].Err, riot.ErrExhausted))
	assert.Equal(t, PlayerDone, report.Players[1].State)
	assert.Equal(t, 1, report.Players[1].GamesWritten)
}

func TestRun_DeduplicatesGamesAcrossPlayers(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(10, 420), ref(11, 420))
	f.addPlayer("B", 200, ref(11, 420), ref(12, 4))

	c, sinkRef := newTestCrawler(t, testConfig(), f)
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.count("match 11"))
	assert.Equal(t, 1, f.count("timeline 11"))
	assert.Equal(t, []string{"10", "11", "12"}, (*sinkRef).keys(storage.CategoryEndpoints))
	assert.Equal(t, 3, report.GamesWritten)
	assert.Equal(t, 1, report.GamesDuplicate)
	assert.Equal(t, 3, c.Ledger().Len())
}

func TestRun_FiltersUnsupportedQueues(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(20, 450), ref(21, 42), ref(22, 440))

	c, sinkRef := newTestCrawler(t, testConfig(), f)
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, f.count("match 20"))
	assert.Zero(t, f.count("match 22"))
	assert.Equal(t, []string{"21"}, (*sinkRef).keys(storage.CategoryEndpoints))
	assert.Equal(t, 2, report.GamesFiltered)
	assert.False(t, c.Ledger().Contains(20))
	assert.True(t, c.Ledger().Contains(21))
}

func TestRun_PartialGameFetchWritesNothing(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(30, 420), ref(31, 420))
	f.addPlayer("B", 200, ref(30, 420))
	f.timelineErr[30] = errExhausted

	c, sinkRef := newTestCrawler(t, testConfig(), f)
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	sink := *sinkRef
	assert.Equal(t, []string{"31"}, sink.keys(storage.CategoryEndpoints))
	assert.Equal(t, []string{"31"}, sink.keys(storage.CategoryTimelines))
	assert.False(t, c.Ledger().Contains(30))
	// not recorded, so player B tries it again
	assert.Equal(t, 2, f.count("match 30"))
	assert.Equal(t, 2, report.GamesFailed)
	assert.Equal(t, 1, report.GamesWritten)
	assert.Equal(t, 2, report.PlayersProcessed)
}

func TestRun_MatchListFailureWritesNoPlayerRows(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(40, 420))
	f.addPlayer("B", 200, ref(41, 420))
	f.matchListErr[100] = &riot.FetchError{Kind: riot.KindRateLimitOrAuth, Attempts: 1, LastStatus: 403}

	c, sinkRef := newTestCrawler(t, testConfig(), f)
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	sink := *sinkRef
	assert.Equal(t, []string{"200"}, sink.keys(storage.CategorySummoners))
	assert.Equal(t, []string{"200"}, sink.keys(storage.CategoryMatchList))
	assert.Equal(t, PlayerSummonerFetched, report.Players[0].Reached)
	assert.Equal(t, int64(100), report.Players[0].AccountID)
	assert.Equal(t, 1, report.PlayersSkipped)
}

func TestRun_LeagueFailureOpensNoOutput(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100)
	f.leagueErr = errExhausted

	c, sinkRef := newTestCrawler(t, testConfig(), f)
	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFatalPrecondition))
	assert.True(t, errors.Is(err, riot.ErrExhausted))
	assert.Nil(t, *sinkRef)
	assert.Equal(t, []string{"league CHALLENGER RANKED_SOLO_5x5"}, f.calls)
}

// tickingNow advances one minute on every call.
func tickingNow() func() time.Time {
	calls := 0
	return func() time.Time {
		calls++
		return fixedNow().Add(time.Duration(calls) * time.Minute)
	}
}

func TestRun_ReportsRequestsAndElapsed(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(1, 420))

	c, err := New(Options{
		Config:  testConfig(),
		Fetcher: f,
		OpenSink: func(info storage.RunInfo) (storage.Sink, error) {
			return &memorySink{info: info}, nil
		},
		Now:      tickingNow(),
		Requests: func() int { return 42 },
	})
	require.NoError(t, err)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, report.Requests)
	assert.GreaterOrEqual(t, report.Elapsed, time.Minute)
	assert.Zero(t, report.Elapsed%time.Minute)
	assert.Equal(t, 1, report.GamesWritten)
}

func TestRun_ReportsRequestsAndElapsedOnLeagueFailure(t *testing.T) {
	f := newFakeFetcher()
	f.leagueErr = errExhausted

	c, err := New(Options{
		Config:  testConfig(),
		Fetcher: f,
		OpenSink: func(info storage.RunInfo) (storage.Sink, error) {
			return &memorySink{info: info}, nil
		},
		Now:      tickingNow(),
		Requests: func() int { return 5 },
	})
	require.NoError(t, err)

	report, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 5, report.Requests)
	assert.Equal(t, time.Minute, report.Elapsed)
}

func TestRun_ZeroCapsStillCreateOutput(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(50, 420))

	cfg := testConfig()
	cfg.MaxPlayers = 0

	c, sinkRef := newTestCrawler(t, cfg, f)
	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, *sinkRef)
	assert.Empty(t, (*sinkRef).records)
	assert.Empty(t, report.Players)
}

func TestRun_PassesRecentFlag(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100)

	cfg := testConfig()
	cfg.RecentOnly = true

	c, _ := newTestCrawler(t, cfg, f)
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, f.recent)
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(60, 420))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, sinkRef := newTestCrawler(t, testConfig(), f)
	_, err := c.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, (*sinkRef).closed)
}

func TestRun_WritesNamedFiles(t *testing.T) {
	f := newFakeFetcher()
	f.addPlayer("A", 100, ref(70, 420))

	dir := t.TempDir()
	c, err := New(Options{
		Config:  testConfig(),
		Fetcher: f,
		OpenSink: func(info storage.RunInfo) (storage.Sink, error) {
			return storage.NewFileSink(dir, info)
		},
		Now: fixedNow,
	})
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "CHALLENGER-endpoints-NA1-RANKED_SOLO_5x5-2018_03_14.json"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 1)

	id, body, ok := strings.Cut(lines[0], "\t")
	require.True(t, ok)
	assert.Equal(t, "70", id)

	var detail riot.MatchDetail
	require.NoError(t, json.Unmarshal([]byte(body), &detail))
	assert.Equal(t, int64(70), detail.GameID)

	data, err = os.ReadFile(filepath.Join(dir, "CHALLENGER-summoners-NA1-RANKED_SOLO_5x5-2018_03_14.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "100\t{"))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Region = "XX1"
	_, err := New(Options{Config: cfg, Fetcher: newFakeFetcher(), OpenSink: func(storage.RunInfo) (storage.Sink, error) { return nil, nil }})
	assert.Error(t, err)

	_, err = New(Options{Config: testConfig(), OpenSink: func(storage.RunInfo) (storage.Sink, error) { return nil, nil }})
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00", formatDuration(0))
	assert.Equal(t, "01:02:03", formatDuration(time.Hour+2*time.Minute+3*time.Second))
}
