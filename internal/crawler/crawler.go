package crawler

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"ranked-crawler/internal/config"
	"ranked-crawler/internal/logging"
	"ranked-crawler/internal/riot"
	"ranked-crawler/internal/storage"
)

const dateLayout = "2006_01_02"

// ErrFatalPrecondition aborts a run before any output exists.
var ErrFatalPrecondition = errors.New("fatal precondition")

// Fetcher is the slice of the Riot API the crawl chain needs. *riot.Client implements it.
type Fetcher interface {
	GetLeague(ctx context.Context, league config.League, queue config.QueueType) (*riot.Response[riot.LeagueList], error)
	GetSummoner(ctx context.Context, summonerID string) (*riot.Response[riot.Summoner], error)
	GetMatchList(ctx context.Context, accountID int64, recent bool) (*riot.Response[riot.MatchList], error)
	GetMatch(ctx context.Context, gameID int64) (*riot.Response[riot.MatchDetail], error)
	GetTimeline(ctx context.Context, gameID int64) (*riot.Response[riot.MatchTimeline], error)
}

// SinkOpener creates the output for a run. It is only called after the
// league listing has been fetched.
type SinkOpener func(info storage.RunInfo) (storage.Sink, error)

// Options wires a Crawler. Config, Fetcher and OpenSink are required.
type Options struct {
	Config   config.CrawlConfig
	Fetcher  Fetcher
	OpenSink SinkOpener
	Logger   *logging.Logger

	// Now defaults to time.Now and fixes the date in the output file names.
	Now func() time.Time
	// Requests reports requests issued so far, usually Executor.Requests.
	Requests func() int
}

// Crawler walks league → summoner → match list → match detail + timeline
// sequentially, skipping whatever fails and continuing with the next item.
// A Crawler runs once at a time; it is not safe for concurrent use.
type Crawler struct {
	cfg      config.CrawlConfig
	fetcher  Fetcher
	openSink SinkOpener
	logger   *logging.Logger
	now      func() time.Time
	requests func() int

	ledger *Ledger

	// per run
	sink     storage.Sink
	runStart time.Time
}

func New(opts Options) (*Crawler, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("crawler: fetcher is required")
	}
	if opts.OpenSink == nil {
		return nil, errors.New("crawler: sink opener is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, errors.Wrap(err, "crawler: invalid config")
	}

	c := &Crawler{
		cfg:      opts.Config,
		fetcher:  opts.Fetcher,
		openSink: opts.OpenSink,
		logger:   opts.Logger,
		now:      opts.Now,
		requests: opts.Requests,
		ledger:   NewLedger(),
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	c.logger = c.logger.Named("crawler")
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Ledger exposes the game ids recorded so far.
func (c *Crawler) Ledger() *Ledger { return c.ledger }

// Run executes one crawl. The only errors returned are fatal ones: the league
// listing could not be fetched, the output could not be opened or written, or
// ctx was cancelled. Player and game failures are counted in the report.
func (c *Crawler) Run(ctx context.Context) (report Report, err error) {
	c.runStart = c.now()
	report = Report{
		League:    c.cfg.League.String(),
		Region:    c.cfg.Region.String(),
		QueueType: c.cfg.QueueType.String(),
	}
	defer func() {
		report.Elapsed = c.now().Sub(c.runStart)
		if c.requests != nil {
			report.Requests = c.requests()
		}
	}()

	league, err := c.fetcher.GetLeague(ctx, c.cfg.League, c.cfg.QueueType)
	if err != nil {
		return report, errors.Mark(
			errors.Wrapf(err, "fetch %s league for %s %s", c.cfg.League, c.cfg.Region, c.cfg.QueueType),
			ErrFatalPrecondition,
		)
	}
	report.LeagueEntries = len(league.Data.Entries)
	c.logger.Info("league fetched", "league", report.League, "entries", report.LeagueEntries)

	sink, err := c.openSink(storage.RunInfo{
		League:    report.League,
		Region:    report.Region,
		QueueType: report.QueueType,
		Date:      c.runStart.Format(dateLayout),
	})
	if err != nil {
		return report, errors.Mark(errors.Wrap(err, "open output"), ErrFatalPrecondition)
	}
	c.sink = sink
	defer func() { c.sink = nil }()

	runErr := c.crawlEntries(ctx, league.Data.Entries, &report)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = errors.Wrap(err, "close output")
	}
	return report, runErr
}

func (c *Crawler) crawlEntries(ctx context.Context, entries []riot.LeagueEntry, report *Report) error {
	if c.cfg.MaxPlayers < len(entries) {
		entries = entries[:c.cfg.MaxPlayers]
	}
	report.Players = make([]PlayerOutcome, 0, len(entries))

	for i, entry := range entries {
		if err := cancelled(ctx); err != nil {
			return err
		}

		c.logger.Info("processing player",
			"player", i+1,
			"of", len(entries),
			"name", entry.PlayerOrTeamName,
			"elapsed", formatDuration(c.now().Sub(c.runStart)),
		)

		outcome, err := c.crawlPlayer(ctx, entry, report)
		report.Players = append(report.Players, outcome)
		if outcome.Skipped {
			report.PlayersSkipped++
		} else {
			report.PlayersProcessed++
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// crawlPlayer runs one entry through the chain. The returned error is fatal
// for the run; a failed fetch only marks the outcome as skipped.
func (c *Crawler) crawlPlayer(ctx context.Context, entry riot.LeagueEntry, report *Report) (PlayerOutcome, error) {
	out := PlayerOutcome{SummonerID: entry.PlayerOrTeamID, Name: entry.PlayerOrTeamName, State: PlayerPending}
	skip := func(err error, what string) (PlayerOutcome, error) {
		out.Reached = out.State
		out.State = PlayerDone
		out.Skipped = true
		out.Err = err
		c.warnFetch(err, what, "summoner_id", entry.PlayerOrTeamID, "name", entry.PlayerOrTeamName)
		return out, cancelled(ctx)
	}

	summoner, err := c.fetcher.GetSummoner(ctx, entry.PlayerOrTeamID)
	if err != nil {
		return skip(err, "summoner fetch failed, skipping player")
	}
	out.State = PlayerSummonerFetched
	out.AccountID = summoner.Data.AccountID

	matchList, err := c.fetcher.GetMatchList(ctx, summoner.Data.AccountID, c.cfg.RecentOnly)
	if err != nil {
		return skip(err, "match list fetch failed, skipping player")
	}
	out.State = PlayerMatchListFetched

	accountKey := strconv.FormatInt(summoner.Data.AccountID, 10)
	if err := c.writeGroup(
		storage.Record{Category: storage.CategorySummoners, Key: accountKey, Payload: summoner.Raw},
		storage.Record{Category: storage.CategoryMatchList, Key: accountKey, Payload: matchList.Raw},
	); err != nil {
		return out, err
	}

	out.State = PlayerProcessing
	refs := matchList.Data.Matches
	if c.cfg.MaxGamesPerPlayer < len(refs) {
		refs = refs[:c.cfg.MaxGamesPerPlayer]
	}

	for _, ref := range refs {
		if err := cancelled(ctx); err != nil {
			return out, err
		}

		written, err := c.crawlGame(ctx, ref, report)
		if err != nil {
			return out, err
		}
		if written {
			out.GamesWritten++
		}
	}

	out.Reached = out.State
	out.State = PlayerDone
	return out, nil
}

// crawlGame fetches one referenced game. It reports whether rows were written.
func (c *Crawler) crawlGame(ctx context.Context, ref riot.MatchReference, report *Report) (bool, error) {
	if c.ledger.Contains(ref.GameID) {
		report.GamesDuplicate++
		c.logger.Debug("game already fetched", "game_id", ref.GameID)
		return false, nil
	}
	if !config.IsSupportedQueue(ref.Queue) {
		report.GamesFiltered++
		c.logger.Debug("game queue not supported", "game_id", ref.GameID, "queue", ref.Queue)
		return false, nil
	}

	match, err := c.fetcher.GetMatch(ctx, ref.GameID)
	if err != nil {
		report.GamesFailed++
		c.warnFetch(err, "match fetch failed, skipping game", "game_id", ref.GameID)
		return false, cancelled(ctx)
	}
	timeline, err := c.fetcher.GetTimeline(ctx, ref.GameID)
	if err != nil {
		report.GamesFailed++
		c.warnFetch(err, "timeline fetch failed, skipping game", "game_id", ref.GameID)
		return false, cancelled(ctx)
	}

	gameKey := strconv.FormatInt(ref.GameID, 10)
	if err := c.writeGroup(
		storage.Record{Category: storage.CategoryEndpoints, Key: gameKey, Payload: match.Raw},
		storage.Record{Category: storage.CategoryTimelines, Key: gameKey, Payload: timeline.Raw},
	); err != nil {
		return false, err
	}

	c.ledger.Record(ref.GameID)
	report.GamesWritten++
	return true, nil
}

// writeGroup writes records that only make sense together and commits them.
func (c *Crawler) writeGroup(records ...storage.Record) error {
	for _, rec := range records {
		if err := c.sink.Write(rec); err != nil {
			return errors.Wrapf(err, "write %s record %s", rec.Category, rec.Key)
		}
	}
	if err := c.sink.Commit(); err != nil {
		return errors.Wrap(err, "commit records")
	}
	return nil
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "crawl cancelled")
	}
	return nil
}

func (c *Crawler) warnFetch(err error, msg string, args ...any) {
	args = append(args, "error", err)
	if riot.IsFatalForRun(err) {
		// 403: key rejected or quota exhausted
		c.logger.Error(msg, args...)
		return
	}
	c.logger.Warn(msg, args...)
}

// LogSummary writes the end-of-run counters.
func LogSummary(logger *logging.Logger, r Report) {
	if logger == nil {
		logger = logging.Default()
	}
	logger.Info("crawl complete",
		"league", r.League,
		"region", r.Region,
		"queue", r.QueueType,
		"entries", r.LeagueEntries,
		"players_processed", r.PlayersProcessed,
		"players_skipped", r.PlayersSkipped,
		"games_written", r.GamesWritten,
		"games_duplicate", r.GamesDuplicate,
		"games_filtered", r.GamesFiltered,
		"games_failed", r.GamesFailed,
		"requests", r.Requests,
		"elapsed", r.ElapsedString(),
	)
}
