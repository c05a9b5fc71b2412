package storage

// Category is one output stream of a crawl.
type Category string

const (
	CategorySummoners Category = "summoners"
	CategoryMatchList Category = "matchlist"
	CategoryEndpoints Category = "endpoints" // match detail
	CategoryTimelines Category = "timelines"
)

// Categories lists the output streams in the order their files are opened.
var Categories = []Category{CategorySummoners, CategoryMatchList, CategoryEndpoints, CategoryTimelines}

// Record is one raw API response tied back to its owning player or game.
// Summoner and match-list records are keyed by account id, match detail and
// timeline records by game id.
type Record struct {
	Category Category
	Key      string
	Payload  []byte // raw JSON exactly as returned by the API
}

// RunInfo identifies a crawl run; it drives file naming and mirror columns.
type RunInfo struct {
	League    string
	Region    string
	QueueType string
	Date      string // YYYY_MM_DD
}

// Sink receives records in traversal order. Commit marks the end of a group
// of records that belong together (a player's rows, or a game's detail and
// timeline) and makes them durable.
type Sink interface {
	Write(rec Record) error
	Commit() error
	Close() error
}
