package riot

import (
	json "github.com/goccy/go-json"
)

// LeagueList represents the response from /league/v3/{tier}leagues/by-queue/{queue}
type LeagueList struct {
	LeagueID string        `json:"leagueId"`
	Name     string        `json:"name"`
	Tier     string        `json:"tier"`
	Queue    string        `json:"queue"`
	Entries  []LeagueEntry `json:"entries"`
}

// LeagueEntry is one ranked standing in a league listing.
type LeagueEntry struct {
	PlayerOrTeamID   string `json:"playerOrTeamId"`
	PlayerOrTeamName string `json:"playerOrTeamName"`
	Rank             string `json:"rank"`
	LeaguePoints     int    `json:"leaguePoints"`
	Wins             int    `json:"wins"`
	Losses           int    `json:"losses"`
	HotStreak        bool   `json:"hotStreak"`
	Veteran          bool   `json:"veteran"`
	FreshBlood       bool   `json:"freshBlood"`
	Inactive         bool   `json:"inactive"`
}

// Summoner represents the response from /summoner/v3/summoners/{summonerId}
type Summoner struct {
	ID            int64  `json:"id"`
	AccountID     int64  `json:"accountId"`
	Name          string `json:"name"`
	ProfileIconID int    `json:"profileIconId"`
	SummonerLevel int64  `json:"summonerLevel"`
	RevisionDate  int64  `json:"revisionDate"`
}

// MatchList represents the response from /match/v3/matchlists/by-account/{accountId}
type MatchList struct {
	Matches    []MatchReference `json:"matches"`
	TotalGames int              `json:"totalGames"`
	StartIndex int              `json:"startIndex"`
	EndIndex   int              `json:"endIndex"`
}

// MatchReference points at a game in a player's history.
type MatchReference struct {
	GameID     int64  `json:"gameId"`
	PlatformID string `json:"platformId"`
	Queue      int    `json:"queue"`
	Season     int    `json:"season"`
	Champion   int    `json:"champion"`
	Lane       string `json:"lane"`
	Role       string `json:"role"`
	Timestamp  int64  `json:"timestamp"`
}

// MatchDetail represents the response from /match/v3/matches/{matchId}
type MatchDetail struct {
	GameID                int64                 `json:"gameId"`
	PlatformID            string                `json:"platformId"`
	QueueID               int                   `json:"queueId"`
	SeasonID              int                   `json:"seasonId"`
	GameVersion           string                `json:"gameVersion"`
	GameMode              string                `json:"gameMode"`
	GameCreation          int64                 `json:"gameCreation"`
	GameDuration          int64                 `json:"gameDuration"`
	Teams                 []TeamStats           `json:"teams"`
	Participants          []Participant         `json:"participants"`
	ParticipantIdentities []ParticipantIdentity `json:"participantIdentities"`
}

type TeamStats struct {
	TeamID         int    `json:"teamId"`
	Win            string `json:"win"` // "Win" or "Fail"
	FirstBlood     bool   `json:"firstBlood"`
	TowerKills     int    `json:"towerKills"`
	InhibitorKills int    `json:"inhibitorKills"`
	BaronKills     int    `json:"baronKills"`
	DragonKills    int    `json:"dragonKills"`
}

type Participant struct {
	ParticipantID int              `json:"participantId"`
	TeamID        int              `json:"teamId"`
	ChampionID    int              `json:"championId"`
	Spell1ID      int              `json:"spell1Id"`
	Spell2ID      int              `json:"spell2Id"`
	Stats         ParticipantStats `json:"stats"`
	Timeline      json.RawMessage  `json:"timeline,omitempty"`
}

type ParticipantStats struct {
	Win                bool `json:"win"`
	Kills              int  `json:"kills"`
	Deaths             int  `json:"deaths"`
	Assists            int  `json:"assists"`
	GoldEarned         int  `json:"goldEarned"`
	TotalMinionsKilled int  `json:"totalMinionsKilled"`
	ChampLevel         int  `json:"champLevel"`
}

type ParticipantIdentity struct {
	ParticipantID int    `json:"participantId"`
	Player        Player `json:"player"`
}

type Player struct {
	SummonerID   int64  `json:"summonerId"`
	AccountID    int64  `json:"accountId"`
	SummonerName string `json:"summonerName"`
}

// MatchTimeline represents the response from /match/v3/timelines/by-match/{matchId}
type MatchTimeline struct {
	FrameInterval int64   `json:"frameInterval"`
	Frames        []Frame `json:"frames"`
}

type Frame struct {
	Timestamp         int64                       `json:"timestamp"`
	ParticipantFrames map[string]ParticipantFrame `json:"participantFrames"`
	Events            []Event                     `json:"events"`
}

// Position is a map coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MissingPosition is the sentinel used when a participant frame carries no
// position, which the API does for the final frame of a match.
var MissingPosition = Position{X: -1, Y: -1}

// IsMissing reports whether p is the MissingPosition sentinel.
func (p Position) IsMissing() bool { return p == MissingPosition }

type ParticipantFrame struct {
	ParticipantID       int      `json:"participantId"`
	Level               int      `json:"level"`
	TotalGold           int      `json:"totalGold"`
	CurrentGold         int      `json:"currentGold"`
	XP                  int      `json:"xp"`
	MinionsKilled       int      `json:"minionsKilled"`
	JungleMinionsKilled int      `json:"jungleMinionsKilled"`
	Position            Position `json:"position"`
}

// UnmarshalJSON fills Position with MissingPosition when the field is absent.
func (f *ParticipantFrame) UnmarshalJSON(data []byte) error {
	type plain ParticipantFrame
	var aux struct {
		plain
		Position *Position `json:"position"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = ParticipantFrame(aux.plain)
	if aux.Position != nil {
		f.Position = *aux.Position
	} else {
		f.Position = MissingPosition
	}
	return nil
}

type Event struct {
	Type                    string    `json:"type"`
	Timestamp               int64     `json:"timestamp"`
	ParticipantID           int       `json:"participantId,omitempty"`
	CreatorID               int       `json:"creatorId,omitempty"`
	KillerID                int       `json:"killerId,omitempty"`
	VictimID                int       `json:"victimId,omitempty"`
	AssistingParticipantIDs []int     `json:"assistingParticipantIds,omitempty"`
	ItemID                  int       `json:"itemId,omitempty"`
	MonsterType             string    `json:"monsterType,omitempty"`
	BuildingType            string    `json:"buildingType,omitempty"`
	Position                *Position `json:"position,omitempty"`
}

// ShardStatus represents the response from /status/v3/shard-data
type ShardStatus struct {
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	RegionTag string   `json:"region_tag"`
	Hostname  string   `json:"hostname"`
	Locales   []string `json:"locales"`
}
