package domain

import (
	"time"
)

const InitialRating = 1200

type Player struct {
	ID            string
	DisplayName   string
	ExternalAlias *string
	Rating        int
	MatchesPlayed int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MarginData carries the score detail reported with an outcome, e.g. games or
// legs won by each side.
type MarginData struct {
	WinnerScore int `json:"winner_score"`
	LoserScore  int `json:"loser_score"`
}

func (m MarginData) Differential() int {
	return m.WinnerScore - m.LoserScore
}

type LedgerEntry struct {
	MatchID           string
	WinnerID          string
	LoserID           string
	Delta             int
	WinnerRatingAfter int
	LoserRatingAfter  int
	MarginData        *MarginData
	RecordedAt        time.Time
}

// Involves reports whether playerID is the winner or the loser of the entry.
func (e LedgerEntry) Involves(playerID string) bool {
	return e.WinnerID == playerID || e.LoserID == playerID
}

// Candidate is an outcome handed to the ledger by a reporting collaborator.
type Candidate struct {
	MatchID    string
	WinnerID   string
	LoserID    string
	MarginData *MarginData
}

type CommitStatus string

const (
	StatusCommitted         CommitStatus = "committed"
	StatusRejectedDuplicate CommitStatus = "rejected_duplicate"
	StatusRejectedInvalid   CommitStatus = "rejected_invalid"
)

type CommitResult struct {
	Status CommitStatus
	// Entry is the committed entry, or for a duplicate the entry already on
	// record under the same match id.
	Entry *LedgerEntry
	// Reason is set for rejected outcomes.
	Reason string
}

type Outcome int

const (
	OutcomeNoData Outcome = iota
	OutcomeWin
	OutcomeLoss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "W"
	case OutcomeLoss:
		return "L"
	default:
		return "-"
	}
}

type HistoryPoint struct {
	At     time.Time
	Rating int
	// MatchID is empty for the creation point.
	MatchID string
}

// Drift describes a player whose stored values disagree with a ledger replay.
type Drift struct {
	PlayerID              string
	DisplayName           string
	StoredRating          int
	ReplayedRating        int
	StoredMatchesPlayed   int
	ReplayedMatchesPlayed int
}

type PlayerStats struct {
	Player  Player
	Trend   []Outcome
	Streak  bool
	WinRate float64
	Wins    int
	Losses  int
	History []HistoryPoint
}
